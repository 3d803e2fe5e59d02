package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSegments(t *testing.T) {
	assert.Equal(t, []string{"echo hi"}, SplitSegments("echo hi"))
	assert.Equal(t, []string{"echo hi ", " grep h"}, SplitSegments("echo hi | grep h"))
	assert.Equal(t, []string{"echo \"a", "b\""}, SplitSegments(`echo "a|b"`),
		"split is literal and quote-oblivious, even inside quotes")
}

func TestTokenize_PlainWords(t *testing.T) {
	toks := Tokenize("echo  hello   world")
	require := []Token{
		{Text: "echo", Kind: Normal},
		{Text: "hello", Kind: Normal},
		{Text: "world", Kind: Normal},
	}
	assert.Equal(t, require, toks)
}

func TestTokenize_QuotedRun(t *testing.T) {
	toks := Tokenize(`echo "hello world"`)
	assert.Equal(t, []Token{
		{Text: "echo", Kind: Normal},
		{Text: "hello world", Kind: Normal},
	}, toks)
}

func TestTokenize_UnterminatedQuoteStillEmits(t *testing.T) {
	toks := Tokenize(`echo "abc`)
	assert.Equal(t, []Token{
		{Text: "echo", Kind: Normal},
		{Text: "abc", Kind: Normal},
	}, toks)
}

func TestTokenize_EmptyQuotedString(t *testing.T) {
	toks := Tokenize(`echo ""`)
	assert.Equal(t, []Token{
		{Text: "echo", Kind: Normal},
		{Text: "", Kind: Normal},
	}, toks)
}

func TestTokenize_RedirectionOperators(t *testing.T) {
	toks := Tokenize("cmd < in.txt > out.txt")
	assert.Equal(t, []Token{
		{Text: "cmd", Kind: Normal},
		{Text: "<", Kind: Redir},
		{Text: "in.txt", Kind: Normal},
		{Text: ">", Kind: Redir},
		{Text: "out.txt", Kind: Normal},
	}, toks)
}

func TestTokenize_AppendOperatorAndNoSpaceBeforeFilename(t *testing.T) {
	toks := Tokenize("cmd>>out.txt")
	assert.Equal(t, []Token{
		{Text: "cmd", Kind: Normal},
		{Text: ">>", Kind: Redir},
		{Text: "out.txt", Kind: Normal},
	}, toks)
}

func TestTokenize_RedirIgnoredInsideQuotes(t *testing.T) {
	toks := Tokenize(`echo "a>b"`)
	assert.Equal(t, []Token{
		{Text: "echo", Kind: Normal},
		{Text: "a>b", Kind: Normal},
	}, toks)
}

func TestTokenize_RoundTripsOnSingleSpacedNormalWords(t *testing.T) {
	line := "one two three four"
	toks := Tokenize(line)
	words := make([]string, len(toks))
	for i, tk := range toks {
		words[i] = tk.Text
	}
	assert.Equal(t, line, strings.Join(words, " "))
}
