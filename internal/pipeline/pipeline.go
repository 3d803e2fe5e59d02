// Package pipeline turns a tokenized command line into a sequence of
// command descriptors connected by pipes and/or file redirection.
package pipeline

import (
	"errors"

	"sush/internal/token"
)

// ErrMalformedCmdline is returned by Build and Assemble whenever a
// command line cannot be turned into a valid pipeline: an empty
// segment, a dangling redirection operator, conflicting stdin/stdout
// routing, or a redirection with no filename.
var ErrMalformedCmdline = errors.New("malformed command line")

// StdinKind says where a Descriptor's standard input comes from.
type StdinKind int

const (
	StdinDefault StdinKind = iota // inherited, or a pipe from the previous segment
	StdinFile
)

// StdoutKind says where a Descriptor's standard output goes.
type StdoutKind int

const (
	StdoutDefault StdoutKind = iota // inherited, or a pipe to the next segment
	StdoutTrunc
	StdoutAppend
)

// StdinSource describes one Descriptor's input routing.
type StdinSource struct {
	Kind StdinKind
	Path string // set only when Kind == StdinFile
}

// StdoutSink describes one Descriptor's output routing.
type StdoutSink struct {
	Kind StdoutKind
	Path string // set only when Kind != StdoutDefault
}

// Descriptor is one pipeline segment: a command and its argv, plus how
// its standard streams are wired up.
type Descriptor struct {
	CmdName string
	Argv    []string

	PipeIn  bool // true when this segment's stdin is the previous segment's stdout
	PipeOut bool // true when this segment's stdout feeds the next segment

	Stdin  StdinSource
	Stdout StdoutSink
}

// Pipeline is an ordered list of connected command descriptors.
type Pipeline []*Descriptor

// Build splits line on every pipe character (quoted or not, see
// token.SplitSegments), tokenizes and assembles each segment, and
// returns the resulting Pipeline.
func Build(line string) (Pipeline, error) {
	segments := token.SplitSegments(line)
	total := len(segments)

	pl := make(Pipeline, 0, total)
	for i, seg := range segments {
		toks := token.Tokenize(seg)
		d, err := Assemble(toks, i, total)
		if err != nil {
			return nil, err
		}
		pl = append(pl, d)
	}
	return pl, nil
}

// Assemble converts one segment's tokens into a Descriptor. index is
// this segment's position and total is the number of segments in the
// whole pipeline; together they decide PipeIn/PipeOut.
func Assemble(toks []token.Token, index, total int) (*Descriptor, error) {
	retagged := make([]token.Token, 0, len(toks))

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != token.Redir {
			retagged = append(retagged, t)
			continue
		}

		if i+1 >= len(toks) || toks[i+1].Kind != token.Normal {
			return nil, ErrMalformedCmdline
		}

		filename := toks[i+1]
		switch t.Text {
		case "<":
			filename.Kind = token.FileIn
		case ">":
			filename.Kind = token.FileOutTrunc
		case ">>":
			filename.Kind = token.FileOutAppend
		}
		retagged = append(retagged, filename)
		i++ // the filename token was consumed along with the operator
	}

	d := &Descriptor{}
	var argv []string
	stdinSet, stdoutSet := false, false

	for _, t := range retagged {
		switch t.Kind {
		case token.FileIn:
			if stdinSet {
				return nil, ErrMalformedCmdline
			}
			d.Stdin = StdinSource{Kind: StdinFile, Path: t.Text}
			stdinSet = true
		case token.FileOutTrunc:
			if stdoutSet {
				return nil, ErrMalformedCmdline
			}
			d.Stdout = StdoutSink{Kind: StdoutTrunc, Path: t.Text}
			stdoutSet = true
		case token.FileOutAppend:
			if stdoutSet {
				return nil, ErrMalformedCmdline
			}
			d.Stdout = StdoutSink{Kind: StdoutAppend, Path: t.Text}
			stdoutSet = true
		default:
			argv = append(argv, t.Text)
		}
	}

	if (stdinSet && d.Stdin.Path == "") || (stdoutSet && d.Stdout.Path == "") {
		return nil, ErrMalformedCmdline
	}

	d.PipeIn = index > 0
	d.PipeOut = index < total-1

	if d.PipeIn && stdinSet {
		return nil, ErrMalformedCmdline
	}
	if d.PipeOut && stdoutSet {
		return nil, ErrMalformedCmdline
	}

	if len(argv) == 0 {
		return nil, ErrMalformedCmdline
	}

	d.Argv = argv
	d.CmdName = argv[0]
	return d, nil
}
