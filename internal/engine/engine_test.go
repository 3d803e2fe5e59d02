package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sush/internal/diag"
	"sush/internal/environment"
	"sush/internal/pipeline"
)

func testEnv() *environment.Store {
	return environment.FromEnviron(os.Environ())
}

func TestEngine_RunSingleCommand(t *testing.T) {
	e := New(diag.Noop())
	pl, err := pipeline.Build("echo hello world")
	require.NoError(t, err)

	var out bytes.Buffer
	status, err := e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &out, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "hello world\n", out.String())
}

func TestEngine_RunPipeline(t *testing.T) {
	e := New(diag.Noop())
	pl, err := pipeline.Build("echo banana | tr a-z A-Z")
	require.NoError(t, err)

	var out bytes.Buffer
	status, err := e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &out, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "BANANA\n", out.String())
}

func TestEngine_FileInputRedirection(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("from file\n"), 0o644))

	e := New(diag.Noop())
	pl, err := pipeline.Build("cat < " + in)
	require.NoError(t, err)

	var out bytes.Buffer
	status, err := e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &out, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "from file\n", out.String())
}

func TestEngine_FileOutputTruncateThenAppend(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")

	e := New(diag.Noop())

	pl, err := pipeline.Build("echo first > " + outPath)
	require.NoError(t, err)
	_, err = e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)

	pl, err = pipeline.Build("echo second >> " + outPath)
	require.NoError(t, err)
	_, err = e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestEngine_NonexistentCommandReportsError(t *testing.T) {
	e := New(diag.Noop())
	pl, err := pipeline.Build("this-command-does-not-exist-anywhere")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &out, &out)
	assert.Error(t, err)
}

func TestEngine_BadInputFileReportsErrBadInFile(t *testing.T) {
	e := New(diag.Noop())
	pl, err := pipeline.Build("cat < /no/such/path/at/all")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &out, &out)
	assert.ErrorIs(t, err, ErrBadInFile)
}

func TestEngine_NonZeroExitStatusIsPropagated(t *testing.T) {
	e := New(diag.Noop())
	pl, err := pipeline.Build("false")
	require.NoError(t, err)

	var out bytes.Buffer
	status, err := e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &out, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, status)
}

func TestEngine_ExitStatusIsTheLastSegments(t *testing.T) {
	e := New(diag.Noop())
	pl, err := pipeline.Build("false | true")
	require.NoError(t, err)

	var out bytes.Buffer
	status, err := e.Run(context.Background(), pl, testEnv(), strings.NewReader(""), &out, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}
