// Package engine executes a pipeline of external commands: it opens
// any redirection files, wires segments together with OS pipes, and
// runs each segment through os/exec.
//
// Segments are started and waited on one at a time, in order. A
// faster implementation would start every segment first and wait on
// all of them concurrently, but that is not what this shell does: the
// next segment is not started until the previous one has exited. This
// is intentional, not an oversight, and callers must not "fix" it into
// concurrent spawning.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"sush/internal/diag"
	"sush/internal/environment"
	"sush/internal/pipeline"
)

// ErrBadInFile and ErrBadOutFile are wrapped, together with the file's
// path, into the error Run returns when a redirection file cannot be
// opened, so callers can distinguish "couldn't open the file" from
// "the command itself failed to run". The underlying open error is
// logged, not returned.
var (
	ErrBadInFile  = errors.New("cannot open input file")
	ErrBadOutFile = errors.New("cannot open output file")
)

// Engine runs pipelines of external commands.
type Engine struct {
	Log *diag.Logger
}

// New returns an Engine that logs to log.
func New(log *diag.Logger) *Engine {
	return &Engine{Log: log}
}

// Run executes pl segment by segment, wiring up pipes and redirection
// files as described by each Descriptor, and returns the exit status
// of the final segment.
func (e *Engine) Run(ctx context.Context, pl pipeline.Pipeline, env *environment.Store, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if len(pl) == 0 {
		return 0, nil
	}

	environ := env.Export()

	var pipeIn *os.File // read end carried over from the previous segment
	status := 0

	for _, d := range pl {
		var stdinFile, pipeWriter *os.File
		var closeAfterWait []*os.File

		switch {
		case d.Stdin.Kind == pipeline.StdinFile:
			f, err := os.Open(d.Stdin.Path)
			if err != nil {
				e.warn("bad-in-file", d.Stdin.Path, err)
				return status, fmt.Errorf("%s: %w", d.Stdin.Path, ErrBadInFile)
			}
			stdinFile = f
			closeAfterWait = append(closeAfterWait, f)
		case d.PipeIn:
			stdinFile = pipeIn
			closeAfterWait = append(closeAfterWait, pipeIn)
		}

		var stdoutFile *os.File
		switch {
		case d.Stdout.Kind == pipeline.StdoutTrunc:
			f, err := os.OpenFile(d.Stdout.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o777)
			if err != nil {
				e.warn("bad-out-file", d.Stdout.Path, err)
				return status, fmt.Errorf("%s: %w", d.Stdout.Path, ErrBadOutFile)
			}
			stdoutFile = f
			closeAfterWait = append(closeAfterWait, f)
		case d.Stdout.Kind == pipeline.StdoutAppend:
			f, err := os.OpenFile(d.Stdout.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o777)
			if err != nil {
				e.warn("bad-out-file", d.Stdout.Path, err)
				return status, fmt.Errorf("%s: %w", d.Stdout.Path, ErrBadOutFile)
			}
			stdoutFile = f
			closeAfterWait = append(closeAfterWait, f)
		case d.PipeOut:
			r, w, err := os.Pipe()
			if err != nil {
				return status, fmt.Errorf("pipe: %w", err)
			}
			stdoutFile = w
			pipeWriter = w
			pipeIn = r
		}

		cmd := exec.CommandContext(ctx, d.CmdName, d.Argv[1:]...)
		cmd.Env = environ
		cmd.Stderr = stderr

		if stdinFile != nil {
			cmd.Stdin = stdinFile
		} else {
			cmd.Stdin = stdin
		}
		if stdoutFile != nil {
			cmd.Stdout = stdoutFile
		} else {
			cmd.Stdout = stdout
		}

		startErr := cmd.Start()

		// The parent's copy of the pipe's write end must be closed
		// right after the child inherits it, or the reader on the
		// other end never sees EOF once this segment finishes.
		if pipeWriter != nil {
			pipeWriter.Close()
		}

		if startErr != nil {
			closeAll(closeAfterWait)
			e.warn("exec-start-failed", d.CmdName, startErr)
			return status, fmt.Errorf("%s: %w", d.CmdName, startErr)
		}

		waitErr := cmd.Wait()
		closeAll(closeAfterWait)

		status = exitStatus(waitErr)

		if waitErr != nil {
			var exitErr *exec.ExitError
			if !errors.As(waitErr, &exitErr) {
				e.warn("wait-failed", d.CmdName, waitErr)
				return status, fmt.Errorf("%s: %w", d.CmdName, waitErr)
			}
		}
	}

	return status, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func (e *Engine) warn(kind, subject string, err error) {
	if e.Log != nil {
		e.Log.Warn(kind, zap.String("subject", subject), zap.Error(err))
	}
}
