// Package shell ties the tokenizer, pipeline assembler, built-in
// dispatcher, execution engine, and background job queue together
// into the thing a user actually types commands at.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"sush/internal/builtin"
	"sush/internal/config"
	"sush/internal/diag"
	"sush/internal/engine"
	"sush/internal/environment"
	"sush/internal/pipeline"
	"sush/internal/queue"
)

const defaultPrompt = ">"

// Outcome is what running one line produced.
type Outcome struct {
	Status int
	Exit   bool
}

// Shell holds every component a running session needs.
type Shell struct {
	Env      *environment.Store
	Builtins *builtin.Dispatcher
	Engine   *engine.Engine
	Queue    *queue.Manager
	Diag     *diag.Logger
	Config   *config.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// New constructs a Shell seeded from the current process environment,
// with PS1 and SUSHHOME defaulted the way sush's startup sequence
// expects: PS1 to the configured prompt (">" if that is empty) and
// SUSHHOME to the shell's starting directory.
func New(cfg *config.Config, log *diag.Logger, stdin io.Reader, stdout, stderr io.Writer) (*Shell, error) {
	env := environment.FromEnviron(os.Environ())
	env.EnsureDefault("PS1", firstNonEmpty(cfg.Prompt, defaultPrompt))

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("shell: %w", err)
	}
	env.EnsureDefault("SUSHHOME", wd)
	env.EnsureDefault("PWD", wd)

	s := &Shell{
		Env:      env,
		Builtins: builtin.NewDispatcher(),
		Engine:   engine.New(log),
		Diag:     log,
		Config:   cfg,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
	s.Queue = queue.NewManager(s, cfg.MaxQueueDepth, cfg.ResolveQueueCaptureDir(), stdout, log)
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Prompt returns the current value of PS1, falling back to the
// built-in default if it was ever unset.
func (s *Shell) Prompt() string {
	if p := s.Env.Get("PS1"); p != "" {
		return p
	}
	return defaultPrompt
}

// RunLine parses and runs one command line: split into segments,
// tokenize, assemble into a pipeline, then dispatch the first segment
// either to a built-in or to the execution engine.
func (s *Shell) RunLine(line string) Outcome {
	pl, err := pipeline.Build(line)
	if err != nil {
		fmt.Fprintf(s.stderr, "sush: %s\n", err)
		if s.Diag != nil {
			s.Diag.Warn("malformed-cmdline", zap.String("line", line), zap.Error(err))
		}
		return Outcome{Status: 1}
	}

	first := pl[0]
	if s.Builtins.IsBuiltin(first.CmdName) {
		ctx := &builtin.Context{
			Env:        s.Env,
			Queue:      s.Queue,
			Stdout:     s.stdout,
			Stderr:     s.stderr,
			Diag:       s.Diag,
			Piped:      len(pl) > 1,
			Redirected: first.Stdin.Kind != pipeline.StdinDefault || first.Stdout.Kind != pipeline.StdoutDefault,
		}
		switch s.Builtins.Dispatch(ctx, first.Argv) {
		case builtin.ExitShell:
			return Outcome{Exit: true, Status: 0}
		case builtin.Failure:
			return Outcome{Status: 1}
		default:
			return Outcome{Status: 0}
		}
	}

	status, err := s.Engine.Run(context.Background(), pl, s.Env, s.stdin, s.stdout, s.stderr)
	if err != nil {
		fmt.Fprintf(s.stderr, "sush: %s\n", err)
		if s.Diag != nil {
			s.Diag.Warn("exec-failed", zap.String("line", line), zap.Error(err))
		}
	}
	return Outcome{Status: status}
}

// RunQueued implements queue.CommandRunner: it runs a single, already
// backgrounded descriptor (stdin /dev/null, stdout a capture file),
// dispatching to a built-in synchronously or starting an external
// process asynchronously, the same way RunLine's first segment would.
func (s *Shell) RunQueued(d *pipeline.Descriptor) (queue.RunningJob, error) {
	stdinFile, err := os.Open(d.Stdin.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Stdin.Path, err)
	}

	stdoutFile, err := os.OpenFile(d.Stdout.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o777)
	if err != nil {
		stdinFile.Close()
		return nil, fmt.Errorf("%s: %w", d.Stdout.Path, err)
	}

	if s.Builtins.IsBuiltin(d.CmdName) {
		ctx := &builtin.Context{
			Env:    s.Env,
			Queue:  s.Queue,
			Stdout: stdoutFile,
			Stderr: stdoutFile,
			Diag:   s.Diag,
		}
		res := s.Builtins.Dispatch(ctx, d.Argv)
		stdinFile.Close()
		stdoutFile.Close()
		return queue.NewCompletedJob(builtinExitCode(res)), nil
	}

	cmd := exec.Command(d.CmdName, d.Argv[1:]...)
	cmd.Env = s.Env.Export()
	cmd.Stdin = stdinFile
	cmd.Stdout = stdoutFile
	cmd.Stderr = stdoutFile

	if err := cmd.Start(); err != nil {
		stdinFile.Close()
		stdoutFile.Close()
		return nil, fmt.Errorf("%s: %w", d.CmdName, err)
	}

	return queue.NewProcessJob(cmd, func() {
		stdinFile.Close()
		stdoutFile.Close()
	}), nil
}

func builtinExitCode(res builtin.Result) int {
	if res == builtin.Failure {
		return 1
	}
	return 0
}

// RunStartupFile runs every non-empty, non-comment line of path
// before the first prompt is shown, the way a .sushrc is processed. A
// missing file, or one the shell's owner cannot read and execute, is
// silently skipped rather than treated as an error.
func (s *Shell) RunStartupFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o500 != 0o500 {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if outcome := s.RunLine(line); outcome.Exit {
			return
		}
	}
}

// RunOnce runs a single line (the -c flag's argument) and returns its
// exit status.
func (s *Shell) RunOnce(line string) int {
	return s.RunLine(line).Status
}

// Close releases the queue's worker and any unclaimed capture files.
func (s *Shell) Close() {
	s.Queue.Shutdown()
}
