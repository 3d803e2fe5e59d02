package queue

import (
	"errors"
	"os/exec"
	"sync"

	"sush/internal/pipeline"
)

// ErrKilled is the sentinel error a RunningJob.Wait returns when the
// job was terminated by Kill rather than exiting on its own.
var ErrKilled = errors.New("job was cancelled")

// RunningJob is a single in-flight queued command. It is implemented
// both by processJob, for external commands, and by completedJob, for
// built-ins that already ran to completion by the time they return
// one.
type RunningJob interface {
	// Pid returns the OS process id, or 0 if the job never became a
	// real OS process (a built-in that ran in-process).
	Pid() int
	// Wait blocks until the job finishes and returns its exit code.
	// If the job was cancelled, it returns ErrKilled.
	Wait() (exitCode int, err error)
	// Kill terminates a still-running job. Calling Kill on a job that
	// has already finished returns an error.
	Kill() error
}

// CommandRunner knows how to start a queued command's descriptor,
// which has already been rewritten to read from /dev/null and write
// to a private capture file. Package shell implements this by
// choosing between a built-in dispatch and an external os/exec.Cmd the
// same way the interactive runner does.
type CommandRunner interface {
	RunQueued(d *pipeline.Descriptor) (RunningJob, error)
}

// processJob wraps a real external command.
type processJob struct {
	cmd    *exec.Cmd
	closer func()

	mu     sync.Mutex
	killed bool
}

// NewProcessJob wraps an already-started *exec.Cmd as a RunningJob.
// closer is called exactly once, when the process exits, to release
// the files backing its stdin/stdout.
func NewProcessJob(cmd *exec.Cmd, closer func()) RunningJob {
	return &processJob{cmd: cmd, closer: closer}
}

func (p *processJob) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *processJob) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	if p.cmd.Process == nil {
		return errors.New("job has not started yet")
	}
	return p.cmd.Process.Kill()
}

func (p *processJob) Wait() (int, error) {
	waitErr := p.cmd.Wait()
	if p.closer != nil {
		p.closer()
	}

	p.mu.Lock()
	killed := p.killed
	p.mu.Unlock()

	if killed {
		return -1, ErrKilled
	}
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, waitErr
}

// completedJob wraps a built-in that already ran to completion
// in-process before the queue ever saw it as "running".
type completedJob struct {
	exitCode int
}

// NewCompletedJob returns a RunningJob that is already finished.
func NewCompletedJob(exitCode int) RunningJob {
	return &completedJob{exitCode: exitCode}
}

func (c *completedJob) Pid() int            { return 0 }
func (c *completedJob) Wait() (int, error)  { return c.exitCode, nil }
func (c *completedJob) Kill() error         { return errors.New("job already finished") }
