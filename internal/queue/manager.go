// Package queue implements the background job queue: a single
// worker that runs queued commands one at a time, in the order they
// were submitted, while the interactive shell keeps accepting input.
package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/bahlo/generic-list-go"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"sush/internal/diag"
	"sush/internal/pipeline"
)

// ErrQueueFull is returned by Enqueue when the queue already holds
// MaxQueueDepth jobs and a capacity limit is configured.
var ErrQueueFull = errors.New("queue is full")

// ErrRedirected is returned by Enqueue when the descriptor being
// queued already pipes or redirects its own stdin/stdout: a queued
// job's streams are always /dev/null in, capture-file out, and
// anything else the caller set is rejected up front.
var ErrRedirected = errors.New("queued commands cannot pipe or redirect")

// ErrQueueManagementCommand is returned by Enqueue for queue, status,
// output, and cancel: those call back into the Manager they'd be
// running under. Starting one from inside startNextLocked, which runs
// with m.mu held, would reenter Lock and deadlock, so they are
// rejected before they ever reach the worker.
var ErrQueueManagementCommand = errors.New("the queue's own commands cannot be queued")

var queueManagementCommands = map[string]bool{
	"queue":  true,
	"status": true,
	"output": true,
	"cancel": true,
}

// Job is one entry in the queue.
type Job struct {
	ID         int
	OutFile    string
	Descriptor *pipeline.Descriptor

	pid      int
	complete bool
	rj       RunningJob
}

// PID returns the OS process id of a running job, or 0 if the job has
// not started yet (or never became a real OS process).
func (j *Job) PID() int { return j.pid }

// Complete reports whether the job has finished running.
func (j *Job) Complete() bool { return j.complete }

type jobEvent struct {
	elem     *list.Element[*Job]
	exitCode int
	err      error
}

// Manager owns the queue and its single background worker.
type Manager struct {
	mu         sync.Mutex
	jobs       *list.List[*Job]
	nextID     int
	running    *list.Element[*Job]
	capacity   int
	captureDir string
	runner     CommandRunner
	notify     io.Writer
	log        *diag.Logger

	events chan jobEvent
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager starts a Manager backed by runner. capacity of 0 means
// unbounded. notify receives asynchronous cancellation confirmations
// printed whenever a running job is killed.
func NewManager(runner CommandRunner, capacity int, captureDir string, notify io.Writer, log *diag.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		jobs:       list.New[*Job](),
		capacity:   capacity,
		captureDir: captureDir,
		runner:     runner,
		notify:     notify,
		log:        log,
		events:     make(chan jobEvent),
		ctx:        ctx,
		cancel:     cancel,
	}
	go m.loop()
	return m
}

// Enqueue validates d, rewrites its stdin/stdout to /dev/null and a
// fresh capture file, and appends it to the queue. If the worker is
// idle, the new job starts immediately.
func (m *Manager) Enqueue(d *pipeline.Descriptor) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if queueManagementCommands[d.CmdName] {
		return 0, ErrQueueManagementCommand
	}
	if !isValidBackgroundCommand(d) {
		return 0, ErrRedirected
	}
	if m.capacity > 0 && m.jobs.Len() >= m.capacity {
		return 0, ErrQueueFull
	}

	tmp, err := os.CreateTemp(m.captureDir, "background_cmd_*")
	if err != nil {
		return 0, fmt.Errorf("queue: %w", err)
	}
	tmp.Close()

	d.Stdin = pipeline.StdinSource{Kind: pipeline.StdinFile, Path: os.DevNull}
	d.Stdout = pipeline.StdoutSink{Kind: pipeline.StdoutTrunc, Path: tmp.Name()}

	job := &Job{ID: m.nextID, OutFile: tmp.Name(), Descriptor: d}
	m.nextID++
	m.jobs.PushBack(job)

	if m.running == nil {
		m.startNextLocked()
	}

	return job.ID, nil
}

// isValidBackgroundCommand rejects a descriptor that already pipes or
// redirects on either side: a queued job's stdin and stdout are
// always fully owned by the queue. This is defense in depth for
// callers that build a Descriptor directly; the realistic "queue CMD
// > FILE" and "queue CMD | other" inputs are already rejected by
// builtin.Context's Piped/Redirected checks before Enqueue ever sees
// them, because the outer assembler binds that redirection to the
// queue segment itself rather than to CMD.
func isValidBackgroundCommand(d *pipeline.Descriptor) bool {
	if d.PipeIn || d.Stdin.Kind != pipeline.StdinDefault {
		return false
	}
	if d.PipeOut || d.Stdout.Kind != pipeline.StdoutDefault {
		return false
	}
	return true
}

// startNextLocked runs with m.mu held and calls runner.RunQueued
// synchronously, which for a built-in dispatches it in-process before
// returning. That is only safe because Enqueue already refuses to
// queue any built-in that calls back into the Manager (queue, status,
// output, cancel); none of the built-ins that can reach here touch
// m.mu.
func (m *Manager) startNextLocked() {
	for e := m.jobs.Front(); e != nil; e = e.Next() {
		job := e.Value
		if job.pid != 0 || job.complete {
			continue
		}

		rj, err := m.runner.RunQueued(job.Descriptor)
		if err != nil {
			job.complete = true
			if m.log != nil {
				m.log.Warn("queue-start-failed", zap.Int("job", job.ID), zap.Error(err))
			}
			continue
		}

		job.rj = rj
		job.pid = rj.Pid()
		m.running = e
		go m.watch(e, rj)
		return
	}
	m.running = nil
}

func (m *Manager) watch(e *list.Element[*Job], rj RunningJob) {
	exitCode, err := rj.Wait()
	select {
	case m.events <- jobEvent{elem: e, exitCode: exitCode, err: err}:
	case <-m.ctx.Done():
	}
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			m.mu.Lock()
			job := ev.elem.Value
			if errors.Is(ev.err, ErrKilled) {
				fmt.Fprintf(m.notify, "job %d cancelled\n", job.ID)
				os.Remove(job.OutFile)
				m.jobs.Remove(ev.elem)
			} else {
				job.complete = true
			}
			if m.running == ev.elem {
				m.running = nil
			}
			m.startNextLocked()
			m.mu.Unlock()
		}
	}
}

// Status writes a line per queued, running, or completed job to w.
func (m *Manager) Status(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.jobs.Len() == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for e := m.jobs.Front(); e != nil; e = e.Next() {
		job := e.Value
		switch {
		case job.complete:
			fmt.Fprintf(tw, "%d\t%s\n", job.ID, color.GreenString("complete"))
		case job.pid != 0:
			fmt.Fprintf(tw, "%d\t%s\n", job.ID, color.YellowString("running as pid %d", job.pid))
		default:
			fmt.Fprintf(tw, "%d\t%s\n", job.ID, color.CyanString("queued"))
		}
	}
	tw.Flush()
}

// Output copies a finished job's captured output to w and removes it
// from the queue. It fails if the job is unknown or has not finished.
func (m *Manager) Output(w io.Writer, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(id)
	if e == nil {
		return fmt.Errorf("no such job: %d", id)
	}
	job := e.Value

	switch {
	case !job.complete && job.pid == 0:
		return fmt.Errorf("job %d is still queued", id)
	case !job.complete:
		return fmt.Errorf("job %d is still running", id)
	}

	f, err := os.Open(job.OutFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return err
	}

	os.Remove(job.OutFile)
	m.jobs.Remove(e)
	return nil
}

// Cancel removes a still-queued job, or kills a running one. A
// completed job cannot be cancelled; read it with Output instead.
func (m *Manager) Cancel(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(id)
	if e == nil {
		return fmt.Errorf("no such job: %d", id)
	}
	job := e.Value

	switch {
	case job.complete:
		return fmt.Errorf("job %d already finished, see `output %d`", id, id)
	case job.pid != 0:
		return job.rj.Kill()
	default:
		os.Remove(job.OutFile)
		m.jobs.Remove(e)
		return nil
	}
}

func (m *Manager) find(id int) *list.Element[*Job] {
	for e := m.jobs.Front(); e != nil; e = e.Next() {
		if e.Value.ID == id {
			return e
		}
	}
	return nil
}

// Shutdown stops the worker goroutine and removes any capture files
// left behind by jobs that never had their output collected.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for e := m.jobs.Front(); e != nil; e = e.Next() {
		os.Remove(e.Value.OutFile)
	}
	m.jobs = list.New[*Job]()
	m.mu.Unlock()
	m.cancel()
}
