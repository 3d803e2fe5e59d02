package queue

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sush/internal/diag"
	"sush/internal/pipeline"
)

// stubRunner completes every job instantly with a fixed exit code,
// unless told to block until released.
type stubRunner struct {
	mu      sync.Mutex
	started []*pipeline.Descriptor
	block   bool
	release chan struct{}
}

func newStubRunner() *stubRunner {
	return &stubRunner{release: make(chan struct{})}
}

func (s *stubRunner) RunQueued(d *pipeline.Descriptor) (RunningJob, error) {
	s.mu.Lock()
	s.started = append(s.started, d)
	block := s.block
	s.mu.Unlock()

	if !block {
		return NewCompletedJob(0), nil
	}
	return &blockingJob{release: s.release}, nil
}

type blockingJob struct {
	release chan struct{}
	killed  bool
}

func (b *blockingJob) Pid() int { return 4242 }
func (b *blockingJob) Kill() error {
	b.killed = true
	close(b.release)
	return nil
}
func (b *blockingJob) Wait() (int, error) {
	<-b.release
	if b.killed {
		return -1, ErrKilled
	}
	return 0, nil
}

func descriptor(cmd string) *pipeline.Descriptor {
	return &pipeline.Descriptor{CmdName: cmd, Argv: []string{cmd}}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestManager_EnqueueAssignsIncreasingIDs(t *testing.T) {
	r := newStubRunner()
	m := NewManager(r, 0, t.TempDir(), &bytes.Buffer{}, diag.Noop())
	defer m.Shutdown()

	id1, err := m.Enqueue(descriptor("true"))
	require.NoError(t, err)
	id2, err := m.Enqueue(descriptor("true"))
	require.NoError(t, err)

	assert.Equal(t, 0, id1)
	assert.Equal(t, 1, id2)
}

func TestManager_RejectsAlreadyRedirectedCommand(t *testing.T) {
	r := newStubRunner()
	m := NewManager(r, 0, t.TempDir(), &bytes.Buffer{}, diag.Noop())
	defer m.Shutdown()

	d := descriptor("cat")
	d.Stdin = pipeline.StdinSource{Kind: pipeline.StdinFile, Path: "in.txt"}

	_, err := m.Enqueue(d)
	assert.ErrorIs(t, err, ErrRedirected)
}

func TestManager_RejectsQueueManagementCommand(t *testing.T) {
	r := newStubRunner()
	m := NewManager(r, 0, t.TempDir(), &bytes.Buffer{}, diag.Noop())
	defer m.Shutdown()

	for _, name := range []string{"queue", "status", "output", "cancel"} {
		_, err := m.Enqueue(descriptor(name))
		assert.ErrorIs(t, err, ErrQueueManagementCommand, "command %q should be rejected", name)
	}
	assert.Empty(t, r.started, "none of the rejected commands should have reached the runner")
}

func TestManager_RejectsOverCapacity(t *testing.T) {
	r := newStubRunner()
	r.block = true
	m := NewManager(r, 1, t.TempDir(), &bytes.Buffer{}, diag.Noop())
	defer m.Shutdown()

	_, err := m.Enqueue(descriptor("sleep"))
	require.NoError(t, err)

	_, err = m.Enqueue(descriptor("sleep"))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestManager_OutputFailsUntilJobCompletes(t *testing.T) {
	r := newStubRunner()
	r.block = true
	m := NewManager(r, 0, t.TempDir(), &bytes.Buffer{}, diag.Noop())

	id, err := m.Enqueue(descriptor("sleep"))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = m.Output(&buf, id)
	assert.Error(t, err, "job is still running, Output should refuse")

	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	require.NotNil(t, running)
	require.NoError(t, running.Value.rj.Kill())

	m.Shutdown()
}

func TestManager_CancelQueuedJobRemovesIt(t *testing.T) {
	r := newStubRunner()
	r.block = true
	m := NewManager(r, 0, t.TempDir(), &bytes.Buffer{}, diag.Noop())
	defer m.Shutdown()

	_, err := m.Enqueue(descriptor("sleep")) // occupies the single worker
	require.NoError(t, err)
	secondID, err := m.Enqueue(descriptor("sleep")) // stays queued behind it
	require.NoError(t, err)

	require.NoError(t, m.Cancel(secondID))

	var buf bytes.Buffer
	assert.Error(t, m.Output(&buf, secondID))
}

func TestManager_StatusReportsJobState(t *testing.T) {
	r := newStubRunner()
	m := NewManager(r, 0, t.TempDir(), &bytes.Buffer{}, diag.Noop())
	defer m.Shutdown()

	id, err := m.Enqueue(descriptor("true"))
	require.NoError(t, err)

	waitUntil(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		e := m.find(id)
		return e != nil && e.Value.Complete()
	})

	var buf bytes.Buffer
	m.Status(&buf)
	assert.Contains(t, buf.String(), "complete")
}

func TestManager_OnlyOneJobRunsAtATime(t *testing.T) {
	r := newStubRunner()
	r.block = true
	m := NewManager(r, 0, t.TempDir(), &bytes.Buffer{}, diag.Noop())

	_, err := m.Enqueue(descriptor("sleep"))
	require.NoError(t, err)
	_, err = m.Enqueue(descriptor("sleep"))
	require.NoError(t, err)
	_, err = m.Enqueue(descriptor("sleep"))
	require.NoError(t, err)

	m.mu.Lock()
	started := len(r.started)
	m.mu.Unlock()
	assert.Equal(t, 1, started, "only the first job should have been handed to the runner")

	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	require.NoError(t, running.Value.rj.Kill())

	m.Shutdown()
}
