package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jgirmay/dtq/internal/leasequeue"
	"github.com/jgirmay/dtq/internal/registry"
	"github.com/jgirmay/dtq/internal/taskstore"
)

func newTestCoordinator(leaseSeconds int) *Coordinator {
	store := taskstore.NewStore()
	queue := leasequeue.New()
	reg := registry.New(time.Hour)
	cfg := Config{LeaseSeconds: leaseSeconds, SweepInterval: time.Hour}
	return New(store, queue, reg, cfg, nil)
}

// Scenario 1: happy path.
func TestCoordinator_HappyPath(t *testing.T) {
	c := newTestCoordinator(20)

	taskID, err := c.Submit("add", map[string]any{"a": 10, "b": 32}, 3, 10)
	require.NoError(t, err)

	task, ok := c.PullForWorker("worker-1")
	require.True(t, ok)
	require.Equal(t, taskID, task.TaskID)

	c.Report("worker-1", taskID, true, map[string]any{"sum": 42}, "")

	final, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusDone, final.Status)
	require.Equal(t, 42, final.Result["sum"])
	require.Equal(t, 0, final.RetryCount)
}

// Scenario 2: retry then success.
func TestCoordinator_RetryThenSuccess(t *testing.T) {
	c := newTestCoordinator(20)

	taskID, err := c.Submit("add", map[string]any{"a": 1, "b": 2}, 2, 10)
	require.NoError(t, err)

	_, ok := c.PullForWorker("worker-1")
	require.True(t, ok)

	c.Report("worker-1", taskID, false, nil, "boom")

	mid, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusPending, mid.Status)
	require.Equal(t, 1, mid.RetryCount)

	task, ok := c.PullForWorker("worker-1")
	require.True(t, ok)
	require.Nil(t, task.LastError)

	c.Report("worker-1", taskID, true, map[string]any{"sum": 3}, "")

	final, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusDone, final.Status)
	require.Equal(t, 1, final.RetryCount)
}

// Scenario 3: exhaust retries.
func TestCoordinator_ExhaustRetries(t *testing.T) {
	c := newTestCoordinator(20)

	taskID, err := c.Submit("add", map[string]any{}, 1, 10)
	require.NoError(t, err)

	_, ok := c.PullForWorker("worker-1")
	require.True(t, ok)
	c.Report("worker-1", taskID, false, nil, "err1")

	after1, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusPending, after1.Status)
	require.Equal(t, 1, after1.RetryCount)

	_, ok = c.PullForWorker("worker-1")
	require.True(t, ok)
	c.Report("worker-1", taskID, false, nil, "err2")

	after2, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusFailed, after2.Status)
	require.Equal(t, 2, after2.RetryCount)

	_, ok = c.PullForWorker("worker-1")
	require.False(t, ok)
}

// Scenario 4: lease timeout reclaims the task for another worker.
func TestCoordinator_LeaseTimeout(t *testing.T) {
	c := newTestCoordinator(0)

	taskID, err := c.Submit("add", map[string]any{}, 3, 10)
	require.NoError(t, err)

	_, ok := c.PullForWorker("worker-A")
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	result := c.SweeperTick()
	require.Equal(t, 1, result.LeasesExpired)
	require.Equal(t, 1, result.Requeued)

	expired, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusPending, expired.Status)
	require.Equal(t, 1, expired.RetryCount)
	require.Equal(t, "Lease expired (worker lost/timeout)", *expired.LastError)

	task, ok := c.PullForWorker("worker-B")
	require.True(t, ok)
	c.Report("worker-B", task.TaskID, true, map[string]any{"sum": 0}, "")

	final, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusDone, final.Status)
	require.Equal(t, 1, final.RetryCount)
}

// Scenario 5: a stale report from a worker whose lease already expired
// and was reassigned is dropped silently.
func TestCoordinator_StaleReportIgnored(t *testing.T) {
	c := newTestCoordinator(0)

	taskID, err := c.Submit("add", map[string]any{}, 3, 10)
	require.NoError(t, err)

	_, ok := c.PullForWorker("worker-A")
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	c.SweeperTick()

	_, ok = c.PullForWorker("worker-B")
	require.True(t, ok)
	c.Report("worker-B", taskID, true, map[string]any{"sum": 99}, "")

	c.Report("worker-A", taskID, true, map[string]any{"sum": -1}, "")

	final, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusDone, final.Status)
	require.Equal(t, 99, final.Result["sum"])
}

// Scenario 6: a worker's in_flight count is not decremented by lease
// expiry, only by the report path — an acknowledged skew.
func TestCoordinator_DeadWorkerInFlightSkew(t *testing.T) {
	store := taskstore.NewStore()
	queue := leasequeue.New()
	reg := registry.New(10 * time.Millisecond)
	cfg := Config{LeaseSeconds: 0, SweepInterval: time.Hour}
	c := New(store, queue, reg, cfg, nil)

	reg.Register("worker-W")
	_, err := c.Submit("echo", map[string]any{}, 3, 10)
	require.NoError(t, err)

	_, ok := c.PullForWorker("worker-W")
	require.True(t, ok)
	require.Equal(t, 1, reg.Stats().InFlightTotal)

	time.Sleep(20 * time.Millisecond)
	c.SweeperTick()

	require.False(t, reg.IsAlive("worker-W"))
	require.Equal(t, 1, reg.Stats().InFlightTotal)
}

func TestCoordinator_SubmitRejectsInvalidType(t *testing.T) {
	c := newTestCoordinator(20)
	longType := make([]byte, 65)
	_, err := c.Submit(string(longType), nil, 3, 10)
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestCoordinator_SubmitRejectsInvalidMaxRetries(t *testing.T) {
	c := newTestCoordinator(20)
	_, err := c.Submit("echo", nil, 21, 10)
	require.ErrorIs(t, err, ErrInvalidMaxRetries)
}

func TestCoordinator_SubmitRejectsInvalidTimeout(t *testing.T) {
	c := newTestCoordinator(20)
	_, err := c.Submit("echo", nil, 3, 0)
	require.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestCoordinator_ReportForUnknownWorkerIsNoOp(t *testing.T) {
	c := newTestCoordinator(20)
	taskID, err := c.Submit("echo", nil, 3, 10)
	require.NoError(t, err)

	_, ok := c.PullForWorker("worker-1")
	require.True(t, ok)

	c.Report("worker-2", taskID, true, map[string]any{"echo": true}, "")

	task, ok := c.Get(taskID)
	require.True(t, ok)
	require.Equal(t, taskstore.StatusRunning, task.Status)
}

func TestCoordinator_StartStop(t *testing.T) {
	c := newTestCoordinator(20)
	c.cfg.SweepInterval = 5 * time.Millisecond
	c.Start()
	time.Sleep(15 * time.Millisecond)
	c.Stop()
}

func TestCoordinator_Metrics(t *testing.T) {
	c := newTestCoordinator(20)
	_, err := c.Submit("echo", nil, 3, 10)
	require.NoError(t, err)

	m := c.Metrics()
	require.Equal(t, 1, m["tasks_total"])
	require.Equal(t, 1, m["queue_ready"])
}
