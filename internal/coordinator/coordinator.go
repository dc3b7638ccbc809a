// Package coordinator is the Task Manager: the orchestrator that owns
// submission, worker-pull, result-report, and the periodic sweeper that
// runs as a ticker-driven background goroutine.
package coordinator

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jgirmay/dtq/internal/leasequeue"
	"github.com/jgirmay/dtq/internal/registry"
	"github.com/jgirmay/dtq/internal/taskstore"
)

// Validation bounds for task submission.
const (
	minTypeLen    = 1
	maxTypeLen    = 64
	minMaxRetries = 0
	maxMaxRetries = 20
	minTimeout    = 1
	maxTimeout    = 3600
)

var (
	// ErrInvalidType reports a task type outside the 1-64 char bound.
	ErrInvalidType = errors.New("coordinator: type must be 1-64 characters")
	// ErrInvalidMaxRetries reports max_retries outside [0, 20].
	ErrInvalidMaxRetries = errors.New("coordinator: max_retries must be between 0 and 20")
	// ErrInvalidTimeout reports timeout_seconds outside [1, 3600].
	ErrInvalidTimeout = errors.New("coordinator: timeout_seconds must be between 1 and 3600")
)

const expiredLeaseMessage = "Lease expired (worker lost/timeout)"
const expiredLeaseExhaustedMessage = "Lease expired and retry limit exceeded"

// Config holds the coordinator's tunables, read from the environment.
type Config struct {
	LeaseSeconds  int
	SweepInterval time.Duration
}

// DefaultConfig matches the original's defaults (DTQ_TASK_LEASE_SECONDS
// default 20, sweep cadence ~2s).
func DefaultConfig() Config {
	return Config{
		LeaseSeconds:  20,
		SweepInterval: 2 * time.Second,
	}
}

// EventSink receives lifecycle notifications for the optional live
// event feed (internal/events). Nil-safe: Coordinator works without one.
type EventSink interface {
	Publish(kind string, data map[string]any)
}

// SweepResult is the outcome of one sweeper tick.
type SweepResult struct {
	LeasesExpired int       `json:"leases_expired"`
	Requeued      int       `json:"requeued"`
	Failed        int       `json:"failed"`
	Ts            time.Time `json:"ts"`
}

// Coordinator ties the Worker Registry, Lease Queue and Task Store
// together. It never holds more than one of their locks across an I/O
// suspension point except the explicit backoff sleep in Report, which
// runs lock-free and is re-verified under the store lock afterward.
type Coordinator struct {
	store    *taskstore.Store
	queue    *leasequeue.Queue
	registry *registry.Registry
	cfg      Config
	sink     EventSink

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Coordinator over the given components.
func New(store *taskstore.Store, queue *leasequeue.Queue, reg *registry.Registry, cfg Config, sink EventSink) *Coordinator {
	return &Coordinator{
		store:    store,
		queue:    queue,
		registry: reg,
		cfg:      cfg,
		sink:     sink,
		stopCh:   make(chan struct{}),
	}
}

func (c *Coordinator) publish(kind string, data map[string]any) {
	if c.sink == nil {
		return
	}
	c.sink.Publish(kind, data)
}

// Submit validates bounds, allocates a task_id, inserts the task as
// PENDING, and pushes it onto the ready queue.
func (c *Coordinator) Submit(taskType string, payload map[string]any, maxRetries, timeoutSeconds int) (uuid.UUID, error) {
	if len(taskType) < minTypeLen || len(taskType) > maxTypeLen {
		return uuid.Nil, ErrInvalidType
	}
	if maxRetries < minMaxRetries || maxRetries > maxMaxRetries {
		return uuid.Nil, ErrInvalidMaxRetries
	}
	if timeoutSeconds < minTimeout || timeoutSeconds > maxTimeout {
		return uuid.Nil, ErrInvalidTimeout
	}
	if payload == nil {
		payload = map[string]any{}
	}

	taskID := uuid.New()
	t := taskstore.New(taskID, taskType, payload, maxRetries, timeoutSeconds)
	c.store.Insert(t)
	c.queue.PushReady(taskID)

	c.publish("task.submitted", map[string]any{"task_id": taskID.String(), "type": taskType})
	return taskID, nil
}

// Get returns a defensive snapshot of a task, or false if unknown.
func (c *Coordinator) Get(taskID uuid.UUID) (*taskstore.Task, bool) {
	return c.store.Get(taskID)
}

// PullForWorker leases the next ready task to workerID, transitions it
// to RUNNING, and marks the worker busy. Returns false if no task was
// ready, or if the leased task turned out to be missing/terminal (in
// which case the lease is acked away and the caller sees nothing).
func (c *Coordinator) PullForWorker(workerID string) (*taskstore.Task, bool) {
	taskID, ok := c.queue.Lease(workerID, c.cfg.LeaseSeconds)
	if !ok {
		return nil, false
	}

	var snapshot *taskstore.Task
	found := c.store.Mutate(taskID, func(t *taskstore.Task) {
		if t.IsTerminal() {
			return
		}
		t.MarkRunning(workerID)
		snapshot = t.Clone()
	})

	if !found || snapshot == nil {
		// Missing or already terminal: ack the lease away so it never
		// sticks around inflight, and report nothing to the worker.
		c.queue.Ack(taskID, workerID)
		return nil, false
	}

	c.registry.MarkInFlight(workerID, +1)
	c.publish("task.running", map[string]any{"task_id": taskID.String(), "worker_id": workerID})
	return snapshot, true
}

// Report records a worker's outcome for a task. Stale or foreign
// reports (ack fails, or the assignment no longer matches) are dropped
// silently.
func (c *Coordinator) Report(workerID string, taskID uuid.UUID, ok bool, result map[string]any, errMsg string) {
	if !c.queue.Ack(taskID, workerID) {
		return
	}

	var matched, becameRetrying bool
	found := c.store.Mutate(taskID, func(t *taskstore.Task) {
		if t.AssignedWorkerID == nil || *t.AssignedWorkerID != workerID {
			return
		}
		matched = true
		if ok {
			t.MarkDone(result)
			return
		}
		t.RetryCount++
		if t.RetryCount <= t.MaxRetries {
			t.MarkRetrying(errMsg)
			becameRetrying = true
		} else {
			t.MarkFailed(errMsg)
		}
	})
	if !found || !matched {
		return
	}

	c.registry.MarkInFlight(workerID, -1)

	if ok {
		c.publish("task.done", map[string]any{"task_id": taskID.String()})
		return
	}
	if !becameRetrying {
		c.publish("task.failed", map[string]any{"task_id": taskID.String()})
		return
	}

	// Backoff sleep runs with no lock held. The status is re-verified
	// under the store lock afterward so a task concurrently reaped by
	// the sweeper (or otherwise acted on) is never double-enqueued.
	retryCount := 0
	c.store.Mutate(taskID, func(t *taskstore.Task) { retryCount = t.RetryCount })
	backoff := time.Duration(float64(500*time.Millisecond) * float64(retryCount))
	if backoff > 5*time.Second {
		backoff = 5 * time.Second
	}
	time.Sleep(backoff)

	requeued := c.store.Mutate(taskID, func(t *taskstore.Task) {
		if t.Status == taskstore.StatusRetrying {
			t.MarkPending()
		}
	})
	if requeued {
		// Mutate doesn't tell us whether the transition actually fired
		// (it may have already moved on); re-check via a fresh read
		// before enqueueing to avoid pushing a task that is no longer
		// PENDING-eligible from this path.
		if snap, ok := c.store.Get(taskID); ok && snap.Status == taskstore.StatusPending {
			c.queue.PushReady(taskID)
			c.publish("task.retrying", map[string]any{"task_id": taskID.String(), "retry_count": snap.RetryCount})
		}
	}
}

// SweeperTick reaps expired leases and reclassifies their tasks: a
// RUNNING task whose lease expired is requeued if retries remain, or
// failed permanently otherwise. Tasks no longer RUNNING (already
// reported) are skipped, since they beat the sweeper to the punch.
// The owning worker's in-flight count is not decremented for a reaped
// lease; only Report decrements it, so a worker that dies mid-task keeps
// that count in the registry.
func (c *Coordinator) SweeperTick() SweepResult {
	expired := c.queue.ReapExpiredLeases()

	var requeued, failed int
	for _, taskID := range expired {
		c.store.Mutate(taskID, func(t *taskstore.Task) {
			if t.Status != taskstore.StatusRunning {
				return
			}
			t.RetryCount++
			if t.RetryCount <= t.MaxRetries {
				t.AssignedWorkerID = nil
				t.StartedAt = nil
				t.Status = taskstore.StatusPending
				msg := expiredLeaseMessage
				t.LastError = &msg
				requeued++
			} else {
				t.MarkFailed(expiredLeaseExhaustedMessage)
				failed++
			}
		})
	}

	result := SweepResult{
		LeasesExpired: len(expired),
		Requeued:      requeued,
		Failed:        failed,
		Ts:            time.Now(),
	}
	if len(expired) > 0 {
		c.publish("sweeper.tick", map[string]any{
			"leases_expired": result.LeasesExpired,
			"requeued":       result.Requeued,
			"failed":         result.Failed,
		})
	}
	return result
}

// Metrics returns an aggregated snapshot: ready/inflight sizes, total
// task count, a histogram by status, and registry stats.
func (c *Coordinator) Metrics() map[string]any {
	tasks := c.store.All()
	byStatus := make(map[string]int)
	for _, t := range tasks {
		byStatus[string(t.Status)]++
	}
	stats := c.registry.Stats()

	return map[string]any{
		"queue_ready":      c.queue.SizeReady(),
		"queue_inflight":   c.queue.SizeInflight(),
		"tasks_total":      len(tasks),
		"tasks_by_status":  byStatus,
		"workers_total":    stats.WorkersTotal,
		"workers_alive":    stats.WorkersAlive,
		"in_flight_total":  stats.InFlightTotal,
	}
}

// Start launches the background sweeper goroutine on a fixed ticker.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				result := c.SweeperTick()
				if result.LeasesExpired > 0 {
					log.Printf("[SWEEP] expired=%d requeued=%d failed=%d", result.LeasesExpired, result.Requeued, result.Failed)
				}
			}
		}
	}()
}

// Stop signals the sweeper goroutine to exit and waits for it.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// RegisterWorker is a thin pass-through to the registry, kept on the
// Coordinator so the HTTP layer only ever talks to one object.
func (c *Coordinator) RegisterWorker(workerID string) {
	c.registry.Register(workerID)
}

// Heartbeat is a thin pass-through to the registry.
func (c *Coordinator) Heartbeat(workerID string) {
	c.registry.Heartbeat(workerID)
}

// String implements fmt.Stringer for log lines.
func (c *Coordinator) String() string {
	return fmt.Sprintf("Coordinator{lease=%ds sweep=%s}", c.cfg.LeaseSeconds, c.cfg.SweepInterval)
}
