// Package taskstore holds the authoritative record for every submitted
// task and the state machine that governs its transitions.
package taskstore

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusDone     Status = "DONE"
	StatusFailed   Status = "FAILED"
	StatusRetrying Status = "RETRYING"
)

const (
	maxErrorLen   = 500
	unknownError  = "Unknown error"
)

// Task is the central entity tracked by the coordinator. Fields mirror
// the wire contract; payload/result are opaque JSON
// objects as far as the core is concerned.
type Task struct {
	TaskID         uuid.UUID
	Type           string
	Payload        map[string]any
	Status         Status
	RetryCount     int
	MaxRetries     int
	TimeoutSeconds int

	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	AssignedWorkerID *string
	Result           map[string]any
	LastError        *string
}

// New constructs a freshly submitted, PENDING task.
func New(taskID uuid.UUID, taskType string, payload map[string]any, maxRetries, timeoutSeconds int) *Task {
	return &Task{
		TaskID:         taskID,
		Type:           taskType,
		Payload:        payload,
		Status:         StatusPending,
		MaxRetries:     maxRetries,
		TimeoutSeconds: timeoutSeconds,
		CreatedAt:      time.Now(),
	}
}

// IsTerminal reports whether the task can no longer transition.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusDone || t.Status == StatusFailed
}

// MarkRunning transitions PENDING/RETRYING -> RUNNING. Called only by the
// Coordinator while holding the store lock, immediately after the lease
// queue awarded the lease.
func (t *Task) MarkRunning(workerID string) {
	t.Status = StatusRunning
	now := time.Now()
	t.StartedAt = &now
	t.AssignedWorkerID = &workerID
	t.LastError = nil
}

// MarkDone transitions RUNNING -> DONE (terminal), clearing the assignment.
func (t *Task) MarkDone(result map[string]any) {
	t.Status = StatusDone
	now := time.Now()
	t.FinishedAt = &now
	t.AssignedWorkerID = nil
	if result == nil {
		result = map[string]any{}
	}
	t.Result = result
}

// MarkFailed transitions -> FAILED (terminal), with a trimmed error.
func (t *Task) MarkFailed(errMsg string) {
	t.Status = StatusFailed
	now := time.Now()
	t.FinishedAt = &now
	e := TrimError(errMsg)
	t.LastError = &e
}

// MarkRetrying transitions RUNNING -> RETRYING, clearing the assignment.
func (t *Task) MarkRetrying(errMsg string) {
	t.Status = StatusRetrying
	e := TrimError(errMsg)
	t.LastError = &e
	t.AssignedWorkerID = nil
	t.StartedAt = nil
}

// MarkPending transitions RETRYING -> PENDING after the backoff elapses.
func (t *Task) MarkPending() {
	t.Status = StatusPending
}

// Clone returns a copy safe to hand to a caller outside the store lock:
// the payload/result maps are copied one level deep, so their top-level
// entries are not shared; nested maps or slices inside them are shared.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Payload = cloneMap(t.Payload)
	clone.Result = cloneMap(t.Result)
	if t.StartedAt != nil {
		v := *t.StartedAt
		clone.StartedAt = &v
	}
	if t.FinishedAt != nil {
		v := *t.FinishedAt
		clone.FinishedAt = &v
	}
	if t.AssignedWorkerID != nil {
		v := *t.AssignedWorkerID
		clone.AssignedWorkerID = &v
	}
	if t.LastError != nil {
		v := *t.LastError
		clone.LastError = &v
	}
	return &clone
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TrimError truncates a user-supplied error string to the 500-char bound,
// falling back to "Unknown error" when empty.
func TrimError(s string) string {
	if s == "" {
		s = unknownError
	}
	if len(s) > maxErrorLen {
		return s[:maxErrorLen]
	}
	return s
}

// View is the public projection of Task returned over the wire: it
// echoes status as its string name and omits nothing internal since the
// core holds no secrets, but it is still a distinct type so the wire
// contract doesn't accidentally couple to internal field additions.
type View struct {
	TaskID           uuid.UUID      `json:"task_id"`
	Type             string         `json:"type"`
	Payload          map[string]any `json:"payload"`
	Status           string         `json:"status"`
	RetryCount       int            `json:"retry_count"`
	MaxRetries       int            `json:"max_retries"`
	TimeoutSeconds   int            `json:"timeout_seconds"`
	CreatedAt        time.Time      `json:"created_at"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty"`
	AssignedWorkerID *string        `json:"assigned_worker_id,omitempty"`
	Result           map[string]any `json:"result,omitempty"`
	LastError        *string        `json:"last_error,omitempty"`
}

// ToView projects a Task onto its wire representation.
func (t *Task) ToView() View {
	return View{
		TaskID:           t.TaskID,
		Type:             t.Type,
		Payload:          cloneMap(t.Payload),
		Status:           string(t.Status),
		RetryCount:       t.RetryCount,
		MaxRetries:       t.MaxRetries,
		TimeoutSeconds:   t.TimeoutSeconds,
		CreatedAt:        t.CreatedAt,
		StartedAt:        t.StartedAt,
		FinishedAt:       t.FinishedAt,
		AssignedWorkerID: t.AssignedWorkerID,
		Result:           cloneMap(t.Result),
		LastError:        t.LastError,
	}
}
