// Package leasequeue implements the FIFO ready queue and the inflight
// lease table that together give every task to at most one worker at a
// time. It has no knowledge of task payloads or of the worker registry;
// pairing a lease to a live worker is the Coordinator's policy.
package leasequeue

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// lease records who holds a task and when that hold expires.
type lease struct {
	workerID string
	expiry   time.Time
}

// Queue is the Lease Queue component of the coordination core: a ready
// deque, a ready-set mirror for O(1) de-duplication, and an inflight
// map, all under a single lock.
type Queue struct {
	mu       sync.Mutex
	ready    *list.List
	readySet map[uuid.UUID]*list.Element
	inflight map[uuid.UUID]lease
}

// New constructs an empty lease queue.
func New() *Queue {
	return &Queue{
		ready:    list.New(),
		readySet: make(map[uuid.UUID]*list.Element),
		inflight: make(map[uuid.UUID]lease),
	}
}

// PushReady appends task_id to the tail of ready, unless it is already
// inflight or already ready — idempotent by design.
func (q *Queue) PushReady(taskID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushReadyLocked(taskID)
}

func (q *Queue) pushReadyLocked(taskID uuid.UUID) {
	if _, ok := q.inflight[taskID]; ok {
		return
	}
	if _, ok := q.readySet[taskID]; ok {
		return
	}
	el := q.ready.PushBack(taskID)
	q.readySet[taskID] = el
}

// Lease pops the head of ready (if any), records an inflight entry
// owned by workerID expiring after leaseSeconds, and returns the
// task_id. Returns false if ready was empty.
func (q *Queue) Lease(workerID string, leaseSeconds int) (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.ready.Front()
	if front == nil {
		return uuid.Nil, false
	}
	taskID := q.ready.Remove(front).(uuid.UUID)
	delete(q.readySet, taskID)

	q.inflight[taskID] = lease{
		workerID: workerID,
		expiry:   time.Now().Add(time.Duration(leaseSeconds) * time.Second),
	}
	return taskID, true
}

// Ack retires the inflight lease for task_id iff it is currently owned
// by workerID. Returns false for a stale report or a mismatched owner;
// the caller must treat false as "drop silently".
func (q *Queue) Ack(taskID uuid.UUID, workerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	cur, ok := q.inflight[taskID]
	if !ok || cur.workerID != workerID {
		return false
	}
	delete(q.inflight, taskID)
	return true
}

// Release unconditionally drops any inflight entry for task_id and
// re-enqueues it, with no judgment about why. Used when the Coordinator
// wants to abandon a lease.
func (q *Queue) Release(taskID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, taskID)
	q.pushReadyLocked(taskID)
}

// ReapExpiredLeases removes every inflight entry whose expiry has
// passed, re-enqueues each at the tail (simple FIFO fairness against
// starving fresh submissions — a deliberate choice), and returns the
// reaped task_ids for the caller's own state reconciliation against
// the task store.
func (q *Queue) ReapExpiredLeases() []uuid.UUID {
	now := time.Now()

	q.mu.Lock()
	var expired []uuid.UUID
	for taskID, l := range q.inflight {
		if now.After(l.expiry) {
			expired = append(expired, taskID)
			delete(q.inflight, taskID)
		}
	}
	q.mu.Unlock()

	// Re-enqueue after releasing the lock, as specified: the push is a
	// separate critical section from the reap scan.
	for _, taskID := range expired {
		q.PushReady(taskID)
	}
	return expired
}

// SizeReady returns the instantaneous count of ready tasks.
func (q *Queue) SizeReady() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready.Len()
}

// SizeInflight returns the instantaneous count of leased tasks.
func (q *Queue) SizeInflight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}
