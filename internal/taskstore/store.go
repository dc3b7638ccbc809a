package taskstore

import (
	"sync"

	"github.com/google/uuid"
)

// Store is the authoritative, keyed mapping of task_id -> Task. All
// mutations go through the Coordinator; the store itself offers only
// atomic get/insert/update under a single lock, as specified.
type Store struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
}

// NewStore constructs an empty task store.
func NewStore() *Store {
	return &Store{tasks: make(map[uuid.UUID]*Task)}
}

// Insert adds a brand-new task. Panics if the id already exists, since
// task_ids are generated by the caller and must never collide.
func (s *Store) Insert(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.TaskID]; exists {
		panic("taskstore: duplicate task_id inserted")
	}
	s.tasks[t.TaskID] = t
}

// Get returns a defensive copy of the task, or false if unknown.
func (s *Store) Get(id uuid.UUID) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Mutate runs fn against the live task under the store lock and reports
// whether the task existed. fn mutates the task in place; callers that
// need to branch on a stable view should read fields of the task passed
// to fn rather than calling Get from inside fn (that would deadlock).
func (s *Store) Mutate(id uuid.UUID, fn func(t *Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	fn(t)
	return true
}

// All returns defensive copies of every task, for metrics aggregation.
func (s *Store) All() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Len returns the total number of tasks ever submitted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
