package tasks

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("task not found")

const defaultEventBuffer = 256

// Store is the exclusive owner of the task collection. Every method takes the
// store lock for its full duration and returns clones, so callers never hold a
// reference into internal state.
type Store struct {
	mu sync.RWMutex

	tasks map[string]*Task

	subscribers map[int]chan Event
	nextSubID   int
	eventBuffer int
}

// NewStore returns an empty store. eventBuffer sizes per-subscriber event
// channels; values <= 0 fall back to the default.
func NewStore(eventBuffer int) *Store {
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}
	return &Store{
		tasks:       make(map[string]*Task),
		subscribers: make(map[int]chan Event),
		eventBuffer: eventBuffer,
	}
}

func (s *Store) Create(input CreateInput) Task {
	now := time.Now().UTC()
	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	task := &Task{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Status:      StatusPending,
		Priority:    priority,
		DueDate:     cloneTime(input.DueDate),
		Tags:        append([]string{}, input.Tags...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	s.publishLocked(EventTaskCreated, task.Clone(), now)
	return task.Clone()
}

func (s *Store) Get(id string, includeDeleted bool) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	if task.Deleted() && !includeDeleted {
		return Task{}, ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Update applies a partial update to a live task. Unset patch fields are left
// untouched; an Optional set to null clears the field. Moving into completed
// stamps CompletedAt; any explicit non-completed status clears it.
func (s *Store) Update(id string, patch UpdatePatch) (Task, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Deleted() {
		return Task{}, ErrTaskNotFound
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description.Set {
		if patch.Description.Value == nil {
			task.Description = ""
		} else {
			task.Description = *patch.Description.Value
		}
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate.Set {
		task.DueDate = cloneTime(patch.DueDate.Value)
	}
	if patch.Tags != nil {
		task.Tags = append([]string{}, *patch.Tags...)
	}
	if patch.Status != nil {
		prior := task.Status
		task.Status = *patch.Status
		if task.Status == StatusCompleted {
			if prior != StatusCompleted {
				completed := now
				task.CompletedAt = &completed
			}
		} else {
			task.CompletedAt = nil
		}
	}
	task.UpdatedAt = now

	s.publishLocked(EventTaskUpdated, task.Clone(), now)
	return task.Clone(), nil
}

// SoftDelete tombstones a live task. It stays queryable with includeDeleted
// and can be brought back with Restore.
func (s *Store) SoftDelete(id string) (Task, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Deleted() {
		return Task{}, ErrTaskNotFound
	}
	deleted := now
	task.DeletedAt = &deleted
	task.UpdatedAt = now

	s.publishLocked(EventTaskSoftDeleted, task.Clone(), now)
	return task.Clone(), nil
}

// Restore clears the tombstone on a currently soft-deleted task.
func (s *Store) Restore(id string) (Task, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || !task.Deleted() {
		return Task{}, ErrTaskNotFound
	}
	task.DeletedAt = nil
	task.UpdatedAt = now

	s.publishLocked(EventTaskRestored, task.Clone(), now)
	return task.Clone(), nil
}

// HardDelete removes a task unconditionally, regardless of soft-delete state.
// It reports whether a record was removed.
func (s *Store) HardDelete(id string) bool {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	delete(s.tasks, id)

	s.publishLocked(EventTaskPurged, task.Clone(), now)
	return true
}

// Stats aggregates over live tasks only.
func (s *Store) Stats() Stats {
	now := time.Now().UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		ByStatus:   make(map[Status]int),
		ByPriority: make(map[Priority]int),
	}
	for _, task := range s.tasks {
		if task.Deleted() {
			continue
		}
		stats.Total++
		stats.ByStatus[task.Status]++
		stats.ByPriority[task.Priority]++
		if task.Overdue(now) {
			stats.Overdue++
		}
	}
	return stats
}

// Len reports the number of live tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, task := range s.tasks {
		if !task.Deleted() {
			n++
		}
	}
	return n
}
