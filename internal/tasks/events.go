package tasks

import "time"

type EventType string

const (
	EventTaskCreated     EventType = "task_created"
	EventTaskUpdated     EventType = "task_updated"
	EventTaskSoftDeleted EventType = "task_soft_deleted"
	EventTaskRestored    EventType = "task_restored"
	EventTaskPurged      EventType = "task_purged"
)

// Event describes a single successful mutation. Task is a snapshot taken at
// publish time; for task_purged it holds the record's last state.
type Event struct {
	Type EventType `json:"type"`
	Task Task      `json:"task"`
	At   time.Time `json:"at"`
}

// Subscribe registers an event listener. The returned cancel func must be
// called when the listener goes away; it closes the channel. Delivery is
// best-effort: a subscriber that falls behind its buffer misses events rather
// than blocking store mutations.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, s.eventBuffer)

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

func (s *Store) publishLocked(eventType EventType, snapshot Task, at time.Time) {
	if len(s.subscribers) == 0 {
		return
	}
	evt := Event{Type: eventType, Task: snapshot, At: at}
	for _, ch := range s.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
