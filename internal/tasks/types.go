package tasks

import (
	"bytes"
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status excludes a task from overdue accounting.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRank = map[Priority]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank returns the ordinal position used for sorting: low < medium < high < urgent.
func (p Priority) Rank() int {
	return priorityRank[p]
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func (t Task) Clone() Task {
	out := t
	if t.Tags != nil {
		out.Tags = make([]string, len(t.Tags))
		copy(out.Tags, t.Tags)
	}
	out.DueDate = cloneTime(t.DueDate)
	out.CompletedAt = cloneTime(t.CompletedAt)
	out.DeletedAt = cloneTime(t.DeletedAt)
	return out
}

func (t Task) Deleted() bool {
	return t.DeletedAt != nil
}

// Overdue reports whether the task has a due date strictly in the past while
// still in a non-terminal status.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Status.Terminal()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// CreateInput carries a pre-validated create request. The store does not
// re-check field bounds; that responsibility sits entirely at the HTTP
// boundary.
type CreateInput struct {
	Title       string
	Description string
	Priority    Priority // empty means medium
	DueDate     *time.Time
	Tags        []string
}

// Optional distinguishes an absent JSON field from an explicit null. A plain
// pointer cannot carry both states, and collapsing them would make it
// impossible to clear a nullable field through a partial update.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// UpdatePatch is a three-state partial update: a nil pointer (or unset
// Optional) leaves the field untouched, a set Optional holding nil clears it,
// and a present value replaces it.
type UpdatePatch struct {
	Title       *string             `json:"title"`
	Description Optional[string]    `json:"description"`
	Status      *Status             `json:"status"`
	Priority    *Priority           `json:"priority"`
	DueDate     Optional[time.Time] `json:"due_date"`
	Tags        *[]string           `json:"tags"`
}

type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByDueDate   SortField = "due_date"
	SortByPriority  SortField = "priority"
	SortByTitle     SortField = "title"
)

func (f SortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByUpdatedAt, SortByDueDate, SortByPriority, SortByTitle:
		return true
	default:
		return false
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// ListQuery carries filters, ordering and pagination for List. Nil filter
// pointers mean "no constraint"; all supplied filters must match.
type ListQuery struct {
	Status         *Status
	Priority       *Priority
	Tag            string
	Search         string
	SortBy         SortField
	SortOrder      SortOrder
	Page           int
	Limit          int
	IncludeDeleted bool
}

type PageInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type Page struct {
	Tasks    []Task   `json:"tasks"`
	PageInfo PageInfo `json:"page_info"`
}

type Stats struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByPriority map[Priority]int `json:"by_priority"`
	Overdue    int              `json:"overdue"`
}
