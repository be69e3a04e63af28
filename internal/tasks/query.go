package tasks

import (
	"sort"
	"strings"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// List returns the page of tasks matching the query plus pagination metadata.
// Filters are ANDed; soft-deleted tasks are excluded unless IncludeDeleted.
func (s *Store) List(q ListQuery) Page {
	q = normalizeQuery(q)

	s.mu.RLock()
	matched := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if matchesQuery(task, q) {
			matched = append(matched, task.Clone())
		}
	}
	s.mu.RUnlock()

	sortTasks(matched, q.SortBy, q.SortOrder)

	total := len(matched)
	totalPages := (total + q.Limit - 1) / q.Limit
	offset := (q.Page - 1) * q.Limit
	end := offset + q.Limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	return Page{
		Tasks: matched[offset:end],
		PageInfo: PageInfo{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    q.Page < totalPages,
			HasPrev:    q.Page > 1 && total > 0,
		},
	}
}

func normalizeQuery(q ListQuery) ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	if !q.SortBy.Valid() {
		q.SortBy = SortByCreatedAt
	}
	if !q.SortOrder.Valid() {
		q.SortOrder = SortDesc
	}
	return q
}

func matchesQuery(task *Task, q ListQuery) bool {
	if task.Deleted() && !q.IncludeDeleted {
		return false
	}
	if q.Status != nil && task.Status != *q.Status {
		return false
	}
	if q.Priority != nil && task.Priority != *q.Priority {
		return false
	}
	if q.Tag != "" && !hasTagFold(task.Tags, q.Tag) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		title := strings.ToLower(task.Title)
		desc := strings.ToLower(task.Description)
		if !strings.Contains(title, needle) && !strings.Contains(desc, needle) {
			return false
		}
	}
	return true
}

func hasTagFold(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

func sortTasks(out []Task, field SortField, order SortOrder) {
	desc := order == SortDesc
	sort.Slice(out, func(i, j int) bool {
		// Tasks without a due date sort after all dated ones no matter the
		// direction, so the nil partition is handled before the desc flip.
		if field == SortByDueDate {
			iNil, jNil := out[i].DueDate == nil, out[j].DueDate == nil
			if iNil || jNil {
				if iNil && jNil {
					return out[i].ID < out[j].ID
				}
				return jNil
			}
		}
		c := compareTasks(out[i], out[j], field)
		if c == 0 {
			// Stable position for equal keys so pagination does not shuffle
			// records between calls.
			return out[i].ID < out[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareTasks(a, b Task, field SortField) int {
	switch field {
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByDueDate:
		return a.DueDate.Compare(*b.DueDate)
	case SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
