package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskvault/taskvault/internal/tasks"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxTags           = 10
	maxTagLen         = 50
)

type createTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"due_date"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > maxTitleLen {
		respondError(w, r, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("title is required and must be at most %d characters", maxTitleLen))
		return
	}
	if len(req.Description) > maxDescriptionLen {
		respondError(w, r, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("description must be at most %d characters", maxDescriptionLen))
		return
	}

	priority := tasks.Priority(strings.TrimSpace(req.Priority))
	if priority != "" && !priority.Valid() {
		respondError(w, r, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("priority %q is not one of low|medium|high|urgent", req.Priority))
		return
	}

	var due *time.Time
	if raw := strings.TrimSpace(req.DueDate); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "validation_error", "due_date must be an RFC 3339 timestamp")
			return
		}
		utc := parsed.UTC()
		due = &utc
	}

	if msg, ok := validateTags(req.Tags); !ok {
		respondError(w, r, http.StatusBadRequest, "validation_error", msg)
		return
	}

	task := s.store.Create(tasks.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     due,
		Tags:        req.Tags,
	})
	s.metrics.TasksCreated.Inc()
	s.metrics.StoreOps.WithLabelValues("create", "ok").Inc()
	s.metrics.LiveTasks.Set(float64(s.store.Len()))

	respondJSON(w, r, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}
	includeDeleted, err := boolQueryParam(r, "include_deleted")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	task, err := s.store.Get(id, includeDeleted)
	if err != nil {
		s.respondStoreError(w, r, "get", err)
		return
	}
	s.metrics.StoreOps.WithLabelValues("get", "ok").Inc()
	respondJSON(w, r, http.StatusOK, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	query, err := s.parseListQuery(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	page := s.store.List(query)
	s.metrics.StoreOps.WithLabelValues("list", "ok").Inc()
	respondJSON(w, r, http.StatusOK, page)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	var patch tasks.UpdatePatch
	if err := decodeJSON(r, &patch); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if msg, ok := validatePatch(patch); !ok {
		respondError(w, r, http.StatusBadRequest, "validation_error", msg)
		return
	}

	task, err := s.store.Update(id, patch)
	if err != nil {
		s.respondStoreError(w, r, "update", err)
		return
	}
	s.metrics.StoreOps.WithLabelValues("update", "ok").Inc()
	respondJSON(w, r, http.StatusOK, task)
}

func (s *Server) handleSoftDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	task, err := s.store.SoftDelete(id)
	if err != nil {
		s.respondStoreError(w, r, "soft_delete", err)
		return
	}
	s.metrics.StoreOps.WithLabelValues("soft_delete", "ok").Inc()
	s.metrics.LiveTasks.Set(float64(s.store.Len()))
	respondJSON(w, r, http.StatusOK, task)
}

func (s *Server) handleRestoreTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	task, err := s.store.Restore(id)
	if err != nil {
		s.respondStoreError(w, r, "restore", err)
		return
	}
	s.metrics.StoreOps.WithLabelValues("restore", "ok").Inc()
	s.metrics.LiveTasks.Set(float64(s.store.Len()))
	respondJSON(w, r, http.StatusOK, task)
}

func (s *Server) handleHardDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	if !s.store.HardDelete(id) {
		s.metrics.StoreOps.WithLabelValues("hard_delete", "not_found").Inc()
		respondError(w, r, http.StatusNotFound, "task_not_found", "task not found")
		return
	}
	s.metrics.StoreOps.WithLabelValues("hard_delete", "ok").Inc()
	s.metrics.LiveTasks.Set(float64(s.store.Len()))
	respondJSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	s.metrics.StoreOps.WithLabelValues("stats", "ok").Inc()
	respondJSON(w, r, http.StatusOK, stats)
}

func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, tasks.ErrTaskNotFound) {
		s.metrics.StoreOps.WithLabelValues(op, "not_found").Inc()
		respondError(w, r, http.StatusNotFound, "task_not_found", "task not found")
		return
	}
	s.metrics.StoreOps.WithLabelValues(op, "error").Inc()
	respondError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
}

func (s *Server) parseListQuery(r *http.Request) (tasks.ListQuery, error) {
	q := tasks.ListQuery{
		SortBy:    tasks.SortByCreatedAt,
		SortOrder: tasks.SortDesc,
		Page:      1,
		Limit:     s.cfg.DefaultPageLimit,
	}
	values := r.URL.Query()

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := tasks.Status(raw)
		if !status.Valid() {
			return tasks.ListQuery{}, fmt.Errorf("status %q is not one of pending|in_progress|completed|cancelled", raw)
		}
		q.Status = &status
	}
	if raw := strings.TrimSpace(values.Get("priority")); raw != "" {
		priority := tasks.Priority(raw)
		if !priority.Valid() {
			return tasks.ListQuery{}, fmt.Errorf("priority %q is not one of low|medium|high|urgent", raw)
		}
		q.Priority = &priority
	}
	q.Tag = strings.TrimSpace(values.Get("tag"))
	q.Search = strings.TrimSpace(values.Get("search"))

	if raw := strings.TrimSpace(values.Get("sort_by")); raw != "" {
		field := tasks.SortField(raw)
		if !field.Valid() {
			return tasks.ListQuery{}, fmt.Errorf("sort_by %q is not one of created_at|updated_at|due_date|priority|title", raw)
		}
		q.SortBy = field
	}
	if raw := strings.TrimSpace(values.Get("sort_order")); raw != "" {
		order := tasks.SortOrder(raw)
		if !order.Valid() {
			return tasks.ListQuery{}, fmt.Errorf("sort_order %q is not one of asc|desc", raw)
		}
		q.SortOrder = order
	}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return tasks.ListQuery{}, errors.New("page must be a positive integer")
		}
		q.Page = n
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > s.cfg.MaxPageLimit {
			return tasks.ListQuery{}, fmt.Errorf("limit must be between 1 and %d", s.cfg.MaxPageLimit)
		}
		q.Limit = n
	}

	includeDeleted, err := boolQueryParam(r, "include_deleted")
	if err != nil {
		return tasks.ListQuery{}, err
	}
	q.IncludeDeleted = includeDeleted

	return q, nil
}

func boolQueryParam(r *http.Request, key string) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	switch raw {
	case "":
		return false, nil
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean", key)
	}
}

func validateTags(tags []string) (string, bool) {
	if len(tags) > maxTags {
		return fmt.Sprintf("at most %d tags are allowed", maxTags), false
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return "tags must not be blank", false
		}
		if len(tag) > maxTagLen {
			return fmt.Sprintf("each tag must be at most %d characters", maxTagLen), false
		}
	}
	return "", true
}

func validatePatch(patch tasks.UpdatePatch) (string, bool) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" || len(title) > maxTitleLen {
			return fmt.Sprintf("title must be between 1 and %d characters", maxTitleLen), false
		}
	}
	if patch.Description.Set && patch.Description.Value != nil && len(*patch.Description.Value) > maxDescriptionLen {
		return fmt.Sprintf("description must be at most %d characters", maxDescriptionLen), false
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Sprintf("status %q is not one of pending|in_progress|completed|cancelled", *patch.Status), false
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return fmt.Sprintf("priority %q is not one of low|medium|high|urgent", *patch.Priority), false
	}
	if patch.Tags != nil {
		if msg, ok := validateTags(*patch.Tags); !ok {
			return msg, false
		}
	}
	return "", true
}
