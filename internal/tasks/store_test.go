package tasks

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCreateDefaults(t *testing.T) {
	s := NewStore(0)

	task := s.Create(CreateInput{Title: "Write spec"})

	if task.ID == "" {
		t.Fatalf("task.ID empty, want generated id")
	}
	if task.Status != StatusPending {
		t.Fatalf("task.Status = %q, want %q", task.Status, StatusPending)
	}
	if task.Priority != PriorityMedium {
		t.Fatalf("task.Priority = %q, want %q", task.Priority, PriorityMedium)
	}
	if task.CompletedAt != nil {
		t.Fatalf("task.CompletedAt = %v, want nil", task.CompletedAt)
	}
	if task.DeletedAt != nil {
		t.Fatalf("task.DeletedAt = %v, want nil", task.DeletedAt)
	}
	if task.Tags == nil || len(task.Tags) != 0 {
		t.Fatalf("task.Tags = %v, want empty non-nil slice", task.Tags)
	}
	if task.UpdatedAt.Before(task.CreatedAt) {
		t.Fatalf("UpdatedAt %v before CreatedAt %v", task.UpdatedAt, task.CreatedAt)
	}

	got, err := s.Get(task.ID, false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != task.ID || got.Title != "Write spec" {
		t.Fatalf("Get() = %+v, want the created task", got)
	}
}

func TestCreateIDsAreUnique(t *testing.T) {
	s := NewStore(0)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		task := s.Create(CreateInput{Title: "t"})
		if seen[task.ID] {
			t.Fatalf("duplicate id %q after %d creates", task.ID, i+1)
		}
		seen[task.ID] = true
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore(0)
	if _, err := s.Get("nope", true); err != ErrTaskNotFound {
		t.Fatalf("Get(missing) error = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateEmptyPatchOnlyBumpsUpdatedAt(t *testing.T) {
	s := NewStore(0)
	created := s.Create(CreateInput{
		Title:       "stable",
		Description: "desc",
		Priority:    PriorityHigh,
		Tags:        []string{"a", "b"},
	})

	updated, err := s.Update(created.ID, UpdatePatch{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatalf("UpdatedAt went backwards: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
	if updated.Title != created.Title ||
		updated.Description != created.Description ||
		updated.Status != created.Status ||
		updated.Priority != created.Priority ||
		len(updated.Tags) != len(created.Tags) {
		t.Fatalf("empty patch changed fields: %+v vs %+v", updated, created)
	}
}

func TestUpdateCompletedAtBookkeeping(t *testing.T) {
	s := NewStore(0)
	created := s.Create(CreateInput{Title: "finish me"})

	completed := StatusCompleted
	updated, err := s.Update(created.ID, UpdatePatch{Status: &completed})
	if err != nil {
		t.Fatalf("Update(completed) error = %v", err)
	}
	if updated.CompletedAt == nil {
		t.Fatalf("CompletedAt nil after completing")
	}
	if updated.CompletedAt.Before(created.UpdatedAt) {
		t.Fatalf("CompletedAt %v before prior UpdatedAt %v", updated.CompletedAt, created.UpdatedAt)
	}
	firstCompleted := *updated.CompletedAt

	// Completing an already-completed task must not move the stamp.
	again, err := s.Update(created.ID, UpdatePatch{Status: &completed})
	if err != nil {
		t.Fatalf("Update(completed again) error = %v", err)
	}
	if again.CompletedAt == nil || !again.CompletedAt.Equal(firstCompleted) {
		t.Fatalf("CompletedAt = %v, want unchanged %v", again.CompletedAt, firstCompleted)
	}

	inProgress := StatusInProgress
	reopened, err := s.Update(created.ID, UpdatePatch{Status: &inProgress})
	if err != nil {
		t.Fatalf("Update(in_progress) error = %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Fatalf("CompletedAt = %v after leaving completed, want nil", reopened.CompletedAt)
	}
}

func TestUpdateNullableFieldClearing(t *testing.T) {
	s := NewStore(0)
	due := time.Now().UTC().Add(24 * time.Hour)
	created := s.Create(CreateInput{Title: "nullable", Description: "has desc", DueDate: &due})

	var patch UpdatePatch
	if err := json.Unmarshal([]byte(`{"description":null,"due_date":null}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	updated, err := s.Update(created.ID, patch)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Description != "" {
		t.Fatalf("Description = %q after explicit null, want empty", updated.Description)
	}
	if updated.DueDate != nil {
		t.Fatalf("DueDate = %v after explicit null, want nil", updated.DueDate)
	}

	// An absent field must stay untouched.
	var partial UpdatePatch
	if err := json.Unmarshal([]byte(`{"title":"renamed"}`), &partial); err != nil {
		t.Fatalf("unmarshal partial patch: %v", err)
	}
	other := s.Create(CreateInput{Title: "keep", Description: "kept desc", DueDate: &due})
	kept, err := s.Update(other.ID, partial)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if kept.Title != "renamed" {
		t.Fatalf("Title = %q, want %q", kept.Title, "renamed")
	}
	if kept.Description != "kept desc" || kept.DueDate == nil {
		t.Fatalf("absent fields changed: %+v", kept)
	}
}

func TestOptionalDistinguishesAbsentFromNull(t *testing.T) {
	var patch UpdatePatch
	if err := json.Unmarshal([]byte(`{"description":"x"}`), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !patch.Description.Set || patch.Description.Value == nil || *patch.Description.Value != "x" {
		t.Fatalf("value field: Set=%v Value=%v", patch.Description.Set, patch.Description.Value)
	}
	if patch.DueDate.Set {
		t.Fatalf("absent due_date reported as set")
	}

	var cleared UpdatePatch
	if err := json.Unmarshal([]byte(`{"due_date":null}`), &cleared); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !cleared.DueDate.Set || cleared.DueDate.Value != nil {
		t.Fatalf("null due_date: Set=%v Value=%v, want set and nil", cleared.DueDate.Set, cleared.DueDate.Value)
	}
}

func TestSoftDeleteRestoreLifecycle(t *testing.T) {
	s := NewStore(0)
	task := s.Create(CreateInput{Title: "ephemeral"})

	deleted, err := s.SoftDelete(task.ID)
	if err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if deleted.DeletedAt == nil {
		t.Fatalf("DeletedAt nil after soft delete")
	}

	if _, err := s.Get(task.ID, false); err != ErrTaskNotFound {
		t.Fatalf("Get(deleted, includeDeleted=false) error = %v, want ErrTaskNotFound", err)
	}
	if _, err := s.Get(task.ID, true); err != nil {
		t.Fatalf("Get(deleted, includeDeleted=true) error = %v", err)
	}

	defaultList := s.List(ListQuery{})
	if defaultList.PageInfo.Total != 0 {
		t.Fatalf("default List total = %d, want 0", defaultList.PageInfo.Total)
	}
	withDeleted := s.List(ListQuery{IncludeDeleted: true})
	if withDeleted.PageInfo.Total != 1 {
		t.Fatalf("List(includeDeleted) total = %d, want 1", withDeleted.PageInfo.Total)
	}

	// Double soft delete and update of a tombstoned record both miss.
	if _, err := s.SoftDelete(task.ID); err != ErrTaskNotFound {
		t.Fatalf("second SoftDelete() error = %v, want ErrTaskNotFound", err)
	}
	title := "nope"
	if _, err := s.Update(task.ID, UpdatePatch{Title: &title}); err != ErrTaskNotFound {
		t.Fatalf("Update(deleted) error = %v, want ErrTaskNotFound", err)
	}

	restored, err := s.Restore(task.ID)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.DeletedAt != nil {
		t.Fatalf("DeletedAt = %v after restore, want nil", restored.DeletedAt)
	}
	if _, err := s.Get(task.ID, false); err != nil {
		t.Fatalf("Get(restored) error = %v", err)
	}

	// Restoring a live record is a precondition violation, reported as absence.
	if _, err := s.Restore(task.ID); err != ErrTaskNotFound {
		t.Fatalf("Restore(live) error = %v, want ErrTaskNotFound", err)
	}
}

func TestHardDelete(t *testing.T) {
	s := NewStore(0)
	live := s.Create(CreateInput{Title: "purge me"})
	tombstoned := s.Create(CreateInput{Title: "purge me too"})
	if _, err := s.SoftDelete(tombstoned.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	if !s.HardDelete(live.ID) {
		t.Fatalf("HardDelete(live) = false, want true")
	}
	if !s.HardDelete(tombstoned.ID) {
		t.Fatalf("HardDelete(tombstoned) = false, want true")
	}
	if s.HardDelete(live.ID) {
		t.Fatalf("HardDelete(gone) = true, want false")
	}
	if _, err := s.Get(live.ID, true); err != ErrTaskNotFound {
		t.Fatalf("Get(purged, includeDeleted=true) error = %v, want ErrTaskNotFound", err)
	}
}

func TestCallerCannotMutateStoreState(t *testing.T) {
	s := NewStore(0)
	created := s.Create(CreateInput{Title: "isolated", Tags: []string{"a"}})

	created.Tags[0] = "mutated"
	created.Title = "mutated"

	got, err := s.Get(created.ID, false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "isolated" || got.Tags[0] != "a" {
		t.Fatalf("store state mutated through returned clone: %+v", got)
	}
}

func TestStats(t *testing.T) {
	s := NewStore(0)
	past := time.Now().UTC().Add(-time.Hour)

	// 3 pending without due dates, 1 pending overdue, 2 completed.
	for i := 0; i < 3; i++ {
		s.Create(CreateInput{Title: "pending"})
	}
	s.Create(CreateInput{Title: "late", DueDate: &past})
	completed := StatusCompleted
	for i := 0; i < 2; i++ {
		task := s.Create(CreateInput{Title: "done", Priority: PriorityHigh})
		if _, err := s.Update(task.ID, UpdatePatch{Status: &completed}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	// Soft-deleted records stay out of every aggregate.
	ghost := s.Create(CreateInput{Title: "ghost", DueDate: &past})
	if _, err := s.SoftDelete(ghost.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	stats := s.Stats()
	if stats.Total != 6 {
		t.Fatalf("Total = %d, want 6", stats.Total)
	}
	if stats.ByStatus[StatusPending] != 4 {
		t.Fatalf("ByStatus[pending] = %d, want 4", stats.ByStatus[StatusPending])
	}
	if stats.ByStatus[StatusCompleted] != 2 {
		t.Fatalf("ByStatus[completed] = %d, want 2", stats.ByStatus[StatusCompleted])
	}
	if stats.ByPriority[PriorityMedium] != 4 || stats.ByPriority[PriorityHigh] != 2 {
		t.Fatalf("ByPriority = %v", stats.ByPriority)
	}
	if stats.Overdue != 1 {
		t.Fatalf("Overdue = %d, want 1", stats.Overdue)
	}
}

func TestOverdueExcludesTerminalStatuses(t *testing.T) {
	s := NewStore(0)
	past := time.Now().UTC().Add(-time.Hour)

	cancelled := StatusCancelled
	task := s.Create(CreateInput{Title: "was late", DueDate: &past})
	if _, err := s.Update(task.ID, UpdatePatch{Status: &cancelled}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if got := s.Stats().Overdue; got != 0 {
		t.Fatalf("Overdue = %d, want 0 for cancelled task", got)
	}
}
