package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/storage"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

func TestToggleTaskStates(t *testing.T) {
	s, slot, cleanup := newTestStore(t)
	defer cleanup()

	if err := s.Create(testTask("a", "Toggle status")); err != nil {
		t.Fatalf("create task: %v", err)
	}

	t.Run("toggle completed", func(t *testing.T) {
		ui := newTestUI(s, slot)
		if err := ui.refresh(); err != nil {
			t.Fatalf("refresh: %v", err)
		}

		if err := ui.toggleCompleted(nil, nil); err != nil {
			t.Fatalf("toggle completed: %v", err)
		}
		if task, _ := s.Get("a"); !task.Completed {
			t.Fatalf("expected task to be completed")
		}
		if err := ui.toggleCompleted(nil, nil); err != nil {
			t.Fatalf("toggle completed again: %v", err)
		}
		if task, _ := s.Get("a"); task.Completed {
			t.Fatalf("expected task to be reopened")
		}
	})

	t.Run("toggle pinned", func(t *testing.T) {
		ui := newTestUI(s, slot)
		if err := ui.refresh(); err != nil {
			t.Fatalf("refresh: %v", err)
		}

		if err := ui.togglePinned(nil, nil); err != nil {
			t.Fatalf("toggle pinned: %v", err)
		}
		if task, _ := s.Get("a"); !task.Pinned {
			t.Fatalf("expected task to be pinned")
		}
		if len(ui.entries) == 0 || ui.entries[0].EventType != "pinned" {
			t.Fatalf("expected history to show the pin first, got %+v", ui.entries)
		}
	})
}

func TestSelectionFollowsPinnedTask(t *testing.T) {
	s, slot, cleanup := newTestStore(t)
	defer cleanup()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Create(testTask(id, "task "+id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	ui := newTestUI(s, slot)
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ui.selectedRow = 2
	if got := ui.currentTask().ID; got != "a" {
		t.Fatalf("expected oldest task at the bottom, got %s", got)
	}

	if err := ui.togglePinned(nil, nil); err != nil {
		t.Fatalf("toggle pinned: %v", err)
	}
	if ui.selectedRow != 0 || ui.currentTask().ID != "a" {
		t.Fatalf("expected selection to follow the pinned task to the top, got row %d", ui.selectedRow)
	}
}

func TestDeleteAndClearCompleted(t *testing.T) {
	s, slot, cleanup := newTestStore(t)
	defer cleanup()

	first := testTask("a", "keep")
	second := testTask("b", "finished")
	second.Completed = true
	third := testTask("c", "remove")
	for _, task := range []model.Task{first, second, third} {
		if err := s.Create(task); err != nil {
			t.Fatalf("create %s: %v", task.ID, err)
		}
	}

	ui := newTestUI(s, slot)
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ui.currentTask().ID; got != "c" {
		t.Fatalf("expected newest task selected, got %s", got)
	}
	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, ok := s.Get("c"); ok {
		t.Fatalf("expected task to be deleted")
	}

	if err := ui.clearCompleted(nil, nil); err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if s.Len() != 1 || len(ui.visible) != 1 || ui.visible[0].ID != "a" {
		t.Fatalf("expected only the active task to remain, got %+v", ui.visible)
	}
	if ui.status != "cleared 1 completed" {
		t.Fatalf("unexpected status %q", ui.status)
	}
}

func TestQueryControls(t *testing.T) {
	s, slot, cleanup := newTestStore(t)
	defer cleanup()

	low := testTask("a", "Buy milk")
	low.Priority = model.PriorityLow
	high := testTask("b", "Ship release")
	high.Priority = model.PriorityHigh
	high.Completed = true
	for _, task := range []model.Task{low, high} {
		if err := s.Create(task); err != nil {
			t.Fatalf("create %s: %v", task.ID, err)
		}
	}

	ui := newTestUI(s, slot)
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := ui.cycleStatus(nil, nil); err != nil {
		t.Fatalf("cycle status: %v", err)
	}
	if ui.query.Status != model.StatusActive || len(ui.visible) != 1 || ui.visible[0].ID != "a" {
		t.Fatalf("expected active filter, got %s with %d tasks", ui.query.Status, len(ui.visible))
	}

	if err := ui.cyclePriority(nil, nil); err != nil {
		t.Fatalf("cycle priority: %v", err)
	}
	if ui.query.Priority != model.PriorityFilter(model.PriorityLow) {
		t.Fatalf("expected low priority filter, got %s", ui.query.Priority)
	}

	if err := ui.cycleSort(nil, nil); err != nil {
		t.Fatalf("cycle sort: %v", err)
	}
	if ui.query.SortBy != model.SortCreatedAsc {
		t.Fatalf("expected created_asc, got %s", ui.query.SortBy)
	}

	if err := ui.applySearch(nil, "  SHIP "); err != nil {
		t.Fatalf("apply search: %v", err)
	}
	if ui.query.Search != "SHIP" || len(ui.visible) != 0 {
		t.Fatalf("expected no visible tasks, got %d", len(ui.visible))
	}

	if err := ui.resetQuery(nil, nil); err != nil {
		t.Fatalf("reset query: %v", err)
	}
	if ui.query != model.DefaultQuery() || len(ui.visible) != 2 {
		t.Fatalf("expected default query with all tasks, got %+v", ui.query)
	}
}

func TestTagFilterToggleAndStaleClear(t *testing.T) {
	s, slot, cleanup := newTestStore(t)
	defer cleanup()

	tagged := testTask("a", "Tagged")
	tagged.Tags = []string{"work"}
	if err := s.Create(tagged); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.Create(testTask("b", "Untagged")); err != nil {
		t.Fatalf("create task: %v", err)
	}

	ui := newTestUI(s, slot)
	ui.focus = viewTags
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(ui.tags) != 1 || ui.tags[0].Count != 1 {
		t.Fatalf("expected one tag with count 1, got %+v", ui.tags)
	}

	if err := ui.toggleTagFilter(nil, nil); err != nil {
		t.Fatalf("toggle tag filter: %v", err)
	}
	if ui.query.ActiveTag != "work" || len(ui.visible) != 1 {
		t.Fatalf("expected work filter with one task, got %q and %d", ui.query.ActiveTag, len(ui.visible))
	}

	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if ui.query.ActiveTag != "" {
		t.Fatalf("expected stale tag filter to be cleared")
	}
	if len(ui.visible) != 1 || ui.visible[0].ID != "b" {
		t.Fatalf("expected the untagged task to be visible, got %+v", ui.visible)
	}
}

func TestSubmitForm(t *testing.T) {
	s, slot, cleanup := newTestStore(t)
	defer cleanup()

	ui := newTestUI(s, slot)
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := ui.addTask(nil, nil); err != nil {
		t.Fatalf("add task: %v", err)
	}
	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit empty form: %v", err)
	}
	if ui.form == nil || ui.status != model.ErrEmptyTitle.Error() {
		t.Fatalf("expected form to stay open with a title error, got %q", ui.status)
	}

	ui.form.fields[fieldTitle].Value = " Plan trip "
	ui.form.fields[fieldTags].Value = "travel, , home"
	ui.form.fields[fieldDue].Value = "2024-07-01"
	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if ui.form != nil || s.Len() != 1 {
		t.Fatalf("expected form closed and task created")
	}
	created := ui.currentTask()
	if created.Title != "Plan trip" || len(created.Tags) != 2 || created.DueDate == nil || created.Priority != model.PriorityMedium {
		t.Fatalf("unexpected created task %+v", created)
	}

	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit task: %v", err)
	}
	if ui.form.fields[fieldTags].Value != "travel, home" {
		t.Fatalf("unexpected tags field %q", ui.form.fields[fieldTags].Value)
	}
	ui.form.fields[fieldDue].Value = ""
	ui.form.fields[fieldPriority].Value = "high"
	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit edit: %v", err)
	}
	edited, _ := s.Get(created.ID)
	if edited.DueDate != nil || edited.Priority != model.PriorityHigh || edited.Title != "Plan trip" {
		t.Fatalf("unexpected edited task %+v", edited)
	}

	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit task: %v", err)
	}
	ui.form.fields[fieldDue].Value = "next week"
	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit bad date: %v", err)
	}
	if ui.form == nil || ui.status != model.ErrInvalidDate.Error() {
		t.Fatalf("expected invalid date to keep the form open, got %q", ui.status)
	}
	if err := ui.cancelForm(nil, nil); err != nil {
		t.Fatalf("cancel form: %v", err)
	}
}

func TestInputBlocksShortcuts(t *testing.T) {
	s, slot, cleanup := newTestStore(t)
	defer cleanup()

	if err := s.Create(testTask("a", "Blocked")); err != nil {
		t.Fatalf("create task: %v", err)
	}

	ui := newTestUI(s, slot)
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ui.searchActive = true
	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected delete to be ignored while searching")
	}
	if err := ui.cancelSearch(nil, nil); err != nil {
		t.Fatalf("cancel search: %v", err)
	}
	if ui.searchActive {
		t.Fatalf("expected search to be closed")
	}
}

func TestToggleTagInField(t *testing.T) {
	ui := &UI{}
	ui.tags = nil
	field := &formField{Value: "home"}
	ui.toggleTagInField(field)
	if field.Value != "home" {
		t.Fatalf("expected no change without tag options, got %q", field.Value)
	}

	s := store.New([]model.Task{{ID: "x", Title: "x", Tags: []string{"work"}}})
	ui = newTestUI(s, nil)
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ui.toggleTagInField(field)
	if field.Value != "home, work" {
		t.Fatalf("expected work appended, got %q", field.Value)
	}
	ui.toggleTagInField(field)
	if field.Value != "home" {
		t.Fatalf("expected work removed, got %q", field.Value)
	}
}

func TestFormatTaskDetail(t *testing.T) {
	due := model.Date("2024-06-07")
	task := model.Task{
		Title:     "Ship release",
		Priority:  model.PriorityHigh,
		DueDate:   &due,
		Pinned:    true,
		CreatedAt: time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC),
	}
	today := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	lines := strings.Join(formatTaskDetail(task, today), "\n")
	for _, want := range []string{"Status: active, pinned", "Due: 2024-06-07 (3 days ago, overdue)", "Created: 2 days ago", "Tags: no tags"} {
		if !strings.Contains(lines, want) {
			t.Fatalf("expected %q in %q", want, lines)
		}
	}
	if summary := formatTaskSummary(task, today); !strings.HasPrefix(summary, "^[ ] Ship release") || !strings.Contains(summary, "!") {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestMissingPriorityShowsMedium(t *testing.T) {
	task := model.Task{Title: "Legacy", CreatedAt: time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)}
	today := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	if summary := formatTaskSummary(task, today); !strings.Contains(summary, "| medium") {
		t.Fatalf("expected medium in summary, got %q", summary)
	}
	if lines := strings.Join(formatTaskDetail(task, today), "\n"); !strings.Contains(lines, "Priority: medium") {
		t.Fatalf("expected medium in detail, got %q", lines)
	}
}

type brokenHistory struct{}

func (brokenHistory) ListHistory(context.Context, string) ([]model.HistoryEntry, error) {
	return nil, errors.New("database is locked")
}

func TestHistoryFailureKeepsSessionAlive(t *testing.T) {
	s, _, cleanup := newTestStore(t)
	defer cleanup()

	if err := s.Create(testTask("a", "Busy database")); err != nil {
		t.Fatalf("create task: %v", err)
	}

	ui := newTestUI(s, brokenHistory{})
	if err := ui.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := ui.toggleCompleted(nil, nil); err != nil {
		t.Fatalf("expected toggle to survive a history failure, got %v", err)
	}
	if task, _ := s.Get("a"); !task.Completed {
		t.Fatalf("expected task to be completed")
	}
	if ui.entries != nil {
		t.Fatalf("expected no history entries, got %+v", ui.entries)
	}
	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move down: %v", err)
	}
}

func testTask(id, title string) model.Task {
	return model.Task{ID: id, Title: title, Priority: model.PriorityMedium, Tags: []string{}, CreatedAt: time.Now()}
}

func newTestUI(s *store.Store, history HistoryLister) *UI {
	ui := newUI(s, history, model.DefaultQuery())
	ui.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }
	return ui
}

func newTestStore(t *testing.T) (*store.Store, *storage.SQLiteSlot, func()) {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	slot := storage.NewSQLiteSlot(db, "")
	s := store.New(nil, store.WithPersister(storage.NewAdapter(slot)), store.WithJournal(slot))
	return s, slot, func() {
		_ = db.Close()
	}
}
