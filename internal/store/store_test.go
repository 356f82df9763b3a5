package store

import (
	"bytes"
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type memoryPersister struct {
	saves [][]model.Task
	err   error
}

func (p *memoryPersister) Save(_ context.Context, tasks []model.Task) error {
	p.saves = append(p.saves, tasks)
	return p.err
}

type memoryJournal struct {
	entries []model.HistoryEntry
	err     error
}

func (j *memoryJournal) Record(_ context.Context, entry model.HistoryEntry) error {
	j.entries = append(j.entries, entry)
	return j.err
}

func newTask(id, title string) model.Task {
	return model.Task{ID: id, Title: title, Priority: model.PriorityMedium, Tags: []string{}, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func ids(tasks []model.Task) []string {
	result := make([]string, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.ID)
	}
	return result
}

func TestCreatePrependsAndSaves(t *testing.T) {
	persister := &memoryPersister{}
	journal := &memoryJournal{}
	s := New(nil, WithPersister(persister), WithJournal(journal))

	if err := s.Create(newTask("1", "first")); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if err := s.Create(newTask("2", "  second  ")); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if got, want := ids(s.Tasks()), []string{"2", "1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if task, _ := s.Get("2"); task.Title != "second" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if len(persister.saves) != 2 || len(persister.saves[1]) != 2 {
		t.Fatalf("expected a full save per change, got %d saves", len(persister.saves))
	}
	if len(journal.entries) != 2 || journal.entries[0].EventType != "created" {
		t.Fatalf("expected created history entries, got %+v", journal.entries)
	}
}

func TestCreateRejectsInvalidTasks(t *testing.T) {
	persister := &memoryPersister{}
	s := New([]model.Task{newTask("1", "existing")}, WithPersister(persister))

	tests := []struct {
		name string
		task model.Task
		want error
	}{
		{"empty id", newTask("  ", "title"), ErrEmptyID},
		{"duplicate id", newTask("1", "title"), ErrDuplicateID},
		{"blank title", newTask("2", "   "), model.ErrEmptyTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Create(tt.task); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if s.Len() != 1 || len(persister.saves) != 0 {
		t.Fatalf("expected rejected creates to leave the store untouched")
	}
}

func TestToggles(t *testing.T) {
	journal := &memoryJournal{}
	s := New([]model.Task{newTask("1", "a")}, WithJournal(journal))

	if err := s.ToggleCompleted("1"); err != nil {
		t.Fatalf("toggle completed: %v", err)
	}
	if task, _ := s.Get("1"); !task.Completed {
		t.Fatalf("expected task to be completed")
	}
	if err := s.ToggleCompleted("1"); err != nil {
		t.Fatalf("toggle completed again: %v", err)
	}
	if task, _ := s.Get("1"); task.Completed {
		t.Fatalf("expected task to be reopened")
	}

	if err := s.TogglePinned("1"); err != nil {
		t.Fatalf("toggle pinned: %v", err)
	}
	if task, _ := s.Get("1"); !task.Pinned {
		t.Fatalf("expected task to be pinned")
	}

	events := []string{}
	for _, entry := range journal.entries {
		events = append(events, entry.EventType)
	}
	if want := []string{"completed", "reopened", "pinned"}; !reflect.DeepEqual(events, want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
}

func TestNotFoundIsNoop(t *testing.T) {
	persister := &memoryPersister{}
	s := New([]model.Task{newTask("1", "a")}, WithPersister(persister))
	before := testutil.ToFloat64(mutationCount.WithLabelValues("delete", resultNotFound))

	title := "new"
	checks := map[string]error{
		"toggle completed": s.ToggleCompleted("missing"),
		"toggle pinned":    s.TogglePinned("missing"),
		"update":           s.Update("missing", model.Patch{Title: &title}),
		"delete":           s.Delete("missing"),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
	if len(persister.saves) != 0 {
		t.Fatalf("expected no saves for not-found mutations")
	}
	if task, _ := s.Get("1"); task.Title != "a" || task.Completed || task.Pinned {
		t.Fatalf("expected task to be unchanged, got %+v", task)
	}
	if after := testutil.ToFloat64(mutationCount.WithLabelValues("delete", resultNotFound)); after != before+1 {
		t.Fatalf("expected not-found delete to be counted, got %v -> %v", before, after)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	original := newTask("1", "old title")
	original.Description = "keep me"
	original.Tags = []string{"home"}
	due := model.Date("2024-02-01")
	original.DueDate = &due
	journal := &memoryJournal{}
	s := New([]model.Task{original}, WithJournal(journal))

	title := "  new title "
	priority := model.PriorityHigh
	if err := s.Update("1", model.Patch{Title: &title, Priority: &priority, SetTags: true, Tags: []string{"work"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	task, _ := s.Get("1")
	if task.Title != "new title" || task.Priority != model.PriorityHigh {
		t.Fatalf("expected title and priority to change, got %+v", task)
	}
	if task.Description != "keep me" || task.DueDate == nil || *task.DueDate != "2024-02-01" {
		t.Fatalf("expected untouched fields to survive, got %+v", task)
	}
	if !reflect.DeepEqual(task.Tags, []string{"work"}) {
		t.Fatalf("expected tags to be replaced, got %v", task.Tags)
	}
	if task.ID != "1" || !task.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("expected id and createdAt to be preserved")
	}
	if len(journal.entries) != 1 || !strings.Contains(journal.entries[0].Details, "title: 'old title' -> 'new title'") {
		t.Fatalf("expected diff in history, got %+v", journal.entries)
	}

	if err := s.Update("1", model.Patch{ClearDueDate: true}); err != nil {
		t.Fatalf("clear due date: %v", err)
	}
	if task, _ := s.Get("1"); task.DueDate != nil {
		t.Fatalf("expected due date to be cleared")
	}

	blank := "  "
	if err := s.Update("1", model.Patch{Title: &blank}); !errors.Is(err, model.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if task, _ := s.Get("1"); task.Title != "new title" {
		t.Fatalf("expected rejected update to leave title, got %q", task.Title)
	}
}

func TestDelete(t *testing.T) {
	s := New([]model.Task{newTask("1", "a"), newTask("2", "b"), newTask("3", "c")})
	if err := s.Delete("2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, want := ids(s.Tasks()), []string{"1", "3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClearCompleted(t *testing.T) {
	done := newTask("done", "a")
	done.Completed = true
	open := newTask("open", "b")
	persister := &memoryPersister{}
	s := New([]model.Task{done, open}, WithPersister(persister))

	if removed := s.ClearCompleted(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if got, want := ids(s.Tasks()), []string{"open"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(persister.saves) != 1 {
		t.Fatalf("expected one save, got %d", len(persister.saves))
	}

	if removed := s.ClearCompleted(); removed != 0 {
		t.Fatalf("expected nothing to clear, got %d", removed)
	}
	if len(persister.saves) != 1 {
		t.Fatalf("expected no save when nothing changed")
	}
}

func TestClearCompletedKeepsOrder(t *testing.T) {
	var tasks []model.Task
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		task := newTask(id, id)
		task.Completed = i%2 == 1
		tasks = append(tasks, task)
	}
	s := New(tasks)
	if removed := s.ClearCompleted(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if got, want := ids(s.Tasks()), []string{"a", "c", "e"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	oldOutput := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(oldOutput)

	persister := &memoryPersister{err: errors.New("quota exceeded")}
	journal := &memoryJournal{err: errors.New("journal offline")}
	s := New(nil, WithPersister(persister), WithJournal(journal))
	before := testutil.ToFloat64(persistFailures.WithLabelValues("save"))

	if err := s.Create(newTask("1", "a")); err != nil {
		t.Fatalf("expected create to succeed despite save failure: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected in-memory state to reflect the create")
	}
	if !strings.Contains(buf.String(), "quota exceeded") {
		t.Fatalf("expected save failure to be logged, got %q", buf.String())
	}
	if after := testutil.ToFloat64(persistFailures.WithLabelValues("save")); after != before+1 {
		t.Fatalf("expected save failure to be counted")
	}
	if err := s.SaveErr(); err == nil || err.Error() != "quota exceeded" {
		t.Fatalf("expected last save error to be kept, got %v", err)
	}

	persister.err = nil
	if err := s.TogglePinned("1"); err != nil {
		t.Fatalf("toggle pinned: %v", err)
	}
	if err := s.SaveErr(); err != nil {
		t.Fatalf("expected a successful save to clear the error, got %v", err)
	}
}

func TestStoreOwnsItsCopy(t *testing.T) {
	input := []model.Task{newTask("1", "a")}
	input[0].Tags = []string{"x"}
	s := New(input)
	input[0].Title = "changed"
	input[0].Tags[0] = "y"

	out := s.Tasks()
	out[0].Title = "also changed"

	task, _ := s.Get("1")
	if task.Title != "a" || task.Tags[0] != "x" {
		t.Fatalf("expected store to be isolated from callers, got %+v", task)
	}
}
