package store

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"

	"github.com/Joseda-hg/lazytodo/internal/logger"
	"github.com/Joseda-hg/lazytodo/internal/model"
)

var (
	ErrEmptyID     = goerrors.New("task id is required")
	ErrDuplicateID = goerrors.New("task id already exists")
	ErrNotFound    = goerrors.New("task not found")
)

// Persister receives the full collection after every change.
type Persister interface {
	Save(ctx context.Context, tasks []model.Task) error
}

// Journal records an audit entry per mutation.
type Journal interface {
	Record(ctx context.Context, entry model.HistoryEntry) error
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the task collection. It is not safe for concurrent use: a
// single goroutine (the UI loop or a serializing server) must own it.
type Store struct {
	tasks     []model.Task
	persister Persister
	journal   Journal
	now       func() time.Time
	saveErr   error
}

// New takes ownership of a copy of tasks, kept in the given order.
func New(tasks []model.Task, opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.tasks = cloneAll(tasks)
	return s
}

// Tasks returns a copy of the collection in storage order.
func (s *Store) Tasks() []model.Task {
	return cloneAll(s.tasks)
}

// SaveErr returns the error from the most recent save, or nil if it
// succeeded. Short-lived callers check it before exiting.
func (s *Store) SaveErr() error {
	return s.saveErr
}

func (s *Store) Len() int {
	return len(s.tasks)
}

func (s *Store) Get(id string) (model.Task, bool) {
	index := s.indexOf(id)
	if index < 0 {
		return model.Task{}, false
	}
	return s.tasks[index].Clone(), true
}

// Create prepends task. Title validation belongs to the input layer, but a
// blank title or a missing or reused id is still refused here.
func (s *Store) Create(task model.Task) error {
	if strings.TrimSpace(task.ID) == "" {
		countMutation("create", resultRejected)
		return ErrEmptyID
	}
	if s.indexOf(task.ID) >= 0 {
		countMutation("create", resultRejected)
		return ErrDuplicateID
	}
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		countMutation("create", resultRejected)
		return model.ErrEmptyTitle
	}
	task.Description = strings.TrimSpace(task.Description)
	if task.Tags == nil {
		task.Tags = []string{}
	}

	task = task.Clone()
	s.tasks = append([]model.Task{task}, s.tasks...)
	countMutation("create", resultOK)
	s.changed(task.ID, "created", formatCreatedDetails(task))
	return nil
}

func (s *Store) ToggleCompleted(id string) error {
	index := s.indexOf(id)
	if index < 0 {
		countMutation("toggle_completed", resultNotFound)
		return ErrNotFound
	}
	s.tasks[index].Completed = !s.tasks[index].Completed
	event := "completed"
	if !s.tasks[index].Completed {
		event = "reopened"
	}
	countMutation("toggle_completed", resultOK)
	s.changed(id, event, event+": title='"+s.tasks[index].Title+"'")
	return nil
}

func (s *Store) TogglePinned(id string) error {
	index := s.indexOf(id)
	if index < 0 {
		countMutation("toggle_pinned", resultNotFound)
		return ErrNotFound
	}
	s.tasks[index].Pinned = !s.tasks[index].Pinned
	event := "pinned"
	if !s.tasks[index].Pinned {
		event = "unpinned"
	}
	countMutation("toggle_pinned", resultOK)
	s.changed(id, event, event+": title='"+s.tasks[index].Title+"'")
	return nil
}

// Update merges patch into the task. ID and CreatedAt are never touched.
func (s *Store) Update(id string, patch model.Patch) error {
	index := s.indexOf(id)
	if index < 0 {
		countMutation("update", resultNotFound)
		return ErrNotFound
	}

	before := s.tasks[index].Clone()
	after := before.Clone()
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			countMutation("update", resultRejected)
			return model.ErrEmptyTitle
		}
		after.Title = title
	}
	if patch.Description != nil {
		after.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		after.Priority = *patch.Priority
	}
	if patch.SetTags {
		after.Tags = append([]string{}, patch.Tags...)
	}
	if patch.ClearDueDate {
		after.DueDate = nil
	} else if patch.DueDate != nil {
		due := *patch.DueDate
		after.DueDate = &due
	}
	if patch.Completed != nil {
		after.Completed = *patch.Completed
	}
	if patch.Pinned != nil {
		after.Pinned = *patch.Pinned
	}

	s.tasks[index] = after
	countMutation("update", resultOK)
	s.changed(id, "updated", formatTaskDiff(before, after))
	return nil
}

func (s *Store) Delete(id string) error {
	index := s.indexOf(id)
	if index < 0 {
		countMutation("delete", resultNotFound)
		return ErrNotFound
	}
	removed := s.tasks[index]
	s.tasks = append(s.tasks[:index:index], s.tasks[index+1:]...)
	countMutation("delete", resultOK)
	s.changed(id, "deleted", formatDeletedDetails(removed))
	return nil
}

// ClearCompleted drops every completed task, keeping the order of the rest,
// and returns how many were removed.
func (s *Store) ClearCompleted() int {
	kept := make([]model.Task, 0, len(s.tasks))
	var removed []model.Task
	for _, task := range s.tasks {
		if task.Completed {
			removed = append(removed, task)
			continue
		}
		kept = append(kept, task)
	}
	if len(removed) == 0 {
		countMutation("clear_completed", resultNoop)
		return 0
	}

	s.tasks = kept
	countMutation("clear_completed", resultOK)
	ctx := context.Background()
	for _, task := range removed {
		s.record(ctx, task.ID, "deleted", "cleared: "+formatDeletedDetails(task))
	}
	s.save(ctx)
	return len(removed)
}

func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) changed(taskID, event, details string) {
	ctx := context.Background()
	s.record(ctx, taskID, event, details)
	s.save(ctx)
}

// save never fails the caller: in-memory state stays authoritative until the
// next successful write.
func (s *Store) save(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.saveErr = s.persister.Save(ctx, s.Tasks())
	if s.saveErr != nil {
		persistFailures.WithLabelValues("save").Inc()
		logger.Error(s.saveErr, "save tasks", "count", len(s.tasks))
	}
}

func (s *Store) record(ctx context.Context, taskID, event, details string) {
	if s.journal == nil {
		return
	}
	entry := model.HistoryEntry{TaskID: taskID, EventType: event, Details: details, CreatedAt: s.now()}
	if err := s.journal.Record(ctx, entry); err != nil {
		persistFailures.WithLabelValues("journal").Inc()
		logger.Error(err, "record history", "task", taskID, "event", event)
	}
}

func cloneAll(tasks []model.Task) []model.Task {
	result := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.Clone())
	}
	return result
}
