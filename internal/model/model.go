package model

import (
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/google/uuid"
)

var (
	ErrEmptyTitle  = goerrors.New("title is required")
	ErrInvalidDate = goerrors.New("invalid date, expected YYYY-MM-DD")
)

const DateLayout = "2006-01-02"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority maps free text onto a known priority, falling back to medium.
func ParsePriority(value string) Priority {
	switch Priority(strings.TrimSpace(strings.ToLower(value))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Rank orders priorities for sorting. Unrecognized values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Date is a calendar date in ISO form (YYYY-MM-DD). Lexicographic order of
// the string is chronological order.
type Date string

func ParseDate(value string) (*Date, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return nil, ErrInvalidDate
	}
	date := Date(parsed.Format(DateLayout))
	return &date, nil
}

func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func (d Date) Compare(other Date) int {
	return strings.Compare(string(d), string(other))
}

func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

type Task struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Priority    Priority  `json:"priority" yaml:"priority"`
	Tags        []string  `json:"tags" yaml:"tags"`
	DueDate     *Date     `json:"dueDate" yaml:"dueDate"`
	Completed   bool      `json:"completed" yaml:"completed"`
	Pinned      bool      `json:"pinned" yaml:"pinned"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// DisplayPriority is the priority shown to the user. Missing or unknown
// stored values read as medium; the stored value is left alone.
func (t Task) DisplayPriority() Priority {
	return ParsePriority(string(t.Priority))
}

// HasTag reports whether tag is present, compared case-sensitively.
func (t Task) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Task) Clone() Task {
	clone := t
	if t.Tags != nil {
		clone.Tags = append([]string(nil), t.Tags...)
	}
	if t.DueDate != nil {
		due := *t.DueDate
		clone.DueDate = &due
	}
	return clone
}

// TaskInput is what an input form collects before a task exists.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"dueDate"`
}

// NewTask validates input and builds a fresh task with the given id and
// creation time.
func NewTask(input TaskInput, id string, now time.Time) (Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	due, err := ParseDate(input.DueDate)
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    ParsePriority(input.Priority),
		Tags:        CleanTags(input.Tags),
		DueDate:     due,
		CreatedAt:   now,
	}, nil
}

// NewID returns a random identifier for a new task. Random ids keep short
// prefixes distinct, which the CLI relies on.
func NewID() string {
	return uuid.NewString()
}

// ParseTags splits a comma separated list, dropping blank entries.
func ParseTags(value string) []string {
	return CleanTags(strings.Split(value, ","))
}

// CleanTags trims every tag and drops empty ones. Duplicates are kept.
func CleanTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

// Patch carries the fields of an edit. Nil fields are left untouched.
type Patch struct {
	Title        *string
	Description  *string
	Priority     *Priority
	Tags         []string
	SetTags      bool
	DueDate      *Date
	ClearDueDate bool
	Completed    *bool
	Pinned       *bool
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && !p.SetTags &&
		p.DueDate == nil && !p.ClearDueDate && p.Completed == nil && p.Pinned == nil
}

type HistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"taskId"`
	EventType string    `json:"eventType"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}
