package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/logger"
	"github.com/Joseda-hg/lazytodo/internal/model"
)

const DefaultSlotName = "lazytodo-tasks-v1"

// Slot is a single named durable value. Read returns nil data and no error
// when nothing has been written yet.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Adapter moves the task collection in and out of a Slot as a JSON array.
type Adapter struct {
	slot Slot
}

func NewAdapter(slot Slot) *Adapter {
	return &Adapter{slot: slot}
}

// Load never fails: a missing, unreadable or malformed slot yields an empty
// collection.
func (a *Adapter) Load(ctx context.Context) []model.Task {
	data, err := a.slot.Read(ctx)
	if err != nil {
		logger.Error(err, "load tasks")
		return []model.Task{}
	}
	tasks, err := Decode(data)
	if err != nil {
		logger.Error(err, "decode tasks")
		return []model.Task{}
	}
	logger.Debug("tasks loaded", "count", len(tasks))
	return tasks
}

func (a *Adapter) Save(ctx context.Context, tasks []model.Task) error {
	data, err := Encode(tasks)
	if err != nil {
		return err
	}
	if err := a.slot.Write(ctx, data); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

func Encode(tasks []model.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	normalized := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Tags == nil {
			task.Tags = []string{}
		}
		normalized = append(normalized, task)
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	return data, nil
}

// Decode accepts empty input as an empty collection. Anything other than a
// JSON array of tasks is an error. Records without an id are dropped and an
// empty due date reads as none.
func Decode(data []byte) ([]model.Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.Task{}, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("decode tasks: expected JSON array")
	}
	var tasks []model.Task
	if err := json.Unmarshal(trimmed, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	kept := make([]model.Task, 0, len(tasks))
	for i, task := range tasks {
		if strings.TrimSpace(task.ID) == "" {
			logger.Error(fmt.Errorf("task at index %d has no id", i), "drop stored task", "title", task.Title)
			continue
		}
		if task.Tags == nil {
			task.Tags = []string{}
		}
		if task.DueDate != nil && strings.TrimSpace(string(*task.DueDate)) == "" {
			task.DueDate = nil
		}
		kept = append(kept, task)
	}
	return kept, nil
}
