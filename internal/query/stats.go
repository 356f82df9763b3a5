package query

import (
	"math"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type Stats struct {
	Total              int `json:"total"`
	Active             int `json:"active"`
	Completed          int `json:"completed"`
	HighPriorityActive int `json:"highPriorityActive"`
	CompletionRate     int `json:"completionRate"`
}

// Summarize counts over the whole collection, not a filtered view.
func Summarize(tasks []model.Task) Stats {
	stats := Stats{Total: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
			continue
		}
		if task.Priority == model.PriorityHigh {
			stats.HighPriorityActive++
		}
	}
	stats.Active = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}

// IsOverdue reports whether an open task's due date is before today's date.
func IsOverdue(task model.Task, today time.Time) bool {
	if task.Completed || task.DueDate == nil {
		return false
	}
	return task.DueDate.Compare(model.DateOf(today)) < 0
}
