package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/query"
)

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "no tags"
	}
	return strings.Join(tags, ",")
}

func checkbox(task model.Task) string {
	if task.Completed {
		return "[x]"
	}
	return "[ ]"
}

func formatTaskSummary(task model.Task, today time.Time) string {
	pin := " "
	if task.Pinned {
		pin = "^"
	}
	due := ""
	if task.DueDate != nil {
		due = " | due " + string(*task.DueDate)
		if query.IsOverdue(task, today) {
			due += " !"
		}
	}
	return fmt.Sprintf("%s%s %s | %s%s | %s", pin, checkbox(task), task.Title, task.DisplayPriority(), due, formatTags(task.Tags))
}

// formatDue renders the due date with a relative hint, e.g. "2024-06-01
// (3 days ago, overdue)".
func formatDue(task model.Task, today time.Time) string {
	if task.DueDate == nil {
		return "n/a"
	}
	parsed, err := task.DueDate.Time()
	if err != nil {
		return string(*task.DueDate)
	}
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	hint := "today"
	if !parsed.Equal(midnight) {
		hint = humanize.RelTime(parsed, midnight, "ago", "from now")
	}
	if query.IsOverdue(task, today) {
		hint += ", overdue"
	}
	return fmt.Sprintf("%s (%s)", *task.DueDate, hint)
}

func formatTaskDetail(task model.Task, today time.Time) []string {
	status := "active"
	if task.Completed {
		status = "completed"
	}
	if task.Pinned {
		status += ", pinned"
	}
	return []string{
		task.Title,
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Priority: %s", task.DisplayPriority()),
		fmt.Sprintf("Due: %s", formatDue(task, today)),
		fmt.Sprintf("Created: %s", humanize.RelTime(task.CreatedAt, today, "ago", "from now")),
		fmt.Sprintf("Tags: %s", formatTags(task.Tags)),
		"",
		task.Description,
	}
}
