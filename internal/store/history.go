package store

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

func formatCreatedDetails(task model.Task) string {
	return fmt.Sprintf("created: title='%s' priority=%s due=%s tags=%s", task.Title, task.Priority, formatDue(task.DueDate), formatTags(task.Tags))
}

func formatDeletedDetails(task model.Task) string {
	return fmt.Sprintf("deleted: title='%s' priority=%s completed=%t due=%s tags=%s", task.Title, task.Priority, task.Completed, formatDue(task.DueDate), formatTags(task.Tags))
}

func formatTaskDiff(before, after model.Task) string {
	changes := []string{}
	if before.Title != after.Title {
		changes = append(changes, formatChange("title", before.Title, after.Title))
	}
	if before.Description != after.Description {
		changes = append(changes, formatChange("description", before.Description, after.Description))
	}
	if before.Priority != after.Priority {
		changes = append(changes, formatChange("priority", string(before.Priority), string(after.Priority)))
	}
	if formatDue(before.DueDate) != formatDue(after.DueDate) {
		changes = append(changes, formatChange("due", formatDue(before.DueDate), formatDue(after.DueDate)))
	}
	if beforeTags, afterTags := formatTags(before.Tags), formatTags(after.Tags); beforeTags != afterTags {
		changes = append(changes, formatChange("tags", beforeTags, afterTags))
	}
	if before.Completed != after.Completed {
		changes = append(changes, formatChange("completed", fmt.Sprint(before.Completed), fmt.Sprint(after.Completed)))
	}
	if before.Pinned != after.Pinned {
		changes = append(changes, formatChange("pinned", fmt.Sprint(before.Pinned), fmt.Sprint(after.Pinned)))
	}

	if len(changes) == 0 {
		return "updated: no changes"
	}
	return "updated: " + strings.Join(changes, "; ")
}

func formatChange(field, before, after string) string {
	return fmt.Sprintf("%s: '%s' -> '%s'", field, valueOrNone(before), valueOrNone(after))
}

func valueOrNone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "none"
	}
	return trimmed
}

func formatDue(value *model.Date) string {
	if value == nil {
		return "none"
	}
	return string(*value)
}

// Tags keep their stored order here since order is user-visible.
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, ",")
}
