// Package query derives the views shown to the user from the task
// collection. Every function here is a pure recomputation over its inputs.
package query

import (
	"sort"
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

// Evaluate filters tasks by q and orders the survivors: pinned tasks first,
// then by q.SortBy. Ties keep their input order. tasks is never modified.
func Evaluate(tasks []model.Task, q model.Query) []model.Task {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	result := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !matchesStatus(task, q.Status) {
			continue
		}
		if !matchesPriority(task, q.Priority) {
			continue
		}
		if q.ActiveTag != "" && !task.HasTag(q.ActiveTag) {
			continue
		}
		if search != "" && !matchesSearch(task, search) {
			continue
		}
		result = append(result, task)
	}

	compare := comparator(q.SortBy)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Pinned != result[j].Pinned {
			return result[i].Pinned
		}
		return compare(result[i], result[j]) < 0
	})
	return result
}

func matchesStatus(task model.Task, status model.StatusFilter) bool {
	switch status {
	case model.StatusActive:
		return !task.Completed
	case model.StatusCompleted:
		return task.Completed
	default:
		return true
	}
}

func matchesPriority(task model.Task, priority model.PriorityFilter) bool {
	if priority == "" || priority == model.PriorityAll {
		return true
	}
	return string(task.Priority) == string(priority)
}

// matchesSearch expects needle to be trimmed and lower-cased already.
func matchesSearch(task model.Task, needle string) bool {
	if strings.Contains(strings.ToLower(task.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(task.Description), needle) {
		return true
	}
	for _, tag := range task.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func comparator(key model.SortKey) func(a, b model.Task) int {
	switch key {
	case model.SortCreatedDesc:
		return func(a, b model.Task) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case model.SortCreatedAsc:
		return func(a, b model.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case model.SortDueAsc:
		return func(a, b model.Task) int { return compareDue(a, b, 1) }
	case model.SortDueDesc:
		return func(a, b model.Task) int { return compareDue(a, b, -1) }
	case model.SortPriorityDesc:
		return func(a, b model.Task) int { return b.Priority.Rank() - a.Priority.Rank() }
	default:
		return func(a, b model.Task) int { return 0 }
	}
}

// compareDue puts tasks without a due date last whatever the direction.
func compareDue(a, b model.Task, direction int) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	return direction * a.DueDate.Compare(*b.DueDate)
}
