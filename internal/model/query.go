package model

import "strings"

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

var StatusFilters = []StatusFilter{StatusAll, StatusActive, StatusCompleted}

func ParseStatusFilter(value string) StatusFilter {
	switch StatusFilter(strings.TrimSpace(strings.ToLower(value))) {
	case StatusActive:
		return StatusActive
	case StatusCompleted:
		return StatusCompleted
	default:
		return StatusAll
	}
}

// PriorityFilter is either PriorityAll or one of the task priorities.
type PriorityFilter string

const PriorityAll PriorityFilter = "all"

var PriorityFilters = []PriorityFilter{PriorityAll, PriorityFilter(PriorityLow), PriorityFilter(PriorityMedium), PriorityFilter(PriorityHigh)}

func ParsePriorityFilter(value string) PriorityFilter {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	switch Priority(trimmed) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return PriorityFilter(trimmed)
	default:
		return PriorityAll
	}
}

type SortKey string

const (
	SortCreatedDesc  SortKey = "created_desc"
	SortCreatedAsc   SortKey = "created_asc"
	SortDueAsc       SortKey = "due_asc"
	SortDueDesc      SortKey = "due_desc"
	SortPriorityDesc SortKey = "priority_desc"
)

var SortKeys = []SortKey{SortCreatedDesc, SortCreatedAsc, SortDueAsc, SortDueDesc, SortPriorityDesc}

func ParseSortKey(value string) SortKey {
	key := SortKey(strings.TrimSpace(strings.ToLower(value)))
	for _, known := range SortKeys {
		if key == known {
			return key
		}
	}
	return SortCreatedDesc
}

func (k SortKey) Label() string {
	switch k {
	case SortCreatedDesc:
		return "newest"
	case SortCreatedAsc:
		return "oldest"
	case SortDueAsc:
		return "due ↑"
	case SortDueDesc:
		return "due ↓"
	case SortPriorityDesc:
		return "priority"
	default:
		return string(k)
	}
}

// Query is the transient filter and sort state of a view. ActiveTag is empty
// when no tag filter is set.
type Query struct {
	Status    StatusFilter   `json:"status"`
	Priority  PriorityFilter `json:"priority"`
	ActiveTag string         `json:"activeTag"`
	Search    string         `json:"search"`
	SortBy    SortKey        `json:"sortBy"`
}

func DefaultQuery() Query {
	return Query{Status: StatusAll, Priority: PriorityAll, SortBy: SortCreatedDesc}
}

// Cycle returns the element after current in values, wrapping around.
func Cycle[T comparable](values []T, current T, delta int) T {
	index := 0
	for i, value := range values {
		if value == current {
			index = i
			break
		}
	}
	index = (index + delta%len(values) + len(values)) % len(values)
	return values[index]
}
