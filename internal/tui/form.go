package tui

import (
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldTags
	fieldDue
)

func buildFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Priority (space/←→)"},
		{Label: "Tags (comma separated)"},
		{Label: "Due (YYYY-MM-DD)"},
	}

	if task == nil {
		fields[fieldPriority].Value = string(model.PriorityMedium)
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	fields[fieldPriority].Value = string(model.ParsePriority(string(task.Priority)))
	fields[fieldTags].Value = strings.Join(task.Tags, ", ")
	if task.DueDate != nil {
		fields[fieldDue].Value = string(*task.DueDate)
	}

	return fields
}

func parseFormFields(fields []formField) model.TaskInput {
	return model.TaskInput{
		Title:       fields[fieldTitle].Value,
		Description: fields[fieldDescription].Value,
		Priority:    fields[fieldPriority].Value,
		Tags:        model.ParseTags(fields[fieldTags].Value),
		DueDate:     fields[fieldDue].Value,
	}
}

// patchFromInput turns a submitted edit form into a patch that replaces
// every editable field. An empty due field clears the due date.
func patchFromInput(input model.TaskInput) (model.Patch, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.Patch{}, model.ErrEmptyTitle
	}
	due, err := model.ParseDate(input.DueDate)
	if err != nil {
		return model.Patch{}, err
	}

	description := strings.TrimSpace(input.Description)
	priority := model.ParsePriority(input.Priority)
	return model.Patch{
		Title:        &title,
		Description:  &description,
		Priority:     &priority,
		Tags:         model.CleanTags(input.Tags),
		SetTags:      true,
		DueDate:      due,
		ClearDueDate: due == nil,
	}, nil
}
