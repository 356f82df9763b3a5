package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/query"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

const shortIDLen = 8

func listCmd(opts *rootOptions) *cobra.Command {
	var (
		status   string
		priority string
		tag      string
		search   string
		sortBy   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, pinned first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			q := sess.defaultQuery()
			q.Status = model.ParseStatusFilter(status)
			q.Priority = model.ParsePriorityFilter(priority)
			q.ActiveTag = strings.TrimSpace(tag)
			q.Search = search
			if sortBy != "" {
				q.SortBy = model.ParseSortKey(sortBy)
			}

			visible := query.Evaluate(sess.store.Tasks(), q)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), visible)
			}
			printTasks(cmd.OutOrStdout(), visible, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "Status filter (all, active, completed)")
	cmd.Flags().StringVar(&priority, "priority", "all", "Priority filter (all, low, medium, high)")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only tasks carrying this tag")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Case-insensitive text search")
	cmd.Flags().StringVarP(&sortBy, "sort", "s", "", "Sort key (created_desc, created_asc, due_asc, due_desc, priority_desc)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func addCmd(opts *rootOptions) *cobra.Command {
	var input model.TaskInput
	var tags string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			input.Title = strings.Join(args, " ")
			input.Tags = model.ParseTags(tags)
			task, err := model.NewTask(input, model.NewID(), time.Now())
			if err != nil {
				return err
			}
			if err := sess.store.Create(task); err != nil {
				return err
			}
			if err := sess.store.SaveErr(); err != nil {
				return fmt.Errorf("save tasks: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", shortID(task.ID), task.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input.Description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&input.Priority, "priority", "p", string(model.PriorityMedium), "Priority (low, medium, high)")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Comma separated tags")
	cmd.Flags().StringVar(&input.DueDate, "due", "", "Due date (YYYY-MM-DD)")

	return cmd
}

func doneCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle a task between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateTask(cmd, opts, args[0], "toggled", func(s *store.Store, id string) error {
				return s.ToggleCompleted(id)
			})
		},
	}
}

func pinCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pin [id]",
		Short: "Toggle whether a task is pinned to the top",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateTask(cmd, opts, args[0], "toggled pin on", func(s *store.Store, id string) error {
				return s.TogglePinned(id)
			})
		},
	}
}

func rmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateTask(cmd, opts, args[0], "deleted", func(s *store.Store, id string) error {
				return s.Delete(id)
			})
		},
	}
}

func editCmd(opts *rootOptions) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		tags        string
		due         string
		clearDue    bool
	)

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var patch model.Patch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				p := model.ParsePriority(priority)
				patch.Priority = &p
			}
			if flags.Changed("tags") {
				patch.SetTags = true
				patch.Tags = model.ParseTags(tags)
			}
			if flags.Changed("due") {
				date, err := model.ParseDate(due)
				if err != nil {
					return err
				}
				patch.DueDate = date
				patch.ClearDueDate = date == nil
			}
			if clearDue {
				patch.ClearDueDate = true
			}
			if patch.Empty() {
				return errors.New("nothing to change, pass at least one field flag")
			}

			return mutateTask(cmd, opts, args[0], "updated", func(s *store.Store, id string) error {
				return s.Update(id, patch)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority (low, medium, high)")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Replace tags with this comma separated list")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD, empty clears)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")

	return cmd
}

func clearCompletedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			removed := sess.store.ClearCompleted()
			if err := sess.store.SaveErr(); err != nil {
				return fmt.Errorf("save tasks: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d completed %s\n", removed, plural(removed, "task", "tasks"))
			return nil
		},
	}
}

func tagsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags with the number of tasks carrying each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			counts := query.TagCounts(sess.store.Tasks())
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), counts)
			}
			if len(counts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tags")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, tag := range counts {
				fmt.Fprintf(w, "%s\t%d\n", tag.Name, tag.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func statsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task counts and completion rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			stats := query.Summarize(sess.store.Tasks())
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:         %d\n", stats.Total)
			fmt.Fprintf(out, "Active:        %d\n", stats.Active)
			fmt.Fprintf(out, "Completed:     %d\n", stats.Completed)
			fmt.Fprintf(out, "High priority: %d\n", stats.HighPriorityActive)
			fmt.Fprintf(out, "Done:          %d%%\n", stats.CompletionRate)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func historyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history [id]",
		Short: "Show the change history of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if sess.history == nil {
				return fmt.Errorf("history is only kept by the sqlite backend")
			}

			// Deleted tasks keep their history, so a full id is used as is.
			id := args[0]
			if resolved, err := resolveID(sess.store, id); err == nil {
				id = resolved
			}
			entries, err := sess.history.ListHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no history")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", humanize.Time(entry.CreatedAt), entry.EventType, entry.Details)
			}
			return w.Flush()
		},
	}
}

// mutateTask resolves arg to a task id and applies fn. A missing task is
// reported but is not an error.
func mutateTask(cmd *cobra.Command, opts *rootOptions, arg, verb string, fn func(*store.Store, string) error) error {
	sess, err := openSession(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	id, err := resolveID(sess.store, arg)
	if err == nil {
		err = fn(sess.store, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "not found: %s\n", arg)
		return nil
	}
	if err != nil {
		return err
	}
	if err := sess.store.SaveErr(); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, shortID(id))
	return nil
}

func printTasks(out io.Writer, tasks []model.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "no tasks")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, task := range tasks {
		mark := "[ ]"
		if task.Completed {
			mark = "[x]"
		}
		pin := ""
		if task.Pinned {
			pin = "^"
		}
		due := "-"
		if task.DueDate != nil {
			due = string(*task.DueDate)
			if query.IsOverdue(task, now) {
				due += " (overdue)"
			}
		}
		tags := strings.Join(task.Tags, ",")
		if tags == "" {
			tags = "-"
		}
		fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(task.ID), pin, mark, task.Title, task.DisplayPriority(), due, tags, humanize.RelTime(task.CreatedAt, now, "ago", "from now"))
	}
	_ = w.Flush()
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
