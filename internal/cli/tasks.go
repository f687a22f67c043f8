package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leeovery/studyplan/internal/config"
	"github.com/leeovery/studyplan/internal/store"
	"github.com/leeovery/studyplan/internal/task"
)

func (a *App) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize planner in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := config.Init(a.workDir)
			if err != nil {
				return err
			}
			return a.message(fmt.Sprintf("Initialized planner in %s/", root))
		},
	}
}

func (a *App) addCommand() *cobra.Command {
	var in task.Input
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			in.Title = args[0]
			if !cmd.Flags().Changed("due") {
				in.DueDate = e.Validator().FormatDate(a.now())
			}
			t, err := e.Add(in)
			if err := a.saved(err); err != nil {
				return err
			}
			return a.showTask(t)
		},
	}
	cmd.Flags().StringVarP(&in.Subject, "subject", "s", "", "subject the task belongs to")
	cmd.Flags().StringVarP(&in.DueDate, "due", "d", "", "due date (YYYY/MM/DD, default today)")
	cmd.Flags().StringVar(&in.Status, "status", "", "initial status (default \"To Do\")")
	return cmd
}

func (a *App) editCommand() *cobra.Command {
	var title, subject, due, status string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p task.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("subject") {
				p.Subject = &subject
			}
			if flags.Changed("due") {
				p.DueDate = &due
			}
			if flags.Changed("status") {
				p.Status = &status
			}
			if p.IsEmpty() {
				return fmt.Errorf("nothing to change - use --title, --subject, --due or --status")
			}

			e, err := a.openEngine()
			if err != nil {
				return err
			}
			t, err := e.Edit(args[0], p)
			if err := a.saved(err); err != nil {
				return err
			}
			return a.showTask(t)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "new subject")
	cmd.Flags().StringVarP(&due, "due", "d", "", "new due date (YYYY/MM/DD)")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	return cmd
}

func (a *App) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			existed, err := e.Delete(args[0])
			if err := a.saved(err); err != nil {
				return err
			}
			if !existed {
				return &store.NotFoundError{ID: args[0]}
			}
			return a.message(fmt.Sprintf("Removed %s", args[0]))
		},
	}
}

func (a *App) toggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between Done and To Do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			before, err := e.Get(args[0])
			if err != nil {
				return err
			}
			after, err := e.ToggleDone(args[0])
			if err := a.saved(err); err != nil {
				return err
			}
			if a.fc.Quiet {
				return nil
			}
			return a.fmtr.FormatTransition(a.stdout, before.ID, before.Status, after)
		},
	}
}

func (a *App) listCommand() *cobra.Command {
	var search, status, sortKey string
	var desc bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := store.Query{Search: search, SortDir: store.SortAsc}
			if desc {
				q.SortDir = store.SortDesc
			}
			key, err := store.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			q.SortKey = key
			if status != "" {
				s, ok := task.ParseStatus(status)
				if !ok {
					return fmt.Errorf("invalid status '%s' - valid statuses: %s", status, statusList())
				}
				q.Status = s
			}

			e, err := a.openEngine()
			if err != nil {
				return err
			}
			tasks := e.Query(q)
			if a.fc.Quiet {
				for _, t := range tasks {
					fmt.Fprintln(a.stdout, t.ID)
				}
				return nil
			}
			return a.fmtr.FormatTaskList(a.stdout, tasks)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive match on title or subject")
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status")
	cmd.Flags().StringVar(&sortKey, "sort", "due_date", "sort key: title, subject or due_date")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func (a *App) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			t, err := e.Get(args[0])
			if err != nil {
				return err
			}
			return a.fmtr.FormatTaskDetail(a.stdout, t)
		},
	}
}

// showTask renders a created or edited task; quiet mode prints only its ID.
func (a *App) showTask(t task.Task) error {
	if a.fc.Quiet {
		_, err := fmt.Fprintln(a.stdout, t.ID)
		return err
	}
	return a.fmtr.FormatTaskDetail(a.stdout, t)
}

func statusList() string {
	names := make([]string, 0, 3)
	for _, s := range task.AllStatuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
