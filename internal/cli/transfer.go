package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func (a *App) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Merge tasks from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			res, err := e.ImportCSV(a.resolvePath(args[0]))
			if err := a.saved(err); err != nil {
				return err
			}
			if res.Invalid > 0 {
				a.warn.Warn("skipped invalid rows", "file", args[0], "invalid", res.Invalid)
			}
			if a.fc.Quiet {
				return nil
			}
			return a.fmtr.FormatImport(a.stdout, res)
		},
	}
}

func (a *App) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write every task to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			path := a.resolvePath(args[0])
			if err := e.ExportCSV(path); err != nil {
				return err
			}
			return a.message(fmt.Sprintf("Exported %d tasks to %s", len(e.All()), path))
		},
	}
}

func (a *App) backupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped snapshot of all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			path, err := e.Backup()
			if err != nil {
				return err
			}
			if a.fc.Quiet {
				_, err := fmt.Fprintln(a.stdout, path)
				return err
			}
			return a.message(fmt.Sprintf("Backup written to %s", path))
		},
	}
}

func (a *App) backupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			infos, err := e.Backups()
			if err != nil {
				return err
			}
			if a.fc.Quiet {
				for _, info := range infos {
					fmt.Fprintln(a.stdout, info.Path)
				}
				return nil
			}
			return a.fmtr.FormatBackups(a.stdout, infos)
		},
	}
}

func (a *App) restoreCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace all tasks with a snapshot",
		Long: `Replace all tasks with the contents of a snapshot. <backup> is a path, or
the name of a file in the backup directory as shown by "planner backups".
Asks for confirmation unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			path := a.backupPath(args[0], e.Config().BackupPath())

			confirmed := yes
			if !confirmed {
				confirmed = a.confirm(fmt.Sprintf("Replace all %d tasks with %s? [y/N] ", len(e.All()), filepath.Base(path)))
			}

			res, err := e.Restore(path, confirmed)
			if err := a.saved(err); err != nil {
				return err
			}
			msg := fmt.Sprintf("Restored %d tasks from %s", res.Restored, path)
			if res.Dropped > 0 {
				msg += fmt.Sprintf(" (%d invalid records dropped)", res.Dropped)
			}
			return a.message(msg)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// backupPath resolves arg as a path relative to the working directory, or
// failing that as a file name inside the backup directory.
func (a *App) backupPath(arg, backupDir string) string {
	p := a.resolvePath(arg)
	if _, err := os.Stat(p); err == nil || filepath.Base(arg) != arg {
		return p
	}
	return filepath.Join(backupDir, arg)
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func (a *App) confirm(prompt string) bool {
	fmt.Fprint(a.stderr, prompt)
	if a.stdin == nil {
		return false
	}
	line, _ := bufio.NewReader(a.stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
