package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leeovery/studyplan/internal/doctor"
	"github.com/leeovery/studyplan/internal/engine"
)

func (a *App) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			s, err := e.Stats()
			if err != nil {
				return err
			}
			return a.fmtr.FormatStats(a.stdout, s)
		},
	}
}

func (a *App) rebuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Force rebuild of the SQLite statistics cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			n, err := e.RebuildCache()
			if err != nil {
				return err
			}
			return a.message(fmt.Sprintf("Cache rebuilt from %d tasks", n))
		},
	}
}

func (a *App) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the data directory for problems",
		Long:  "Run read-only checks on the task file and cache. Exits 1 when any error is found; warnings do not affect the exit code.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			report := engine.Diagnose(cmd.Context(), cfg, nil)
			doctor.FormatReport(a.stdout, report)
			if code := doctor.ExitCode(report); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
}
