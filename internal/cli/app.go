// Package cli implements the planner command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/leeovery/studyplan/internal/config"
	"github.com/leeovery/studyplan/internal/engine"
	"github.com/leeovery/studyplan/internal/store"
)

// App is the planner CLI application.
type App struct {
	stdout  io.Writer
	stderr  io.Writer
	stdin   io.Reader
	workDir string
	opts    GlobalOpts
	fc      FormatConfig
	fmtr    Formatter
	warn    *log.Logger
	verbose *engine.VerboseLogger
	now     func() time.Time
}

// GlobalOpts holds parsed global flags.
type GlobalOpts struct {
	Dir     string
	Quiet   bool
	Verbose bool
	Toon    bool
	Pretty  bool
	JSON    bool
}

// exitError carries a non-zero exit code for a command that already reported
// its outcome.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewApp creates a new CLI application with the given streams.
func NewApp(stdout, stderr io.Writer, stdin io.Reader) *App {
	return &App{
		stdout: stdout,
		stderr: stderr,
		stdin:  stdin,
		now:    time.Now,
	}
}

// Run parses arguments and dispatches to the appropriate subcommand.
// args[0] is the program name. workDir is the directory the command runs in.
// Returns the exit code (0 for success, 1 for error).
func (a *App) Run(args []string, workDir string) int {
	a.workDir = workDir

	root := a.rootCommand()
	root.SetArgs(args[1:])
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetIn(a.stdin)

	if err := root.ExecuteContext(context.Background()); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Track study tasks with due dates, subjects and statuses",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.Dir, "dir", "", "directory to run in (default: current directory)")
	pf.BoolVarP(&a.opts.Quiet, "quiet", "q", false, "suppress non-essential output")
	pf.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "more detail for debugging")
	pf.BoolVar(&a.opts.Toon, "toon", false, "force TOON output format")
	pf.BoolVar(&a.opts.Pretty, "pretty", false, "force human-readable output format")
	pf.BoolVar(&a.opts.JSON, "json", false, "force JSON output format")

	root.AddCommand(
		a.initCommand(),
		a.addCommand(),
		a.editCommand(),
		a.removeCommand(),
		a.toggleCommand(),
		a.listCommand(),
		a.showCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.backupCommand(),
		a.backupsCommand(),
		a.restoreCommand(),
		a.statsCommand(),
		a.rebuildCommand(),
		a.doctorCommand(),
	)
	return root
}

// setup resolves the output format and loggers once the flags are parsed.
func (a *App) setup() error {
	format, err := ResolveFormat(a.opts.Toon, a.opts.Pretty, a.opts.JSON, DetectTTY(a.stdout))
	if err != nil {
		return err
	}
	a.fc = FormatConfig{Format: format, Quiet: a.opts.Quiet, Verbose: a.opts.Verbose}
	a.fmtr = newFormatter(format, a.stdout)

	a.warn = log.NewWithOptions(a.stderr, log.Options{Level: log.WarnLevel})
	a.verbose = engine.NewVerboseLogger(a.stderr, a.opts.Verbose)

	if a.opts.Dir != "" {
		a.workDir = a.resolvePath(a.opts.Dir)
	}
	return nil
}

// resolvePath makes p absolute relative to the working directory.
func (a *App) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.workDir, p)
}

// loadConfig discovers the data directory and loads its configuration.
func (a *App) loadConfig() (*config.Config, error) {
	root, err := config.Discover(a.workDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	a.warn.SetLevel(cfg.Level())
	a.verbose.Logf("config: data directory %s", root)
	return cfg, nil
}

// openEngine loads the task file of the discovered data directory.
func (a *App) openEngine() (*engine.Engine, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.Open(cfg,
		engine.WithVerbose(a.verbose),
		engine.WithWarnLogger(a.warn),
		engine.WithClock(a.now),
	)
}

// saved turns a save warning into a logged warning so the command still
// succeeds; the change is applied in memory but not on disk.
func (a *App) saved(err error) error {
	if store.IsSaveWarning(err) {
		a.warn.Warn(err.Error())
		return nil
	}
	return err
}

// message writes msg through the formatter unless quiet.
func (a *App) message(msg string) error {
	if a.fc.Quiet {
		return nil
	}
	return a.fmtr.FormatMessage(a.stdout, msg)
}
