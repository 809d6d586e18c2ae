package commands

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctr/internal/cli"
	"ctr/internal/config"
	"ctr/internal/discovery"
	"ctr/internal/execution"
	"ctr/internal/logging"
	"ctr/internal/parser"
	"ctr/internal/storage"
	"ctr/internal/ui"
)

// ErrTestsFailed is returned when a run had failures or was aborted. The
// summary has already been printed, so callers only set the exit status.
var ErrTestsFailed = errors.New("tests failed")

// Commands holds all CLI commands
type Commands struct {
	Run    *RunCommand
	List   *ListCommand
	Stats  *StatsCommand
	Faills *FaillsCommand
	Watch  *WatchCommand

	config  *config.Config
	storage storage.Storage
	logger  *zap.Logger
}

// NewCommands creates the command set. Dependencies are wired by Build once
// the configuration has been loaded.
func NewCommands(cfg *config.Config) *Commands {
	return &Commands{config: cfg, logger: zap.NewNop()}
}

// Build creates all commands with dependencies
func (c *Commands) Build(logger *zap.Logger) error {
	cfg := c.config
	c.logger = logging.OrNop(logger)

	st, err := storage.New(cfg)
	if err != nil {
		return err
	}
	c.storage = st

	scanner := discovery.NewScanner(cfg.PathsToIgnore, c.logger)
	discoverer := discovery.NewDiscoverer(cfg.Prefix, c.logger)
	filter := discovery.NewFilter()
	runner := execution.NewRunner(discoverer, filter, execution.NewInvoker(), nil, c.logger)
	stackParser := parser.NewStackParser()
	formatter := ui.NewFormatter(os.Stdout)
	errorViewer := ui.NewErrorViewer(st, c.logger)

	c.Run = NewRunCommand(cfg, scanner, runner, stackParser, st, errorViewer, c.logger)
	c.List = NewListCommand(cfg, scanner, discoverer, filter, formatter, st)
	c.Stats = NewStatsCommand(st, formatter)
	c.Faills = NewFaillsCommand(cfg, st, errorViewer)
	c.Watch = NewWatchCommand(cfg, scanner, c.Run, c.logger)
	return nil
}

// Close releases the result store and flushes the diagnostics logger
func (c *Commands) Close() {
	if closer, ok := c.storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.logger.Warn("failed to close result store", zap.Error(err))
		}
	}
	_ = c.logger.Sync()
}

// prepare loads the configuration in precedence order (defaults, project
// file, environment, flags) and wires the commands.
func (c *Commands) prepare(flags *cli.Flags, args []string) error {
	if len(args) > 0 {
		flags.TestPath = args[0]
	}

	cfg := c.config
	if err := cfg.LoadFile(filepath.Join(cfg.ProjectPath, config.DefaultConfigFile)); err != nil {
		return err
	}
	cfg.LoadEnv()
	cfg.ApplyFlags(flags.ToConfigFlags())
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(flags.Verbose)
	if err != nil {
		return err
	}
	return c.Build(logger)
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags) {
	preRun := func(cmd *cobra.Command, args []string) error {
		// Update config with flags after parsing
		return c.prepare(flags, args)
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Log discovery and execution diagnostics")
	rootCmd.PersistentFlags().StringVar(&flags.Store, "store", "", "Result store to use (json or mysql)")

	// Run command
	runCmd := &cobra.Command{
		Use:     "run [path]",
		Short:   "Run every test under a directory tree",
		Long:    "Discover test functions by name prefix in a tree of Go source files and run them one by one",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run.Execute(cmd, args)
		},
	}
	runCmd.Flags().BoolVarP(&flags.ReturnOnError, "return-on-error", "e", false, "Stop the whole run at the first test that errors")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Skip tests that already succeeded in the stored run")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by id pattern (supports wildcards, e.g., '*Calc.test_add' or '*payment*')")
	runCmd.Flags().StringVar(&flags.Prefix, "prefix", "", "Method name prefix that marks a test (default \"test_\")")
	runCmd.Flags().BoolVar(&flags.Progress, "progress", false, "Show a progress spinner instead of one line per test")
	runCmd.Flags().BoolVar(&flags.OpenFaills, "open-faills", false, "Open the faills viewer when the run finishes with failures")
	runCmd.Flags().StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this textfile")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list [path]",
		Short:   "List discovered tests",
		Long:    "Walk the tree and list every definition with its tests without running them",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List.Execute(cmd, args)
		},
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by id pattern")
	listCmd.Flags().StringVar(&flags.Prefix, "prefix", "", "Method name prefix that marks a test")
	listCmd.Flags().BoolVar(&flags.Warnings, "warnings", false, "Show prefix matches that cannot run as tests")
	rootCmd.AddCommand(listCmd)

	// Stats command
	statsCmd := &cobra.Command{
		Use:     "stats",
		Short:   "Show statistics of the last run",
		Args:    cobra.NoArgs,
		PreRunE: preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stats.Execute(cmd, args)
		},
	}
	rootCmd.AddCommand(statsCmd)

	// Faills command
	faillsCmd := &cobra.Command{
		Use:     "faills",
		Short:   "View test failures interactively",
		Long:    "Display test failures from the last test run in an interactive viewer",
		Args:    cobra.NoArgs,
		PreRunE: preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Faills.Execute(cmd, args)
		},
	}
	rootCmd.AddCommand(faillsCmd)

	// Watch command
	watchCmd := &cobra.Command{
		Use:     "watch [path]",
		Short:   "Re-run tests when source files change",
		Long:    "Run the tree, then re-run it on every change, skipping tests that succeeded until everything passes",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Watch.Execute(cmd, args)
		},
	}
	watchCmd.Flags().BoolVarP(&flags.ReturnOnError, "return-on-error", "e", false, "Stop a run at the first test that errors")
	watchCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by id pattern")
	watchCmd.Flags().StringVar(&flags.Prefix, "prefix", "", "Method name prefix that marks a test")
	watchCmd.Flags().BoolVar(&flags.Progress, "progress", false, "Show a progress spinner instead of one line per test")
	rootCmd.AddCommand(watchCmd)
}
