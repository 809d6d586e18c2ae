package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctr/internal/config"
	"ctr/internal/discovery"
	"ctr/internal/domain"
	"ctr/internal/execution"
	"ctr/internal/metrics"
	"ctr/internal/parser"
	"ctr/internal/storage"
	"ctr/internal/ui"
)

// RunCommand handles the run command
type RunCommand struct {
	config  *config.Config
	scanner *discovery.Scanner
	runner  *execution.Runner
	parser  *parser.StackParser
	storage storage.Storage
	viewer  ui.Viewer
	logger  *zap.Logger
	out     io.Writer
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	runner *execution.Runner,
	parser *parser.StackParser,
	st storage.Storage,
	viewer ui.Viewer,
	logger *zap.Logger,
) *RunCommand {
	return &RunCommand{
		config:  cfg,
		scanner: scanner,
		runner:  runner,
		parser:  parser,
		storage: st,
		viewer:  viewer,
		logger:  logger,
		out:     os.Stdout,
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	var exclude domain.TestSet
	if rc.config.Flags.OnlyFailed {
		record, err := rc.storage.Load()
		switch {
		case errors.Is(err, storage.ErrNoResults):
			color.Yellow("No previous results found, running every test")
		case err != nil:
			return fmt.Errorf("failed to load previous results: %w", err)
		default:
			exclude = record.SucceededSet()
		}
	}

	summary, err := rc.RunOnce(cmd.Context(), exclude)
	if err != nil {
		return err
	}

	if rc.config.Flags.OpenFaills && summary.Failures > 0 {
		record, err := rc.storage.Load()
		if err != nil {
			return err
		}
		if err := rc.viewer.View(record); err != nil {
			return err
		}
	}

	if summary.Failures > 0 || summary.Aborted {
		return ErrTestsFailed
	}
	return nil
}

// RunOnce runs the configured tree once, skipping the ids in exclude, and
// stores the result. The summary is returned even when the run stopped on
// a discovery error.
func (rc *RunCommand) RunOnce(ctx context.Context, exclude domain.TestSet) (*domain.RunSummary, error) {
	testPath := rc.config.GetTestPath()
	root, err := rc.scanner.Scan(testPath)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	rc.runner.SetReporter(rc.reporter())
	rc.runner.SetRecorder(recorder)

	summary, runErr := rc.runner.Run(ctx, root, execution.Options{
		Root:          testPath,
		ReturnOnError: rc.config.ReturnOnError,
		Exclude:       exclude,
		NameFilter:    rc.config.Flags.NameFilter,
	})

	// Save results
	failures := rc.parser.Failures(summary.Results)
	if err := rc.storage.Save(summary, failures); err != nil {
		return summary, fmt.Errorf("failed to save test results: %w", err)
	}

	if rc.config.MetricsFile != "" {
		if err := recorder.WriteTextfile(rc.config.MetricsFile); err != nil {
			rc.logger.Warn("failed to write metrics", zap.String("file", rc.config.MetricsFile), zap.Error(err))
		}
	}

	return summary, runErr
}

func (rc *RunCommand) reporter() execution.Reporter {
	if rc.config.Flags.Progress {
		return ui.NewProgressReporter(rc.out)
	}
	console := ui.NewConsoleReporter(rc.out)
	console.ShowSkipped(rc.config.Flags.Verbose)
	return console
}
