package commands

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctr/internal/config"
	"ctr/internal/discovery"
	"ctr/internal/domain"
	"ctr/internal/watch"
)

// WatchCommand re-runs the tree whenever a source file changes. Tests that
// succeeded are skipped on the next run until every test has passed once,
// after which the next change runs the whole tree again.
type WatchCommand struct {
	config  *config.Config
	scanner *discovery.Scanner
	run     *RunCommand
	logger  *zap.Logger

	succeeded domain.TestSet
}

// NewWatchCommand creates a new WatchCommand
func NewWatchCommand(cfg *config.Config, scanner *discovery.Scanner, run *RunCommand, logger *zap.Logger) *WatchCommand {
	return &WatchCommand{
		config:  cfg,
		scanner: scanner,
		run:     run,
		logger:  logger,
	}
}

// Execute runs the command
func (wc *WatchCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := wc.runOnce(ctx); err != nil {
		return err
	}

	watcher := watch.New(wc.config.GetTestPath(), wc.scanner, watch.DefaultDebounce, wc.logger)
	return watcher.Run(ctx, func(ctx context.Context, changed []string) error {
		color.Cyan("\n%d file(s) changed, running tests", len(changed))
		return wc.runOnce(ctx)
	})
}

// runOnce runs the tree and updates the carried succeeded set. Discovery
// errors (a file that does not compile yet) are reported and the watch
// goes on.
func (wc *WatchCommand) runOnce(ctx context.Context) error {
	summary, err := wc.run.RunOnce(ctx, wc.succeeded)
	if err != nil {
		var de *discovery.Error
		switch {
		case errors.As(err, &de):
			color.Red("Discovery failed in %q: %v", de.Namespace, de.Err)
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}

	if summary.Failures == 0 && !summary.Aborted {
		color.Green("All tests passed, watching for changes")
		wc.succeeded = nil
		return nil
	}
	wc.succeeded = summary.Succeeded
	color.Yellow("Watching for changes, tests that succeeded will be skipped")
	return nil
}
