package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"ctr/internal/discovery"
	"ctr/internal/logging"
)

// DefaultDebounce is the quiet period after the last change before a run
const DefaultDebounce = 200 * time.Millisecond

// ChangeHandler is called with the changed source files of one batch.
// Handlers run on the watcher's goroutine, so batches never overlap.
type ChangeHandler func(ctx context.Context, changed []string) error

// Watcher watches the directories of a test tree and reports batches of
// changed Go source files.
type Watcher struct {
	root     string
	scanner  *discovery.Scanner
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a Watcher for the tree under root. Directories are selected
// by scanner, the same way they are when the tree is run.
func New(root string, scanner *discovery.Scanner, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		scanner:  scanner,
		debounce: debounce,
		logger:   logging.OrNop(logger),
	}
}

// Run blocks until ctx is done or handler returns an error. A cancelled
// context is not an error.
func (w *Watcher) Run(ctx context.Context, handler ChangeHandler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event, pending)
			if len(pending) > 0 {
				resetTimer(timer, w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := drain(pending)
			w.logger.Debug("source files changed", zap.Strings("files", changed))
			if err := handler(ctx, changed); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, pending map[string]struct{}) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.scanner.Skip(filepath.Base(event.Name)) {
				if err := w.addTree(fsw, event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
				}
			}
			return
		}
	}

	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if !discovery.IsSourceFile(filepath.Base(event.Name)) {
		return
	}
	pending[event.Name] = struct{}{}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	dirs, err := w.scanner.Dirs(root)
	if err != nil {
		return fmt.Errorf("list directories of %s: %w", root, err)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.logger.Debug("watching directories", zap.String("root", root), zap.Int("count", len(dirs)))
	return nil
}

// resetTimer restarts timer, discarding a tick that fired but was not received
func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

func drain(pending map[string]struct{}) []string {
	changed := make([]string, 0, len(pending))
	for path := range pending {
		changed = append(changed, path)
		delete(pending, path)
	}
	sort.Strings(changed)
	return changed
}
