package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctr/internal/discovery"
)

func TestWatcher_Run(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "vendor"), 0755))

	w := New(root, discovery.NewScanner([]string{"vendor"}, nil), 50*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batches := make(chan []string, 1)
	errDone := errors.New("done")
	result := make(chan error, 1)
	go func() {
		result <- w.Run(ctx, func(ctx context.Context, changed []string) error {
			batches <- changed
			return errDone
		})
	}()

	// Give the watcher time to register the tree
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "dep.go"), []byte("package dep"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "calc_test.go"), []byte("package calc"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "calc.go"), []byte("package calc"), 0644))

	select {
	case changed := <-batches:
		assert.Equal(t, []string{filepath.Join(root, "calc.go")}, changed)
	case <-ctx.Done():
		t.Fatal("no change batch received")
	}
	assert.ErrorIs(t, <-result, errDone)
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	w := New(t.TempDir(), discovery.NewScanner(nil, nil), 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx, func(context.Context, []string) error {
		t.Error("handler must not be called")
		return nil
	})

	assert.NoError(t, err)
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), discovery.NewScanner(nil, nil), 0, nil)

	err := w.Run(context.Background(), func(context.Context, []string) error { return nil })

	assert.Error(t, err)
}

func TestDrain(t *testing.T) {
	pending := map[string]struct{}{"b.go": {}, "a.go": {}}

	assert.Equal(t, []string{"a.go", "b.go"}, drain(pending))
	assert.Empty(t, pending)
}

func TestResetTimer_DropsStaleTick(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	resetTimer(timer, time.Hour)
	defer timer.Stop()

	select {
	case <-timer.C:
		t.Fatal("a tick from before the reset must not be delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResetTimer_Running(t *testing.T) {
	timer := time.NewTimer(time.Hour)
	resetTimer(timer, time.Millisecond)

	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("expected the timer to fire after the new duration")
	}
}
