package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherDebouncesBurstIntoOneRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	var mu sync.Mutex
	runs := 0
	w := New(dir, 100*time.Millisecond, func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evidence.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.txt"), []byte("b"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 1
	}, 3*time.Second, 20*time.Millisecond)

	// the burst settles into exactly one regeneration
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	got := runs
	mu.Unlock()
	assert.Equal(t, 1, got)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherKeepsGoingAfterFailedRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	var mu sync.Mutex
	runs := 0
	w := New(dir, 50*time.Millisecond, func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return assert.AnError
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evidence.txt"), []byte("a"), 0o644))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 1
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "evidence.txt"), []byte("ab"), 0o644))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherMissingPath(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), time.Millisecond, func(context.Context) error { return nil }, nil)
	assert.Error(t, w.Run(context.Background()))
}

func TestRelevantEventFilter(t *testing.T) {
	write := fsnotify.Event{Name: "/data/evidence.txt", Op: fsnotify.Write}
	chmod := fsnotify.Event{Name: "/data/evidence.txt", Op: fsnotify.Chmod}
	hidden := fsnotify.Event{Name: "/data/.evidence.txt.swp", Op: fsnotify.Write}

	assert.True(t, relevant(write, ""))
	assert.False(t, relevant(chmod, ""))
	assert.False(t, relevant(hidden, ""))

	assert.True(t, relevant(fsnotify.Event{Name: "/data/run.mzTab", Op: fsnotify.Write}, "run.mzTab"))
	assert.False(t, relevant(write, "run.mzTab"))
}
