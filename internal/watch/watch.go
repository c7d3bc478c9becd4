// Package watch re-runs report generation when the analysis source
// changes on disk. Bursts of file events settle for a debounce window
// before a single re-run fires, so a mid-copy source never triggers a
// half-written report per file.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"msqc/internal/qclog"
)

// Runner regenerates the report once.
type Runner func(ctx context.Context) error

// Watcher watches one source path, a MaxQuant txt directory or a single
// mzTab file.
type Watcher struct {
	path     string
	debounce time.Duration
	run      Runner
	log      *zap.SugaredLogger
}

// New builds a watcher. A non-positive debounce falls back to 750ms.
func New(path string, debounce time.Duration, run Runner, log *zap.SugaredLogger) *Watcher {
	if debounce <= 0 {
		debounce = 750 * time.Millisecond
	}
	if log == nil {
		log = qclog.Nop()
	}
	return &Watcher{path: path, debounce: debounce, run: run, log: log}
}

// Run watches until the context is cancelled. Failed re-runs are logged
// and watching continues; the next settled change tries again.
func (w *Watcher) Run(ctx context.Context) error {
	watchDir := w.path
	var only string
	if fi, err := os.Stat(w.path); err != nil {
		return fmt.Errorf("failed to access watch path: %w", err)
	} else if !fi.IsDir() {
		watchDir = filepath.Dir(w.path)
		only = filepath.Base(w.path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(watchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}
	w.log.Infow("watching for source changes", "path", w.path, "debounce_ms", w.debounce.Milliseconds())

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, only) {
				continue
			}
			w.log.Debugw("source change", "path", ev.Name, "op", ev.Op.String())
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("watch error", "error", err)

		case <-timer.C:
			pending = false
			started := time.Now()
			if err := w.run(ctx); err != nil {
				w.log.Warnw("report run failed", "error", err)
				continue
			}
			w.log.Infow("report regenerated", "duration_ms", time.Since(started).Milliseconds())
		}
	}
}

// relevant drops permission-only events, dotfiles, and, for single-file
// sources, changes to unrelated neighbors.
func relevant(ev fsnotify.Event, only string) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return only == "" || base == only
}
