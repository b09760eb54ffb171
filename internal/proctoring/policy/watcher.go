package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"proctor/internal/proctoring/models"
)

const reloadDelay = 100 * time.Millisecond

// Applier receives every successfully reloaded policy.
type Applier func(cfg models.ProctoringConfig) error

// Watch reloads path whenever it is written or replaced and hands the result
// to apply. Invalid files are logged and the previous policy stays in force.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, apply Applier, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}
	defer watcher.Close()

	// Editors and config maps replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch policy directory: %w", err)
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDelay)
			reload = timer.C
		case <-reload:
			reload = nil
			cfg, err := Load(path)
			if err == nil {
				err = apply(cfg)
			}
			if err != nil {
				logger.WarnContext(ctx, "policy reload rejected", "path", path, "error", err)
				continue
			}
			logger.InfoContext(ctx, "policy reloaded",
				"path", path,
				"face_absence_timeout", cfg.FaceAbsenceTimeout,
				"debounce_threshold", cfg.DebounceThreshold,
				"max_violations", cfg.MaxViolations,
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "policy watcher error", "path", path, "error", err)
		}
	}
}
