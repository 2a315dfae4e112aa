package document

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/auw/internal/tmpl"
)

// ReloadFunc receives the templates of a changed document.
type ReloadFunc func(page, item *tmpl.Template)

const reloadDelay = 100 * time.Millisecond

// Watch watches the document file at path and calls cb with its templates
// after every change until ctx is cancelled. Bursts of events are debounced.
// The parent directory is watched so editors that replace the file by
// renaming are handled.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb ReloadFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			page, item, loadErr := Templates(abs)
			if loadErr != nil {
				logger.Warn("watcher: reload failed", slog.String("path", abs), slog.String("error", loadErr.Error()))
				continue
			}
			logger.Debug("watcher: reloaded", slog.String("path", abs))
			cb(page, item)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			timerCh = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
