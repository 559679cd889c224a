package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/timeouts"
)

// Watch calls fn with the reloaded config whenever path changes, until ctx is done.
// The parent directory is watched so editors that replace the file are seen. Bursts
// of events are coalesced and invalid files are logged and ignored.
func Watch(ctx context.Context, path string, log logger.LoggerInterface, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}

			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != target {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounce == nil {
				debounce = time.NewTimer(timeouts.ConfigReloadDebounce)
			} else {
				debounce.Reset(timeouts.ConfigReloadDebounce)
			}

			fire = debounce.C

		case <-fire:
			fire = nil

			cfg, err := Load(path)
			if err != nil {
				log.Warn("Ignoring invalid config change", slog.String("path", path), slog.Any("error", err))
				continue
			}

			log.Info("Config reloaded", slog.String("path", path))
			fn(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			log.Warn("Config watcher error", slog.Any("error", err))
		}
	}
}
