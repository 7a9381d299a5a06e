package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/edgard/chatbots/internal/chatbot"
)

const defaultDebounce = 2 * time.Second

// Watch reloads the registry whenever the bundle directory changes, waiting for
// debounce of quiet time after the last event. It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create bundle watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.bundleDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.bundleDir, err)
	}
	if entries, err := os.ReadDir(m.bundleDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() && filepath.Ext(entry.Name()) == chatbot.BundleExt {
				m.watchBundle(ctx, watcher, filepath.Join(m.bundleDir, entry.Name()))
			}
		}
	}
	m.logger.InfoContext(ctx, "Watching bundle directory", "dir", m.bundleDir, "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "Bundle watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			m.logger.DebugContext(ctx, "Bundle directory changed", "path", event.Name, "op", event.Op.String())
			if event.Op&fsnotify.Create != 0 && filepath.Ext(event.Name) == chatbot.BundleExt {
				m.watchBundle(ctx, watcher, event.Name)
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.WarnContext(ctx, "Bundle watcher error", "error", err)

		case <-timer.C:
			if _, err := m.Load(ctx); err != nil {
				m.logger.ErrorContext(ctx, "Failed to reload bots after bundle change", "error", err)
			}
		}
	}
}

// watchBundle adds a bundle directory so edits to its files trigger a reload.
func (m *Manager) watchBundle(ctx context.Context, watcher *fsnotify.Watcher, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	if err := watcher.Add(dir); err != nil {
		m.logger.WarnContext(ctx, "Failed to watch bundle", "dir", dir, "error", err)
	}
}
