// Package manager keeps the registry of loaded chat bots, fans message batches
// out to them and installs bot bundles into the local bots directory.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/chatbots/internal/chatbot"
	"github.com/edgard/chatbots/internal/logger"
)

// ErrUnknownBot is returned for a bot title that is not in the registry.
var ErrUnknownBot = errors.New("unknown bot")

// Processor turns a batch of messages into a result for one bot.
type Processor interface {
	Process(ctx context.Context, bot *chatbot.Bot, messages []string) (*chatbot.Result, error)
}

// Manager is the bot registry. It is created once per application and shared by
// the components that need bots; it is safe for concurrent use.
type Manager struct {
	bundleDir  string
	installDir string
	processor  Processor
	logger     *slog.Logger

	mu       sync.RWMutex
	bots     []*chatbot.Bot
	loadedAt time.Time
	closed   bool
}

// New returns an empty Manager. Call Load to populate it.
func New(bundleDir, installDir string, processor Processor, log *slog.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		bundleDir:  bundleDir,
		installDir: installDir,
		processor:  processor,
		logger:     log.With("component", "bot_manager"),
	}
}

// Load scans the bundle directory for *.chatbot bundles and replaces the registry
// with the bots that load. Broken bundles are logged and skipped. Ids follow the
// directory order starting at 0.
func (m *Manager) Load(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(m.bundleDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read bundle directory %s: %w", m.bundleDir, err)
	}

	bots := make([]*chatbot.Bot, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !entry.IsDir() || filepath.Ext(entry.Name()) != chatbot.BundleExt {
			continue
		}
		dir := filepath.Join(m.bundleDir, entry.Name())
		b, err := chatbot.Load(dir)
		if err != nil {
			m.logger.WarnContext(ctx, "Skipping bot bundle", "dir", dir, "error", err)
			continue
		}
		b.ID = len(bots)
		bots = append(bots, b)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("bot manager is closed")
	}
	m.bots = bots
	m.loadedAt = time.Now()

	m.logger.InfoContext(ctx, "Bots loaded", "count", len(bots), "bundle_dir", m.bundleDir)
	return len(bots), nil
}

// Close releases the registry. Further loads fail.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.bots = nil
	m.logger.Info("Bot manager closed")
}

// Bots returns the loaded bots ordered by id.
func (m *Manager) Bots() []*chatbot.Bot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*chatbot.Bot(nil), m.bots...)
}

// LoadedAt returns the time of the last successful Load.
func (m *Manager) LoadedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadedAt
}

// Find returns the bot with the given title, ignoring case.
func (m *Manager) Find(title string) (*chatbot.Bot, error) {
	title = strings.TrimSpace(title)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bots {
		if strings.EqualFold(b.Title, title) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBot, title)
}

// HandleMessages processes messages with every bot in bots concurrently and
// returns the non-empty results ordered by bot id. A nil bots slice means all
// loaded bots. Bots run independently: a failing bot is logged and left out.
// An error is returned only when ctx ends or every bot failed.
func (m *Manager) HandleMessages(ctx context.Context, bots []*chatbot.Bot, messages []string) ([]*chatbot.Result, error) {
	if bots == nil {
		bots = m.Bots()
	}

	results := make([]*chatbot.Result, len(bots))
	errs := make([]error, len(bots))
	var g errgroup.Group
	for i, b := range bots {
		g.Go(func() error {
			result, err := m.processor.Process(ctx, b, messages)
			if err != nil {
				m.logger.WarnContext(ctx, "Bot failed to process messages", "bot", b.Title, "error", err)
				errs[i] = fmt.Errorf("bot %s: %w", b.Title, err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("handling messages stopped: %w", err)
	}
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(bots) {
		return nil, errors.Join(errs...)
	}

	nonEmpty := make([]*chatbot.Result, 0, len(results))
	for _, r := range results {
		if !r.Empty() {
			nonEmpty = append(nonEmpty, r)
		}
	}
	sort.SliceStable(nonEmpty, func(i, j int) bool { return nonEmpty[i].Bot.ID < nonEmpty[j].Bot.ID })

	m.logger.DebugContext(ctx, "Handled messages", "bots", len(bots), "failed", failed, "results", len(nonEmpty), "messages", len(messages))
	return nonEmpty, nil
}

// InstallPath returns where the bundle of b is installed.
func (m *Manager) InstallPath(b *chatbot.Bot) string {
	return filepath.Join(m.installDir, b.Title+chatbot.BundleExt)
}

// IsInstalled reports whether the bundle of b exists in the install directory.
func (m *Manager) IsInstalled(b *chatbot.Bot) bool {
	info, err := os.Stat(m.InstallPath(b))
	return err == nil && info.IsDir()
}

// Install copies the bundle of b into the install directory. Installing an
// installed bot is a no-op. A failed copy leaves nothing behind.
func (m *Manager) Install(ctx context.Context, b *chatbot.Bot) error {
	if b == nil {
		return errors.New("cannot install nil bot")
	}
	if m.IsInstalled(b) {
		return nil
	}
	if err := os.MkdirAll(m.installDir, 0o755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	tmp, err := os.MkdirTemp(m.installDir, "."+b.Title+"-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)
	if err := os.Chmod(tmp, 0o755); err != nil {
		return fmt.Errorf("failed to prepare staging directory: %w", err)
	}

	if err := copyTree(b.Dir, tmp); err != nil {
		return fmt.Errorf("failed to copy bundle %s: %w", b.Title, err)
	}
	if err := os.Rename(tmp, m.InstallPath(b)); err != nil {
		return fmt.Errorf("failed to install bundle %s: %w", b.Title, err)
	}

	m.logger.InfoContext(ctx, "Bot installed", "bot", b.Title, "path", m.InstallPath(b))
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
