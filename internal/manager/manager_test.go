package manager_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/chatbots/internal/chatbot"
	"github.com/edgard/chatbots/internal/chatbot/chatbottest"
	"github.com/edgard/chatbots/internal/manager"
	"github.com/edgard/chatbots/internal/processor"
)

func newManager(t *testing.T) (*manager.Manager, string, string) {
	t.Helper()
	bundleDir := t.TempDir()
	installDir := filepath.Join(t.TempDir(), "installed")

	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "alpha", Words: []string{"a"}})
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "beta", Words: []string{"b"}, Icon: true})
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "broken", NoModel: true})
	require.NoError(t, os.WriteFile(filepath.Join(bundleDir, "notes.txt"), []byte("x"), 0o644))

	m := manager.New(bundleDir, installDir, processor.New(processor.WithWorkers(2)), nil)
	t.Cleanup(m.Close)
	return m, bundleDir, installDir
}

func TestLoadAndFind(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	count, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	bots := m.Bots()
	require.Len(t, bots, 2)
	assert.Equal(t, "alpha", bots[0].Title)
	assert.Equal(t, 0, bots[0].ID)
	assert.Equal(t, "beta", bots[1].Title)
	assert.Equal(t, 1, bots[1].ID)
	assert.False(t, m.LoadedAt().IsZero())

	found, err := m.Find(" BETA ")
	require.NoError(t, err)
	assert.Same(t, bots[1], found)

	_, err = m.Find("broken")
	assert.ErrorIs(t, err, manager.ErrUnknownBot)
}

func TestLoadMissingDirectory(t *testing.T) {
	t.Parallel()

	m := manager.New(filepath.Join(t.TempDir(), "nope"), t.TempDir(), processor.New(), nil)
	_, err := m.Load(context.Background())
	assert.Error(t, err)
}

func TestHandleMessages(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	results, err := m.HandleMessages(context.Background(), nil, []string{"Hello world", "hello AGAIN"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Bot.Title)
	assert.Equal(t, "beta", results[1].Bot.Title)
	for _, r := range results {
		assert.Equal(t, map[string]int{"hello": 2, "world": 1, "again": 1}, r.Counts())
	}

	empty, err := m.HandleMessages(context.Background(), nil, []string{"", " ,,, "})
	require.NoError(t, err)
	assert.Empty(t, empty)

	only, err := m.HandleMessages(context.Background(), m.Bots()[1:], []string{"hi"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "beta", only[0].Bot.Title)
}

type failingProcessor struct{}

func (failingProcessor) Process(context.Context, *chatbot.Bot, []string) (*chatbot.Result, error) {
	return nil, processor.ErrTimeout
}

func TestHandleMessagesFailure(t *testing.T) {
	t.Parallel()

	bundleDir := t.TempDir()
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "alpha"})
	m := manager.New(bundleDir, t.TempDir(), failingProcessor{}, nil)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	_, err = m.HandleMessages(context.Background(), nil, []string{"hi"})
	assert.True(t, errors.Is(err, processor.ErrTimeout))
}

// flakyProcessor fails for one bot and delegates the others.
type flakyProcessor struct {
	failing string
	next    manager.Processor
}

func (p flakyProcessor) Process(ctx context.Context, b *chatbot.Bot, messages []string) (*chatbot.Result, error) {
	if b.Title == p.failing {
		return nil, processor.ErrTimeout
	}
	return p.next.Process(ctx, b, messages)
}

func TestHandleMessagesKeepsHealthyBots(t *testing.T) {
	t.Parallel()

	bundleDir := t.TempDir()
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "alpha"})
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "beta"})
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "gamma"})
	m := manager.New(bundleDir, t.TempDir(), flakyProcessor{failing: "beta", next: processor.New()}, nil)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	results, err := m.HandleMessages(context.Background(), nil, []string{"hello world"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Bot.Title)
	assert.Equal(t, "gamma", results[1].Bot.Title)
}

func TestHandleMessagesCanceled(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.HandleMessages(ctx, nil, []string{"hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstall(t *testing.T) {
	t.Parallel()

	m, _, installDir := newManager(t)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	beta, err := m.Find("beta")
	require.NoError(t, err)
	assert.False(t, m.IsInstalled(beta))

	require.NoError(t, m.Install(context.Background(), beta))
	assert.True(t, m.IsInstalled(beta))
	assert.Equal(t, filepath.Join(installDir, "beta.chatbot"), m.InstallPath(beta))

	installed, err := chatbot.Load(m.InstallPath(beta))
	require.NoError(t, err)
	assert.Equal(t, beta.Words, installed.Words)
	assert.NotEmpty(t, installed.IconPath)

	// Second install is a no-op and leaves no staging directories behind.
	require.NoError(t, m.Install(context.Background(), beta))
	entries, err := os.ReadDir(installDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWatchReloadsOnNewBundle(t *testing.T) {
	t.Parallel()

	m, bundleDir, _ := newManager(t)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, 20*time.Millisecond) }()

	// Give the watcher time to register before changing the directory.
	time.Sleep(50 * time.Millisecond)
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "gamma"})

	require.Eventually(t, func() bool { return len(m.Bots()) == 3 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
