package bot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/chatbots/internal/bot"
	"github.com/edgard/chatbots/internal/bot/tasks"
	"github.com/edgard/chatbots/internal/chatbot/chatbottest"
	"github.com/edgard/chatbots/internal/config"
	"github.com/edgard/chatbots/internal/logger"
	"github.com/edgard/chatbots/internal/manager"
	"github.com/edgard/chatbots/internal/processor"
)

func noop(context.Context) error { return nil }

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"enabled":    {Enabled: true, Schedule: "0 0 3 * * *"},
		"disabled":   {Enabled: false, Schedule: "0 0 3 * * *"},
		"unknown":    {Enabled: true, Schedule: "0 0 3 * * *"},
		"bad_cron":   {Enabled: true, Schedule: "not a cron"},
		"no_pattern": {Enabled: true},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"enabled":    noop,
		"disabled":   noop,
		"bad_cron":   noop,
		"no_pattern": noop,
	}

	s, err := bot.NewScheduler(logger.Discard(), cfg, taskMap)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	assert.Equal(t, []string{"enabled"}, s.Jobs())

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	bundleDir := t.TempDir()
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "alpha"})
	mgr := manager.New(bundleDir, t.TempDir(), processor.New(), nil)
	_, err := mgr.Load(context.Background())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Bots.Watch = true
	cfg.Bots.WatchDebounce = 10 * time.Millisecond

	sched, err := bot.NewScheduler(logger.Discard(), &cfg.Scheduler, nil)
	require.NoError(t, err)
	app := bot.NewBot(logger.Discard(), cfg, mgr, nil, sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
