package handlers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/chatbots/internal/chatbot"
	"github.com/edgard/chatbots/internal/config"
	"github.com/edgard/chatbots/internal/logger"
)

func TestCommandArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"/buy binbank", "binbank"},
		{"/buy@chatbots_bot  Bin Bank ", "Bin Bank"},
		{"/buy", ""},
		{"  plain text ", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, commandArgs(tt.text))
		})
	}
}

func TestWithBotName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mention @helper", withBotName("Mention @botname", "helper"))
	assert.Equal(t, "Mention @botname", withBotName("Mention @botname", ""))
}

func TestIsAddressedTo(t *testing.T) {
	t.Parallel()

	const botID = int64(42)
	tests := []struct {
		name string
		msg  *models.Message
		want bool
	}{
		{"nil message", nil, false},
		{"plain text", &models.Message{Text: "see you tomorrow"}, false},
		{"mention", &models.Message{Text: "hey @Helper_Bot, ideas?"}, true},
		{"bare username", &models.Message{Text: "helper_bot help"}, true},
		{"other mention", &models.Message{Text: "@someone_else hi"}, false},
		{
			"reply to bot",
			&models.Message{Text: "thanks", ReplyToMessage: &models.Message{From: &models.User{ID: botID}}},
			true,
		},
		{
			"reply to user",
			&models.Message{Text: "thanks", ReplyToMessage: &models.Message{From: &models.User{ID: 7}}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isAddressedTo(tt.msg, botID, "helper_bot"))
		})
	}
}

func TestFormatCatalog(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	pages := formatCatalog("Available bots:", []catalogEntry{
		{Title: "binbank", Price: "$1.99", Description: "Banking replies.", Tags: []string{"finance", "cards"}},
		{Title: "weather", Price: "GET", Owned: true, BoughtAt: now.Add(-72 * time.Hour)},
	}, now, maxMessageLen)

	want := "Available bots:\n\n" +
		"binbank [$1.99]\nBanking replies.\n#finance #cards\n\n" +
		"weather (yours, bought 3 days ago)"
	assert.Equal(t, []string{want}, pages)
}

func TestFormatCatalogSplitsLongCatalogs(t *testing.T) {
	t.Parallel()

	now := time.Now()
	entries := make([]catalogEntry, 300)
	for i := range entries {
		entries[i] = catalogEntry{
			Title:       fmt.Sprintf("bot%03d", i),
			Price:       "GET",
			Description: strings.Repeat("ж", 40),
		}
	}

	pages := formatCatalog("Available bots:", entries, now, maxMessageLen)
	require.Greater(t, len(pages), 1)
	assert.True(t, strings.HasPrefix(pages[0], "Available bots:\n\nbot000 [GET]"))

	seen := 0
	for _, page := range pages {
		assert.LessOrEqual(t, utf8.RuneCountInString(page), maxMessageLen)
		assert.False(t, strings.HasPrefix(page, "\n"))
		seen += strings.Count(page, " [GET]")
	}
	assert.Equal(t, len(entries), seen)

	long := formatCatalog("h", []catalogEntry{{Title: "x", Price: "GET", Description: strings.Repeat("a", 50)}}, now, 20)
	require.Len(t, long, 2)
	assert.Equal(t, "h", long[0])
	assert.Equal(t, 20, utf8.RuneCountInString(long[1]))
}

func TestFormatSuggestions(t *testing.T) {
	t.Parallel()

	results := []*chatbot.Result{
		{
			Bot: &chatbot.Bot{Title: "alpha"},
			Responses: []chatbot.Response{
				chatbot.NewResponse("hello"), chatbot.NewResponse("world"), chatbot.NewResponse("hello"),
			},
		},
		{
			Bot:       &chatbot.Bot{Title: "beta"},
			Responses: []chatbot.Response{chatbot.NewResponse("c"), chatbot.NewResponse("b"), chatbot.NewResponse("a")},
		},
	}

	assert.Equal(t, "alpha: hello (2), world\nbeta: a, b", formatSuggestions(results, 2))
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	deps := HandlerDeps{Logger: logger.Discard(), Config: &config.Config{}}
	registered := RegisterAllCommands(deps)

	for _, cmd := range []string{"/start", "/help", "/bots", "/buy", "/suggest", "/reload", "/reset"} {
		h, ok := registered[cmd]
		if assert.True(t, ok, cmd) {
			assert.NotNil(t, h.Handler, cmd)
			assert.Equal(t, tgbot.MatchTypeCommandStartOnly, h.MatchType, cmd)
		}
	}
	assert.Len(t, registered["/reload"].Middleware, 1)
	assert.Len(t, registered["/reset"].Middleware, 1)
	assert.Empty(t, registered["/bots"].Middleware)
}

func TestAdminOnlyLetsAdminThrough(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Telegram.AdminUserID = 1
	deps := HandlerDeps{Logger: logger.Discard(), Config: cfg}

	called := false
	next := func(context.Context, *tgbot.Bot, *models.Update) { called = true }

	update := &models.Update{Message: &models.Message{From: &models.User{ID: 1}, Chat: models.Chat{ID: 10}}}
	AdminOnly(deps)(next)(context.Background(), nil, update)
	assert.True(t, called)
}
