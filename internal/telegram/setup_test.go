package telegram

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	mark := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				calls = append(calls, name)
				next(ctx, b, u)
			}
		}
	}
	handler := func(context.Context, *bot.Bot, *models.Update) { calls = append(calls, "handler") }

	applyMiddleware(handler, []bot.Middleware{mark("outer"), mark("inner")})(context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("", nil)
	require.Error(t, err)
	assert.Error(t, RegisterHandlers(nil, nil, nil))
}
