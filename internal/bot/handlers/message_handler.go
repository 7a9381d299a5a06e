package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/chatbots/internal/database"
)

// NewMessageHandler returns the default handler. It stores plain chat messages
// as suggestion context and answers with suggestions when the bot is mentioned
// or replied to.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring update without text or sender", "update_id", update.ID)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "chat_id", msg.Chat.ID, "text", msg.Text)
		return
	}

	info := h.deps.Config.Telegram.BotInfo
	addressed := isAddressedTo(msg, info.ID, info.Username)

	// Mentions of the bot are requests, not conversation.
	if !addressed {
		saveMessageWithRetry(ctx, h.deps, log, &database.Message{
			ChatID:    msg.Chat.ID,
			UserID:    msg.From.ID,
			Content:   msg.Text,
			Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		})
		return
	}

	log.DebugContext(ctx, "Bot addressed, suggesting replies", "chat_id", msg.Chat.ID, "message_id", msg.ID)
	suggest(ctx, b, h.deps, log, msg)
}
