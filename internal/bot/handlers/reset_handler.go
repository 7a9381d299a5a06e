package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewResetHandler returns a handler for the admin /reset command, which clears
// the stored history of the current chat.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reset")
	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Reset handler called with nil Message or From", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Admin requested history reset", "chat_id", chatID, "user_id", update.Message.From.ID)

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := h.deps.Store.DeleteChatMessages(timeoutCtx, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to reset chat history", "error", err, "chat_id", chatID)
		reply(ctx, b, log, chatID, 0, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}

	log.InfoContext(ctx, "Chat history deleted", "chat_id", chatID, "deleted", deleted)
	reply(ctx, b, log, chatID, 0, h.deps.Config.Messages.ResetDoneMsg)
}
