package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewBuyHandler returns a handler for the /buy <bot> command.
func NewBuyHandler(deps HandlerDeps) bot.HandlerFunc {
	return buyHandler{deps}.Handle
}

type buyHandler struct {
	deps HandlerDeps
}

func (h buyHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "buy")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Buy handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	msgs := h.deps.Config.Messages

	title := commandArgs(update.Message.Text)
	if title == "" {
		reply(ctx, b, log, chatID, update.Message.ID, msgs.BuyUsageMsg)
		return
	}

	target, err := h.deps.Manager.Find(title)
	if err != nil {
		log.InfoContext(ctx, "Buy requested for unknown bot", "title", title, "user_id", userID)
		reply(ctx, b, log, chatID, update.Message.ID, msgs.UnknownBotMsg)
		return
	}

	created, err := h.deps.BotStore.Buy(ctx, userID, target)
	if err != nil {
		log.ErrorContext(ctx, "Failed to buy bot", "error", err, "bot", target.Title, "user_id", userID)
		reply(ctx, b, log, chatID, update.Message.ID, msgs.ErrorGeneralMsg)
		return
	}

	text := fmt.Sprintf(msgs.BoughtMsg, target.Title)
	if !created {
		text = fmt.Sprintf(msgs.AlreadyBoughtMsg, target.Title)
	}
	reply(ctx, b, log, chatID, update.Message.ID, text)
}
