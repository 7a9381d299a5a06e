package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/chatbots/internal/botstore"
)

// NewReloadHandler returns a handler for the admin /reload command.
func NewReloadHandler(deps HandlerDeps) bot.HandlerFunc {
	return reloadHandler{deps}.Handle
}

type reloadHandler struct {
	deps HandlerDeps
}

func (h reloadHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reload")
	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Reload handler called with nil Message or From", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	count, err := h.deps.Manager.Load(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to reload bots", "error", err)
		reply(ctx, b, log, chatID, 0, h.deps.Config.Messages.ErrorGeneralMsg)
		return
	}

	if err := h.deps.BotStore.SyncProducts(ctx, botstore.ProductsFromConfig(h.deps.Config.Store.Products)); err != nil {
		log.ErrorContext(ctx, "Failed to sync products after reload", "error", err)
	}

	log.InfoContext(ctx, "Admin reloaded bots", "chat_id", chatID, "count", count)
	reply(ctx, b, log, chatID, 0, fmt.Sprintf(h.deps.Config.Messages.ReloadedMsg, count))
}
