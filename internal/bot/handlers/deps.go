package handlers

import (
	"log/slog"

	"github.com/edgard/chatbots/internal/botstore"
	"github.com/edgard/chatbots/internal/config"
	"github.com/edgard/chatbots/internal/database"
	"github.com/edgard/chatbots/internal/manager"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Manager  *manager.Manager
	BotStore *botstore.Store
}
