// Package tasks implements the scheduled maintenance jobs of the chat bots
// service: database upkeep, store description generation and bundle rescans.
package tasks

import (
	"log/slog"

	"github.com/edgard/chatbots/internal/config"
	"github.com/edgard/chatbots/internal/database"
	"github.com/edgard/chatbots/internal/gemini"
	"github.com/edgard/chatbots/internal/manager"
)

// TaskDeps contains all dependencies required by scheduled tasks.
// GeminiClient is nil when description generation is disabled.
type TaskDeps struct {
	Logger       *slog.Logger
	Store        database.Store
	Manager      *manager.Manager
	GeminiClient gemini.Client
	Config       *config.Config
}
