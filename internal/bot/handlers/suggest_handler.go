package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/chatbots/internal/chatbot"
)

const (
	suggestTimeout     = 30 * time.Second
	suggestionsPerBot  = 5
	defaultHistorySize = 50
)

// NewSuggestHandler returns a handler for the /suggest command. It runs the
// recent chat history through every bot the caller owns.
func NewSuggestHandler(deps HandlerDeps) bot.HandlerFunc {
	return suggestHandler{deps}.Handle
}

type suggestHandler struct {
	deps HandlerDeps
}

func (h suggestHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "suggest")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Suggest handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	suggest(ctx, b, h.deps, log, update.Message)
}

// suggest replies to msg with the top tokens each owned bot finds in the chat's
// recent messages.
func suggest(ctx context.Context, b *bot.Bot, deps HandlerDeps, log *slog.Logger, msg *models.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	msgs := deps.Config.Messages

	owned, _, err := deps.BotStore.Owned(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load owned bots", "error", err, "user_id", userID)
		reply(ctx, b, log, chatID, msg.ID, msgs.ErrorGeneralMsg)
		return
	}
	if len(owned) == 0 {
		reply(ctx, b, log, chatID, msg.ID, msgs.NoOwnedBotsMsg)
		return
	}

	limit := deps.Config.Database.MaxHistoryMessages
	if limit <= 0 {
		limit = defaultHistorySize
	}
	history, err := deps.Store.GetRecentMessagesInChat(ctx, chatID, limit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load chat history", "error", err, "chat_id", chatID)
		reply(ctx, b, log, chatID, msg.ID, msgs.ErrorGeneralMsg)
		return
	}
	texts := make([]string, 0, len(history))
	for _, m := range history {
		texts = append(texts, m.Content)
	}

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	suggestCtx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()
	results, err := deps.Manager.HandleMessages(suggestCtx, owned, texts)
	if err != nil {
		log.ErrorContext(ctx, "Failed to process chat history", "error", err, "chat_id", chatID, "bots", len(owned))
		reply(ctx, b, log, chatID, msg.ID, msgs.ErrorGeneralMsg)
		return
	}

	log.InfoContext(ctx, "Suggestions computed", "chat_id", chatID, "messages", len(texts), "bots", len(owned), "results", len(results))
	if len(results) == 0 {
		reply(ctx, b, log, chatID, msg.ID, msgs.NoSuggestionsMsg)
		return
	}
	reply(ctx, b, log, chatID, msg.ID, formatSuggestions(results, suggestionsPerBot))
}

func formatSuggestions(results []*chatbot.Result, perBot int) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		top := r.Top(perBot)
		words := make([]string, len(top))
		for i, tc := range top {
			words[i] = tc.Text
			if tc.Count > 1 {
				words[i] = fmt.Sprintf("%s (%d)", tc.Text, tc.Count)
			}
		}
		lines = append(lines, r.Bot.Title+": "+strings.Join(words, ", "))
	}
	return strings.Join(lines, "\n")
}
