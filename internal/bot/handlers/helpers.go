package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/chatbots/internal/database"
)

const (
	sendMessageTimeout = 10 * time.Second
	dbSaveTimeout      = 5 * time.Second
	saveRetries        = 3
	// maxMessageLen stays below Telegram's 4096 character limit.
	maxMessageLen      = 4000
)

// commandArgs returns the text after the leading /command (and its optional
// @botname suffix).
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	_, args, _ := strings.Cut(text, " ")
	return strings.TrimSpace(args)
}

// reply sends text to chatID, quoting replyTo when it is set.
func reply(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, replyTo int, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if replyTo > 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}
	if _, err := b.SendMessage(sendCtx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// withBotName replaces the @botname placeholder with the bot's username.
func withBotName(text, username string) string {
	if username == "" {
		return text
	}
	return strings.ReplaceAll(text, "@botname", "@"+username)
}

// isAddressedTo reports whether msg mentions username or replies to botID.
func isAddressedTo(msg *models.Message, botID int64, username string) bool {
	if msg == nil {
		return false
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && botID != 0 && msg.ReplyToMessage.From.ID == botID {
		return true
	}
	if username == "" {
		return false
	}

	name := strings.ToLower(username)
	for _, w := range strings.Fields(strings.ToLower(msg.Text)) {
		if strings.TrimFunc(w, func(r rune) bool { return unicode.IsPunct(r) || r == '@' }) == name {
			return true
		}
	}
	return false
}

// saveMessageWithRetry stores msg, retrying transient failures a few times.
func saveMessageWithRetry(ctx context.Context, deps HandlerDeps, log *slog.Logger, msg *database.Message) {
	var err error
	for i := range saveRetries {
		if ctx.Err() != nil {
			log.WarnContext(ctx, "Context cancelled, aborting message save", "error", ctx.Err(), "chat_id", msg.ChatID, "attempt", i+1)
			return
		}

		dbCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
		err = deps.Store.SaveMessage(dbCtx, msg)
		cancel()
		if err == nil {
			log.DebugContext(ctx, "Message saved", "db_message_id", msg.ID, "chat_id", msg.ChatID)
			return
		}

		log.ErrorContext(ctx, "Failed to save message, retrying", "error", err, "chat_id", msg.ChatID, "attempt", i+1)
		time.Sleep(time.Duration(500*(i+1)) * time.Millisecond)
	}
	log.ErrorContext(ctx, "Failed to save message after retries", "error", err, "chat_id", msg.ChatID, "retries", saveRetries)
}
