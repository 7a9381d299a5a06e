package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/chatbots/internal/chatbot"
	"github.com/edgard/chatbots/internal/logger"
)

// NewBotsHandler returns a handler for the /bots command, which lists the
// catalog with prices and the caller's ownership.
func NewBotsHandler(deps HandlerDeps) bot.HandlerFunc {
	return botsHandler{deps}.Handle
}

type botsHandler struct {
	deps HandlerDeps
}

// catalogEntry is one bot as shown in the catalog.
type catalogEntry struct {
	Title       string
	Price       string
	Description string
	Tags        []string
	BoughtAt    time.Time
	Owned       bool
}

func (h botsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "bots")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Bots handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	msgs := h.deps.Config.Messages

	bots := h.deps.Manager.Bots()
	if len(bots) == 0 {
		reply(ctx, b, log, chatID, 0, msgs.NoBotsMsg)
		return
	}

	_, purchases, err := h.deps.BotStore.Owned(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load purchases", "error", err, "user_id", userID)
		reply(ctx, b, log, chatID, 0, msgs.ErrorGeneralMsg)
		return
	}
	boughtAt := make(map[string]time.Time, len(purchases))
	for _, p := range purchases {
		boughtAt[strings.ToLower(p.BotTitle)] = p.PurchasedAt
	}

	entries := make([]catalogEntry, 0, len(bots))
	for _, bt := range bots {
		entry := catalogEntry{
			Title:       bt.Title,
			Price:       h.deps.BotStore.PriceString(ctx, bt),
			Description: h.description(ctx, bt),
			Tags:        bt.Tags,
		}
		entry.BoughtAt, entry.Owned = boughtAt[strings.ToLower(bt.Title)]
		entries = append(entries, entry)
	}

	pages := formatCatalog(msgs.CatalogHeaderMsg, entries, time.Now(), maxMessageLen)
	log.InfoContext(ctx, "Sending catalog", "chat_id", chatID, "user_id", userID, "bots", len(entries), "messages", len(pages))
	for _, page := range pages {
		reply(ctx, b, log, chatID, 0, page)
	}
}

// description prefers the bundle's own description over a generated one.
func (h botsHandler) description(ctx context.Context, bt *chatbot.Bot) string {
	if bt.Description != "" {
		return bt.Description
	}
	text, err := h.deps.Store.GetBotDescription(ctx, bt.Title)
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "Failed to load bot description", "bot", bt.Title, "error", err)
		return ""
	}
	return text
}

// formatCatalog renders the catalog as one or more messages of at most maxLen
// runes. Messages break between entries; an entry longer than maxLen is cut.
func formatCatalog(header string, entries []catalogEntry, now time.Time, maxLen int) []string {
	var pages []string
	var sb strings.Builder
	sb.WriteString(header)
	size := utf8.RuneCountInString(header)

	for _, e := range entries {
		entry := logger.Truncate(formatCatalogEntry(e, now), maxLen)
		entryLen := utf8.RuneCountInString(entry)
		if size > 0 && size+2+entryLen > maxLen {
			pages = append(pages, sb.String())
			sb.Reset()
			size = 0
		}
		if size > 0 {
			sb.WriteString("\n\n")
			size += 2
		}
		sb.WriteString(entry)
		size += entryLen
	}
	if size > 0 {
		pages = append(pages, sb.String())
	}
	return pages
}

func formatCatalogEntry(e catalogEntry, now time.Time) string {
	var sb strings.Builder
	if e.Owned {
		fmt.Fprintf(&sb, "%s (yours, bought %s)", e.Title, humanize.RelTime(e.BoughtAt, now, "ago", "from now"))
	} else {
		fmt.Fprintf(&sb, "%s [%s]", e.Title, e.Price)
	}
	if e.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Description)
	}
	if len(e.Tags) > 0 {
		sb.WriteString("\n#")
		sb.WriteString(strings.Join(e.Tags, " #"))
	}
	return sb.String()
}
