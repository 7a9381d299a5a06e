// Package botstore sells bots: it keeps the priced catalog, formats prices and
// records purchases, installing a bot's bundle when it is first bought.
package botstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/edgard/chatbots/internal/chatbot"
	"github.com/edgard/chatbots/internal/config"
	"github.com/edgard/chatbots/internal/database"
	"github.com/edgard/chatbots/internal/logger"
)

// Installer installs bot bundles locally.
type Installer interface {
	Install(ctx context.Context, b *chatbot.Bot) error
	IsInstalled(b *chatbot.Bot) bool
}

// Finder resolves bot titles.
type Finder interface {
	Find(title string) (*chatbot.Bot, error)
}

// Product is a catalog entry as configured.
type Product struct {
	Bot      string
	Price    float64
	Currency string
}

// ProductsFromConfig converts the configured catalog.
func ProductsFromConfig(cfg []config.ProductConfig) []Product {
	products := make([]Product, 0, len(cfg))
	for _, p := range cfg {
		products = append(products, Product{Bot: p.Bot, Price: p.Price, Currency: p.Currency})
	}
	return products
}

// Store is the bot shop.
type Store struct {
	db        database.Store
	installer Installer
	finder    Finder
	prefix    string
	getLabel  string
	lang      language.Tag
	logger    *slog.Logger
}

// Options configures a Store.
type Options struct {
	ProductPrefix string
	GetLabel      string
	Locale        string
}

// New returns a Store. An unparsable locale falls back to English.
func New(db database.Store, installer Installer, finder Finder, opts Options, log *slog.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "bot_store")

	lang := language.English
	if opts.Locale != "" {
		if tag, err := language.Parse(opts.Locale); err == nil {
			lang = tag
		} else {
			log.Warn("Invalid store locale, using English", "locale", opts.Locale, "error", err)
		}
	}

	return &Store{
		db:        db,
		installer: installer,
		finder:    finder,
		prefix:    opts.ProductPrefix,
		getLabel:  opts.GetLabel,
		lang:      lang,
		logger:    log,
	}
}

// ProductID returns the product identifier of b.
func (s *Store) ProductID(b *chatbot.Bot) string {
	return s.prefix + strings.ToLower(b.Title)
}

// SyncProducts writes the configured catalog to the database. Entries for bots
// that are not loaded are stored anyway so prices survive a missing bundle.
func (s *Store) SyncProducts(ctx context.Context, products []Product) error {
	for _, p := range products {
		unit, err := currency.ParseISO(p.Currency)
		if err != nil {
			return fmt.Errorf("product %s: invalid currency %q: %w", p.Bot, p.Currency, err)
		}
		if _, err := s.finder.Find(p.Bot); err != nil {
			s.logger.WarnContext(ctx, "Product configured for a bot that is not loaded", "bot", p.Bot)
		}
		product := &database.Product{
			ProductID: s.prefix + strings.ToLower(p.Bot),
			BotTitle:  p.Bot,
			Price:     p.Price,
			Currency:  unit.String(),
		}
		if err := s.db.UpsertProduct(ctx, product); err != nil {
			return err
		}
	}
	s.logger.InfoContext(ctx, "Product catalog synchronized", "count", len(products))
	return nil
}

// PriceString returns the localized price of b, or the "get" label when the bot
// has no product.
func (s *Store) PriceString(ctx context.Context, b *chatbot.Bot) string {
	product, err := s.db.GetProduct(ctx, s.ProductID(b))
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to look up product", "bot", b.Title, "error", err)
		return s.getLabel
	}
	if product == nil {
		return s.getLabel
	}
	return s.formatPrice(product.Price, product.Currency)
}

func (s *Store) formatPrice(price float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return s.getLabel
	}
	return message.NewPrinter(s.lang).Sprint(currency.Symbol(unit.Amount(price)))
}

// IsBought reports whether userID owns b.
func (s *Store) IsBought(ctx context.Context, userID int64, b *chatbot.Bot) (bool, error) {
	purchase, err := s.db.GetPurchase(ctx, userID, b.Title)
	if err != nil {
		return false, err
	}
	return purchase != nil, nil
}

// Buy gives b to userID and makes sure its bundle is installed. It returns false
// when the user already owned the bot.
func (s *Store) Buy(ctx context.Context, userID int64, b *chatbot.Bot) (bool, error) {
	if !s.installer.IsInstalled(b) {
		if err := s.installer.Install(ctx, b); err != nil {
			return false, fmt.Errorf("failed to install %s: %w", b.Title, err)
		}
	}

	created, err := s.db.SavePurchase(ctx, &database.Purchase{
		UserID:    userID,
		BotTitle:  b.Title,
		ProductID: s.ProductID(b),
	})
	if err != nil {
		return false, err
	}
	if created {
		s.logger.InfoContext(ctx, "Bot bought", "user_id", userID, "bot", b.Title)
	}
	return created, nil
}

// Owned returns the loaded bots userID owns with their purchases, in purchase
// order. Purchases of bots that are no longer loaded are skipped.
func (s *Store) Owned(ctx context.Context, userID int64) ([]*chatbot.Bot, []database.Purchase, error) {
	purchases, err := s.db.GetPurchases(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	bots := make([]*chatbot.Bot, 0, len(purchases))
	kept := make([]database.Purchase, 0, len(purchases))
	for _, p := range purchases {
		b, err := s.finder.Find(p.BotTitle)
		if err != nil {
			s.logger.DebugContext(ctx, "Owned bot is not loaded", "bot", p.BotTitle)
			continue
		}
		bots = append(bots, b)
		kept = append(kept, p)
	}
	return bots, kept, nil
}
