package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/chatbots/internal/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Store defines the database operations. Methods accept a context for
// cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a chat message and sets its ID.
	SaveMessage(ctx context.Context, message *Message) error
	// GetRecentMessagesInChat returns up to limit of the newest messages of a chat,
	// oldest first.
	GetRecentMessagesInChat(ctx context.Context, chatID int64, limit int) ([]Message, error)
	// DeleteChatMessages removes the history of a chat and returns the number of rows removed.
	DeleteChatMessages(ctx context.Context, chatID int64) (int64, error)

	// UpsertProduct inserts or updates a catalog entry.
	UpsertProduct(ctx context.Context, product *Product) error
	// GetProduct returns the product or nil, nil if it does not exist.
	GetProduct(ctx context.Context, productID string) (*Product, error)

	// SavePurchase records a purchase. It returns false if the user already owned the bot.
	SavePurchase(ctx context.Context, purchase *Purchase) (bool, error)
	// GetPurchase returns the user's purchase of a bot or nil, nil.
	GetPurchase(ctx context.Context, userID int64, botTitle string) (*Purchase, error)
	// GetPurchases returns every purchase of a user, oldest first.
	GetPurchases(ctx context.Context, userID int64) ([]Purchase, error)

	// GetBotDescription returns the stored description or "" if there is none.
	GetBotDescription(ctx context.Context, botTitle string) (string, error)
	// SaveBotDescription inserts or replaces a bot description.
	SaveBotDescription(ctx context.Context, botTitle, description string) error

	// RunSQLMaintenance compacts the database file.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore returns a Store backed by db.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return errors.New("cannot save nil message")
	}
	if message.ChatID == 0 {
		return errors.New("message must have a non-zero chat_id")
	}
	if message.Content == "" {
		return errors.New("message must have non-empty content")
	}
	if message.Timestamp.IsZero() {
		return errors.New("message must have a non-zero timestamp")
	}
	message.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO messages (chat_id, user_id, content, timestamp, created_at)
        VALUES (:chat_id, :user_id, :content, :timestamp, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "chat_id", message.ChatID, "user_id", message.UserID, "error", err)
		return fmt.Errorf("failed to save message (chat %d, user %d): %w", message.ChatID, message.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row ids are positive
		message.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving message", "chat_id", message.ChatID, "error", err)
	}

	s.logger.DebugContext(ctx, "Message saved", "chat_id", message.ChatID, "message_id", message.ID)
	return nil
}

func (s *sqlxStore) GetRecentMessagesInChat(ctx context.Context, chatID int64, limit int) ([]Message, error) {
	if chatID == 0 {
		return nil, errors.New("chat_id cannot be zero")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	} else if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var messages []Message
	query := `
        SELECT id, chat_id, user_id, content, timestamp, created_at FROM (
            SELECT id, chat_id, user_id, content, timestamp, created_at
            FROM messages
            WHERE chat_id = ?
            ORDER BY timestamp DESC, id DESC
            LIMIT ?
        ) ORDER BY timestamp ASC, id ASC;
    `
	if err := s.db.SelectContext(ctx, &messages, query, chatID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching recent messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for chat %d: %w", chatID, err)
	}
	return messages, nil
}

func (s *sqlxStore) DeleteChatMessages(ctx context.Context, chatID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?;`, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting chat messages", "chat_id", chatID, "error", err)
		return 0, fmt.Errorf("failed to delete messages for chat %d: %w", chatID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted messages: %w", err)
	}
	s.logger.InfoContext(ctx, "Chat messages deleted", "chat_id", chatID, "count", affected)
	return affected, nil
}

func (s *sqlxStore) UpsertProduct(ctx context.Context, product *Product) error {
	if product == nil || product.ProductID == "" {
		return errors.New("product must have a product_id")
	}
	product.UpdatedAt = time.Now().UTC()

	query := `
        INSERT INTO products (product_id, bot_title, price, currency, updated_at)
        VALUES (:product_id, :bot_title, :price, :currency, :updated_at)
        ON CONFLICT (product_id) DO UPDATE SET
            bot_title = excluded.bot_title,
            price = excluded.price,
            currency = excluded.currency,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, product); err != nil {
		s.logger.ErrorContext(ctx, "Error saving product", "product_id", product.ProductID, "error", err)
		return fmt.Errorf("failed to save product %s: %w", product.ProductID, err)
	}
	return nil
}

func (s *sqlxStore) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	query := `SELECT product_id, bot_title, price, currency, updated_at FROM products WHERE product_id = ?;`
	if err := s.db.GetContext(ctx, &product, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}
	return &product, nil
}

func (s *sqlxStore) SavePurchase(ctx context.Context, purchase *Purchase) (bool, error) {
	if purchase == nil || purchase.UserID == 0 || purchase.BotTitle == "" {
		return false, errors.New("purchase must have user_id and bot_title")
	}
	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO purchases (user_id, bot_title, product_id, purchased_at)
        VALUES (:user_id, :bot_title, :product_id, :purchased_at)
        ON CONFLICT (user_id, bot_title) DO NOTHING;
    `
	result, err := s.db.NamedExecContext(ctx, query, purchase)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving purchase", "user_id", purchase.UserID, "bot", purchase.BotTitle, "error", err)
		return false, fmt.Errorf("failed to save purchase: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check saved purchase: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row ids are positive
		purchase.ID = uint(id)
	}
	s.logger.InfoContext(ctx, "Purchase recorded", "user_id", purchase.UserID, "bot", purchase.BotTitle)
	return true, nil
}

func (s *sqlxStore) GetPurchase(ctx context.Context, userID int64, botTitle string) (*Purchase, error) {
	var purchase Purchase
	query := `
        SELECT id, user_id, bot_title, product_id, purchased_at
        FROM purchases WHERE user_id = ? AND bot_title = ?;
    `
	if err := s.db.GetContext(ctx, &purchase, query, userID, botTitle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &purchase, nil
}

func (s *sqlxStore) GetPurchases(ctx context.Context, userID int64) ([]Purchase, error) {
	var purchases []Purchase
	query := `
        SELECT id, user_id, bot_title, product_id, purchased_at
        FROM purchases WHERE user_id = ? ORDER BY purchased_at ASC, id ASC;
    `
	if err := s.db.SelectContext(ctx, &purchases, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get purchases for user %d: %w", userID, err)
	}
	return purchases, nil
}

func (s *sqlxStore) GetBotDescription(ctx context.Context, botTitle string) (string, error) {
	var description string
	err := s.db.GetContext(ctx, &description, `SELECT description FROM bot_descriptions WHERE bot_title = ?;`, botTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get description for %s: %w", botTitle, err)
	}
	return description, nil
}

func (s *sqlxStore) SaveBotDescription(ctx context.Context, botTitle, description string) error {
	query := `
        INSERT INTO bot_descriptions (bot_title, description, generated_at)
        VALUES (?, ?, ?)
        ON CONFLICT (bot_title) DO UPDATE SET
            description = excluded.description,
            generated_at = excluded.generated_at;
    `
	if _, err := s.db.ExecContext(ctx, query, botTitle, description, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error saving bot description", "bot", botTitle, "error", err)
		return fmt.Errorf("failed to save description for %s: %w", botTitle, err)
	}
	return nil
}

// RunSQLMaintenance executes VACUUM, which SQLite requires outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context done before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
			return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
		}
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}
	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
