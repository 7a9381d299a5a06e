package database

import "time"

// Message is a chat message kept as suggestion context.
type Message struct {
	ID        uint      `db:"id"`
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
	CreatedAt time.Time `db:"created_at"`
}

// Product is a priced catalog entry.
type Product struct {
	ProductID string    `db:"product_id"`
	BotTitle  string    `db:"bot_title"`
	Price     float64   `db:"price"`
	Currency  string    `db:"currency"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Purchase records that a user owns a bot.
type Purchase struct {
	ID          uint      `db:"id"`
	UserID      int64     `db:"user_id"`
	BotTitle    string    `db:"bot_title"`
	ProductID   string    `db:"product_id"`
	PurchasedAt time.Time `db:"purchased_at"`
}

// BotDescription is a generated store description.
type BotDescription struct {
	BotTitle    string    `db:"bot_title"`
	Description string    `db:"description"`
	GeneratedAt time.Time `db:"generated_at"`
}
