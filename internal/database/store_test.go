package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/chatbots/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func TestMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, text := range []string{"first", "second", "third"} {
		msg := &database.Message{ChatID: 10, UserID: 1, Content: text, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.SaveMessage(ctx, msg))
		assert.NotZero(t, msg.ID)
	}
	require.NoError(t, store.SaveMessage(ctx, &database.Message{ChatID: 11, UserID: 1, Content: "other chat", Timestamp: base}))

	recent, err := store.GetRecentMessagesInChat(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Content)
	assert.Equal(t, "third", recent[1].Content)

	deleted, err := store.DeleteChatMessages(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	recent, err = store.GetRecentMessagesInChat(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	assert.Error(t, store.SaveMessage(ctx, &database.Message{ChatID: 10, Content: "", Timestamp: base}))
	_, err = store.GetRecentMessagesInChat(ctx, 0, 1)
	assert.Error(t, err)
}

func TestProductsAndPurchases(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	missing, err := store.GetProduct(ctx, "bot.none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.UpsertProduct(ctx, &database.Product{ProductID: "bot.binbank", BotTitle: "binbank", Price: 1.5, Currency: "USD"}))
	require.NoError(t, store.UpsertProduct(ctx, &database.Product{ProductID: "bot.binbank", BotTitle: "binbank", Price: 2.5, Currency: "EUR"}))

	product, err := store.GetProduct(ctx, "bot.binbank")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.InDelta(t, 2.5, product.Price, 0.0001)
	assert.Equal(t, "EUR", product.Currency)

	created, err := store.SavePurchase(ctx, &database.Purchase{UserID: 5, BotTitle: "binbank", ProductID: "bot.binbank"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SavePurchase(ctx, &database.Purchase{UserID: 5, BotTitle: "BinBank", ProductID: "bot.binbank"})
	require.NoError(t, err)
	assert.False(t, created, "titles are case-insensitive")

	purchase, err := store.GetPurchase(ctx, 5, "BINBANK")
	require.NoError(t, err)
	require.NotNil(t, purchase)
	assert.Equal(t, "binbank", purchase.BotTitle)

	none, err := store.GetPurchase(ctx, 6, "binbank")
	require.NoError(t, err)
	assert.Nil(t, none)

	purchases, err := store.GetPurchases(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestBotDescriptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	desc, err := store.GetBotDescription(ctx, "weather")
	require.NoError(t, err)
	assert.Empty(t, desc)

	require.NoError(t, store.SaveBotDescription(ctx, "weather", "Forecasts"))
	require.NoError(t, store.SaveBotDescription(ctx, "Weather", "Forecasts and alerts"))

	desc, err = store.GetBotDescription(ctx, "WEATHER")
	require.NoError(t, err)
	assert.Equal(t, "Forecasts and alerts", desc)

	require.NoError(t, store.RunSQLMaintenance(ctx))
	require.NoError(t, store.Ping(ctx))
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "data/app.db", database.ExtractDBNameFromPath("file:data/app.db?_pragma=busy_timeout(5000)"))
	assert.Equal(t, "my db.db", database.ExtractDBNameFromPath("my%20db.db"))
	assert.Equal(t, "plain.db", database.ExtractDBNameFromPath("plain.db"))
}
