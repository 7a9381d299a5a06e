package botstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/chatbots/internal/botstore"
	"github.com/edgard/chatbots/internal/chatbot/chatbottest"
	"github.com/edgard/chatbots/internal/database"
	"github.com/edgard/chatbots/internal/manager"
	"github.com/edgard/chatbots/internal/processor"
)

func newStore(t *testing.T) (*botstore.Store, *manager.Manager, database.Store) {
	t.Helper()

	bundleDir := t.TempDir()
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "binbank", Words: []string{"card"}})
	chatbottest.WriteBundle(t, bundleDir, chatbottest.Bundle{Title: "weather", Words: []string{"rain"}})

	mgr := manager.New(bundleDir, filepath.Join(t.TempDir(), "installed"), processor.New(), nil)
	_, err := mgr.Load(context.Background())
	require.NoError(t, err)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	dbStore := database.NewStore(db, nil)

	s := botstore.New(dbStore, mgr, mgr, botstore.Options{ProductPrefix: "bot.", GetLabel: "GET", Locale: "en"}, nil)
	return s, mgr, dbStore
}

func TestPriceString(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mgr, _ := newStore(t)

	require.NoError(t, s.SyncProducts(ctx, []botstore.Product{{Bot: "BinBank", Price: 1.99, Currency: "USD"}}))

	binbank, err := mgr.Find("binbank")
	require.NoError(t, err)
	weather, err := mgr.Find("weather")
	require.NoError(t, err)

	assert.Equal(t, "bot.binbank", s.ProductID(binbank))
	assert.Contains(t, s.PriceString(ctx, binbank), "1.99")
	assert.Equal(t, "GET", s.PriceString(ctx, weather))

	assert.Error(t, s.SyncProducts(ctx, []botstore.Product{{Bot: "weather", Price: 1, Currency: "XYZW"}}))
}

func TestBuy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mgr, _ := newStore(t)

	weather, err := mgr.Find("weather")
	require.NoError(t, err)

	bought, err := s.IsBought(ctx, 100, weather)
	require.NoError(t, err)
	assert.False(t, bought)

	created, err := s.Buy(ctx, 100, weather)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, mgr.IsInstalled(weather))

	created, err = s.Buy(ctx, 100, weather)
	require.NoError(t, err)
	assert.False(t, created)

	bought, err = s.IsBought(ctx, 100, weather)
	require.NoError(t, err)
	assert.True(t, bought)

	bots, purchases, err := s.Owned(ctx, 100)
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, "weather", bots[0].Title)
	require.Len(t, purchases, 1)
	assert.False(t, purchases[0].PurchasedAt.IsZero())

	others, _, err := s.Owned(ctx, 200)
	require.NoError(t, err)
	assert.Empty(t, others)
}
