//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/platform/postgres"
	"github.com/joshuxchn/qloo/internal/store"
	"github.com/joshuxchn/qloo/internal/testdb"
)

func newUser(t *testing.T) *domain.User {
	t.Helper()
	id := uuid.NewString()
	return &domain.User{
		ID:                  id,
		Username:            "user-" + id[:8],
		Email:               id[:8] + "@example.com",
		Password:            "$2a$10$abcdefghijklmnopqrstuv",
		DietaryRestrictions: domain.MustTagSet("Vegetarian", "gluten free"),
	}
}

func item(name, price string, qty int) domain.GroceryListItem {
	return domain.NewItem(domain.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Fulfillment: domain.FulfillmentInStore,
		Inventory:   domain.StockMedium,
		LastUpdated: time.Now(),
	}, qty)
}

// fullItem sets every snapshot field, with prices at one decimal and a
// timestamp finer than a microsecond so the stored form differs from the input.
func fullItem(name, price, promo string, qty int) domain.GroceryListItem {
	p := domain.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Fulfillment: domain.FulfillmentPickup,
		Brand:       "Darigold",
		Inventory:   domain.StockLow,
		Size:        "1 gal",
		LastUpdated: time.Date(2025, 3, 1, 9, 30, 15, 123456789, time.FixedZone("PST", -8*3600)),
		LocationID:  "70100070",
		UPC:         "0002620000601",
		Category:    "Dairy",
	}
	if promo != "" {
		p.PromoPrice = decimal.NewNullDecimal(decimal.RequireFromString(promo))
	}
	return domain.NewItem(p, qty)
}

// normalized returns items as the store is expected to hand them back,
// without the IDs the database assigns.
func normalized(items ...domain.GroceryListItem) []domain.GroceryListItem {
	out := make([]domain.GroceryListItem, len(items))
	for i, item := range items {
		item.Normalize()
		out[i] = item
	}
	return out
}

// assertItemsRoundTrip compares stored items with want field for field.
// Prices are compared at the column scale.
func assertItemsRoundTrip(t *testing.T, want, got []domain.GroceryListItem, listID string) {
	t.Helper()
	require.Len(t, got, len(want))

	for i := range want {
		w, g := want[i], got[i]
		assert.NotZero(t, g.ID, "item %d id", i)
		assert.Equal(t, listID, g.ListID, "item %d list id", i)

		assert.Equal(t, int32(-2), g.Price.Exponent(), "item %d price scale", i)
		assert.Equal(t, w.Price.StringFixed(2), g.Price.StringFixed(2), "item %d price", i)
		assert.Equal(t, w.PromoPrice.Valid, g.PromoPrice.Valid, "item %d promo null", i)
		if w.PromoPrice.Valid {
			assert.Equal(t, int32(-2), g.PromoPrice.Decimal.Exponent(), "item %d promo scale", i)
			assert.Equal(t, w.PromoPrice.Decimal.StringFixed(2), g.PromoPrice.Decimal.StringFixed(2))
		}

		w.ID, w.ListID, g.ID, g.ListID = 0, "", 0, ""
		w.Price, g.Price = decimal.Zero, decimal.Zero
		w.PromoPrice, g.PromoPrice = decimal.NullDecimal{}, decimal.NullDecimal{}
		assert.Equal(t, w, g, "item %d", i)
	}
}

func TestUserStore_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)

		user := newUser(t)
		require.NoError(t, users.Create(ctx, user))

		got, err := users.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, []string{"gluten free", "vegetarian"}, got.DietaryRestrictions.Values())
		assert.Nil(t, got.Tokens)

		// A second signup with the same email leaves the first account alone.
		again := newUser(t)
		again.Email = user.Email
		again.Username = "someone-else"
		require.NoError(t, users.Create(ctx, again))
		got, err = users.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Username, got.Username)

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
		require.NoError(t, users.UpdateTokens(ctx, user.ID, &domain.OAuthTokens{
			AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry,
		}))
		got, err = users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Tokens)
		assert.Equal(t, expiry, got.Tokens.Expiry)

		budget := 120
		got.Budget = &budget
		got.FirstName = "Ada"
		require.NoError(t, users.Update(ctx, got))
		got, err = users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.FirstName)
		require.NotNil(t, got.Budget)
		assert.Equal(t, 120, *got.Budget)
	})
}

func TestListStore_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		lists := postgres.NewPostgresListStore(tx, nil)

		user := newUser(t)
		require.NoError(t, users.Create(ctx, user))

		list := &domain.GroceryList{ID: uuid.NewString(), UserID: user.ID, Name: "Weekly"}
		require.NoError(t, lists.Create(ctx, list, []domain.GroceryListItem{
			item("Milk", "3.49", 1),
			item("Bread", "2.99", 2),
		}))
		assert.Equal(t, int64(1), list.Revision)

		got, err := lists.GetByID(ctx, list.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		assert.Equal(t, "Milk", got.Items[0].Name)
		assert.Equal(t, domain.StockMedium, got.Items[0].Inventory)
		assert.True(t, decimal.RequireFromString("9.47").Equal(got.Total()))

		items := append(got.Items, item("Eggs", "4.25", 12))
		require.NoError(t, lists.Update(ctx, got, items, user.ID))
		assert.Equal(t, int64(2), got.Revision)

		// got.Revision is current, a copy holding the old revision is stale.
		stale := *got
		stale.Revision = 1
		err = lists.Update(ctx, &stale, nil, user.ID)
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}

func TestListStore_RoundTrip_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		lists := postgres.NewPostgresListStore(tx, nil)

		user := newUser(t)
		require.NoError(t, users.Create(ctx, user))

		sparse := domain.NewItem(domain.Product{Name: "Loose onions", Price: decimal.RequireFromString("0.99")}, 3)
		items := []domain.GroceryListItem{
			fullItem("Milk", "3.5", "", 1),
			fullItem("Butter", "5.49", "4.9", 2),
			sparse,
		}

		list := &domain.GroceryList{ID: uuid.NewString(), UserID: user.ID, Name: "Round trip"}
		require.NoError(t, lists.Create(ctx, list, items))

		want := normalized(items...)
		assert.Equal(t, time.UTC, want[0].LastUpdated.Location())
		assert.Equal(t, 123456000, want[0].LastUpdated.Nanosecond())
		assert.False(t, want[2].PromoPrice.Valid)
		assert.Equal(t, domain.StockUnknown, want[2].Inventory)
		assert.Equal(t, domain.DefaultCategory, want[2].Category)
		assertItemsRoundTrip(t, want, list.Items, list.ID)

		got, err := lists.GetByID(ctx, list.ID)
		require.NoError(t, err)
		assert.Equal(t, list.ID, got.ID)
		assert.Equal(t, user.ID, got.UserID)
		assert.Equal(t, "Round trip", got.Name)
		assert.True(t, list.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, int64(1), got.Revision)
		assertItemsRoundTrip(t, want, got.Items, list.ID)

		all, err := lists.GetAllForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assertItemsRoundTrip(t, want, all[0].Items, list.ID)
	})
}

func TestListStore_WeeklyScenario_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		lists := postgres.NewPostgresListStore(tx, nil)

		user := newUser(t)
		require.NoError(t, users.Create(ctx, user))

		milk := fullItem("Milk", "3.49", "", 1)
		bread := fullItem("Bread", "2.99", "2.50", 2)
		eggs := fullItem("Eggs", "4.25", "", 1)

		list := &domain.GroceryList{ID: uuid.NewString(), UserID: user.ID, Name: "Weekly groceries"}
		require.NoError(t, lists.Create(ctx, list, []domain.GroceryListItem{milk, bread}))

		got, err := lists.GetByID(ctx, list.ID)
		require.NoError(t, err)
		assertItemsRoundTrip(t, normalized(milk, bread), got.Items, list.ID)

		require.NoError(t, lists.Update(ctx, got, append(got.Items, eggs), user.ID))
		assert.Equal(t, int64(2), got.Revision)

		got, err = lists.GetByID(ctx, list.ID)
		require.NoError(t, err)
		assertItemsRoundTrip(t, normalized(milk, bread, eggs), got.Items, list.ID)
		assert.Equal(t, "12.74", got.Total().StringFixed(2))
		assert.Equal(t, int64(2), got.Revision)

		require.NoError(t, users.Delete(ctx, user.ID))

		_, err = lists.GetByID(ctx, list.ID)
		assert.ErrorIs(t, err, store.ErrListNotFound)
		all, err := lists.GetAllForUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, all)

		var orphans int
		require.NoError(t, tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM grocery_list_items WHERE list_id = $1`, list.ID).Scan(&orphans))
		assert.Zero(t, orphans)
	})
}

func TestListStore_Ownership_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	// Stores on the pool open their own transactions, so this test cleans up
	// after itself instead of relying on WithTx.
	users := postgres.NewPostgresUserStore(db, nil)
	lists := postgres.NewPostgresListStore(db, nil)

	owner, other := newUser(t), newUser(t)
	require.NoError(t, users.Create(ctx, owner))
	require.NoError(t, users.Create(ctx, other))
	t.Cleanup(func() {
		_ = users.Delete(ctx, owner.ID)
		_ = users.Delete(ctx, other.ID)
	})

	list := &domain.GroceryList{ID: uuid.NewString(), UserID: owner.ID, Name: "Owner's list"}
	require.NoError(t, lists.Create(ctx, list, []domain.GroceryListItem{
		fullItem("Milk", "3.49", "", 1),
		fullItem("Bread", "2.99", "2.50", 2),
	}))

	before, err := lists.GetByID(ctx, list.ID)
	require.NoError(t, err)

	hijack := &domain.GroceryList{ID: list.ID, Name: "Mine now"}
	err = lists.Update(ctx, hijack, []domain.GroceryListItem{item("Caviar", "99.99", 5)}, other.ID)
	assert.ErrorIs(t, err, store.ErrListNotFound)
	assert.Empty(t, hijack.Items, "rejected update leaves the caller's list untouched")

	pinned := &domain.GroceryList{ID: list.ID, Name: "Mine now", Revision: before.Revision}
	err = lists.Update(ctx, pinned, nil, other.ID)
	assert.ErrorIs(t, err, store.ErrListNotFound)

	assert.ErrorIs(t, lists.Delete(ctx, list.ID, other.ID), store.ErrListNotFound)

	after, err := lists.GetByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected writes must leave the stored list unchanged")

	all, err := lists.GetAllForUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Deleting the owner cascades to lists and items.
	require.NoError(t, users.Delete(ctx, owner.ID))
	_, err = lists.GetByID(ctx, list.ID)
	assert.ErrorIs(t, err, store.ErrListNotFound)
}
