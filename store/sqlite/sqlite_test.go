package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/venue-engine/billing"
	"github.com/warp/venue-engine/stock"
	"github.com/warp/venue-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// =============================================================================
// SESSION ROUND-TRIP
// =============================================================================

func TestSQLite_Session_RoundTrip(t *testing.T) {
	// GIVEN: A session with individuals, items, and elapsed time
	// WHEN: Saving then loading it
	// THEN: Every field round-trips, including decimal prices, exactly

	store := newTestStore(t)
	ctx := context.Background()

	session := billing.NewSession("branch-1", "client-1", "Ahmed",
		billing.WithStartedAt(time.Date(2026, time.August, 30, 14, 0, 0, 0, time.UTC)))
	_, err := session.AddIndividual("Sara")
	require.NoError(t, err)
	_, err = session.AddItem("prod-1", 2, dec(15.25), "Sara")
	require.NoError(t, err)
	require.NoError(t, session.AdvanceTime(3601))

	require.NoError(t, store.SaveSession(ctx, session))
	loaded, err := store.GetSession(ctx, session.ID)

	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, session.BranchID, loaded.BranchID)
	assert.Equal(t, session.ClientID, loaded.ClientID)
	assert.Equal(t, int64(3601), loaded.ElapsedSeconds)
	assert.Equal(t, billing.SessionOpen, loaded.Status)
	assert.True(t, session.StartedAt.Equal(loaded.StartedAt))

	require.Len(t, loaded.Individuals, 2)
	assert.Equal(t, "Ahmed", loaded.Individuals[0].Name)
	assert.True(t, loaded.Individuals[0].IsMainClient)
	assert.Equal(t, "Sara", loaded.Individuals[1].Name)
	assert.False(t, loaded.Individuals[1].IsMainClient)

	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
	assert.True(t, dec(15.25).Equal(loaded.Items[0].UnitPrice))
	assert.Equal(t, "Sara", loaded.Items[0].IndividualName)
}

func TestSQLite_Session_UpdateReplacesChildren(t *testing.T) {
	// GIVEN: A saved session whose guest then leaves and item shrinks
	// WHEN: Saving again and reloading
	// THEN: The store reflects the new aggregate, not a merge of both

	store := newTestStore(t)
	ctx := context.Background()

	session := billing.NewSession("branch-1", "client-1", "Ahmed")
	guest, err := session.AddIndividual("Sara")
	require.NoError(t, err)
	item, err := session.AddItem("prod-1", 3, dec(10), "")
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(ctx, session))

	require.NoError(t, session.ReduceItemQuantity(item.ID, 1))
	require.NoError(t, session.RemoveIndividuals([]billing.IndividualID{guest.ID}))
	require.NoError(t, store.SaveSession(ctx, session))

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Individuals, 1)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
}

func TestSQLite_Session_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), "ghost")

	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestSQLite_ListSessions_FiltersBranch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := billing.NewSession("branch-a", "", "One")
	b := billing.NewSession("branch-b", "", "Two")
	require.NoError(t, store.SaveSession(ctx, a))
	require.NoError(t, store.SaveSession(ctx, b))

	sessions, err := store.ListSessions(ctx, "branch-a")

	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, a.ID, sessions[0].ID)
}

// =============================================================================
// INVOICE ROUND-TRIP
// =============================================================================

func TestSQLite_Invoice_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := []billing.InvoiceItem{
		billing.NewInvoiceItem(billing.ItemTypeTimeEntry, "session-1", 1, dec(140), ""),
		billing.NewInvoiceItem(billing.ItemTypeProduct, "prod-1", 2, dec(15.5), "Sara"),
	}
	invoice := billing.NewInvoice("branch-1", "client-1", "INV-branch-1-1-abc", items)
	require.NoError(t, store.SaveInvoice(ctx, invoice))

	loaded, err := store.GetInvoice(ctx, invoice.ID)

	require.NoError(t, err)
	assert.Equal(t, invoice.InvoiceNumber, loaded.InvoiceNumber)
	assert.True(t, dec(171).Equal(loaded.Amount))
	assert.True(t, loaded.TaxAmount.IsZero())
	assert.Equal(t, billing.PaymentPending, loaded.PaymentStatus)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, billing.ItemTypeTimeEntry, loaded.Items[0].ItemType)
	assert.True(t, dec(31).Equal(loaded.Items[1].TotalPrice))
	assert.Equal(t, "Sara", loaded.Items[1].IndividualName)
}

func TestSQLite_Invoice_SplitPersistsBoth(t *testing.T) {
	// GIVEN: A stored two-line invoice
	// WHEN: Splitting a line and saving both invoices
	// THEN: Reloading shows the moved line exactly once, flagged IsSplit

	store := newTestStore(t)
	ctx := context.Background()

	items := []billing.InvoiceItem{
		billing.NewInvoiceItem(billing.ItemTypeTimeEntry, "session-1", 1, dec(140), ""),
		billing.NewInvoiceItem(billing.ItemTypeProduct, "prod-1", 2, dec(15), ""),
	}
	invoice := billing.NewInvoice("branch-1", "client-1", "INV-branch-1-2-def", items)
	require.NoError(t, store.SaveInvoice(ctx, invoice))

	split, err := billing.SplitItem(invoice, invoice.Items[1].ID)
	require.NoError(t, err)
	require.NoError(t, store.SaveInvoice(ctx, invoice))
	require.NoError(t, store.SaveInvoice(ctx, split))

	original, err := store.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	derived, err := store.GetInvoice(ctx, split.ID)
	require.NoError(t, err)

	assert.Len(t, original.Items, 1)
	require.Len(t, derived.Items, 1)
	assert.True(t, derived.Items[0].IsSplit)
	assert.Equal(t, "INV-branch-1-2-def-SPLIT", derived.InvoiceNumber)
	assert.True(t, dec(170).Equal(original.Amount.Add(derived.Amount)))
}

// =============================================================================
// CLIENTS AND PRICING
// =============================================================================

func TestSQLite_Client_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client := &billing.Client{ID: "client-1", BranchID: "branch-1", Name: "Ahmed", Phone: "0501234567"}
	require.NoError(t, store.SaveClient(ctx, client))

	loaded, err := store.GetClient(ctx, "client-1")

	require.NoError(t, err)
	assert.Equal(t, client.Name, loaded.Name)
	assert.Equal(t, client.Phone, loaded.Phone)
}

func TestSQLite_Pricing_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pricing := billing.NewSessionPricing(40, 30, 30, 100)
	require.NoError(t, store.SavePricing(ctx, "branch-1", pricing))

	loaded, err := store.GetPricing(ctx, "branch-1")

	require.NoError(t, err)
	assert.True(t, pricing.Hour1Price.Equal(loaded.Hour1Price))
	assert.True(t, pricing.Hour2Price.Equal(loaded.Hour2Price))
	assert.True(t, pricing.Hour3PlusPrice.Equal(loaded.Hour3PlusPrice))
	assert.True(t, pricing.MaxAdditionalCharge.Equal(loaded.MaxAdditionalCharge))
}

func TestSQLite_Pricing_NegativeRejected(t *testing.T) {
	store := newTestStore(t)

	err := store.SavePricing(context.Background(), "branch-1",
		billing.NewSessionPricing(-1, 30, 30, 100))

	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
}

// =============================================================================
// PRODUCTS AND STOCK
// =============================================================================

func saveCoffee(t *testing.T, store *sqlite.Store, quantity int) {
	t.Helper()
	require.NoError(t, store.SaveProduct(context.Background(), &stock.Product{
		ID: "prod-1", BranchID: "branch-1", Name: "Turkish Coffee",
		Price: dec(15), StockQuantity: quantity,
	}))
}

func TestSQLite_AdjustStock_ConditionalDecrement(t *testing.T) {
	// GIVEN: A product with 5 units
	// WHEN: Decrementing by 3, then attempting 3 more
	// THEN: The first succeeds, the second is refused at the database and
	//       stock stays at 2

	store := newTestStore(t)
	ctx := context.Background()
	saveCoffee(t, store, 5)

	require.NoError(t, store.AdjustStock(ctx, "prod-1", -3))

	err := store.AdjustStock(ctx, "prod-1", -3)
	assert.ErrorIs(t, err, billing.ErrInsufficientStock)

	product, err := store.GetProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, product.StockQuantity)
}

func TestSQLite_AdjustStock_UnknownProduct(t *testing.T) {
	store := newTestStore(t)

	err := store.AdjustStock(context.Background(), "ghost", -1)

	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestSQLite_AdjustStock_ReleaseIncrements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveCoffee(t, store, 1)

	require.NoError(t, store.AdjustStock(ctx, "prod-1", -1))
	require.NoError(t, store.AdjustStock(ctx, "prod-1", 1))

	product, err := store.GetProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 1, product.StockQuantity)
}

func TestSQLite_GuardOverSQLite_ConcurrencySafe(t *testing.T) {
	// The guard and the conditional UPDATE together never oversell.

	store := newTestStore(t)
	ctx := context.Background()
	saveCoffee(t, store, 1)
	guard := stock.NewGuard(store)

	_, first := guard.Reserve(ctx, "prod-1", 1)
	_, second := guard.Reserve(ctx, "prod-1", 1)

	assert.NoError(t, first)
	assert.ErrorIs(t, second, billing.ErrInsufficientStock)
}

func TestSQLite_Product_PriceDecimalExact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProduct(ctx, &stock.Product{
		ID: "prod-2", BranchID: "branch-1", Name: "Mint Tea",
		Price: decimal.RequireFromString("12.345"), StockQuantity: 1,
	}))

	product, err := store.GetProduct(ctx, "prod-2")
	require.NoError(t, err)
	assert.Equal(t, "12.345", product.Price.String())
}
