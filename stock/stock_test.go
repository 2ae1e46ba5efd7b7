package stock_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/venue-engine/billing"
	"github.com/warp/venue-engine/stock"
	"github.com/warp/venue-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newGuardWithProduct(t *testing.T, quantity int) (*stock.Guard, *memory.Store, billing.ProductID) {
	t.Helper()
	store := memory.New()
	id := billing.ProductID("prod-1")
	err := store.SaveProduct(context.Background(), &stock.Product{
		ID:            id,
		BranchID:      "branch-1",
		Name:          "Turkish Coffee",
		Price:         decimal.NewFromInt(15),
		StockQuantity: quantity,
	})
	require.NoError(t, err)
	return stock.NewGuard(store), store, id
}

func stockOf(t *testing.T, store *memory.Store, id billing.ProductID) int {
	t.Helper()
	product, err := store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return product.StockQuantity
}

// =============================================================================
// RESERVATION TESTS
// =============================================================================

func TestGuard_Reserve_DecrementsAndReturnsPriceSnapshot(t *testing.T) {
	// GIVEN: A product with 10 units at price 15
	// WHEN: Reserving 3 units
	// THEN: Stock drops to 7 and the catalogue price is returned

	guard, store, id := newGuardWithProduct(t, 10)

	price, err := guard.Reserve(context.Background(), id, 3)

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(price))
	assert.Equal(t, 7, stockOf(t, store, id))
}

func TestGuard_Reserve_Shortfall_RejectedAndStockUnchanged(t *testing.T) {
	// GIVEN: A product with 2 units
	// WHEN: Reserving 3
	// THEN: The reservation fails all-or-nothing; stock stays at 2

	guard, store, id := newGuardWithProduct(t, 2)

	_, err := guard.Reserve(context.Background(), id, 3)

	assert.ErrorIs(t, err, billing.ErrInsufficientStock)
	var stockErr *billing.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockOf(t, store, id))
}

func TestGuard_Reserve_ExactRemainder_Succeeds(t *testing.T) {
	guard, store, id := newGuardWithProduct(t, 3)

	_, err := guard.Reserve(context.Background(), id, 3)

	require.NoError(t, err)
	assert.Equal(t, 0, stockOf(t, store, id))

	// Nothing left for anyone else.
	_, err = guard.Reserve(context.Background(), id, 1)
	assert.ErrorIs(t, err, billing.ErrInsufficientStock)
}

func TestGuard_Reserve_NonPositiveQuantity_Rejected(t *testing.T) {
	guard, _, id := newGuardWithProduct(t, 10)

	_, err := guard.Reserve(context.Background(), id, 0)
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)

	_, err = guard.Reserve(context.Background(), id, -1)
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
}

func TestGuard_Reserve_UnknownProduct_NotConflatedWithShortfall(t *testing.T) {
	// GIVEN: A product id that does not exist
	// WHEN: Reserving it
	// THEN: The store's not-found error propagates; it is NOT reported as
	//       an insufficient-stock condition

	guard, _, _ := newGuardWithProduct(t, 10)

	_, err := guard.Reserve(context.Background(), "ghost", 1)

	assert.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrNotFound)
	assert.False(t, errors.Is(err, billing.ErrInsufficientStock))
}

func TestGuard_Release_RestoresStock(t *testing.T) {
	guard, store, id := newGuardWithProduct(t, 5)

	_, err := guard.Reserve(context.Background(), id, 4)
	require.NoError(t, err)
	require.NoError(t, guard.Release(context.Background(), id, 4))

	assert.Equal(t, 5, stockOf(t, store, id))
}

// =============================================================================
// CONCURRENCY - check-then-decrement must be atomic per product
// =============================================================================

func TestGuard_ConcurrentReserve_ExactlyOneWinner(t *testing.T) {
	// GIVEN: Stock 5, two concurrent reservations of 5 each
	// WHEN: Both race through the guard
	// THEN: Exactly one succeeds; stock never goes negative

	guard, store, id := newGuardWithProduct(t, 5)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = guard.Reserve(context.Background(), id, 5)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, billing.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, successes, "exactly one reservation should win")
	assert.Equal(t, 0, stockOf(t, store, id))
}

func TestGuard_ConcurrentReserve_ManySmall_NeverOversells(t *testing.T) {
	// GIVEN: Stock 10 and 50 concurrent single-unit reservations
	// WHEN: All race through the guard
	// THEN: Exactly 10 succeed and stock ends at zero

	guard, store, id := newGuardWithProduct(t, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := guard.Reserve(context.Background(), id, 1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, successes)
	assert.Equal(t, 0, stockOf(t, store, id))
}

func TestGuard_ConcurrentReserve_DistinctProducts_Independent(t *testing.T) {
	// Reservations against different products do not contend for stock.

	store := memory.New()
	ctx := context.Background()
	for _, id := range []billing.ProductID{"a", "b", "c", "d"} {
		require.NoError(t, store.SaveProduct(ctx, &stock.Product{
			ID:            id,
			BranchID:      "branch-1",
			Name:          string(id),
			Price:         decimal.NewFromInt(10),
			StockQuantity: 1,
		}))
	}
	guard := stock.NewGuard(store)

	var wg sync.WaitGroup
	errs := make(map[billing.ProductID]error)
	var mu sync.Mutex
	for _, id := range []billing.ProductID{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id billing.ProductID) {
			defer wg.Done()
			_, err := guard.Reserve(ctx, id, 1)
			mu.Lock()
			errs[id] = err
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	for id, err := range errs {
		assert.NoError(t, err, "product %s", id)
	}
}
