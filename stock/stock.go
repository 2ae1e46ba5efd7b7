/*
Package stock provides the stock reservation guard.

PURPOSE:
  Validates and decrements product stock when items are added to a
  session, preventing oversell. Reservation is all-or-nothing: no
  back-orders, no partial fulfillment, no silent clamping.

CONCURRENCY CONTRACT:
  Multiple sessions in the same branch may compete for the same product's
  stock concurrently. The check-then-decrement sequence for a given
  product runs under a per-product critical section (striped mutexes), so
  two concurrent Reserve calls can never both observe sufficient stock
  when only one should succeed.

ERRORS:
  A shortfall is billing.ErrInsufficientStock (with quantities attached).
  A store failure propagates wrapped and is never conflated with a
  shortfall; retries are the caller's responsibility.

SEE ALSO:
  - billing/service.go: reserves before recording an item, releases when
    the session mutation is rejected
  - store/memory, store/sqlite: ProductStore implementations
*/
package stock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/venue-engine/billing"
)

// =============================================================================
// PRODUCT - Stocked record in the branch catalogue
// =============================================================================

// Product is the stocked catalogue record a SessionItem snapshots from.
type Product struct {
	ID            billing.ProductID `json:"id"`
	BranchID      billing.BranchID  `json:"branchId"`
	Name          string            `json:"name"`
	Price         decimal.Decimal   `json:"price"`
	StockQuantity int               `json:"stockQuantity"`
}

// ProductStore is the record-store slice the guard depends on.
// AdjustStock applies a signed delta without its own availability check;
// the guard owns the check-then-decrement critical section.
type ProductStore interface {
	GetProduct(ctx context.Context, id billing.ProductID) (*Product, error)
	AdjustStock(ctx context.Context, id billing.ProductID, delta int) error
}

// CatalogueStore extends ProductStore with the catalogue management the
// back office needs.
type CatalogueStore interface {
	ProductStore
	SaveProduct(ctx context.Context, product *Product) error
	ListProducts(ctx context.Context, branchID billing.BranchID) ([]Product, error)
}

// =============================================================================
// GUARD - Per-product serialized check-then-decrement
// =============================================================================

const lockStripes = 64

// Guard serializes reservations per product over a ProductStore.
type Guard struct {
	store ProductStore
	locks [lockStripes]sync.Mutex
}

// NewGuard creates a reservation guard over the given store.
func NewGuard(store ProductStore) *Guard {
	return &Guard{store: store}
}

func (g *Guard) lockFor(id billing.ProductID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &g.locks[h.Sum32()%lockStripes]
}

// Reserve checks availability and decrements stock atomically, returning
// the catalogue price at the moment of reservation (the unit-price
// snapshot the session item records). On any rejection, stock is
// unchanged.
func (g *Guard) Reserve(ctx context.Context, productID billing.ProductID, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, fmt.Errorf("%w: reservation quantity must be positive", billing.ErrInvalidArgument)
	}

	mu := g.lockFor(productID)
	mu.Lock()
	defer mu.Unlock()

	product, err := g.store.GetProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stock lookup for product %s: %w", productID, err)
	}
	if product.StockQuantity < quantity {
		return decimal.Zero, &billing.InsufficientStockError{
			ProductID: productID,
			Available: product.StockQuantity,
			Requested: quantity,
		}
	}
	if err := g.store.AdjustStock(ctx, productID, -quantity); err != nil {
		return decimal.Zero, fmt.Errorf("stock decrement for product %s: %w", productID, err)
	}
	return product.Price, nil
}

// Release returns a previously reserved quantity to stock. Used when a
// session mutation fails after its reservation succeeded.
func (g *Guard) Release(ctx context.Context, productID billing.ProductID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: release quantity must be positive", billing.ErrInvalidArgument)
	}

	mu := g.lockFor(productID)
	mu.Lock()
	defer mu.Unlock()

	if err := g.store.AdjustStock(ctx, productID, quantity); err != nil {
		return fmt.Errorf("stock release for product %s: %w", productID, err)
	}
	return nil
}
