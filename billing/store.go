/*
store.go - Record-store interfaces for the billing engine

PURPOSE:
  The engine treats persistence as an external collaborator: plain
  create/read/update operations keyed by entity id and branch id.
  Different implementations can use SQLite or in-memory storage.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - store/memory: in-memory store for testing/dev

SEE ALSO:
  - service.go: the only consumer of these interfaces
  - stock: ProductStore, the stock slice of the record store
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLIENT - Minimal client record consumed by session creation
// =============================================================================

// Client is the stored client record a session may be opened for.
type Client struct {
	ID       ClientID `json:"id"`
	BranchID BranchID `json:"branchId"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone,omitempty"`
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// SessionStore persists session aggregates.
type SessionStore interface {
	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessions(ctx context.Context, branchID BranchID) ([]SessionSnapshot, error)
}

// InvoiceStore persists invoices with their items.
type InvoiceStore interface {
	SaveInvoice(ctx context.Context, invoice *Invoice) error
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context, branchID BranchID) ([]Invoice, error)
}

// ClientStore persists client records.
type ClientStore interface {
	SaveClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, id ClientID) (*Client, error)
}

// PricingStore resolves the immutable per-branch tier configuration.
type PricingStore interface {
	GetPricing(ctx context.Context, branchID BranchID) (SessionPricing, error)
	SavePricing(ctx context.Context, branchID BranchID, pricing SessionPricing) error
}

// StockReserver guards product stock. Reserve checks and decrements stock
// for a catalogue product atomically and returns the unit-price snapshot
// taken at reservation time; Release returns stock for a reservation that
// could not be recorded. Implemented by stock.Guard.
type StockReserver interface {
	Reserve(ctx context.Context, productID ProductID, quantity int) (decimal.Decimal, error)
	Release(ctx context.Context, productID ProductID, quantity int) error
}
