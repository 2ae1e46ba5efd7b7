/*
Package billing provides the core session billing and settlement engine.

PURPOSE:
  This package contains the types and algorithms for pricing a shared,
  multi-person, open-ended occupancy session: individuals and consumed
  items can be added mid-session, a subset of individuals can leave early
  and settle only their share, and a finished settlement is emitted as an
  invoice whose line items can later be peeled off into new invoices.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed identifiers: SessionID, IndividualID, ItemID, ...
  - Individual: a billable participant; exactly one is the main client
  - SessionItem: a product/service instance attached to a session
  - Session: the aggregate that owns individuals and items (session.go)

DESIGN PRINCIPLES:
  1. Precision: all money uses decimal.Decimal, never float64
  2. Type Safety: strong typing for IDs prevents mixing session/invoice IDs
  3. Snapshots: item unit prices are captured at add-time and never track
     later product price changes
  4. No partial mutation: every rejected operation leaves state unchanged

SEE ALSO:
  - pricing.go: tiered time-cost policy
  - session.go: session aggregate and state machine
  - settlement.go: partial-exit projection
  - invoice.go: invoice model and item splitting
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SessionID string
type IndividualID string
type ItemID string
type InvoiceID string
type InvoiceItemID string
type ProductID string
type ClientID string
type BranchID string

// =============================================================================
// INDIVIDUAL - Billable participant within a session
// =============================================================================

// Individual is a billable participant. Exactly one individual per session
// has IsMainClient set; it is assigned at session creation and never
// reassigned afterwards.
type Individual struct {
	ID           IndividualID `json:"id"`
	Name         string       `json:"name"`
	IsMainClient bool         `json:"isMainClient"`
}

// =============================================================================
// SESSION ITEM - Product/service instance attached to a session
// =============================================================================

// SessionItem records a consumed product or ad hoc service. ProductID is
// empty for ad hoc services. UnitPrice is a snapshot taken when the item
// was added. Quantity may only be reduced in place (re-add to increase).
type SessionItem struct {
	ID             ItemID          `json:"id"`
	ProductID      ProductID       `json:"productId,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	IndividualName string          `json:"individualName,omitempty"`
	IsSplit        bool            `json:"isSplit"`
}

// Total returns quantity x unit price.
func (it SessionItem) Total() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// IsService reports whether the item is an ad hoc service (no product link).
func (it SessionItem) IsService() bool {
	return it.ProductID == ""
}

// =============================================================================
// SESSION STATUS
// =============================================================================

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// =============================================================================
// SESSION SNAPSHOT - Plain record emitted at the engine boundary
// =============================================================================

// SessionSnapshot is the read-only view of a session returned to callers.
type SessionSnapshot struct {
	ID             SessionID       `json:"id"`
	BranchID       BranchID        `json:"branchId"`
	ClientID       ClientID        `json:"clientId,omitempty"`
	Individuals    []Individual    `json:"individuals"`
	Items          []SessionItem   `json:"items"`
	StartedAt      time.Time       `json:"startedAt"`
	ElapsedSeconds int64           `json:"elapsedSeconds"`
	Status         SessionStatus   `json:"status"`
	ItemsTotal     decimal.Decimal `json:"itemsTotal"`
}
