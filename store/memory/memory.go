// Package memory provides an in-memory record store (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/venue-engine/billing"
	"github.com/warp/venue-engine/stock"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of all record-store interfaces
// =============================================================================

// Store implements billing.SessionStore, billing.InvoiceStore,
// billing.ClientStore, billing.PricingStore, and stock.ProductStore.
type Store struct {
	mu       sync.RWMutex
	sessions map[billing.SessionID]*billing.Session
	invoices map[billing.InvoiceID]*billing.Invoice
	clients  map[billing.ClientID]*billing.Client
	pricing  map[billing.BranchID]billing.SessionPricing
	products map[billing.ProductID]*stock.Product
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[billing.SessionID]*billing.Session),
		invoices: make(map[billing.InvoiceID]*billing.Invoice),
		clients:  make(map[billing.ClientID]*billing.Client),
		pricing:  make(map[billing.BranchID]billing.SessionPricing),
		products: make(map[billing.ProductID]*stock.Product),
	}
}

// =============================================================================
// SESSIONS
// =============================================================================

func (m *Store) SaveSession(_ context.Context, session *billing.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = copySession(session)
	return nil
}

func (m *Store) GetSession(_ context.Context, id billing.SessionID) (*billing.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", billing.ErrNotFound, id)
	}
	return copySession(session), nil
}

func (m *Store) ListSessions(_ context.Context, branchID billing.BranchID) ([]billing.SessionSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.SessionSnapshot
	for _, s := range m.sessions {
		if s.BranchID == branchID {
			out = append(out, s.Snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// copySession keeps stored aggregates isolated from caller mutation.
func copySession(s *billing.Session) *billing.Session {
	individuals := make([]billing.Individual, len(s.Individuals))
	copy(individuals, s.Individuals)
	items := make([]billing.SessionItem, len(s.Items))
	copy(items, s.Items)
	return billing.Rehydrate(s.ID, s.BranchID, s.ClientID, individuals, items,
		s.StartedAt, s.ElapsedSeconds, s.Status)
}

// =============================================================================
// INVOICES
// =============================================================================

func (m *Store) SaveInvoice(_ context.Context, invoice *billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[invoice.ID] = copyInvoice(invoice)
	return nil
}

func (m *Store) GetInvoice(_ context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	invoice, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %s", billing.ErrNotFound, id)
	}
	return copyInvoice(invoice), nil
}

func (m *Store) ListInvoices(_ context.Context, branchID billing.BranchID) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Invoice
	for _, inv := range m.invoices {
		if inv.BranchID == branchID {
			out = append(out, *copyInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, nil
}

func copyInvoice(inv *billing.Invoice) *billing.Invoice {
	dup := *inv
	dup.Items = make([]billing.InvoiceItem, len(inv.Items))
	copy(dup.Items, inv.Items)
	return &dup
}

// =============================================================================
// CLIENTS
// =============================================================================

func (m *Store) SaveClient(_ context.Context, client *billing.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dup := *client
	m.clients[client.ID] = &dup
	return nil
}

func (m *Store) GetClient(_ context.Context, id billing.ClientID) (*billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: client %s", billing.ErrNotFound, id)
	}
	dup := *client
	return &dup, nil
}

// =============================================================================
// PRICING
// =============================================================================

func (m *Store) SavePricing(_ context.Context, branchID billing.BranchID, pricing billing.SessionPricing) error {
	if err := pricing.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricing[branchID] = pricing
	return nil
}

func (m *Store) GetPricing(_ context.Context, branchID billing.BranchID) (billing.SessionPricing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pricing, ok := m.pricing[branchID]
	if !ok {
		return billing.SessionPricing{}, fmt.Errorf("%w: pricing for branch %s", billing.ErrNotFound, branchID)
	}
	return pricing, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *Store) SaveProduct(_ context.Context, product *stock.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dup := *product
	m.products[product.ID] = &dup
	return nil
}

func (m *Store) GetProduct(_ context.Context, id billing.ProductID) (*stock.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	product, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", billing.ErrNotFound, id)
	}
	dup := *product
	return &dup, nil
}

func (m *Store) ListProducts(_ context.Context, branchID billing.BranchID) ([]stock.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []stock.Product
	for _, p := range m.products {
		if p.BranchID == branchID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AdjustStock applies a signed stock delta. The reservation guard owns
// the availability check; this never goes below zero only because the
// guard serializes its callers.
func (m *Store) AdjustStock(_ context.Context, id billing.ProductID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return fmt.Errorf("%w: product %s", billing.ErrNotFound, id)
	}
	product.StockQuantity += delta
	return nil
}
