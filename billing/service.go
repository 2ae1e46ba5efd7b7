/*
service.go - Orchestration around the session aggregate

PURPOSE:
  Wires the pure engine pieces (session aggregate, settlement projection,
  invoice splitter) to their collaborators: the record store, the stock
  reservation guard, and the per-branch pricing configuration.

TWO-PHASE EXIT:
  PreviewExit computes a settlement without touching state. CommitExit
  recomputes it, applies the item reductions and individual removals, and
  emits the invoice. Anything the caller reviewed between the two calls
  may have changed, so the commit validates from scratch.

LOCKING:
  One mutation in flight per session id at a time, serialized by striped
  mutexes. Stock has its own per-product critical section inside the
  guard. The service holds no other locks.

IDENTIFIERS:
  Entity ids are UUIDs. Invoice numbers are
  "INV-{branch}-{unix-millis}-{short-uuid}", collision-resistant within
  a branch.
*/
package billing

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// SERVICE
// =============================================================================

const serviceLockStripes = 64

// Service exposes the engine's operations over persistent state.
type Service struct {
	sessions SessionStore
	invoices InvoiceStore
	clients  ClientStore
	pricing  PricingStore
	guard    StockReserver
	log      *zap.Logger
	naming   NamingStrategy

	sessionLocks [serviceLockStripes]sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceNaming overrides the default individual-naming strategy.
func WithServiceNaming(n NamingStrategy) ServiceOption {
	return func(s *Service) { s.naming = n }
}

// NewService wires the engine to its collaborators. logger may be nil.
func NewService(sessions SessionStore, invoices InvoiceStore, clients ClientStore,
	pricing PricingStore, guard StockReserver,
	logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		sessions: sessions,
		invoices: invoices,
		clients:  clients,
		pricing:  pricing,
		guard:    guard,
		log:      logger,
		naming:   DefaultNaming,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lockFor(id SessionID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.sessionLocks[h.Sum32()%serviceLockStripes]
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// StartSessionInput is the session creation payload.
type StartSessionInput struct {
	BranchID               BranchID `json:"branchId"`
	ClientID               ClientID `json:"clientId,omitempty"`
	AdhocName              string   `json:"adhocName,omitempty"`
	InitialIndividuals     int      `json:"initialIndividualsCount"`
	InitialIndividualNames []string `json:"initialIndividualNames,omitempty"`
}

// StartSession opens a session for a stored client or an ad hoc name and
// seeds the initial individuals.
func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*SessionSnapshot, error) {
	if in.BranchID == "" {
		return nil, fmt.Errorf("%w: branch id required", ErrInvalidArgument)
	}
	if in.InitialIndividuals < 0 {
		return nil, fmt.Errorf("%w: negative initial individual count", ErrInvalidArgument)
	}

	mainName := in.AdhocName
	if in.ClientID != "" {
		client, err := s.clients.GetClient(ctx, in.ClientID)
		if err != nil {
			return nil, err
		}
		if mainName == "" {
			mainName = client.Name
		}
	}

	session := NewSession(in.BranchID, in.ClientID, mainName, WithNaming(s.naming))

	// Main client counts as the first individual; seed the rest.
	extra := in.InitialIndividuals - 1
	if len(in.InitialIndividualNames) > extra {
		extra = len(in.InitialIndividualNames)
	}
	for i := 0; i < extra; i++ {
		name := ""
		if i < len(in.InitialIndividualNames) {
			name = in.InitialIndividualNames[i]
		}
		if _, err := session.AddIndividual(name); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("session started",
		zap.String("session_id", string(session.ID)),
		zap.String("branch_id", string(session.BranchID)),
		zap.Int("individuals", len(session.Individuals)))

	snap := session.Snapshot()
	return &snap, nil
}

// ListSessions returns snapshots of all sessions for a branch.
func (s *Service) ListSessions(ctx context.Context, branchID BranchID) ([]SessionSnapshot, error) {
	return s.sessions.ListSessions(ctx, branchID)
}

// GetSession returns a session snapshot.
func (s *Service) GetSession(ctx context.Context, id SessionID) (*SessionSnapshot, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

// AddIndividual appends a participant to an open session.
func (s *Service) AddIndividual(ctx context.Context, id SessionID, name string) (*SessionSnapshot, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := session.AddIndividual(name); err != nil {
		return nil, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

// AdvanceTime moves the session clock forward by deltaSeconds.
func (s *Service) AdvanceTime(ctx context.Context, id SessionID, deltaSeconds int64) (*SessionSnapshot, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.AdvanceTime(deltaSeconds); err != nil {
		return nil, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

// CloseSession terminates a session explicitly.
func (s *Service) CloseSession(ctx context.Context, id SessionID) (*SessionSnapshot, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.Close(); err != nil {
		return nil, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

// =============================================================================
// ITEMS
// =============================================================================

// AddItemInput is the add-item payload. UnitPrice is required for ad hoc
// services (no product); stocked products snapshot the catalogue price.
type AddItemInput struct {
	ProductID      ProductID        `json:"productId,omitempty"`
	Quantity       int              `json:"quantity"`
	UnitPrice      *decimal.Decimal `json:"unitPrice,omitempty"`
	IndividualName string           `json:"individualName,omitempty"`
}

// AddItem reserves stock for the product (all-or-nothing) and records the
// item on the session. A failed session mutation releases the
// reservation.
func (s *Service) AddItem(ctx context.Context, id SessionID, in AddItemInput) (*SessionSnapshot, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	var unitPrice decimal.Decimal
	reserved := false
	if in.ProductID != "" {
		cataloguePrice, err := s.guard.Reserve(ctx, in.ProductID, in.Quantity)
		if err != nil {
			return nil, err
		}
		reserved = true
		unitPrice = cataloguePrice
		if in.UnitPrice != nil {
			unitPrice = *in.UnitPrice
		}
	} else {
		if in.UnitPrice == nil {
			return nil, fmt.Errorf("%w: unit price required for ad hoc services", ErrInvalidArgument)
		}
		unitPrice = *in.UnitPrice
	}

	release := func() {
		if !reserved {
			return
		}
		if rerr := s.guard.Release(ctx, in.ProductID, in.Quantity); rerr != nil {
			s.log.Error("failed to release reservation",
				zap.String("product_id", string(in.ProductID)),
				zap.Int("quantity", in.Quantity),
				zap.Error(rerr))
		}
	}

	if _, err := session.AddItem(in.ProductID, in.Quantity, unitPrice, in.IndividualName); err != nil {
		release()
		return nil, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		release()
		return nil, err
	}

	snap := session.Snapshot()
	return &snap, nil
}

// =============================================================================
// EXITS - Two-phase settlement
// =============================================================================

// ExitInput is the partial-exit payload.
type ExitInput struct {
	ExitingIndividualIDs  []IndividualID `json:"exitingIndividualIds"`
	ExitingItemQuantities map[ItemID]int `json:"exitingItemQuantities,omitempty"`
}

// ExitResult pairs the committed settlement with its invoice.
type ExitResult struct {
	Settlement *Settlement      `json:"settlement"`
	Invoice    *Invoice         `json:"invoice"`
	Session    *SessionSnapshot `json:"session"`
}

// PreviewExit computes a settlement projection without mutating anything.
func (s *Service) PreviewExit(ctx context.Context, id SessionID, in ExitInput) (*Settlement, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.GetPricing(ctx, session.BranchID)
	if err != nil {
		return nil, err
	}
	return ComputeExit(session, in.ExitingIndividualIDs, in.ExitingItemQuantities, pricing)
}

// CommitExit recomputes the settlement, applies it to the session, and
// emits the invoice. The settlement is recomputed rather than trusted
// from the preview; anything may have changed in between.
func (s *Service) CommitExit(ctx context.Context, id SessionID, in ExitInput) (*ExitResult, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	pricing, err := s.pricing.GetPricing(ctx, session.BranchID)
	if err != nil {
		return nil, err
	}
	settlement, err := ComputeExit(session, in.ExitingIndividualIDs, in.ExitingItemQuantities, pricing)
	if err != nil {
		return nil, err
	}

	// Settle item quantities before removing individuals so a full exit
	// that takes everything leaves nothing unsettled behind.
	for _, line := range settlement.ItemLines {
		if err := session.ReduceItemQuantity(line.ItemID, line.Quantity); err != nil {
			return nil, err
		}
	}
	if err := session.RemoveIndividuals(settlement.ExitingIDs); err != nil {
		return nil, err
	}

	items := make([]InvoiceItem, 0, len(settlement.ItemLines)+1)
	if settlement.TimeCost.IsPositive() {
		items = append(items, NewInvoiceItem(ItemTypeTimeEntry, string(session.ID), 1, settlement.TimeCost, ""))
	}
	for _, line := range settlement.ItemLines {
		itemType := ItemTypeProduct
		related := string(line.ProductID)
		if line.ProductID == "" {
			itemType = ItemTypeService
			related = string(line.ItemID)
		}
		items = append(items, NewInvoiceItem(itemType, related, line.Quantity, line.UnitPrice, line.IndividualName))
	}

	invoice := NewInvoice(session.BranchID, session.ClientID, s.nextInvoiceNumber(session.BranchID), items)

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	if err := s.invoices.SaveInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	s.log.Info("exit committed",
		zap.String("session_id", string(session.ID)),
		zap.Int("exiting", len(settlement.ExitingIDs)),
		zap.String("total", settlement.Total.String()),
		zap.String("invoice_number", invoice.InvoiceNumber))

	snap := session.Snapshot()
	return &ExitResult{Settlement: settlement, Invoice: invoice, Session: &snap}, nil
}

// =============================================================================
// INVOICES
// =============================================================================

// GetInvoice returns a stored invoice.
func (s *Service) GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error) {
	return s.invoices.GetInvoice(ctx, id)
}

// SplitResult pairs the shrunken original with the derived invoice.
type SplitResult struct {
	Original *Invoice `json:"original"`
	Split    *Invoice `json:"split"`
}

// SplitInvoiceItem moves one line item of a stored invoice into a new
// invoice and persists both.
func (s *Service) SplitInvoiceItem(ctx context.Context, invoiceID InvoiceID, itemID InvoiceItemID) (*SplitResult, error) {
	invoice, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	split, err := SplitItem(invoice, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.invoices.SaveInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	if err := s.invoices.SaveInvoice(ctx, split); err != nil {
		return nil, err
	}

	s.log.Info("invoice item split",
		zap.String("invoice", string(invoiceID)),
		zap.String("new_invoice", split.InvoiceNumber))

	return &SplitResult{Original: invoice, Split: split}, nil
}

func (s *Service) nextInvoiceNumber(branchID BranchID) string {
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("INV-%s-%d-%s", branchID, time.Now().UnixMilli(), short)
}
