/*
session.go - Session aggregate and state machine

PURPOSE:
  The Session is the aggregate tracking a shared occupancy: its
  individuals, consumed items, and elapsed time. All mutations go through
  the methods here so the referential invariants hold at every step.

STATE MACHINE:
  open   -> add individual | remove individuals | add item
            | reduce item quantity | advance time          -> open
  open   -> close (explicit, or individual count reaches 0) -> closed
  closed -> (terminal, every mutation rejected)

INVARIANTS:
  1. ElapsedSeconds >= 0 and advances only forward
  2. Individuals is never empty while the session is open
  3. Exactly one main client, set at creation, never reassigned
  4. Item quantities only ever decrease in place (re-add to increase)
  5. A rejected operation leaves the session unchanged

MAIN CLIENT:
  The main client cannot be removed while other individuals remain.
  Reassignment semantics are deliberately not provided; callers either
  close the whole session or keep the main client in it.

SEE ALSO:
  - settlement.go: read-only exit projection over this aggregate
  - service.go: persistence + stock orchestration around the aggregate
*/
package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SESSION - Aggregate root
// =============================================================================

// Session owns its Individuals and SessionItems exclusively for its
// lifetime. Mutate only through methods; direct field writes bypass the
// invariant checks.
type Session struct {
	ID             SessionID
	BranchID       BranchID
	ClientID       ClientID
	Individuals    []Individual
	Items          []SessionItem
	StartedAt      time.Time
	ElapsedSeconds int64
	Status         SessionStatus

	naming NamingStrategy
}

// SessionOption configures a new session.
type SessionOption func(*Session)

// WithNaming overrides the default-naming strategy.
func WithNaming(s NamingStrategy) SessionOption {
	return func(sess *Session) { sess.naming = s }
}

// WithStartedAt pins the session start time (defaults to time.Now).
func WithStartedAt(t time.Time) SessionOption {
	return func(sess *Session) { sess.StartedAt = t }
}

// NewSession opens a session seeded with its main client. mainName may be
// blank, in which case the naming strategy provides it.
func NewSession(branchID BranchID, clientID ClientID, mainName string, opts ...SessionOption) *Session {
	s := &Session{
		ID:        SessionID(uuid.NewString()),
		BranchID:  branchID,
		ClientID:  clientID,
		StartedAt: time.Now().UTC(),
		Status:    SessionOpen,
		naming:    DefaultNaming,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.naming == nil {
		s.naming = DefaultNaming
	}
	if mainName == "" {
		mainName = s.naming(0)
	}
	s.Individuals = []Individual{{
		ID:           IndividualID(uuid.NewString()),
		Name:         mainName,
		IsMainClient: true,
	}}
	return s
}

// Rehydrate rebuilds a session loaded from a store. The naming strategy
// does not persist; the default applies unless overridden.
func Rehydrate(id SessionID, branchID BranchID, clientID ClientID, individuals []Individual,
	items []SessionItem, startedAt time.Time, elapsedSeconds int64, status SessionStatus) *Session {
	return &Session{
		ID:             id,
		BranchID:       branchID,
		ClientID:       clientID,
		Individuals:    individuals,
		Items:          items,
		StartedAt:      startedAt,
		ElapsedSeconds: elapsedSeconds,
		Status:         status,
		naming:         DefaultNaming,
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// MainClient returns the session's main client.
func (s *Session) MainClient() *Individual {
	for i := range s.Individuals {
		if s.Individuals[i].IsMainClient {
			return &s.Individuals[i]
		}
	}
	return nil
}

// Individual returns the individual with the given id, or nil.
func (s *Session) Individual(id IndividualID) *Individual {
	for i := range s.Individuals {
		if s.Individuals[i].ID == id {
			return &s.Individuals[i]
		}
	}
	return nil
}

// Item returns the session item with the given id, or nil.
func (s *Session) Item(id ItemID) *SessionItem {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i]
		}
	}
	return nil
}

// ItemsTotal sums quantity x unit price over all items on the session.
func (s *Session) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Total())
	}
	return total
}

// Snapshot returns the plain-record view of the session.
func (s *Session) Snapshot() SessionSnapshot {
	individuals := make([]Individual, len(s.Individuals))
	copy(individuals, s.Individuals)
	items := make([]SessionItem, len(s.Items))
	copy(items, s.Items)
	return SessionSnapshot{
		ID:             s.ID,
		BranchID:       s.BranchID,
		ClientID:       s.ClientID,
		Individuals:    individuals,
		Items:          items,
		StartedAt:      s.StartedAt,
		ElapsedSeconds: s.ElapsedSeconds,
		Status:         s.Status,
		ItemsTotal:     s.ItemsTotal(),
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddIndividual appends a participant. A blank name gets the default from
// the naming strategy ("فرد N").
func (s *Session) AddIndividual(name string) (*Individual, error) {
	if s.Status == SessionClosed {
		return nil, ErrSessionClosed
	}
	if name == "" {
		name = s.naming(len(s.Individuals))
	}
	ind := Individual{
		ID:   IndividualID(uuid.NewString()),
		Name: name,
	}
	s.Individuals = append(s.Individuals, ind)
	return &s.Individuals[len(s.Individuals)-1], nil
}

// RemoveIndividuals removes the given set of participants. Removing the
// final individuals closes the session, provided no unsettled items
// remain. The main client may only leave when everyone leaves.
func (s *Session) RemoveIndividuals(ids []IndividualID) error {
	if s.Status == SessionClosed {
		return ErrSessionClosed
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty individual set", ErrInvalidArgument)
	}

	exiting := make(map[IndividualID]bool, len(ids))
	for _, id := range ids {
		if s.Individual(id) == nil {
			return fmt.Errorf("%w: individual %s", ErrNotFound, id)
		}
		exiting[id] = true
	}

	main := s.MainClient()
	if main != nil && exiting[main.ID] && len(exiting) < len(s.Individuals) {
		return &InvariantViolationError{
			Reason: "main client cannot be removed while other individuals remain",
		}
	}
	if len(exiting) == len(s.Individuals) && len(s.Items) > 0 {
		return &InvariantViolationError{
			Reason: "removal would leave the session individual-less with unsettled items",
		}
	}

	remaining := s.Individuals[:0]
	for _, ind := range s.Individuals {
		if !exiting[ind.ID] {
			remaining = append(remaining, ind)
		}
	}
	s.Individuals = remaining

	if len(s.Individuals) == 0 {
		s.Status = SessionClosed
	}
	return nil
}

// AddItem attaches a product or ad hoc service with a price snapshot.
// Stock reservation is the caller's concern (see service.go); the
// aggregate records the item only after reservation succeeded.
func (s *Session) AddItem(productID ProductID, quantity int, unitPrice decimal.Decimal, individualName string) (*SessionItem, error) {
	if s.Status == SessionClosed {
		return nil, ErrSessionClosed
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit price must not be negative", ErrInvalidArgument)
	}
	item := SessionItem{
		ID:             ItemID(uuid.NewString()),
		ProductID:      productID,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		IndividualName: individualName,
	}
	s.Items = append(s.Items, item)
	return &s.Items[len(s.Items)-1], nil
}

// ReduceItemQuantity lowers an item's quantity. Reaching zero removes the
// item. Quantities never increase in place.
func (s *Session) ReduceItemQuantity(itemID ItemID, quantity int) error {
	if s.Status == SessionClosed {
		return ErrSessionClosed
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}
	item := s.Item(itemID)
	if item == nil {
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if quantity > item.Quantity {
		return fmt.Errorf("%w: reduction %d exceeds remaining quantity %d",
			ErrInvalidArgument, quantity, item.Quantity)
	}

	item.Quantity -= quantity
	if item.Quantity == 0 {
		kept := s.Items[:0]
		for _, it := range s.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		s.Items = kept
	}
	return nil
}

// AdvanceTime moves the session clock forward. Time is monotonic; a
// negative delta is rejected.
func (s *Session) AdvanceTime(deltaSeconds int64) error {
	if s.Status == SessionClosed {
		return ErrSessionClosed
	}
	if deltaSeconds < 0 {
		return fmt.Errorf("%w: negative time delta", ErrInvalidArgument)
	}
	s.ElapsedSeconds += deltaSeconds
	return nil
}

// Close terminates the session explicitly. Closed is terminal.
func (s *Session) Close() error {
	if s.Status == SessionClosed {
		return ErrSessionClosed
	}
	s.Status = SessionClosed
	return nil
}
