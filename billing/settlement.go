/*
settlement.go - Partial-exit projection

PURPOSE:
  Computes what a subset of individuals owes when leaving an open session
  early, optionally taking a subset of item quantities with them. This is
  a read-only projection: it never mutates the session. The caller reviews
  the projection and then commits it separately (two-phase flow, see
  service.go).

COHORT PRICING:
  The exiting cohort is billed for the FULL elapsed duration at the
  cohort's own headcount-scaled tier, not a fraction of a shared total.
  Two people leaving after three hours pay exactly what a two-person
  session of three hours would have cost. Because of this, the sum of
  sequential exit totals is not comparable to any single "whole session"
  figure.

TIME ALLOCATION:
  TimeAllocation = exiting headcount / headcount before exit. Reported
  for display only; it never feeds into Total.

VALIDATION:
  - Exiting set must be non-empty and a subset of the session
  - The main client may exit only when the entire session exits
  - Item quantities must not exceed what remains on the session; the
    engine rejects rather than clamps
*/
package billing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SETTLEMENT - Result of a partial-exit computation
// =============================================================================

// Settlement is the priced projection of a partial exit.
type Settlement struct {
	SessionID      SessionID          `json:"sessionId"`
	ExitingIDs     []IndividualID     `json:"exitingIndividualIds"`
	ExitingItems   map[ItemID]int     `json:"exitingItemQuantities,omitempty"`
	TimeCost       decimal.Decimal    `json:"timeCost"`
	ItemsCost      decimal.Decimal    `json:"itemsCost"`
	Total          decimal.Decimal    `json:"total"`
	TimeAllocation decimal.Decimal    `json:"timeAllocation"`
	ItemLines      []SettlementLine   `json:"itemLines,omitempty"`
	FullExit       bool               `json:"fullExit"`
}

// SettlementLine is one exiting item quantity, priced at its snapshot.
type SettlementLine struct {
	ItemID         ItemID          `json:"itemId"`
	ProductID      ProductID       `json:"productId,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Total          decimal.Decimal `json:"total"`
	IndividualName string          `json:"individualName,omitempty"`
}

// =============================================================================
// COMPUTE EXIT - Pure projection, no side effects
// =============================================================================

// ComputeExit prices the exit of exitingIDs (and the given item
// quantities) from the session. The session is not modified; committing
// the exit is a separate step.
func ComputeExit(session *Session, exitingIDs []IndividualID, exitingItems map[ItemID]int, pricing SessionPricing) (*Settlement, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session", ErrNotFound)
	}
	if session.Status == SessionClosed {
		return nil, ErrSessionClosed
	}
	if len(exitingIDs) == 0 {
		return nil, &InvalidExitError{Reason: "exiting set is empty"}
	}

	exiting := make(map[IndividualID]bool, len(exitingIDs))
	for _, id := range exitingIDs {
		if session.Individual(id) == nil {
			return nil, &InvalidExitError{Reason: fmt.Sprintf("individual %s is not part of the session", id)}
		}
		exiting[id] = true
	}

	totalBefore := len(session.Individuals)
	fullExit := len(exiting) == totalBefore

	// The main client only exits as part of a full session closure.
	if main := session.MainClient(); main != nil && exiting[main.ID] && !fullExit {
		return nil, &InvalidExitError{Reason: "main client may only exit with the entire session"}
	}

	timeCost := TimeCost(len(exiting), session.ElapsedSeconds, pricing)

	// Deterministic line order regardless of map iteration.
	itemIDs := make([]ItemID, 0, len(exitingItems))
	for itemID := range exitingItems {
		itemIDs = append(itemIDs, itemID)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	itemsCost := decimal.Zero
	var lines []SettlementLine
	for _, itemID := range itemIDs {
		qty := exitingItems[itemID]
		if qty <= 0 {
			return nil, &InvalidExitError{Reason: fmt.Sprintf("item %s: quantity must be positive", itemID)}
		}
		item := session.Item(itemID)
		if item == nil {
			return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		if qty > item.Quantity {
			return nil, &InvalidExitError{
				Reason: fmt.Sprintf("item %s: quantity %d exceeds remaining %d", itemID, qty, item.Quantity),
			}
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		itemsCost = itemsCost.Add(lineTotal)
		lines = append(lines, SettlementLine{
			ItemID:         item.ID,
			ProductID:      item.ProductID,
			Quantity:       qty,
			UnitPrice:      item.UnitPrice,
			Total:          lineTotal,
			IndividualName: item.IndividualName,
		})
	}

	allocation := decimal.NewFromInt(int64(len(exiting))).
		Div(decimal.NewFromInt(int64(totalBefore)))

	ids := make([]IndividualID, 0, len(exiting))
	for _, id := range exitingIDs {
		if exiting[id] {
			ids = append(ids, id)
			exiting[id] = false // keep caller-supplied order, drop duplicates
		}
	}

	return &Settlement{
		SessionID:      session.ID,
		ExitingIDs:     ids,
		ExitingItems:   exitingItems,
		TimeCost:       timeCost,
		ItemsCost:      itemsCost,
		Total:          timeCost.Add(itemsCost),
		TimeAllocation: allocation,
		ItemLines:      lines,
		FullExit:       fullExit,
	}, nil
}
