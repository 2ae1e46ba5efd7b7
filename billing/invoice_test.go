package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/venue-engine/billing"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func twoLineInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	items := []billing.InvoiceItem{
		billing.NewInvoiceItem(billing.ItemTypeTimeEntry, "session-1", 1, dec(140), ""),
		billing.NewInvoiceItem(billing.ItemTypeProduct, "prod-1", 2, dec(15), "Sara"),
	}
	inv := billing.NewInvoice("branch-1", "client-1", "INV-branch-1-1-abc", items)
	require.True(t, dec(170).Equal(inv.Amount))
	return inv
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewInvoice_AmountIsSumOfItems(t *testing.T) {
	inv := twoLineInvoice(t)

	assert.True(t, dec(170).Equal(inv.Amount))
	assert.True(t, inv.TaxAmount.IsZero())
	assert.True(t, dec(170).Equal(inv.TotalAmount))
	assert.Equal(t, billing.PaymentPending, inv.PaymentStatus)
	for _, it := range inv.Items {
		assert.Equal(t, inv.ID, it.InvoiceID)
	}
}

func TestNewInvoiceItem_TotalDerivedFromQuantity(t *testing.T) {
	item := billing.NewInvoiceItem(billing.ItemTypeProduct, "prod-1", 4, dec(12.5), "")
	assert.True(t, dec(50).Equal(item.TotalPrice))
}

// =============================================================================
// SPLIT - The item moves, value is conserved
// =============================================================================

func TestSplitItem_SumInvariantPreserved(t *testing.T) {
	// GIVEN: An invoice with a 140 time line and a 30 product line
	// WHEN: Splitting the product line off
	// THEN: original.Amount + split.Amount equals the amount before the
	//       split, to the exact decimal

	inv := twoLineInvoice(t)
	before := inv.Amount
	productLine := inv.Items[1].ID

	split, err := billing.SplitItem(inv, productLine)

	require.NoError(t, err)
	assert.True(t, before.Equal(inv.Amount.Add(split.Amount)),
		"expected %s, got %s + %s", before, inv.Amount, split.Amount)
	assert.True(t, dec(140).Equal(inv.Amount))
	assert.True(t, dec(30).Equal(split.Amount))
}

func TestSplitItem_MovesNotCopies(t *testing.T) {
	// GIVEN: A two-line invoice
	// WHEN: Splitting one line off
	// THEN: The line exists on exactly one invoice afterwards, marked
	//       IsSplit and re-owned by the new invoice

	inv := twoLineInvoice(t)
	productLine := inv.Items[1].ID

	split, err := billing.SplitItem(inv, productLine)

	require.NoError(t, err)
	assert.Nil(t, inv.Item(productLine), "item should no longer be on the original")
	require.Len(t, split.Items, 1)
	moved := split.Items[0]
	assert.Equal(t, productLine, moved.ID)
	assert.True(t, moved.IsSplit)
	assert.Equal(t, split.ID, moved.InvoiceID)
}

func TestSplitItem_DerivedInvoiceMetadata(t *testing.T) {
	inv := twoLineInvoice(t)

	split, err := billing.SplitItem(inv, inv.Items[1].ID)

	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber+"-SPLIT", split.InvoiceNumber)
	assert.Equal(t, inv.BranchID, split.BranchID)
	assert.Equal(t, inv.ClientID, split.ClientID)
	assert.NotEqual(t, inv.ID, split.ID)
	assert.Equal(t, billing.PaymentPending, split.PaymentStatus)
}

func TestSplitItem_AlreadySplit_Rejected(t *testing.T) {
	// GIVEN: An item already moved once
	// WHEN: Splitting it again from its new invoice
	// THEN: The second split is rejected

	inv := twoLineInvoice(t)
	split, err := billing.SplitItem(inv, inv.Items[1].ID)
	require.NoError(t, err)

	_, err = billing.SplitItem(split, split.Items[0].ID)

	assert.ErrorIs(t, err, billing.ErrAlreadySplit)
	assert.Len(t, split.Items, 1, "failed split must not mutate the invoice")
}

func TestSplitItem_UnknownItem_Rejected(t *testing.T) {
	inv := twoLineInvoice(t)
	before := inv.Amount

	_, err := billing.SplitItem(inv, "nope")

	assert.ErrorIs(t, err, billing.ErrNotFound)
	assert.True(t, before.Equal(inv.Amount))
	assert.Len(t, inv.Items, 2)
}

func TestSplitItem_NilInvoice_Rejected(t *testing.T) {
	_, err := billing.SplitItem(nil, "any")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

// =============================================================================
// RECALCULATE
// =============================================================================

func TestRecalculate_IncludesTax(t *testing.T) {
	inv := twoLineInvoice(t)
	inv.TaxAmount = decimal.NewFromFloat(25.5)

	inv.Recalculate()

	assert.True(t, dec(170).Equal(inv.Amount))
	assert.True(t, dec(195.5).Equal(inv.TotalAmount))
}
