/*
invoice.go - Invoice model and line-item splitting

PURPOSE:
  Invoices are emitted when an exit settlement is committed. Line items
  can later be peeled off into a new, independent invoice ("split") while
  the combined value of both invoices stays exactly what it was.

AMOUNT INVARIANT:
  invoice.Amount equals the sum of its non-removed items' TotalPrice at
  all times after any mutation, and TotalAmount = Amount + TaxAmount.

SPLIT SEMANTICS:
  Splitting MOVES an item, it never copies:
  - the item is marked IsSplit and reassigned to the new invoice
  - the new invoice carries a single line and the item's full value
  - the original invoice's Amount/TotalAmount drop by that value
  - sum(original.items) + sum(new.items) == amount before the split

SEE ALSO:
  - settlement.go: produces the line items a commit turns into an invoice
  - service.go: persists both invoices after a split
*/
package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE TYPES
// =============================================================================

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentOverpaid PaymentStatus = "overpaid"
)

type InvoiceItemType string

const (
	ItemTypeTimeEntry InvoiceItemType = "time_entry"
	ItemTypeProduct   InvoiceItemType = "product"
	ItemTypeService   InvoiceItemType = "service"
)

// InvoiceItem is one line on an invoice. TotalPrice = Quantity x UnitPrice.
type InvoiceItem struct {
	ID             InvoiceItemID   `json:"id"`
	InvoiceID      InvoiceID       `json:"invoiceId"`
	ItemType       InvoiceItemType `json:"itemType"`
	RelatedID      string          `json:"relatedId,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	IndividualName string          `json:"individualName,omitempty"`
	IsSplit        bool            `json:"isSplit"`
}

// Invoice owns its items exclusively. Splitting transfers ownership of an
// item to another invoice, never duplicates it.
type Invoice struct {
	ID            InvoiceID       `json:"id"`
	BranchID      BranchID        `json:"branchId"`
	ClientID      ClientID        `json:"clientId,omitempty"`
	BookingID     string          `json:"bookingId,omitempty"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Items         []InvoiceItem   `json:"items"`
}

// NewInvoiceItem builds a line with TotalPrice derived from its inputs.
func NewInvoiceItem(itemType InvoiceItemType, relatedID string, quantity int, unitPrice decimal.Decimal, individualName string) InvoiceItem {
	return InvoiceItem{
		ID:             InvoiceItemID(uuid.NewString()),
		ItemType:       itemType,
		RelatedID:      relatedID,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		TotalPrice:     unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		IndividualName: individualName,
	}
}

// NewInvoice creates an invoice owning the given items and recalculates
// its totals.
func NewInvoice(branchID BranchID, clientID ClientID, number string, items []InvoiceItem) *Invoice {
	inv := &Invoice{
		ID:            InvoiceID(uuid.NewString()),
		BranchID:      branchID,
		ClientID:      clientID,
		InvoiceNumber: number,
		TaxAmount:     decimal.Zero,
		PaymentStatus: PaymentPending,
	}
	for i := range items {
		items[i].InvoiceID = inv.ID
	}
	inv.Items = items
	inv.Recalculate()
	return inv
}

// Item returns the invoice item with the given id, or nil.
func (inv *Invoice) Item(id InvoiceItemID) *InvoiceItem {
	for i := range inv.Items {
		if inv.Items[i].ID == id {
			return &inv.Items[i]
		}
	}
	return nil
}

// Recalculate restores the amount invariant from the current items.
func (inv *Invoice) Recalculate() {
	amount := decimal.Zero
	for _, it := range inv.Items {
		amount = amount.Add(it.TotalPrice)
	}
	inv.Amount = amount
	inv.TotalAmount = amount.Add(inv.TaxAmount)
}

// =============================================================================
// SPLIT - Move one line item into a newly created invoice
// =============================================================================

// SplitItem detaches the given item from the invoice into a new invoice
// for the same client and branch. The item is moved, marked IsSplit, and
// the new invoice's number is the original's suffixed with "-SPLIT".
func SplitItem(invoice *Invoice, itemID InvoiceItemID) (*Invoice, error) {
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice", ErrNotFound)
	}
	item := invoice.Item(itemID)
	if item == nil {
		return nil, fmt.Errorf("%w: invoice item %s", ErrNotFound, itemID)
	}
	if item.IsSplit {
		return nil, fmt.Errorf("%w: item %s", ErrAlreadySplit, itemID)
	}

	detached := *item
	newInvoice := &Invoice{
		ID:            InvoiceID(uuid.NewString()),
		BranchID:      invoice.BranchID,
		ClientID:      invoice.ClientID,
		BookingID:     invoice.BookingID,
		InvoiceNumber: invoice.InvoiceNumber + "-SPLIT",
		TaxAmount:     decimal.Zero,
		PaymentStatus: PaymentPending,
	}
	detached.InvoiceID = newInvoice.ID
	detached.IsSplit = true
	newInvoice.Items = []InvoiceItem{detached}
	newInvoice.Recalculate()

	kept := invoice.Items[:0]
	for _, it := range invoice.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	invoice.Items = kept
	invoice.Recalculate()

	return newInvoice, nil
}
