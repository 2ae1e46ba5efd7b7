// dto.go - Data Transfer Objects for API requests and responses.
//
// Request payloads reuse the engine's input structs where the shapes
// coincide (billing.StartSessionInput, billing.AddItemInput,
// billing.ExitInput); anything API-specific lives here. Monetary fields
// serialize as decimal strings.
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/venue-engine/billing"
)

// AddIndividualRequest names the participant being added. A blank name
// gets the branch's default naming ("فرد N").
type AddIndividualRequest struct {
	Name string `json:"name"`
}

// AdvanceTimeRequest moves the session clock forward.
type AdvanceTimeRequest struct {
	DeltaSeconds int64 `json:"deltaSeconds"`
}

// SplitItemRequest names the invoice item to peel off.
type SplitItemRequest struct {
	ItemID billing.InvoiceItemID `json:"itemId"`
}

// CreateProductRequest creates a catalogue product.
type CreateProductRequest struct {
	BranchID      billing.BranchID `json:"branchId"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	StockQuantity int              `json:"stockQuantity"`
}

// CreateClientRequest creates a client record.
type CreateClientRequest struct {
	BranchID billing.BranchID `json:"branchId"`
	Name     string           `json:"name"`
	Phone    string           `json:"phone,omitempty"`
}

// PricingRequest sets a branch's tier configuration.
type PricingRequest struct {
	Hour1Price          decimal.Decimal `json:"hour1Price"`
	Hour2Price          decimal.Decimal `json:"hour2Price"`
	Hour3PlusPrice      decimal.Decimal `json:"hour3PlusPrice"`
	MaxAdditionalCharge decimal.Decimal `json:"maxAdditionalCharge"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
