/*
handlers.go - HTTP API handlers for the venue billing engine

PURPOSE:
  Exposes the session billing engine via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the billing
  service and record store.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (service, stores)
  4. Serialize response
  5. Map typed errors to status codes

ERROR HANDLING:
  - 400: invalid input, invariant violations, closed sessions
  - 404: missing session/invoice/product/client
  - 409: stock shortfall, double split
  - 500: store failures

SEE ALSO:
  - dto.go: request/response data structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/venue-engine/billing"
	"github.com/warp/venue-engine/stock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *billing.Service
	Invoices billing.InvoiceStore
	Clients  billing.ClientStore
	Pricing  billing.PricingStore
	Products stock.CatalogueStore
	Log      *zap.Logger
}

// NewHandler creates a handler. logger may be nil.
func NewHandler(service *billing.Service, invoices billing.InvoiceStore,
	clients billing.ClientStore, pricing billing.PricingStore,
	products stock.CatalogueStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:  service,
		Invoices: invoices,
		Clients:  clients,
		Pricing:  pricing,
		Products: products,
		Log:      logger,
	}
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// StartSession opens a new session.
// POST /api/sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var in billing.StartSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	snap, err := h.Service.StartSession(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to start session", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GetSession returns a session snapshot.
// GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := billing.SessionID(chi.URLParam(r, "id"))
	snap, err := h.Service.GetSession(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get session", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListSessions returns session snapshots for a branch.
// GET /api/sessions?branch_id=...
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	branchID := billing.BranchID(r.URL.Query().Get("branch_id"))
	if branchID == "" {
		writeError(w, http.StatusBadRequest, "branch_id query parameter required", nil)
		return
	}
	snaps, err := h.Service.ListSessions(r.Context(), branchID)
	if err != nil {
		h.writeDomainError(w, "Failed to list sessions", err)
		return
	}
	if snaps == nil {
		snaps = []billing.SessionSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// AddIndividual appends a participant to a session.
// POST /api/sessions/{id}/individuals
func (h *Handler) AddIndividual(w http.ResponseWriter, r *http.Request) {
	id := billing.SessionID(chi.URLParam(r, "id"))
	var req AddIndividualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	snap, err := h.Service.AddIndividual(r.Context(), id, req.Name)
	if err != nil {
		h.writeDomainError(w, "Failed to add individual", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// AddItem records a stock-guarded item on a session.
// POST /api/sessions/{id}/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := billing.SessionID(chi.URLParam(r, "id"))
	var in billing.AddItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	snap, err := h.Service.AddItem(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, "Failed to add item", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// AdvanceTime moves the session clock forward.
// POST /api/sessions/{id}/time
func (h *Handler) AdvanceTime(w http.ResponseWriter, r *http.Request) {
	id := billing.SessionID(chi.URLParam(r, "id"))
	var req AdvanceTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	snap, err := h.Service.AdvanceTime(r.Context(), id, req.DeltaSeconds)
	if err != nil {
		h.writeDomainError(w, "Failed to advance time", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PreviewExit returns the settlement projection without mutating state.
// POST /api/sessions/{id}/exit/preview
func (h *Handler) PreviewExit(w http.ResponseWriter, r *http.Request) {
	id := billing.SessionID(chi.URLParam(r, "id"))
	var in billing.ExitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settlement, err := h.Service.PreviewExit(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, "Failed to compute settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

// CommitExit applies a partial exit and emits an invoice.
// POST /api/sessions/{id}/exit
func (h *Handler) CommitExit(w http.ResponseWriter, r *http.Request) {
	id := billing.SessionID(chi.URLParam(r, "id"))
	var in billing.ExitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Service.CommitExit(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, "Failed to commit exit", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CloseSession terminates a session explicitly.
// POST /api/sessions/{id}/close
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := billing.SessionID(chi.URLParam(r, "id"))
	snap, err := h.Service.CloseSession(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to close session", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// =============================================================================
// INVOICE ENDPOINTS
// =============================================================================

// GetInvoice returns a stored invoice.
// GET /api/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	invoice, err := h.Invoices.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

// ListInvoices returns all invoices for a branch.
// GET /api/invoices?branch_id=...
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	branchID := billing.BranchID(r.URL.Query().Get("branch_id"))
	if branchID == "" {
		writeError(w, http.StatusBadRequest, "branch_id query parameter required", nil)
		return
	}
	invoices, err := h.Invoices.ListInvoices(r.Context(), branchID)
	if err != nil {
		h.writeDomainError(w, "Failed to list invoices", err)
		return
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

// SplitInvoiceItem moves one line item into a new invoice.
// POST /api/invoices/{id}/split
func (h *Handler) SplitInvoiceItem(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	var req SplitItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId required", nil)
		return
	}

	result, err := h.Service.SplitInvoiceItem(r.Context(), id, req.ItemID)
	if err != nil {
		h.writeDomainError(w, "Failed to split invoice item", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// PRODUCT ENDPOINTS
// =============================================================================

// ListProducts returns the branch catalogue with current stock.
// GET /api/products?branch_id=...
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	branchID := billing.BranchID(r.URL.Query().Get("branch_id"))
	if branchID == "" {
		writeError(w, http.StatusBadRequest, "branch_id query parameter required", nil)
		return
	}
	products, err := h.Products.ListProducts(r.Context(), branchID)
	if err != nil {
		h.writeDomainError(w, "Failed to list products", err)
		return
	}
	if products == nil {
		products = []stock.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct returns one product.
// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := billing.ProductID(chi.URLParam(r, "id"))
	product, err := h.Products.GetProduct(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateProduct creates a catalogue product.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.BranchID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "branchId and name required", nil)
		return
	}
	if req.Price.IsNegative() || req.StockQuantity < 0 {
		writeError(w, http.StatusBadRequest, "price and stockQuantity must not be negative", nil)
		return
	}

	product := &stock.Product{
		ID:            billing.ProductID(uuid.NewString()),
		BranchID:      req.BranchID,
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	}
	if err := h.Products.SaveProduct(r.Context(), product); err != nil {
		h.writeDomainError(w, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// =============================================================================
// CLIENT ENDPOINTS
// =============================================================================

// CreateClient creates a client record.
// POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.BranchID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "branchId and name required", nil)
		return
	}

	client := &billing.Client{
		ID:       billing.ClientID(uuid.NewString()),
		BranchID: req.BranchID,
		Name:     req.Name,
		Phone:    req.Phone,
	}
	if err := h.Clients.SaveClient(r.Context(), client); err != nil {
		h.writeDomainError(w, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// GetClient returns one client record.
// GET /api/clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := billing.ClientID(chi.URLParam(r, "id"))
	client, err := h.Clients.GetClient(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get client", err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// =============================================================================
// PRICING ENDPOINTS
// =============================================================================

// GetPricing returns a branch's tier configuration.
// GET /api/branches/{branchId}/pricing
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	branchID := billing.BranchID(chi.URLParam(r, "branchId"))
	pricing, err := h.Pricing.GetPricing(r.Context(), branchID)
	if err != nil {
		h.writeDomainError(w, "Failed to get pricing", err)
		return
	}
	writeJSON(w, http.StatusOK, pricing)
}

// SetPricing sets a branch's tier configuration.
// PUT /api/branches/{branchId}/pricing
func (h *Handler) SetPricing(w http.ResponseWriter, r *http.Request) {
	branchID := billing.BranchID(chi.URLParam(r, "branchId"))
	var req PricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pricing := billing.SessionPricing{
		Hour1Price:          req.Hour1Price,
		Hour2Price:          req.Hour2Price,
		Hour3PlusPrice:      req.Hour3PlusPrice,
		MaxAdditionalCharge: req.MaxAdditionalCharge,
	}
	if err := pricing.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Pricing values must not be negative", err)
		return
	}
	if err := h.Pricing.SavePricing(r.Context(), branchID, pricing); err != nil {
		h.writeDomainError(w, "Failed to save pricing", err)
		return
	}
	writeJSON(w, http.StatusOK, pricing)
}

// =============================================================================
// HELPERS
// =============================================================================

// writeDomainError maps engine error kinds onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
