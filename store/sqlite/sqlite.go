/*
Package sqlite provides a SQLite-backed implementation of the record store.

PURPOSE:
  Implements every store interface the engine consumes (sessions,
  invoices, clients, pricing, products) using SQLite. The same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  sessions / session_individuals / session_items: the session aggregate
  invoices / invoice_items:                       emitted settlements
  clients:                                        client records
  products:                                       stocked catalogue
  branch_pricing:                                 per-branch tier config

MONEY:
  All monetary columns are TEXT holding decimal strings. SQLite's float
  affinity would silently lose precision; decimals round-trip exactly.

STOCK:
  AdjustStock decrements conditionally
  (UPDATE ... SET stock = stock + ? WHERE id = ? AND stock + ? >= 0)
  so the database itself serializes competing reservations on top of the
  guard's critical section.

WAL MODE:
  Opened with WAL for better concurrency: multiple readers don't block,
  single writer at a time.

USAGE:
  store, err := sqlite.New("./data/venue.db")  // ":memory:" for tests
  defer store.Close()

SEE ALSO:
  - billing/store.go: interface definitions
  - store/memory: in-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/venue-engine/billing"
	"github.com/warp/venue-engine/stock"
)

// Store implements all record-store interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		client_id TEXT,
		started_at TEXT NOT NULL,
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_branch
		ON sessions(branch_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_branch_status
		ON sessions(branch_id, status);

	CREATE TABLE IF NOT EXISTS session_individuals (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		is_main_client INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_individuals_session
		ON session_individuals(session_id);

	CREATE TABLE IF NOT EXISTS session_items (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		product_id TEXT,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		individual_name TEXT,
		is_split INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_session
		ON session_items(session_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		client_id TEXT,
		booking_id TEXT,
		invoice_number TEXT NOT NULL UNIQUE,
		amount TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_branch
		ON invoices(branch_id);

	CREATE TABLE IF NOT EXISTS invoice_items (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		item_type TEXT NOT NULL,
		related_id TEXT,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL,
		individual_name TEXT,
		is_split INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice
		ON invoice_items(invoice_id);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		stock_quantity INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_products_branch
		ON products(branch_id);

	CREATE TABLE IF NOT EXISTS branch_pricing (
		branch_id TEXT PRIMARY KEY,
		hour1_price TEXT NOT NULL,
		hour2_price TEXT NOT NULL,
		hour3_plus_price TEXT NOT NULL,
		max_additional_charge TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// SESSIONS
// =============================================================================

// SaveSession writes the full aggregate: the session row plus its
// individuals and items, atomically.
func (s *Store) SaveSession(ctx context.Context, session *billing.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, branch_id, client_id, started_at, elapsed_seconds, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			elapsed_seconds = excluded.elapsed_seconds,
			status = excluded.status`,
		session.ID, session.BranchID, session.ClientID,
		session.StartedAt.UTC().Format(time.RFC3339Nano),
		session.ElapsedSeconds, session.Status)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_individuals WHERE session_id = ?`, session.ID); err != nil {
		return err
	}
	for i, ind := range session.Individuals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_individuals (id, session_id, name, is_main_client, position)
			VALUES (?, ?, ?, ?, ?)`,
			ind.ID, session.ID, ind.Name, boolToInt(ind.IsMainClient), i)
		if err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_items WHERE session_id = ?`, session.ID); err != nil {
		return err
	}
	for i, item := range session.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_items (id, session_id, product_id, quantity, unit_price, individual_name, is_split, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, session.ID, item.ProductID, item.Quantity,
			item.UnitPrice.String(), item.IndividualName, boolToInt(item.IsSplit), i)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSession loads the full aggregate.
func (s *Store) GetSession(ctx context.Context, id billing.SessionID) (*billing.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSessionLocked(ctx, id)
}

func (s *Store) getSessionLocked(ctx context.Context, id billing.SessionID) (*billing.Session, error) {
	var (
		branchID       string
		clientID       sql.NullString
		startedAt      string
		elapsedSeconds int64
		status         string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT branch_id, client_id, started_at, elapsed_seconds, status
		FROM sessions WHERE id = ?`, id).
		Scan(&branchID, &clientID, &startedAt, &elapsedSeconds, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", billing.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt started_at for session %s: %w", id, err)
	}

	individuals, err := s.loadIndividuals(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return billing.Rehydrate(id, billing.BranchID(branchID), billing.ClientID(clientID.String),
		individuals, items, started, elapsedSeconds, billing.SessionStatus(status)), nil
}

func (s *Store) loadIndividuals(ctx context.Context, id billing.SessionID) ([]billing.Individual, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_main_client
		FROM session_individuals WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.Individual
	for rows.Next() {
		var (
			ind  billing.Individual
			main int
		)
		if err := rows.Scan(&ind.ID, &ind.Name, &main); err != nil {
			return nil, err
		}
		ind.IsMainClient = main != 0
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (s *Store) loadItems(ctx context.Context, id billing.SessionID) ([]billing.SessionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price, individual_name, is_split
		FROM session_items WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.SessionItem
	for rows.Next() {
		var (
			item      billing.SessionItem
			productID sql.NullString
			unitPrice string
			indName   sql.NullString
			split     int
		)
		if err := rows.Scan(&item.ID, &productID, &item.Quantity, &unitPrice, &indName, &split); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(unitPrice)
		if err != nil {
			return nil, fmt.Errorf("corrupt unit_price for item %s: %w", item.ID, err)
		}
		item.ProductID = billing.ProductID(productID.String)
		item.UnitPrice = price
		item.IndividualName = indName.String
		item.IsSplit = split != 0
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListSessions returns snapshots of all sessions for a branch.
func (s *Store) ListSessions(ctx context.Context, branchID billing.BranchID) ([]billing.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions WHERE branch_id = ? ORDER BY started_at`, branchID)
	if err != nil {
		return nil, err
	}
	var ids []billing.SessionID
	for rows.Next() {
		var id billing.SessionID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]billing.SessionSnapshot, 0, len(ids))
	for _, id := range ids {
		session, err := s.getSessionLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, session.Snapshot())
	}
	return out, nil
}

// =============================================================================
// INVOICES
// =============================================================================

// SaveInvoice writes the invoice and its items atomically.
func (s *Store) SaveInvoice(ctx context.Context, invoice *billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, branch_id, client_id, booking_id, invoice_number,
			amount, tax_amount, total_amount, payment_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			tax_amount = excluded.tax_amount,
			total_amount = excluded.total_amount,
			payment_status = excluded.payment_status`,
		invoice.ID, invoice.BranchID, invoice.ClientID, invoice.BookingID,
		invoice.InvoiceNumber, invoice.Amount.String(), invoice.TaxAmount.String(),
		invoice.TotalAmount.String(), invoice.PaymentStatus,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, invoice.ID); err != nil {
		return err
	}
	for i, item := range invoice.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_items (id, invoice_id, item_type, related_id, quantity,
				unit_price, total_price, individual_name, is_split, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, invoice.ID, item.ItemType, item.RelatedID, item.Quantity,
			item.UnitPrice.String(), item.TotalPrice.String(),
			item.IndividualName, boolToInt(item.IsSplit), i)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetInvoice loads the invoice with its items.
func (s *Store) GetInvoice(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getInvoiceLocked(ctx, id)
}

func (s *Store) getInvoiceLocked(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	var (
		inv         billing.Invoice
		clientID    sql.NullString
		bookingID   sql.NullString
		amount      string
		taxAmount   string
		totalAmount string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, client_id, booking_id, invoice_number,
			amount, tax_amount, total_amount, payment_status
		FROM invoices WHERE id = ?`, id).
		Scan(&inv.ID, &inv.BranchID, &clientID, &bookingID, &inv.InvoiceNumber,
			&amount, &taxAmount, &totalAmount, &inv.PaymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %s", billing.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	inv.ClientID = billing.ClientID(clientID.String)
	inv.BookingID = bookingID.String
	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount for invoice %s: %w", id, err)
	}
	if inv.TaxAmount, err = decimal.NewFromString(taxAmount); err != nil {
		return nil, fmt.Errorf("corrupt tax_amount for invoice %s: %w", id, err)
	}
	if inv.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("corrupt total_amount for invoice %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, related_id, quantity, unit_price, total_price, individual_name, is_split
		FROM invoice_items WHERE invoice_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       billing.InvoiceItem
			relatedID  sql.NullString
			unitPrice  string
			totalPrice string
			indName    sql.NullString
			split      int
		)
		if err := rows.Scan(&item.ID, &item.ItemType, &relatedID, &item.Quantity,
			&unitPrice, &totalPrice, &indName, &split); err != nil {
			return nil, err
		}
		item.InvoiceID = inv.ID
		item.RelatedID = relatedID.String
		item.IndividualName = indName.String
		item.IsSplit = split != 0
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("corrupt unit_price for invoice item %s: %w", item.ID, err)
		}
		if item.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
			return nil, fmt.Errorf("corrupt total_price for invoice item %s: %w", item.ID, err)
		}
		inv.Items = append(inv.Items, item)
	}
	return &inv, rows.Err()
}

// ListInvoices returns all invoices for a branch.
func (s *Store) ListInvoices(ctx context.Context, branchID billing.BranchID) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM invoices WHERE branch_id = ? ORDER BY invoice_number`, branchID)
	if err != nil {
		return nil, err
	}
	var ids []billing.InvoiceID
	for rows.Next() {
		var id billing.InvoiceID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]billing.Invoice, 0, len(ids))
	for _, id := range ids {
		inv, err := s.getInvoiceLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) SaveClient(ctx context.Context, client *billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, branch_id, name, phone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, phone = excluded.phone`,
		client.ID, client.BranchID, client.Name, client.Phone)
	return err
}

func (s *Store) GetClient(ctx context.Context, id billing.ClientID) (*billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		client billing.Client
		phone  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, phone FROM clients WHERE id = ?`, id).
		Scan(&client.ID, &client.BranchID, &client.Name, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: client %s", billing.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	client.Phone = phone.String
	return &client, nil
}

// =============================================================================
// PRICING
// =============================================================================

func (s *Store) SavePricing(ctx context.Context, branchID billing.BranchID, pricing billing.SessionPricing) error {
	if err := pricing.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branch_pricing (branch_id, hour1_price, hour2_price, hour3_plus_price, max_additional_charge)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(branch_id) DO UPDATE SET
			hour1_price = excluded.hour1_price,
			hour2_price = excluded.hour2_price,
			hour3_plus_price = excluded.hour3_plus_price,
			max_additional_charge = excluded.max_additional_charge`,
		branchID, pricing.Hour1Price.String(), pricing.Hour2Price.String(),
		pricing.Hour3PlusPrice.String(), pricing.MaxAdditionalCharge.String())
	return err
}

func (s *Store) GetPricing(ctx context.Context, branchID billing.BranchID) (billing.SessionPricing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var h1, h2, h3, maxAdd string
	err := s.db.QueryRowContext(ctx, `
		SELECT hour1_price, hour2_price, hour3_plus_price, max_additional_charge
		FROM branch_pricing WHERE branch_id = ?`, branchID).
		Scan(&h1, &h2, &h3, &maxAdd)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.SessionPricing{}, fmt.Errorf("%w: pricing for branch %s", billing.ErrNotFound, branchID)
	}
	if err != nil {
		return billing.SessionPricing{}, err
	}

	var pricing billing.SessionPricing
	if pricing.Hour1Price, err = decimal.NewFromString(h1); err != nil {
		return billing.SessionPricing{}, err
	}
	if pricing.Hour2Price, err = decimal.NewFromString(h2); err != nil {
		return billing.SessionPricing{}, err
	}
	if pricing.Hour3PlusPrice, err = decimal.NewFromString(h3); err != nil {
		return billing.SessionPricing{}, err
	}
	if pricing.MaxAdditionalCharge, err = decimal.NewFromString(maxAdd); err != nil {
		return billing.SessionPricing{}, err
	}
	return pricing, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *Store) SaveProduct(ctx context.Context, product *stock.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, branch_id, name, price, stock_quantity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			stock_quantity = excluded.stock_quantity`,
		product.ID, product.BranchID, product.Name,
		product.Price.String(), product.StockQuantity)
	return err
}

func (s *Store) GetProduct(ctx context.Context, id billing.ProductID) (*stock.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		product stock.Product
		price   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, name, price, stock_quantity FROM products WHERE id = ?`, id).
		Scan(&product.ID, &product.BranchID, &product.Name, &price, &product.StockQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", billing.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if product.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt price for product %s: %w", id, err)
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, branchID billing.BranchID) ([]stock.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, name, price, stock_quantity
		FROM products WHERE branch_id = ? ORDER BY name`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stock.Product
	for rows.Next() {
		var (
			product stock.Product
			price   string
		)
		if err := rows.Scan(&product.ID, &product.BranchID, &product.Name, &price, &product.StockQuantity); err != nil {
			return nil, err
		}
		if product.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("corrupt price for product %s: %w", product.ID, err)
		}
		out = append(out, product)
	}
	return out, rows.Err()
}

// AdjustStock applies a signed stock delta. The WHERE clause refuses to
// take stock below zero, so the database backs up the guard's critical
// section.
func (s *Store) AdjustStock(ctx context.Context, id billing.ProductID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + ?
		WHERE id = ? AND stock_quantity + ? >= 0`, delta, id, delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: product %s", billing.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: product %s", billing.ErrInsufficientStock, id)
	}
	return nil
}
