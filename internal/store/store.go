// Package store provides SQLite-backed persistence for Modtrack: the
// product catalog, deals, and their module lists.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/tracking"
)

// Sentinel errors for store operations.
var (
	ErrDealNotFound    = fmt.Errorf("deal not found")
	ErrProductNotFound = fmt.Errorf("product not found")
)

// Store provides access to the Modtrack SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS module_definitions (
		product_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (product_id, position),
		FOREIGN KEY (product_id) REFERENCES products(id)
	);

	CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		product_id TEXT,
		stage TEXT NOT NULL DEFAULT 'open',
		value TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deal_modules (
		id TEXT PRIMARY KEY,
		deal_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		internal_status TEXT NOT NULL DEFAULT 'pending',
		client_status TEXT NOT NULL DEFAULT 'pending',
		FOREIGN KEY (deal_id) REFERENCES deals(id)
	);

	CREATE TABLE IF NOT EXISTS decision_records (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		deal_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage);
	CREATE INDEX IF NOT EXISTS idx_deal_modules_deal_id ON deal_modules(deal_id);
	CREATE INDEX IF NOT EXISTS idx_decision_records_deal_id ON decision_records(deal_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Product Operations ---

// CreateProduct inserts a new product with its ordered module definitions.
// Catalog order is insertion order.
func (s *Store) CreateProduct(name string, moduleNames []string) (*models.Product, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	product := &models.Product{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var position int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position)+1, 0) FROM products`).Scan(&position); err != nil {
		return nil, fmt.Errorf("next catalog position: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO products (id, name, position, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		product.ID, product.Name, position, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	for i, modName := range moduleNames {
		_, err = tx.Exec(
			`INSERT INTO module_definitions (product_id, position, name) VALUES (?, ?, ?)`,
			product.ID, i, modName,
		)
		if err != nil {
			return nil, fmt.Errorf("insert module definition: %w", err)
		}
		product.ModuleDefinitions = append(product.ModuleDefinitions, models.ModuleDefinition{Name: modName})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return product, nil
}

// GetProduct retrieves a product by ID, or nil if absent.
func (s *Store) GetProduct(id string) (*models.Product, error) {
	product := &models.Product{}
	err := s.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM products WHERE id = ?`, id,
	).Scan(&product.ID, &product.Name, &product.CreatedAt, &product.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	if product.ModuleDefinitions, err = s.loadDefinitions(product.ID); err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts returns the full catalog in catalog order.
func (s *Store) ListProducts() ([]models.Product, error) {
	rows, err := s.db.Query(
		`SELECT id, name, created_at, updated_at FROM products ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].ModuleDefinitions, err = s.loadDefinitions(products[i].ID); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (s *Store) loadDefinitions(productID string) ([]models.ModuleDefinition, error) {
	rows, err := s.db.Query(
		`SELECT name FROM module_definitions WHERE product_id = ? ORDER BY position ASC`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("query module definitions: %w", err)
	}
	defer rows.Close()

	var defs []models.ModuleDefinition
	for rows.Next() {
		var d models.ModuleDefinition
		if err := rows.Scan(&d.Name); err != nil {
			return nil, fmt.Errorf("scan module definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// --- Deal Operations ---

// CreateDeal inserts a new deal. When productID is set the deal is seeded
// with fresh module instances generated from that product's definitions.
func (s *Store) CreateDeal(title, productID string, value decimal.Decimal) (*models.Deal, error) {
	now := time.Now().UTC()
	deal := &models.Deal{
		ID:        uuid.New().String(),
		Title:     title,
		ProductID: productID,
		Stage:     models.StageOpen,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if productID != "" {
		product, err := s.GetProduct(productID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		deal.Modules = tracking.Generate(product)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO deals (id, title, product_id, stage, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		deal.ID, deal.Title, nullable(deal.ProductID), deal.Stage, deal.Value.String(), deal.CreatedAt, deal.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert deal: %w", err)
	}

	if err := insertModulesTx(tx, deal.ID, deal.Modules); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return deal, nil
}

// GetDeal retrieves a deal and its module list, or nil if absent.
func (s *Store) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	deal, err := scanDeal(s.db.QueryRowContext(ctx,
		`SELECT id, title, product_id, stage, value, created_at, updated_at FROM deals WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query deal: %w", err)
	}

	deal.Modules, err = s.loadModules(ctx, deal.ID)
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// ListDeals returns all deals, optionally filtered by stage. Module lists
// are not loaded; use GetDeal for the full picture.
func (s *Store) ListDeals(stage string) ([]models.Deal, error) {
	query := `SELECT id, title, product_id, stage, value, created_at, updated_at FROM deals`
	var args []interface{}

	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

// UpdateDealStage flips a deal's stage and returns the updated deal.
func (s *Store) UpdateDealStage(ctx context.Context, id string, stage models.DealStage) (*models.Deal, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE deals SET stage = ?, updated_at = ? WHERE id = ?`,
		stage, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update deal stage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrDealNotFound
	}
	return s.GetDeal(ctx, id)
}

// ReplaceModules replaces a deal's module list wholesale in a single
// transaction. The payload is authoritative: every previously stored row
// is deleted and the new list inserted in order, each row under a fresh
// store-assigned ID. The incoming instances must carry name and statuses
// only; the list is validated before any row is touched.
func (s *Store) ReplaceModules(ctx context.Context, dealID string, modules []models.ModuleInstance) (*models.Deal, error) {
	// Defensive re-check at the write boundary: an illegal list must not
	// reach disk even if the caller skipped the policy layer.
	if err := tracking.CheckModules(modules); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM deals WHERE id = ?`, dealID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query deal: %w", err)
	}
	if exists == 0 {
		return nil, ErrDealNotFound
	}

	if _, err := tx.Exec(`DELETE FROM deal_modules WHERE deal_id = ?`, dealID); err != nil {
		return nil, fmt.Errorf("clear deal modules: %w", err)
	}
	if err := insertModulesTx(tx, dealID, modules); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`UPDATE deals SET updated_at = ? WHERE id = ?`, time.Now().UTC(), dealID); err != nil {
		return nil, fmt.Errorf("touch deal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return s.GetDeal(ctx, dealID)
}

func insertModulesTx(tx *sql.Tx, dealID string, modules []models.ModuleInstance) error {
	for i, m := range modules {
		_, err := tx.Exec(
			`INSERT INTO deal_modules (id, deal_id, position, name, internal_status, client_status) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), dealID, i, m.Name, m.InternalStatus, m.ClientStatus,
		)
		if err != nil {
			return fmt.Errorf("insert deal module: %w", err)
		}
	}
	return nil
}

func (s *Store) loadModules(ctx context.Context, dealID string) ([]models.ModuleInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, internal_status, client_status FROM deal_modules WHERE deal_id = ? ORDER BY position ASC`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("query deal modules: %w", err)
	}
	defer rows.Close()

	var modules []models.ModuleInstance
	for rows.Next() {
		var m models.ModuleInstance
		if err := rows.Scan(&m.Name, &m.InternalStatus, &m.ClientStatus); err != nil {
			return nil, fmt.Errorf("scan deal module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	deal := &models.Deal{}
	var productID sql.NullString
	var value string

	err := row.Scan(&deal.ID, &deal.Title, &productID, &deal.Stage, &value, &deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if productID.Valid {
		deal.ProductID = productID.String
	}
	deal.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse deal value: %w", err)
	}
	return deal, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// --- Decision Record Operations ---

// WriteRecord persists a decision record for audit.
func (s *Store) WriteRecord(action, inputsHash, outcome, dealID, details string) (*models.DecisionRecord, error) {
	rec := &models.DecisionRecord{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		DealID:     dealID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO decision_records (id, action, inputs_hash, outcome, deal_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Action, rec.InputsHash, rec.Outcome, nullable(rec.DealID), rec.Details, rec.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert decision record: %w", err)
	}
	return rec, nil
}

// ListRecords returns decision records for a deal, newest first.
func (s *Store) ListRecords(dealID string) ([]models.DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, outcome, deal_id, details, timestamp FROM decision_records WHERE deal_id = ? ORDER BY timestamp DESC`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("query decision records: %w", err)
	}
	defer rows.Close()

	var records []models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var recDealID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.InputsHash, &rec.Outcome, &recDealID, &rec.Details, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision record: %w", err)
		}
		if recDealID.Valid {
			rec.DealID = recDealID.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
