package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/tracking"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestProductCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	// Create
	product, err := s.CreateProduct("Website Revamp", []string{"Design", "Build", "QA"})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if product.ID == "" {
		t.Error("Product ID should not be empty")
	}
	if len(product.ModuleDefinitions) != 3 {
		t.Fatalf("Expected 3 module definitions, got %d", len(product.ModuleDefinitions))
	}

	// Get
	got, err := s.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.Name != "Website Revamp" {
		t.Errorf("Expected name 'Website Revamp', got %s", got.Name)
	}
	if got.ModuleDefinitions[1].Name != "Build" {
		t.Errorf("Expected second definition 'Build', got %s", got.ModuleDefinitions[1].Name)
	}

	// Get missing
	missing, err := s.GetProduct("nope")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing product")
	}
}

func TestListProducts_CatalogOrder(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	for _, name := range []string{"Website Revamp", "SEO Audit", "Cloud Migration"} {
		if _, err := s.CreateProduct(name, nil); err != nil {
			t.Fatalf("CreateProduct failed: %v", err)
		}
	}

	products, err := s.ListProducts()
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("Expected 3 products, got %d", len(products))
	}
	// Catalog order is insertion order; the matcher depends on it.
	for i, want := range []string{"Website Revamp", "SEO Audit", "Cloud Migration"} {
		if products[i].Name != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, products[i].Name)
		}
	}
}

func TestDealCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	deal, err := s.CreateDeal("Acme — Website Revamp Q3", "", decimal.NewFromInt(12500))
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}
	if deal.Stage != models.StageOpen {
		t.Errorf("Expected stage open, got %s", deal.Stage)
	}

	got, err := s.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if got.Title != "Acme — Website Revamp Q3" {
		t.Errorf("Unexpected title %q", got.Title)
	}
	if !got.Value.Equal(decimal.NewFromInt(12500)) {
		t.Errorf("Expected value 12500, got %s", got.Value)
	}
	if len(got.Modules) != 0 {
		t.Errorf("Expected no modules, got %d", len(got.Modules))
	}

	deals, err := s.ListDeals("")
	if err != nil {
		t.Fatalf("ListDeals failed: %v", err)
	}
	if len(deals) != 1 {
		t.Errorf("Expected 1 deal, got %d", len(deals))
	}

	deals, err = s.ListDeals("won")
	if err != nil {
		t.Fatalf("ListDeals with filter failed: %v", err)
	}
	if len(deals) != 0 {
		t.Errorf("Expected 0 won deals, got %d", len(deals))
	}
}

func TestCreateDeal_SeedsModulesFromProduct(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	product, err := s.CreateProduct("Website Revamp", []string{"Design", "Build", "QA"})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	deal, err := s.CreateDeal("Acme — Website Revamp", product.ID, decimal.Zero)
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	got, err := s.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if len(got.Modules) != 3 {
		t.Fatalf("Expected 3 seeded modules, got %d", len(got.Modules))
	}
	for i, want := range []string{"Design", "Build", "QA"} {
		m := got.Modules[i]
		if m.Name != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, m.Name)
		}
		if m.InternalStatus != models.StatusPending || m.ClientStatus != models.StatusPending {
			t.Errorf("Seeded module %s should be pending/pending", m.Name)
		}
	}
}

func TestCreateDeal_UnknownProduct(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.CreateDeal("Acme", "missing-product", decimal.Zero)
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestUpdateDealStage(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	deal, err := s.CreateDeal("Acme", "", decimal.Zero)
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	updated, err := s.UpdateDealStage(ctx, deal.ID, models.StageWon)
	if err != nil {
		t.Fatalf("UpdateDealStage failed: %v", err)
	}
	if updated.Stage != models.StageWon {
		t.Errorf("Expected stage won, got %s", updated.Stage)
	}

	if _, err := s.UpdateDealStage(ctx, "missing", models.StageWon); !errors.Is(err, ErrDealNotFound) {
		t.Errorf("Expected ErrDealNotFound, got %v", err)
	}
}

func TestReplaceModules_FullReplacement(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	product, err := s.CreateProduct("Website Revamp", []string{"Design", "Build", "QA"})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	deal, err := s.CreateDeal("Acme — Website Revamp", product.ID, decimal.Zero)
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	// Replace the three seeded rows with a single-entry payload; nothing
	// from the prior list may survive.
	payload := []models.ModuleInstance{
		{Name: "Design", InternalStatus: models.StatusCompleted, ClientStatus: models.StatusPending},
	}
	updated, err := s.ReplaceModules(ctx, deal.ID, payload)
	if err != nil {
		t.Fatalf("ReplaceModules failed: %v", err)
	}
	if len(updated.Modules) != 1 {
		t.Fatalf("Expected 1 module after replacement, got %d", len(updated.Modules))
	}
	if updated.Modules[0].Name != "Design" {
		t.Errorf("Expected Design, got %s", updated.Modules[0].Name)
	}
	if updated.Modules[0].InternalStatus != models.StatusCompleted {
		t.Errorf("Expected internal completed, got %s", updated.Modules[0].InternalStatus)
	}

	// Re-read to confirm the replacement was persisted, not just echoed.
	got, err := s.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if len(got.Modules) != 1 {
		t.Errorf("Expected 1 persisted module, got %d", len(got.Modules))
	}
}

func TestReplaceModules_RejectsIllegalList(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	deal, err := s.CreateDeal("Acme", "", decimal.Zero)
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	// Client ahead of internal must be refused at the write boundary.
	_, err = s.ReplaceModules(ctx, deal.ID, []models.ModuleInstance{
		{Name: "Design", InternalStatus: models.StatusPending, ClientStatus: models.StatusCompleted},
	})
	if !errors.Is(err, tracking.ErrStatusOrder) {
		t.Errorf("Expected ErrStatusOrder, got %v", err)
	}

	// Duplicate names under case folding are refused.
	_, err = s.ReplaceModules(ctx, deal.ID, []models.ModuleInstance{
		{Name: "Design", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
		{Name: "design", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
	})
	if !errors.Is(err, tracking.ErrDuplicateModule) {
		t.Errorf("Expected ErrDuplicateModule, got %v", err)
	}

	// No rows may have been written by the failed calls.
	got, err := s.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if len(got.Modules) != 0 {
		t.Errorf("Expected 0 modules after rejected writes, got %d", len(got.Modules))
	}
}

func TestReplaceModules_UnknownDeal(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.ReplaceModules(context.Background(), "missing", nil)
	if !errors.Is(err, ErrDealNotFound) {
		t.Errorf("Expected ErrDealNotFound, got %v", err)
	}
}

func TestDecisionRecords(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	rec, err := s.WriteRecord("modules.commit", "abc123", "success", "deal-1", "2 modules")
	if err != nil {
		t.Fatalf("WriteRecord failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Record ID should not be empty")
	}

	records, err := s.ListRecords("deal-1")
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Action != "modules.commit" {
		t.Errorf("Unexpected action %q", records[0].Action)
	}
}
