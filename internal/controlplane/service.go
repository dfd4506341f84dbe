// Package controlplane provides the HTTP API and service layer for
// Modtrack.
package controlplane

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dealsuite/modtrack/internal/audit"
	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/notify"
	"github.com/dealsuite/modtrack/internal/store"
	"github.com/dealsuite/modtrack/internal/tracking"
)

// Service provides the control plane business logic.
type Service struct {
	store      *store.Store
	audit      *audit.Writer
	dispatcher *notify.Dispatcher
	notifyTo   string
}

// NewService creates a new control plane service. The dispatcher may be
// nil, in which case no notifications are emitted.
func NewService(s *store.Store, aw *audit.Writer, d *notify.Dispatcher, notifyTo string) *Service {
	return &Service{
		store:      s,
		audit:      aw,
		dispatcher: d,
		notifyTo:   notifyTo,
	}
}

// --- Product Operations ---

// CreateProduct creates a catalog product with ordered module definitions.
func (s *Service) CreateProduct(name string, moduleNames []string) (*models.Product, error) {
	product, err := s.store.CreateProduct(name, moduleNames)
	if err != nil {
		return nil, err
	}
	s.audit.Record("product.create", map[string]interface{}{"name": name, "modules": moduleNames}, "success", "", "")
	return product, nil
}

// GetProduct retrieves a product by ID.
func (s *Service) GetProduct(id string) (*models.Product, error) {
	return s.store.GetProduct(id)
}

// ListProducts returns the catalog in catalog order.
func (s *Service) ListProducts() ([]models.Product, error) {
	return s.store.ListProducts()
}

// --- Deal Operations ---

// CreateDeal creates a deal, optionally seeded from an explicitly chosen
// product.
func (s *Service) CreateDeal(title, productID string, value decimal.Decimal) (*models.Deal, error) {
	deal, err := s.store.CreateDeal(title, productID, value)
	if err != nil {
		return nil, err
	}
	s.audit.Record("deal.create", map[string]string{"title": title, "product_id": productID}, "success", deal.ID, "")
	return deal, nil
}

// GetDeal retrieves a deal by ID.
func (s *Service) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	return s.store.GetDeal(ctx, id)
}

// ListDeals returns deals, optionally filtered by stage.
func (s *Service) ListDeals(stage string) ([]models.Deal, error) {
	return s.store.ListDeals(stage)
}

// SetDealStage flips a deal's stage and notifies on the change.
func (s *Service) SetDealStage(ctx context.Context, id string, stage models.DealStage) (*models.Deal, error) {
	switch stage {
	case models.StageOpen, models.StageWon, models.StageLost:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}

	before, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, ErrDealNotFound
	}

	deal, err := s.store.UpdateDealStage(ctx, id, stage)
	if err != nil {
		return nil, err
	}

	s.audit.Record("deal.stage", map[string]string{"deal_id": id, "stage": string(stage)}, "success", id, "")
	if before.Stage != stage {
		s.send(fmt.Sprintf("Deal %q is now %s", deal.Title, stage),
			fmt.Sprintf("The deal %q moved from %s to %s.", deal.Title, before.Stage, stage))
	}
	return deal, nil
}

// ResolvedModules is the editor's view of a deal: the reconciled module
// list plus the product it was resolved against. NeedsProduct is set when
// no product matched and no modules are stored; the caller should prompt
// for an explicit product selection rather than treat it as a failure.
type ResolvedModules struct {
	Modules      []models.ModuleInstance `json:"modules"`
	ProductID    string                  `json:"product_id,omitempty"`
	ProductName  string                  `json:"product_name,omitempty"`
	NeedsProduct bool                    `json:"needs_product"`
}

// ResolveModules produces the resolved module list for a deal: product
// matching against the catalog, then reconciliation of the persisted list
// against the matched product.
func (s *Service) ResolveModules(ctx context.Context, dealID string) (*ResolvedModules, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}

	catalog, err := s.store.ListProducts()
	if err != nil {
		return nil, err
	}

	matched := tracking.ResolveProduct(deal, catalog)
	resolved := tracking.Reconcile(deal, matched)

	out := &ResolvedModules{
		Modules:      resolved,
		NeedsProduct: matched == nil && len(resolved) == 0,
	}
	if matched != nil {
		out.ProductID = matched.ID
		out.ProductName = matched.Name
	}
	return out, nil
}

// CommitModules replaces a deal's module list wholesale on behalf of a
// role. The access policy is re-checked here against the currently
// resolved list, field by field, so a client that skipped its own checks
// cannot smuggle an edit through; the store re-checks the structural
// invariants once more below.
func (s *Service) CommitModules(ctx context.Context, dealID string, role models.Role, modules []models.ModuleInstance) (*models.Deal, error) {
	if err := tracking.CheckModules(modules); err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && role != models.RoleEmployee {
		return nil, ErrUnknownRole
	}

	resolved, err := s.ResolveModules(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if resolved.NeedsProduct {
		// There is nothing to track until a product is chosen.
		return nil, ErrNoProductSelected
	}

	current := make(map[string]models.ModuleInstance, len(resolved.Modules))
	for _, m := range resolved.Modules {
		current[models.CanonicalName(m.Name)] = m
	}

	for _, m := range modules {
		cur, known := current[models.CanonicalName(m.Name)]
		if !known {
			// A name the resolver does not know can only arrive as a
			// fresh, unstarted entry.
			if m.InternalStatus != models.StatusPending || m.ClientStatus != models.StatusPending {
				return nil, fmt.Errorf("%w: unknown module %q with progress", ErrAccessDenied, m.Name)
			}
			continue
		}
		if m.InternalStatus != cur.InternalStatus && !tracking.CanMutate(role, models.FieldInternal, cur) {
			return nil, fmt.Errorf("%w: internal status of %q", ErrAccessDenied, m.Name)
		}
		if m.ClientStatus != cur.ClientStatus && !tracking.CanMutate(role, models.FieldClient, cur) {
			return nil, fmt.Errorf("%w: client status of %q", ErrAccessDenied, m.Name)
		}
	}

	deal, err := s.store.ReplaceModules(ctx, dealID, modules)
	if err != nil {
		s.audit.Record("modules.commit", modules, "rejected", dealID, err.Error())
		return nil, err
	}

	s.audit.Record("modules.commit", modules, "success", dealID,
		fmt.Sprintf("%d module(s) by %s", len(modules), role))
	s.notifyCompletions(deal, current)
	return deal, nil
}

// notifyCompletions emits best-effort messages for modules that just
// reached internal completion, and one aggregate message when the whole
// deal became internally complete with this write.
func (s *Service) notifyCompletions(deal *models.Deal, before map[string]models.ModuleInstance) {
	wasComplete := len(before) > 0
	for _, m := range before {
		if m.InternalStatus != models.StatusCompleted {
			wasComplete = false
			break
		}
	}

	for _, m := range deal.Modules {
		if m.InternalStatus != models.StatusCompleted {
			continue
		}
		prev, known := before[models.CanonicalName(m.Name)]
		if known && prev.InternalStatus == models.StatusCompleted {
			continue
		}
		s.send(fmt.Sprintf("Module %q completed on %q", m.Name, deal.Title),
			fmt.Sprintf("Internal work on module %q of deal %q is complete.", m.Name, deal.Title))
	}

	if !wasComplete && deal.InternallyComplete() {
		s.send(fmt.Sprintf("Deal %q fully completed internally", deal.Title),
			fmt.Sprintf("All %d module(s) of deal %q have completed internal work.", len(deal.Modules), deal.Title))
	}
}

func (s *Service) send(subject, body string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Enqueue(notify.Message{To: s.notifyTo, Subject: subject, Body: body})
}

// ListRecords returns audit records for a deal.
func (s *Service) ListRecords(dealID string) ([]models.DecisionRecord, error) {
	return s.store.ListRecords(dealID)
}
