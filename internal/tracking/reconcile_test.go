package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsuite/modtrack/internal/models"
)

func websiteRevamp() *models.Product {
	return &models.Product{
		ID:   "prod-1",
		Name: "Website Revamp",
		ModuleDefinitions: []models.ModuleDefinition{
			{Name: "Design"},
			{Name: "Build"},
			{Name: "QA"},
		},
	}
}

func TestReconcile_NoProductKeepsPersisted(t *testing.T) {
	deal := &models.Deal{
		Modules: []models.ModuleInstance{
			{Name: "Custom Thing", InternalStatus: models.StatusInProgress, ClientStatus: models.StatusPending},
		},
	}

	got := Reconcile(deal, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Custom Thing", got[0].Name)
	assert.Equal(t, models.StatusInProgress, got[0].InternalStatus)
}

func TestReconcile_NoProductNoModules(t *testing.T) {
	got := Reconcile(&models.Deal{}, nil)
	assert.Empty(t, got)
}

func TestReconcile_GeneratesFreshFromProduct(t *testing.T) {
	// End-to-end scenario: empty deal, matched product.
	got := Reconcile(&models.Deal{Title: "Acme — Website Revamp Q3"}, websiteRevamp())

	require.Len(t, got, 3)
	for i, name := range []string{"Design", "Build", "QA"} {
		assert.Equal(t, name, got[i].Name)
		assert.Equal(t, models.StatusPending, got[i].InternalStatus)
		assert.Equal(t, models.StatusPending, got[i].ClientStatus)
	}
}

func TestReconcile_OneOverlapValidatesWholeList(t *testing.T) {
	// A single overlapping name is enough to trust the persisted list,
	// even though Build and QA are missing from it.
	deal := &models.Deal{
		Modules: []models.ModuleInstance{
			{Name: "Design", InternalStatus: models.StatusCompleted, ClientStatus: models.StatusPending},
		},
	}

	got := Reconcile(deal, websiteRevamp())
	require.Len(t, got, 1)
	assert.Equal(t, "Design", got[0].Name)
	assert.Equal(t, models.StatusCompleted, got[0].InternalStatus)
}

func TestReconcile_OverlapIsCaseAndSpaceInsensitive(t *testing.T) {
	deal := &models.Deal{
		Modules: []models.ModuleInstance{
			{Name: "  dEsIgN ", InternalStatus: models.StatusInProgress, ClientStatus: models.StatusPending},
		},
	}

	got := Reconcile(deal, websiteRevamp())
	require.Len(t, got, 1)
	assert.Equal(t, "  dEsIgN ", got[0].Name, "persisted entries are kept verbatim")
}

func TestReconcile_ZeroOverlapRegenerates(t *testing.T) {
	deal := &models.Deal{
		Modules: []models.ModuleInstance{
			{Name: "Discovery", InternalStatus: models.StatusCompleted, ClientStatus: models.StatusCompleted},
			{Name: "Handover", InternalStatus: models.StatusCompleted, ClientStatus: models.StatusCompleted},
		},
	}

	got := Reconcile(deal, websiteRevamp())
	require.Len(t, got, 3)
	for _, m := range got {
		assert.Equal(t, models.StatusPending, m.InternalStatus, "regeneration resets state")
		assert.Equal(t, models.StatusPending, m.ClientStatus, "regeneration resets state")
	}
}

func TestReconcile_PreservesPersistedOrder(t *testing.T) {
	deal := &models.Deal{
		Modules: []models.ModuleInstance{
			{Name: "QA", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
			{Name: "Design", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
		},
	}

	got := Reconcile(deal, websiteRevamp())
	require.Len(t, got, 2)
	assert.Equal(t, "QA", got[0].Name)
	assert.Equal(t, "Design", got[1].Name)
}

func TestReconcile_DoesNotAliasDealModules(t *testing.T) {
	deal := &models.Deal{
		Modules: []models.ModuleInstance{
			{Name: "Design", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
		},
	}

	got := Reconcile(deal, websiteRevamp())
	got[0].InternalStatus = models.StatusCompleted
	assert.Equal(t, models.StatusPending, deal.Modules[0].InternalStatus)
}

func TestGenerate_CollapsesDuplicateDefinitions(t *testing.T) {
	product := &models.Product{
		Name: "Sloppy Template",
		ModuleDefinitions: []models.ModuleDefinition{
			{Name: "Design"},
			{Name: " design "},
			{Name: "Build"},
			{Name: ""},
		},
	}

	got := Generate(product)
	require.Len(t, got, 2)
	assert.Equal(t, "Design", got[0].Name)
	assert.Equal(t, "Build", got[1].Name)
}
