// Package tracking implements the deal module tracking and publication
// engine: product matching, module reconciliation, the per-field status
// machine, role-based access policy, and the edit session that commits
// module changes back to the store.
package tracking

import (
	"strings"

	"github.com/dealsuite/modtrack/internal/models"
)

// Match resolves which product a deal title corresponds to: the first
// product in catalog order whose name appears, case-insensitively, as a
// substring of the title. Returns nil when nothing matches.
//
// The containment test is deliberately loose so that a deal titled
// "Acme — Cloud Migration Package Q3" still resolves to the
// "Cloud Migration Package" product. Ties are broken by catalog order
// only; there is no best-match scoring.
func Match(dealTitle string, catalog []models.Product) *models.Product {
	title := strings.ToLower(dealTitle)
	for i := range catalog {
		name := strings.ToLower(strings.TrimSpace(catalog[i].Name))
		if name == "" {
			continue
		}
		if strings.Contains(title, name) {
			return &catalog[i]
		}
	}
	return nil
}

// ResolveProduct finds the product associated with a deal. A stored
// product reference wins when it still exists in the catalog; title
// matching is the fallback, which preserves behavior for deals that
// never had a product picked explicitly.
func ResolveProduct(deal *models.Deal, catalog []models.Product) *models.Product {
	if deal.ProductID != "" {
		for i := range catalog {
			if catalog[i].ID == deal.ProductID {
				return &catalog[i]
			}
		}
	}
	return Match(deal.Title, catalog)
}
