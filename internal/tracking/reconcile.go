package tracking

import (
	"github.com/dealsuite/modtrack/internal/models"
)

// Reconcile decides whether a deal's persisted module list is trustworthy
// or must be regenerated from the matched product's definitions.
//
//	matched   deal.Modules   action
//	-------   ------------   ------
//	nil       non-empty      keep deal.Modules as-is
//	nil       empty          empty list; caller prompts for a product
//	present   empty          generate fresh instances, all pending
//	present   valid          keep deal.Modules as-is
//	present   invalid        regenerate, discarding deal.Modules
//
// A persisted list is valid when at least one of its names matches one of
// the product's definition names under trimmed, case-folded comparison.
// One overlap is enough to trust the whole list: a weak heuristic, kept
// deliberately so minor catalog edits do not wipe genuine progress.
func Reconcile(deal *models.Deal, matched *models.Product) []models.ModuleInstance {
	persisted := deal.Modules

	if matched == nil {
		if len(persisted) == 0 {
			return nil
		}
		return cloneModules(persisted)
	}

	if len(persisted) == 0 || !listValid(persisted, matched) {
		return Generate(matched)
	}
	return cloneModules(persisted)
}

// Generate builds fresh module instances from a product's definitions,
// every status pending, preserving definition order. Duplicate definition
// names are collapsed to their first occurrence; the catalog does not
// enforce uniqueness, so the generator must.
func Generate(product *models.Product) []models.ModuleInstance {
	seen := make(map[string]bool, len(product.ModuleDefinitions))
	out := make([]models.ModuleInstance, 0, len(product.ModuleDefinitions))
	for _, def := range product.ModuleDefinitions {
		key := models.CanonicalName(def.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.ModuleInstance{
			Name:           def.Name,
			InternalStatus: models.StatusPending,
			ClientStatus:   models.StatusPending,
		})
	}
	return out
}

// listValid reports whether at least one persisted module name matches a
// product definition name under canonical comparison.
func listValid(persisted []models.ModuleInstance, product *models.Product) bool {
	defs := make(map[string]bool, len(product.ModuleDefinitions))
	for _, def := range product.ModuleDefinitions {
		defs[models.CanonicalName(def.Name)] = true
	}
	for _, m := range persisted {
		if defs[models.CanonicalName(m.Name)] {
			return true
		}
	}
	return false
}

func cloneModules(modules []models.ModuleInstance) []models.ModuleInstance {
	out := make([]models.ModuleInstance, len(modules))
	copy(out, modules)
	return out
}
