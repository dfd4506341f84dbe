package tracking

import (
	"fmt"

	"github.com/dealsuite/modtrack/internal/models"
)

// Each status field is a three-state machine with direct assignment: any
// of pending, in_progress, completed may be chosen from any current value,
// backward moves included. Operators routinely revert a module to pending
// to reopen it, so there is no forward-only rule.
//
// The one cross-field invariant is publication ordering: client status may
// be completed only while internal status is completed. The access policy
// refuses such edits before they get here; Apply re-checks anyway so a
// caller that bypasses the policy cannot persist an illegal pair.

// Apply sets one status field of a module instance and returns the updated
// instance. The value must be a known status and the result must respect
// publication ordering.
func Apply(inst models.ModuleInstance, field models.StatusField, value models.ModuleStatus) (models.ModuleInstance, error) {
	if !value.Valid() {
		return inst, fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}

	next := inst
	switch field {
	case models.FieldInternal:
		next.InternalStatus = value
	case models.FieldClient:
		next.ClientStatus = value
	default:
		return inst, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if next.ClientStatus == models.StatusCompleted && next.InternalStatus != models.StatusCompleted {
		return inst, ErrStatusOrder
	}
	return next, nil
}

// CheckModules validates a full module list before it is persisted:
// known statuses, publication ordering per module, and unique names under
// trimmed case-folded comparison.
func CheckModules(modules []models.ModuleInstance) error {
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		key := models.CanonicalName(m.Name)
		if key == "" {
			return fmt.Errorf("%w: empty module name", ErrInvalidModule)
		}
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateModule, m.Name)
		}
		seen[key] = true

		if !m.InternalStatus.Valid() {
			return fmt.Errorf("%w: internal status %q on %q", ErrUnknownStatus, m.InternalStatus, m.Name)
		}
		if !m.ClientStatus.Valid() {
			return fmt.Errorf("%w: client status %q on %q", ErrUnknownStatus, m.ClientStatus, m.Name)
		}
		if m.ClientStatus == models.StatusCompleted && m.InternalStatus != models.StatusCompleted {
			return fmt.Errorf("%w: module %q", ErrStatusOrder, m.Name)
		}
	}
	return nil
}
