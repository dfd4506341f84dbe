package tracking

import (
	"github.com/dealsuite/modtrack/internal/models"
)

// CanMutate is the single access rule for module status edits, called by
// both the UI affordance layer and the write boundary so a UI bug cannot
// bypass it:
//
//   - internal status is writable by employees; admins see it read-only;
//   - client status is writable only by an admin, and only on a module
//     whose internal status is already completed ("finish internal work
//     first");
//   - every other role is read-only on both fields.
func CanMutate(role models.Role, field models.StatusField, current models.ModuleInstance) bool {
	switch field {
	case models.FieldInternal:
		return role == models.RoleEmployee
	case models.FieldClient:
		return role == models.RoleAdmin && current.InternalStatus == models.StatusCompleted
	}
	return false
}

// CanPublish reports whether the acting role may flip a module's client
// status at all. It is the affordance check behind the publish and
// unpublish actions (client status to completed, or back to pending).
func CanPublish(role models.Role, current models.ModuleInstance) bool {
	return CanMutate(role, models.FieldClient, current)
}
