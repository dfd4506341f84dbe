package tracking

import (
	"context"
	"fmt"

	"github.com/dealsuite/modtrack/internal/models"
)

// ModuleReplacer is the slice of the deal store a session needs to commit:
// wholesale replacement of one deal's module list. The payload carries
// only name and statuses; the store treats it as authoritative.
type ModuleReplacer interface {
	ReplaceModules(ctx context.Context, dealID string, modules []models.ModuleInstance) (*models.Deal, error)
}

// Session is an in-memory, explicitly-committed buffer of proposed module
// edits for one open view of one deal. It is a value: SetField returns a
// new session rather than mutating in place, so a failed commit, a diff,
// or an undo always has the prior value to fall back on.
//
// Discarding a session before commit leaves the store untouched.
type Session struct {
	dealID  string
	role    models.Role
	modules []models.ModuleInstance
	dirty   bool
}

// Open snapshots a resolved module list into an editable session for the
// given role.
func Open(deal *models.Deal, resolved []models.ModuleInstance, role models.Role) Session {
	return Session{
		dealID:  deal.ID,
		role:    role,
		modules: cloneModules(resolved),
	}
}

// DealID returns the deal this session edits.
func (s Session) DealID() string { return s.dealID }

// Role returns the acting role the session was opened with.
func (s Session) Role() models.Role { return s.role }

// Dirty reports whether the session holds uncommitted edits. Commit must
// not be offered while Dirty is false.
func (s Session) Dirty() bool { return s.dirty }

// Modules returns a copy of the buffered module list.
func (s Session) Modules() []models.ModuleInstance {
	return cloneModules(s.modules)
}

// SetField proposes a status change for the named module. The lookup is a
// case-sensitive exact match on the resolved list; cross-entity matching
// is case-insensitive, but within one open session names come verbatim
// from the resolved snapshot.
//
// Refused edits are no-ops: an unknown module, a mutation the access
// policy denies, or a value the status machine rejects all return the
// session unchanged, dirty flag included. The UI is expected not to offer
// them in the first place; this is the backstop.
func (s Session) SetField(moduleName string, field models.StatusField, value models.ModuleStatus) Session {
	idx := -1
	for i := range s.modules {
		if s.modules[i].Name == moduleName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}

	current := s.modules[idx]
	if !CanMutate(s.role, field, current) {
		return s
	}
	next, err := Apply(current, field, value)
	if err != nil {
		return s
	}
	if next == current {
		return s
	}

	out := s
	out.modules = cloneModules(s.modules)
	out.modules[idx] = next
	out.dirty = true
	return out
}

// Commit writes the entire buffered list to the store as a full
// replacement of the deal's modules. All-or-nothing: there is no
// per-module commit.
//
// On success the returned session is clean and re-seeded from the stored
// deal, picking up any server-side derived fields. On failure the
// returned session is the receiver unchanged, still dirty with all edits
// intact, so the caller can retry or discard.
func (s Session) Commit(ctx context.Context, store ModuleReplacer) (Session, *models.Deal, error) {
	if !s.dirty {
		return s, nil, ErrCleanSession
	}

	// Strip anything beyond name and statuses: module identity is
	// name-based, and the store must never see a stale instance ID.
	payload := make([]models.ModuleInstance, len(s.modules))
	for i, m := range s.modules {
		payload[i] = models.ModuleInstance{
			Name:           m.Name,
			InternalStatus: m.InternalStatus,
			ClientStatus:   m.ClientStatus,
		}
	}

	deal, err := store.ReplaceModules(ctx, s.dealID, payload)
	if err != nil {
		return s, nil, fmt.Errorf("commit modules: %w", err)
	}

	out := s
	out.modules = cloneModules(deal.Modules)
	out.dirty = false
	return out, deal, nil
}
