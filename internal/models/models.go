// Package models defines the core domain types for Modtrack.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ModuleStatus represents the progress of one module status field.
type ModuleStatus string

const (
	StatusPending    ModuleStatus = "pending"
	StatusInProgress ModuleStatus = "in_progress"
	StatusCompleted  ModuleStatus = "completed"
)

// Valid reports whether s is one of the three known statuses.
func (s ModuleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// StatusField names one of the two status fields of a module instance.
type StatusField string

const (
	FieldInternal StatusField = "internal"
	FieldClient   StatusField = "client"
)

// Role is the acting user's role, supplied by the auth collaborator.
// Anything other than Admin or Employee is read-only.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// DealStage represents the coarse lifecycle of a deal.
type DealStage string

const (
	StageOpen DealStage = "open"
	StageWon  DealStage = "won"
	StageLost DealStage = "lost"
)

// ModuleDefinition is one named unit of work in a product template.
type ModuleDefinition struct {
	Name string `json:"name"`
}

// Product is a catalog template: an ordered set of module names an
// engagement of that type should contain. Read-only from this engine.
type Product struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	ModuleDefinitions []ModuleDefinition `json:"module_definitions"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ModuleInstance is one unit of deliverable work on a deal, tracked with
// two status fields. Identity across saves is the trimmed, case-folded
// name, never a store-assigned ID.
type ModuleInstance struct {
	Name           string       `json:"name"`
	InternalStatus ModuleStatus `json:"internal_status"`
	ClientStatus   ModuleStatus `json:"client_status"`
}

// Deal is a sold or in-progress engagement. ProductID may be stale or
// absent; the associated product is resolved dynamically from the title.
type Deal struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	ProductID string           `json:"product_id,omitempty"`
	Stage     DealStage        `json:"stage"`
	Value     decimal.Decimal  `json:"value"`
	Modules   []ModuleInstance `json:"modules,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// DecisionRecord is an audit entry for a state-mutating action.
type DecisionRecord struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	DealID     string    `json:"deal_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// CanonicalName is the identity key used for cross-entity module matching:
// trimmed and case-folded.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// InternallyComplete reports whether every module of the deal has reached
// internal completion. False for a deal with no modules.
func (d *Deal) InternallyComplete() bool {
	if len(d.Modules) == 0 {
		return false
	}
	for _, m := range d.Modules {
		if m.InternalStatus != StatusCompleted {
			return false
		}
	}
	return true
}
