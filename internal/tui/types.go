package tui

import "github.com/dealsuite/modtrack/internal/models"

// DealView is the deal summary shown in the editor header.
type DealView struct {
	ID    string
	Title string
	Stage string
}

// ResolvedView is the editor's starting point: the reconciled module list
// and the product it was resolved against.
type ResolvedView struct {
	Modules      []models.ModuleInstance
	ProductName  string
	NeedsProduct bool
}
