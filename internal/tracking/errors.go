package tracking

import "errors"

// Sentinel errors for the tracking engine.
var (
	ErrStatusOrder     = errors.New("client status cannot be ahead of internal status")
	ErrUnknownStatus   = errors.New("unknown module status")
	ErrUnknownField    = errors.New("unknown status field")
	ErrInvalidModule   = errors.New("invalid module")
	ErrDuplicateModule = errors.New("duplicate module name")
	ErrCleanSession    = errors.New("session has no pending edits")
)
