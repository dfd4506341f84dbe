package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrDealNotFound      = errors.New("deal not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrNoProductSelected = errors.New("no product selected for deal")
	ErrAccessDenied      = errors.New("access denied for this field")
	ErrUnknownRole       = errors.New("role has no write access")
	ErrInvalidStage      = errors.New("unknown deal stage")
)
