package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrInvalidSetting  = errors.New("invalid event setting")
)
