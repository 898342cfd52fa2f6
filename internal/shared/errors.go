package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Request validation errors
	ErrInvalidRequest  = fmt.Errorf("invalid request")
	ErrMissingArgument = fmt.Errorf("missing required argument")

	// Authorization errors
	ErrForbidden          = fmt.Errorf("access denied")
	ErrEntitlementExpired = fmt.Errorf("entitlement expired")
	ErrBadSignature       = fmt.Errorf("gateway signature mismatch")

	// Lookup errors
	ErrPackNotFound  = fmt.Errorf("pack not found")
	ErrTrackNotFound = fmt.Errorf("track not found")
	ErrFileNotFound  = fmt.Errorf("stored file not found")

	// Backing store errors
	ErrUpstream = fmt.Errorf("backend store failure")
)
