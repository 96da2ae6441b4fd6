package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Pool adapters and the resolver
// client return these (optionally wrapped) so the service can translate them
// into domain errors.
//
// - ErrUnavailable: no connection could be checked out of the pool
// - ErrInvalidResult: the contact resolver produced something that is not JSON
// - ErrNoResult: the resolver call completed without a result row
//
// For validation errors (missing identifiers, malformed bodies), use
// pkg/domain-errors directly.
var (
	ErrUnavailable   = errors.New("unavailable")
	ErrInvalidResult = errors.New("invalid resolver result")
	ErrNoResult      = errors.New("no resolver result")
)
