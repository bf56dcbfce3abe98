package sentinel

import "errors"

// Sentinel errors for storage facts. Gateways return these (optionally wrapped)
// so services can translate them into domain errors:
// - ErrNotFound: row does not exist
// - ErrAlreadyUsed: a unique key is already taken
// - ErrReferenced: a foreign key points at a missing row, or a row is still referenced
// - ErrConflict: concurrent modification lost the race
// - ErrUnavailable: backing store temporarily unavailable, safe to retry
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrReferenced  = errors.New("referential violation")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
