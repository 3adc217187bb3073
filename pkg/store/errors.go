package store

import "errors"

// Sentinel errors returned by Store methods. Callers match with
// errors.Is; call sites wrap these with context via fmt.Errorf("%w").
var (
	// ErrNotFound is returned when a lookup by key finds no row.
	ErrNotFound = errors.New("store: not found")
	// ErrStreamEnded is not returned by any Store method: UnprocessedMessages
	// signals the end of the backlog with an empty slice.
	ErrStreamEnded = errors.New("store: no more unprocessed messages")
)
