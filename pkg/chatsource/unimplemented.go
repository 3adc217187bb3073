package chatsource

import (
	"context"
	"errors"
)

// ErrSourceNotConfigured is returned by Unimplemented's iterator on first
// Next call. The chat wire protocol is an external collaborator (spec
// §6.2: undocumented, out of scope for this repository) — production
// deployments inject their own chatsource.NewFunc wired to whatever
// client speaks that protocol; Unimplemented exists so the worker binary
// still links and fails loudly rather than silently doing nothing.
var ErrSourceNotConfigured = errors.New("chatsource: no iterator constructor configured")

type unimplementedIterator struct{}

func (unimplementedIterator) Next(ctx context.Context) (*RawAction, error) {
	return nil, ErrSourceNotConfigured
}

func (unimplementedIterator) Close() error { return nil }

// Unimplemented is a NewFunc placeholder that always fails; it lets the
// Supervisor/Ingestor wiring be exercised end-to-end without a real chat
// source present.
func Unimplemented(ctx context.Context, videoID string) (Iterator, error) {
	return unimplementedIterator{}, nil
}
