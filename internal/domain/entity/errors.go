package entity

import "errors"

// Sentinel errors shared across use cases.
var (
	// ErrNoNews signals that a provider has zero unseen candidates right now.
	// It is a first-class outcome, not a failure: callers skip the provider
	// for this cycle and try again on the next one.
	ErrNoNews = errors.New("no unseen news")

	// ErrUnknownCategory indicates a user-requested category that the
	// provider does not serve. It is reported back to the requester as a
	// descriptive message, never treated as a process error.
	ErrUnknownCategory = errors.New("unknown news category")
)
