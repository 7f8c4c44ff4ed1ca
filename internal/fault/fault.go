// Package fault defines the sentinel errors shared across the pipeline.
// Gate failures are not errors; they are returned as values by the
// narrative package.
package fault

import "errors"

var (
	// ErrNotFound indicates a cluster, story, activity, or derivation
	// that does not exist or does not belong to the caller.
	ErrNotFound = errors.New("not found")

	// ErrNoActivities indicates a cluster or request with zero member
	// activities. No generation tier can run against an empty cluster.
	ErrNoActivities = errors.New("no activities")

	// ErrServiceUnavailable indicates the language-model service could
	// not be reached or returned an unusable response.
	ErrServiceUnavailable = errors.New("language model service unavailable")

	// ErrPaymentRequired indicates an insufficient credit balance.
	ErrPaymentRequired = errors.New("insufficient credits")

	// ErrInvalidInput indicates malformed parameters: cluster-size bounds,
	// packet id counts, empty id lists.
	ErrInvalidInput = errors.New("invalid input")
)
