package memutils

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidRequest is returned, usually wrapped, when a request is rejected before it can touch any
	// partition state: non-positive sizes or owners, out-of-range indices, malformed events.
	ErrInvalidRequest error = errors.New("invalid request")
	// ErrAllocationFailed is matched by errors indicating that no free block was large enough to satisfy
	// an allocation request
	ErrAllocationFailed error = errors.New("allocation failed")
	// ErrOwnerNotFound is matched by errors indicating that a deallocation named an owner with no live
	// allocation
	ErrOwnerNotFound error = errors.New("owner not found")
)
