package governor

import "errors"

// Sentinel errors returned by Governor operations. Callers should test with
// errors.Is; wrapped messages carry the operation-specific detail.
var (
	// ErrInvalidRequest means a malformed argument: bad index, nil code,
	// unparseable glob, invalid capability name.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrCapacityExceeded means a bounded store is full and the entry was
	// not admitted.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrNotFound means the referenced entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the operation is not permitted for the entry, such
	// as rolling back an entry already rolled back.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable means the governor is shut down or not initialized.
	ErrUnavailable = errors.New("governor unavailable")
)
