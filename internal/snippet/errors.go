package snippet

import "errors"

var (
	// ErrInvalidInput is returned by create when the request is missing or
	// violates a record invariant.
	ErrInvalidInput = errors.New("invalid snippet input")
	// ErrConflict is returned by a store when an identifier is already taken.
	ErrConflict = errors.New("snippet id already exists")
	// ErrStorageUnavailable wraps any failure of the underlying medium.
	ErrStorageUnavailable = errors.New("snippet storage unavailable")
	// ErrUnsupportedQuery is returned when a store cannot evaluate a scan.
	ErrUnsupportedQuery = errors.New("unsupported snippet query")
)
