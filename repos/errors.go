package repos

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the viewer and the content author are
	// separated by a block edge, or the viewer does not own the record.
	ErrForbidden = errors.New("access forbidden")
	// ErrDuplicate is returned when a uniqueness constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrEmptyFilter is returned when a query is issued with no conditions.
	ErrEmptyFilter = errors.New("at least one filter condition is required")
)
