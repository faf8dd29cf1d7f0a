package documents

import "errors"

var (
	// ErrNotFound is returned when a journal entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownOrphan is returned when Repair names a file the journal never saw.
	ErrUnknownOrphan = errors.New("unknown orphan")
)
