package pathtree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath indicates an empty or syntactically invalid path where a valid one is required.
	ErrInvalidPath = errors.New("invalid path")

	// ErrSourceNotFound indicates that the source of a copy, rename or move does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrDestinationExists indicates that an operation refused to overwrite its destination.
	ErrDestinationExists = errors.New("destination exists")

	// ErrNotADirectory indicates that a directory was required.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory indicates that a non-directory was required.
	ErrIsADirectory = errors.New("is a directory")

	// ErrNotFound indicates that the target of an operation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadPattern indicates a malformed glob pattern.
	ErrBadPattern = errors.New("bad pattern")

	// ErrCrossDevice is reported by Filesystem.Rename when source and destination
	// live on different filesystems.
	ErrCrossDevice = errors.New("cross-device rename")
)

// TreeError reports the failure of a recursive operation. Entries processed
// before the failure are left in place: Done counts them.
type TreeError struct {
	Op   string // "copy" or "move"
	Path Path   // entry being processed when the failure happened
	Done int    // entries completed before the failure
	Err  error
}

func (e *TreeError) Error() string {
	return fmt.Sprintf("%s %s (after %d entries): %v", e.Op, e.Path, e.Done, e.Err)
}

func (e *TreeError) Unwrap() error { return e.Err }

func invalidPath(p Path, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidPath, p.text, reason)
}
