package meeting

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("meeting not found")

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreWriteError reports that a record could not be persisted.
// Nothing from the failed write is visible to readers.
type StoreWriteError struct {
	Filename string
	Err      error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %q: %v", e.Filename, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
