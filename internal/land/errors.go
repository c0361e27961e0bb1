package land

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a missing row for a lookup by key.
var ErrNotFound = errors.New("not found")

// FatalError aborts a whole job (storage unavailable, invalid job input).
// Every other per-item failure is caught at the item boundary and counted.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatalf wraps err as job-aborting.
func Fatalf(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}

// IsFatal reports whether err should escalate to job failure.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
