package suggestions

import (
	"errors"
	"fmt"
)

// PersistenceError reports a failed store operation. Transient is set when the
// database was busy or locked and the same write may succeed later.
type PersistenceError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *PersistenceError) Error() string {
	kind := "persistence"
	if e.Transient {
		kind = "transient persistence"
	}
	return fmt.Sprintf("%s error during %s: %v", kind, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for callers that map errors to outcomes.
func (e *PersistenceError) ErrorKind() string {
	if e.Transient {
		return "transient"
	}
	return "persistence"
}

// IsTransient reports whether err is a PersistenceError worth retrying.
func IsTransient(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr) && perr.Transient
}

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Transient: isSQLiteBusy(err), Err: err}
}
