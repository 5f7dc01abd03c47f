package gate

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized matches every SecurityError via errors.Is.
	ErrUnauthorized = errors.New("unauthorized origin")
	// ErrInvalidInput matches every ValidationError via errors.Is.
	ErrInvalidInput = errors.New("invalid input")
)

// SecurityError reports a privileged call from an origin outside the allow-list.
type SecurityError struct {
	Origin string
	Call   string
}

func (e *SecurityError) Error() string {
	origin := e.Origin
	if origin == "" {
		origin = "<none>"
	}
	if e.Call == "" {
		return fmt.Sprintf("unauthorized origin %s", origin)
	}
	return fmt.Sprintf("%s: unauthorized origin %s", e.Call, origin)
}

// ErrorKind classifies the error for transport status mapping.
func (e *SecurityError) ErrorKind() string { return "security" }

func (e *SecurityError) Is(target error) bool { return target == ErrUnauthorized }

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrorKind classifies the error for transport status mapping.
func (e *ValidationError) ErrorKind() string { return "validation" }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// ErrorClassifier is implemented by errors that declare a kind for status mapping.
type ErrorClassifier interface {
	ErrorKind() string
}

// Kind returns the classification of err, or "internal" when err does not
// declare one.
func Kind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return "internal"
}
