package docstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the addressed document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied indicates a collection rule refused the caller.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidDocument indicates a collection rule rejected the payload.
	ErrInvalidDocument = errors.New("invalid document")
)

// RuleError is returned when a collection rule refuses a mutation. Kind is one of
// ErrPermissionDenied or ErrInvalidDocument and is exposed through errors.Is.
type RuleError struct {
	Kind       error
	Collection string
	Key        string
	Reason     string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s/%s: %s", e.Kind, e.Collection, e.Key, e.Reason)
}

func (e *RuleError) Unwrap() error {
	return e.Kind
}

// Deny builds a permission rule failure.
func Deny(format string, args ...interface{}) error {
	return &RuleError{Kind: ErrPermissionDenied, Reason: fmt.Sprintf(format, args...)}
}

// Reject builds a validation rule failure.
func Reject(format string, args ...interface{}) error {
	return &RuleError{Kind: ErrInvalidDocument, Reason: fmt.Sprintf(format, args...)}
}

func annotate(err error, collection, key string) error {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		if ruleErr.Collection == "" {
			ruleErr.Collection = collection
		}
		if ruleErr.Key == "" {
			ruleErr.Key = key
		}
		return ruleErr
	}
	return &RuleError{Kind: ErrInvalidDocument, Collection: collection, Key: key, Reason: err.Error()}
}
