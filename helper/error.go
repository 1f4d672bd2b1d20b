package helper

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the core wraps exactly one of them,
// callers check with errors.Is.
var (
	// ErrLookup marks an external identifier that could not be resolved.
	ErrLookup = errors.New("lookup failure")
	// ErrRetrieval marks an unavailable similarity index or a malformed query.
	ErrRetrieval = errors.New("retrieval failure")
	// ErrSerialization marks an unsupported format or an I/O failure during dump/load.
	ErrSerialization = errors.New("serialization failure")
	// ErrValidation marks malformed input rejected before entering the pipeline.
	ErrValidation = errors.New("validation failure")
)

// NewError wraps err with a short trace of the operation that failed.
func NewError(trace string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", trace, err)
}

// NewLookupError wraps err as a lookup failure for the given record key.
func NewLookupError(recordKey string, err error) error {
	return fmt.Errorf("%w for %q: %w", ErrLookup, recordKey, err)
}

// NewRetrievalError wraps err as a retrieval failure.
func NewRetrievalError(trace string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRetrieval, trace, err)
}

// NewSerializationError wraps err as a serialization failure.
func NewSerializationError(trace string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSerialization, trace, err)
}

// NewValidationError returns a validation failure with the given reason.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
