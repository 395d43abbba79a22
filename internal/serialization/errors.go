package serialization

import (
	"errors"
	"fmt"
)

// ErrPersistenceFormat is returned for any corrupt or incompatible model.
// The underlying cause is wrapped alongside it.
var ErrPersistenceFormat = errors.New("persistence format error")

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap      = errors.New("tensor offsets overlap")
	ErrOutOfBounds        = errors.New("tensor extends beyond data section")
	ErrNegativeOffset     = errors.New("negative offset or size")
	ErrTooManyTensors     = errors.New("too many tensors in file")
	ErrInvalidTensorName  = errors.New("invalid tensor name")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTruncated          = errors.New("truncated model data")
	ErrDanglingReference  = errors.New("reference to undefined variable")
	ErrSizeMismatch       = errors.New("tensor size does not match its shape")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // e.g. "offset_overlap", "out_of_bounds"
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string
	Err     error // sentinel matched by errors.Is
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap returns the sentinel for errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// formatError marks err as a persistence format failure.
func formatError(err error) error {
	if errors.Is(err, ErrPersistenceFormat) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFormat, err)
}
