package eval

import "errors"

var (
	// ErrUnboundInput is returned when an argument has no Value bound, or a
	// bound key is not an argument of the function.
	ErrUnboundInput = errors.New("unbound input")

	// ErrUnknownOutput is returned for output keys the function does not
	// produce.
	ErrUnknownOutput = errors.New("unknown output")

	// ErrDeviceMismatch is returned when a Value lives on a device the
	// evaluation device cannot use.
	ErrDeviceMismatch = errors.New("device mismatch")
)
