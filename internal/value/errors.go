package value

import "errors"

// Common errors.
var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrDataTypeMismatch = errors.New("data type mismatch")
	ErrReleased         = errors.New("value has been released")
)
