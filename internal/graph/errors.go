package graph

import "errors"

// ErrNilVariable is returned when a constructor receives a nil operand.
var ErrNilVariable = errors.New("nil variable")

// ErrEmptyCombine is returned by Combine without outputs.
var ErrEmptyCombine = errors.New("combine needs at least one output")
