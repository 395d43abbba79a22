package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Limits on what a header may declare.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal skips the tensor offset checks.
	ValidationNormal
)

// ValidateTensorOffsets checks that tensors lie inside the data section and
// do not overlap.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
			Err:     ErrTooManyTensors,
		}
	}

	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b TensorMeta) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
				Err:     ErrNegativeOffset,
			}
		}
		if t.Size > dataSize-t.Offset {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
				Err:     ErrOutOfBounds,
			}
		}
		if i == 0 {
			continue
		}
		if prev := sorted[i-1]; prev.Offset+prev.Size > t.Offset {
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  prev.Name,
				Tensor2: t.Name,
				Details: fmt.Sprintf("[%d, %d) overlaps [%d, %d)", prev.Offset, prev.Offset+prev.Size, t.Offset, t.Offset+t.Size),
				Err:     ErrOffsetOverlap,
			}
		}
	}

	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	if name == "" || len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "invalid_name",
			Tensor:  name,
			Details: fmt.Sprintf("length %d, want 1..%d", len(name), MaxTensorNameLen),
			Err:     ErrInvalidTensorName,
		}
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\\x00") {
		return &ValidationError{
			Type:    "invalid_name",
			Tensor:  name,
			Details: "contains a path separator, '..' or a null byte",
			Err:     ErrInvalidTensorName,
		}
	}
	return nil
}

// ValidateHeader checks tensor metadata and graph references.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if h.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: header declares %d, expected %d", ErrUnsupportedVersion, h.FormatVersion, FormatVersion)
	}
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
			Err:     ErrTooManyTensors,
		}
	}

	tensors := make(map[string]bool, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		tensors[t.Name] = true
	}
	if level == ValidationStrict {
		if err := ValidateTensorOffsets(h.Tensors, dataSize); err != nil {
			return err
		}
	}

	defined := make(map[string]bool, len(h.Variables)+len(h.Functions))
	for _, v := range h.Variables {
		if v.Tensor != "" && !tensors[v.Tensor] {
			return fmt.Errorf("%w: variable %q uses missing tensor %q", ErrDanglingReference, v.UID, v.Tensor)
		}
		defined[v.UID] = true
	}
	root := false
	for _, f := range h.Functions {
		for _, in := range f.Inputs {
			if !defined[in] {
				return fmt.Errorf("%w: function %q reads %q", ErrDanglingReference, f.UID, in)
			}
		}
		if f.Output != "" {
			defined[f.Output] = true
		}
		root = root || f.UID == h.Root
	}
	if !root {
		return fmt.Errorf("%w: root function %q", ErrDanglingReference, h.Root)
	}
	return nil
}
