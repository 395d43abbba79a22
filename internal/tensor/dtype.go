// Package tensor provides the core storage types of the graphcore engine:
// shapes, element types, device kinds and reference-counted raw storage.
package tensor

import (
	"fmt"

	"github.com/x448/float16"
)

// DType is a constraint for supported element types. Named types defined
// over them do not satisfy it.
type DType interface {
	float32 | float64 | int32 | int64 | uint8 | bool | float16.Float16
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
	Float16
)

// dtypeInfo is indexed by DataType.
var dtypeInfo = [...]struct {
	name  string
	size  int
	float bool
}{
	Float32: {"float32", 4, true},
	Float64: {"float64", 8, true},
	Int32:   {"int32", 4, false},
	Int64:   {"int64", 8, false},
	Uint8:   {"uint8", 1, false},
	Bool:    {"bool", 1, false},
	Float16: {"float16", 2, true},
}

// Valid reports whether dt is one of the known data types.
func (dt DataType) Valid() bool {
	return dt >= 0 && int(dt) < len(dtypeInfo)
}

// Size returns the element size in bytes. It panics for invalid types.
func (dt DataType) Size() int {
	if !dt.Valid() {
		panic(fmt.Sprintf("unknown data type %d", int(dt)))
	}
	return dtypeInfo[dt].size
}

// IsFloat reports whether dt is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt.Valid() && dtypeInfo[dt].float
}

func (dt DataType) String() string {
	if !dt.Valid() {
		return "unknown"
	}
	return dtypeInfo[dt].name
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, bool) {
	for dt := range dtypeInfo {
		if dtypeInfo[dt].name == s {
			return DataType(dt), true
		}
	}
	return 0, false
}

// DataTypeOf returns the DataType matching the Go type T.
func DataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case float16.Float16:
		return Float16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	default:
		panic(fmt.Sprintf("no data type for %T", zero))
	}
}
