package serialization

import (
	"time"

	"github.com/born-ml/graphcore/internal/ops"
)

// Format constants.
const (
	MagicBytes      = "BGCF"
	FormatVersion   = 1
	HeaderAlignment = 64   // tensor data alignment
	FixedHeaderSize = 64   // 0x40 bytes
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // checksum position in the fixed header
)

// Flags for the fixed header.
const (
	FlagHasParameters uint32 = 1 << 0
	FlagHasConstants  uint32 = 1 << 1
	FlagHasMetadata   uint32 = 1 << 2
)

// Header is the JSON graph description following the fixed header.
type Header struct {
	FormatVersion   int               `json:"format_version"`
	ProducerVersion string            `json:"producer_version"`
	CreatedAt       time.Time         `json:"created_at"`
	Root            string            `json:"root"` // uid of the saved Function
	Variables       []VariableMeta    `json:"variables"`
	Functions       []FunctionMeta    `json:"functions"`
	Tensors         []TensorMeta      `json:"tensors"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// VariableMeta describes a leaf Variable.
type VariableMeta struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Tensor string `json:"tensor,omitempty"` // parameters and constants
}

// FunctionMeta describes one Function. Inputs and Output are Variable uids.
type FunctionMeta struct {
	UID    string    `json:"uid"`
	Name   string    `json:"name"`
	Op     string    `json:"op"`
	Inputs []string  `json:"inputs"`
	Output string    `json:"output,omitempty"`
	Attrs  ops.Attrs `json:"attrs,omitempty"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from start of the data section
	Size   int64  `json:"size"`
}

// align rounds n up to the next HeaderAlignment boundary.
func align(n int64) int64 {
	return n + (HeaderAlignment-n%HeaderAlignment)%HeaderAlignment
}
