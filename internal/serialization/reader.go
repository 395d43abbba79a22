package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

// ReaderOptions configures Load.
type ReaderOptions struct {
	SkipChecksumValidation bool
	ValidationLevel        ValidationLevel
}

// Model is a decoded file before the graph is rebuilt.
type Model struct {
	Header   Header
	Flags    uint32
	Checksum [32]byte
	data     []byte // data section
}

// Load decodes a Function saved by Save, placing parameter and constant
// storage on dev.
func Load(data []byte, dev device.Descriptor) (*graph.Function, error) {
	return LoadWithOptions(data, dev, ReaderOptions{})
}

// LoadWithOptions is Load with custom validation.
func LoadWithOptions(data []byte, dev device.Descriptor, opts ReaderOptions) (*graph.Function, error) {
	if err := device.Check(dev); err != nil {
		return nil, err
	}
	m, err := Decode(data, opts)
	if err != nil {
		return nil, err
	}
	fn, err := m.Build(dev)
	if err != nil {
		return nil, formatError(err)
	}
	return fn, nil
}

// LoadFile memory-maps path and decodes it. Tensor bytes are copied into
// engine storage, so the mapping is released before LoadFile returns.
func LoadFile(path string, dev device.Descriptor) (*graph.Function, error) {
	//nolint:gosec // G304: model path comes from the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() < FixedHeaderSize {
		return nil, formatError(fmt.Errorf("%w: %d bytes", ErrTruncated, stat.Size()))
	}

	data, err := mmapFile(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	defer func() { _ = munmapFile(data) }()

	return Load(data, dev)
}

// Decode parses and validates the fixed header, the JSON header and the
// data section checksum. The returned Model references data.
func Decode(data []byte, opts ReaderOptions) (*Model, error) {
	m, err := decode(data, opts)
	if err != nil {
		return nil, formatError(err)
	}
	return m, nil
}

func decode(data []byte, opts ReaderOptions) (*Model, error) {
	if len(data) < FixedHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, fixed header needs %d", ErrTruncated, len(data), FixedHeaderSize)
	}
	if string(data[0:4]) != MagicBytes {
		return nil, fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, data[0:4], MagicBytes)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}

	m := &Model{Flags: binary.LittleEndian.Uint32(data[8:12])}
	headerSize := binary.LittleEndian.Uint64(data[16:24])
	dataSize := binary.LittleEndian.Uint64(data[24:32])
	copy(m.Checksum[:], data[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerEnd := int64(FixedHeaderSize) + int64(headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if headerEnd > int64(len(data)) {
		return nil, fmt.Errorf("%w: header ends at %d, have %d bytes", ErrTruncated, headerEnd, len(data))
	}
	if err := json.Unmarshal(data[FixedHeaderSize:headerEnd], &m.Header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	dataOffset := align(headerEnd)
	if dataSize > uint64(len(data)) || dataOffset+int64(dataSize) > int64(len(data)) { //nolint:gosec // G115: checked against len(data)
		return nil, fmt.Errorf("%w: data section [%d, +%d) exceeds %d bytes", ErrTruncated, dataOffset, dataSize, len(data))
	}
	m.data = data[dataOffset : dataOffset+int64(dataSize)] //nolint:gosec // G115: checked above

	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(m.data), m.Checksum); err != nil {
			return nil, err
		}
	}
	if err := ValidateHeader(&m.Header, int64(len(m.data)), opts.ValidationLevel); err != nil {
		return nil, err
	}
	return m, nil
}

// Build rebuilds the saved Function on dev.
func (m *Model) Build(dev device.Descriptor) (*graph.Function, error) {
	tensors := make(map[string]TensorMeta, len(m.Header.Tensors))
	for _, t := range m.Header.Tensors {
		tensors[t.Name] = t
	}

	vars := make(map[string]*graph.Variable, len(m.Header.Variables))
	for _, vm := range m.Header.Variables {
		v, err := m.buildLeaf(vm, tensors, dev)
		if err != nil {
			return nil, err
		}
		vars[vm.UID] = v
	}

	var root *graph.Function
	for _, fm := range m.Header.Functions {
		inputs := make([]*graph.Variable, len(fm.Inputs))
		for i, uid := range fm.Inputs {
			in, ok := vars[uid]
			if !ok {
				return nil, fmt.Errorf("%w: function %q reads %q", ErrDanglingReference, fm.UID, uid)
			}
			inputs[i] = in
		}
		fn, err := graph.RestoreFunction(fm.UID, fm.Name, fm.Op, inputs, fm.Attrs, fm.Output)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", fm.UID, err)
		}
		if fm.Output != "" {
			vars[fm.Output] = fn.Output()
		}
		if fm.UID == m.Header.Root {
			root = fn
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: root function %q", ErrDanglingReference, m.Header.Root)
	}
	return root, nil
}

func (m *Model) buildLeaf(vm VariableMeta, tensors map[string]TensorMeta, dev device.Descriptor) (*graph.Variable, error) {
	kind, ok := graph.ParseKind(vm.Kind)
	if !ok {
		return nil, fmt.Errorf("variable %q: unknown kind %q", vm.UID, vm.Kind)
	}
	dtype, ok := tensor.ParseDataType(vm.DType)
	if !ok {
		return nil, fmt.Errorf("variable %q: unsupported dtype %q", vm.UID, vm.DType)
	}

	var val *value.Value
	if vm.Tensor != "" {
		tm, ok := tensors[vm.Tensor]
		if !ok {
			return nil, fmt.Errorf("%w: variable %q uses missing tensor %q", ErrDanglingReference, vm.UID, vm.Tensor)
		}
		raw, err := m.tensor(tm, dev)
		if err != nil {
			return nil, err
		}
		val = value.Wrap(raw, dev)
	}
	return graph.RestoreLeaf(vm.UID, vm.Name, kind, vm.Shape, dtype, val)
}

// tensor copies one tensor out of the data section.
func (m *Model) tensor(tm TensorMeta, dev device.Descriptor) (*tensor.RawTensor, error) {
	dtype, ok := tensor.ParseDataType(tm.DType)
	if !ok {
		return nil, fmt.Errorf("tensor %q: unsupported dtype %q", tm.Name, tm.DType)
	}
	if tm.Offset < 0 || tm.Size < 0 || tm.Size > int64(len(m.data))-tm.Offset {
		return nil, &ValidationError{
			Type:    "out_of_bounds",
			Tensor:  tm.Name,
			Details: fmt.Sprintf("offset %d + size %d > data_size %d", tm.Offset, tm.Size, len(m.data)),
			Err:     ErrOutOfBounds,
		}
	}
	shape := tensor.Shape(tm.Shape)
	if err := shape.Validate(); err != nil {
		return nil, &ValidationError{Type: "size_mismatch", Tensor: tm.Name, Details: err.Error(), Err: ErrSizeMismatch}
	}
	if want := int64(shape.NumElements()) * int64(dtype.Size()); want != tm.Size {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  tm.Name,
			Details: fmt.Sprintf("shape %v of %s needs %d bytes, header says %d", tm.Shape, dtype, want, tm.Size),
			Err:     ErrSizeMismatch,
		}
	}
	raw, err := tensor.NewRawFromBytes(tm.Shape, dtype, dev.Kind, m.data[tm.Offset:tm.Offset+tm.Size])
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", tm.Name, err)
	}
	return raw, nil
}
