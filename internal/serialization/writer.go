package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/version"
)

// WriterOptions configures Save.
type WriterOptions struct {
	Metadata map[string]string // stored verbatim in the header
}

// Save encodes fn and everything it depends on.
func Save(fn *graph.Function) ([]byte, error) {
	return SaveWithOptions(fn, WriterOptions{})
}

// SaveWithOptions is Save with custom header metadata.
func SaveWithOptions(fn *graph.Function, opts WriterOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTo(&buf, fn, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile writes the encoding of fn to path.
func SaveFile(fn *graph.Function, path string) error {
	data, err := Save(fn)
	if err != nil {
		return err
	}
	//nolint:gosec // G306: model files are not secret
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteTo writes the encoding of fn to w.
func WriteTo(w io.Writer, fn *graph.Function, opts WriterOptions) error {
	if fn == nil {
		return errors.New("cannot save a nil function")
	}

	header := Header{
		FormatVersion:   FormatVersion,
		ProducerVersion: version.Version,
		CreatedAt:       time.Now().UTC(),
		Root:            fn.UID(),
		Metadata:        opts.Metadata,
	}

	var data []byte
	var flags uint32
	for _, leaf := range fn.Inputs() {
		meta := VariableMeta{
			UID:   leaf.UID(),
			Name:  leaf.Name(),
			Kind:  leaf.Kind().String(),
			DType: leaf.DType().String(),
			Shape: leaf.Shape(),
		}
		switch leaf.Kind() {
		case graph.ParameterKind:
			flags |= FlagHasParameters
		case graph.ConstantKind:
			flags |= FlagHasConstants
		}

		if v := leaf.Value(); v != nil {
			raw, err := v.Acquire()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", leaf, err)
			}
			offset := align(int64(len(data)))
			data = append(data, make([]byte, offset-int64(len(data)))...)
			data = append(data, raw.Data()...)
			header.Tensors = append(header.Tensors, TensorMeta{
				Name:   leaf.UID(),
				DType:  raw.DType().String(),
				Shape:  raw.Shape(),
				Offset: offset,
				Size:   int64(raw.ByteSize()),
			})
			raw.Release()
			meta.Tensor = leaf.UID()
		}
		header.Variables = append(header.Variables, meta)
	}

	for _, node := range fn.Nodes() {
		header.Functions = append(header.Functions, functionMeta(node, node.Output().UID()))
	}
	if !fn.IsPrimitive() {
		header.Functions = append(header.Functions, functionMeta(fn, ""))
	}
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	checksum := ComputeChecksum(data)

	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	pos := int64(FixedHeaderSize + len(headerJSON))
	if padding := align(pos) - pos; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

func functionMeta(fn *graph.Function, output string) FunctionMeta {
	operands := fn.Operands()
	inputs := make([]string, len(operands))
	for i, in := range operands {
		inputs[i] = in.UID()
	}
	return FunctionMeta{
		UID:    fn.UID(),
		Name:   fn.Name(),
		Op:     fn.Op(),
		Inputs: inputs,
		Output: output,
		Attrs:  fn.Attrs(),
	}
}
