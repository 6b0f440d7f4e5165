// Package safetensors reads and writes tensors in the SafeTensors format,
// used for graph weights and run outputs.
//
// Format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw bytes]
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/tensor"
)

const (
	metadataKey   = "__metadata__"
	maxHeaderSize = 100 * 1024 * 1024
)

// Info describes one tensor stored in a file.
type Info struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end)
}

// Size returns the number of data bytes.
func (i Info) Size() int64 {
	return i.DataOffsets[1] - i.DataOffsets[0]
}

// Entry is one tensor to write.
type Entry struct {
	Name  string
	DType tensor.DataType
	Shape tensor.Shape
	Data  []byte
}

// EntryOf returns an entry holding the host storage of x without copying.
func EntryOf(name string, x *tensor.Tensor) (Entry, error) {
	data, err := x.Bytes()
	if err != nil {
		return Entry{}, fmt.Errorf("tensor %s: %w", name, err)
	}
	return Entry{Name: name, DType: x.DType(), Shape: x.Shape(), Data: data}, nil
}

// Reader reads tensors from a SafeTensors file.
type Reader struct {
	file       *os.File
	metadata   map[string]string
	tensors    map[string]Info
	dataOffset int64
}

// Open opens a SafeTensors file and parses its header.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: graph descriptions name their weight files
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newReader(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

func newReader(file *os.File) (*Reader, error) {
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, fmt.Errorf("invalid header size: %d (too large)", headerSize)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(file, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(header, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r := &Reader{
		file:       file,
		tensors:    make(map[string]Info, len(raw)),
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by maxHeaderSize
	}
	for key, value := range raw {
		if key == metadataKey {
			if err := json.Unmarshal(value, &r.metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info Info
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		if info.Size() < 0 {
			return nil, fmt.Errorf("invalid data offsets for tensor %s: [%d, %d]",
				key, info.DataOffsets[0], info.DataOffsets[1])
		}
		r.tensors[key] = info
	}
	return r, nil
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Metadata returns the free-form metadata of the file.
func (r *Reader) Metadata() map[string]string {
	return r.metadata
}

// Names returns the stored tensor names in sorted order.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info returns the header entry of name.
func (r *Reader) Info(name string) (Info, error) {
	info, ok := r.tensors[name]
	if !ok {
		return Info{}, fmt.Errorf("tensor %s not found", name)
	}
	return info, nil
}

// DataType returns the element type of name.
func (r *Reader) DataType(name string) (tensor.DataType, error) {
	info, err := r.Info(name)
	if err != nil {
		return 0, err
	}
	return ParseDType(info.DType)
}

// ReadInto copies the data of name into dst, which must have exactly the
// stored size.
func (r *Reader) ReadInto(name string, dst []byte) error {
	info, err := r.Info(name)
	if err != nil {
		return err
	}
	if int64(len(dst)) != info.Size() {
		return fmt.Errorf("tensor %s holds %d bytes, destination has %d", name, info.Size(), len(dst))
	}
	if _, err := r.file.ReadAt(dst, r.dataOffset+info.DataOffsets[0]); err != nil {
		return fmt.Errorf("failed to read tensor data: %w", err)
	}
	return nil
}

// Load reads name into a new host tensor whose storage comes from alloc.
func (r *Reader) Load(name string, alloc mem.Allocator) (*tensor.Tensor, error) {
	info, err := r.Info(name)
	if err != nil {
		return nil, err
	}
	dtype, err := ParseDType(info.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	x, err := tensor.New(tensor.Shape(info.Shape), dtype, alloc.Space())
	if err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}
	if err := x.Materialize(alloc); err != nil {
		return nil, err
	}
	data, err := x.Bytes()
	if err == nil {
		err = r.ReadInto(name, data)
	}
	if err != nil {
		_ = x.Release(alloc)
		return nil, err
	}
	return x, nil
}

// Write stores entries in a new file at path. Entries are written in
// alphabetical order by name.
func Write(path string, entries []Entry, metadata map[string]string) (err error) {
	//nolint:gosec // G304: output path comes from the caller
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return encode(file, entries, metadata)
}

func encode(w io.Writer, entries []Entry, metadata map[string]string) error {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]any, len(sorted)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	var offset int64
	for i, e := range sorted {
		if i > 0 && sorted[i-1].Name == e.Name {
			return fmt.Errorf("duplicate tensor %s", e.Name)
		}
		dtype, err := FormatDType(e.DType)
		if err != nil {
			return fmt.Errorf("tensor %s: %w", e.Name, err)
		}
		if want := e.Shape.NumElements() * e.DType.Size(); want != len(e.Data) {
			return fmt.Errorf("tensor %s: shape needs %d bytes, data has %d", e.Name, want, len(e.Data))
		}
		size := int64(len(e.Data))
		header[e.Name] = Info{
			DType:       dtype,
			Shape:       append([]int{}, e.Shape...),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, e := range sorted {
		if _, err := w.Write(e.Data); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", e.Name, err)
		}
	}
	return nil
}

// ParseDType converts a SafeTensors dtype string to a DataType.
func ParseDType(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	case "I32":
		return tensor.Int32, nil
	case "I64":
		return tensor.Int64, nil
	case "U8":
		return tensor.Uint8, nil
	case "BOOL":
		return tensor.Bool, nil
	default:
		return 0, fmt.Errorf("unsupported dtype: %s", s)
	}
}

// FormatDType converts a DataType to its SafeTensors dtype string.
func FormatDType(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	case tensor.Int32:
		return "I32", nil
	case tensor.Int64:
		return "I64", nil
	case tensor.Uint8:
		return "U8", nil
	case tensor.Bool:
		return "BOOL", nil
	default:
		return "", fmt.Errorf("unsupported dtype: %s", dt)
	}
}
