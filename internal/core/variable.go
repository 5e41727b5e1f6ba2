package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scigolib/omfiles/internal/utils"
)

// Span locates a serialized record inside the file.
type Span struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte after the span.
func (s Span) End() uint64 {
	return s.Offset + s.Size
}

// Variable is the decoded form of one v3 variable record. A record is either
// a numeric array (chunked data plus lookup table), a scalar (numeric or
// string value) or a plain node (DataTypeNone) that only groups children.
//
// Record layout:
//
//	u8  data type, u8 compression, u16 name length, u32 child count
//	array only: u64 lut size, u64 lut offset, u64 dim count, f32 scale, f32 offset
//	child count x u64 offsets, child count x u64 sizes
//	array only: dim count x u64 dimensions, dim count x u64 chunk dimensions
//	scalar only: numeric value, or u64 length + bytes for strings
//	name bytes
type Variable struct {
	DataType    DataType
	Compression Compression
	Name        string
	Children    []Span

	// Array fields.
	Lut         Span
	ScaleFactor float32
	AddOffset   float32
	Dims        []uint64
	Chunks      []uint64

	// Scalar value, little-endian for numbers and raw bytes for strings.
	Value []byte
}

const (
	recordBaseSize  = 8
	recordArraySize = 32
)

// EncodedSize returns the serialized size of the record.
func (v *Variable) EncodedSize() int {
	n := recordBaseSize + 16*len(v.Children) + len(v.Name)
	switch {
	case v.DataType.IsArray():
		n += recordArraySize + 16*len(v.Dims)
	case v.DataType == DataTypeString:
		n += 8 + len(v.Value)
	case v.DataType.IsScalar():
		n += v.DataType.Size()
	}
	return n
}

// Validate checks internal consistency of the record.
func (v *Variable) Validate() error {
	if !v.DataType.Valid() {
		return fmt.Errorf("%w: data type %d", utils.ErrUnsupportedFormat, v.DataType)
	}
	if v.DataType == DataTypeStringArray {
		return fmt.Errorf("%w: string arrays", utils.ErrUnsupportedFormat)
	}
	if len(v.Name) > math.MaxUint16 {
		return fmt.Errorf("%w: name length %d exceeds %d", utils.ErrCorruptMetadata, len(v.Name), math.MaxUint16)
	}
	if uint64(len(v.Children)) > math.MaxUint32 {
		return fmt.Errorf("%w: too many children", utils.ErrCorruptMetadata)
	}
	if v.DataType.IsArray() {
		if !v.Compression.Valid() {
			return fmt.Errorf("%w: compression %d", utils.ErrUnsupportedFormat, v.Compression)
		}
		if err := ValidateShape(v.Dims, v.Chunks); err != nil {
			return err
		}
	}
	if v.DataType.IsScalar() && v.DataType != DataTypeString && len(v.Value) != v.DataType.Size() {
		return fmt.Errorf("%w: %s scalar holds %d bytes", utils.ErrCorruptMetadata, v.DataType, len(v.Value))
	}
	return nil
}

// ValidateShape checks that dims and chunks describe a chunked array:
// equal non-zero arity, every extent > 0 and chunk <= dimension.
func ValidateShape(dims, chunks []uint64) error {
	if len(dims) == 0 {
		return fmt.Errorf("%w: at least one dimension is required", utils.ErrShapeMismatch)
	}
	if len(dims) != len(chunks) {
		return fmt.Errorf("%w: %d dimensions but %d chunk dimensions", utils.ErrShapeMismatch, len(dims), len(chunks))
	}
	for i := range dims {
		if dims[i] == 0 || chunks[i] == 0 {
			return fmt.Errorf("%w: dimension %d must be larger than 0 (dim %d, chunk %d)",
				utils.ErrShapeMismatch, i, dims[i], chunks[i])
		}
		if chunks[i] > dims[i] {
			return fmt.Errorf("%w: chunk dimension %d (%d) exceeds dimension (%d)",
				utils.ErrShapeMismatch, i, chunks[i], dims[i])
		}
	}
	if _, err := utils.ElementCount(chunks, utils.MaxChunkElements); err != nil {
		return fmt.Errorf("%w: %w", utils.ErrShapeMismatch, err)
	}
	return nil
}

// Encode serializes the record.
func (v *Variable) Encode() ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	buf := make([]byte, 0, v.EncodedSize())

	buf = append(buf, byte(v.DataType), byte(v.Compression))
	buf = le.AppendUint16(buf, uint16(len(v.Name)))     //nolint:gosec // G115: checked in Validate
	buf = le.AppendUint32(buf, uint32(len(v.Children))) //nolint:gosec // G115: checked in Validate

	isArray := v.DataType.IsArray()
	if isArray {
		buf = le.AppendUint64(buf, v.Lut.Size)
		buf = le.AppendUint64(buf, v.Lut.Offset)
		buf = le.AppendUint64(buf, uint64(len(v.Dims)))
		buf = le.AppendUint32(buf, math.Float32bits(v.ScaleFactor))
		buf = le.AppendUint32(buf, math.Float32bits(v.AddOffset))
	}
	for _, c := range v.Children {
		buf = le.AppendUint64(buf, c.Offset)
	}
	for _, c := range v.Children {
		buf = le.AppendUint64(buf, c.Size)
	}
	switch {
	case isArray:
		for _, d := range v.Dims {
			buf = le.AppendUint64(buf, d)
		}
		for _, c := range v.Chunks {
			buf = le.AppendUint64(buf, c)
		}
	case v.DataType == DataTypeString:
		buf = le.AppendUint64(buf, uint64(len(v.Value)))
		buf = append(buf, v.Value...)
	case v.DataType.IsScalar():
		buf = append(buf, v.Value...)
	}
	buf = append(buf, v.Name...)
	return buf, nil
}

// DecodeVariable parses a record. buf must span exactly the record.
func DecodeVariable(buf []byte) (*Variable, error) {
	r := recordReader{buf: buf}
	v := &Variable{}

	v.DataType = DataType(r.u8())
	v.Compression = Compression(r.u8())
	nameLen := int(r.u16())
	childCount := uint64(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if !v.DataType.Valid() {
		return nil, fmt.Errorf("%w: data type %d", utils.ErrUnsupportedFormat, v.DataType)
	}
	// Each child costs 16 bytes; reject counts the buffer cannot hold.
	if childCount > uint64(len(buf))/16 {
		return nil, fmt.Errorf("%w: %d children do not fit in %d-byte record", utils.ErrCorruptMetadata, childCount, len(buf))
	}

	var dimCount uint64
	isArray := v.DataType.IsArray()
	if isArray {
		v.Lut.Size = r.u64()
		v.Lut.Offset = r.u64()
		dimCount = r.u64()
		v.ScaleFactor = math.Float32frombits(r.u32())
		v.AddOffset = math.Float32frombits(r.u32())
		if dimCount > uint64(len(buf))/16 {
			return nil, fmt.Errorf("%w: %d dimensions do not fit in %d-byte record", utils.ErrCorruptMetadata, dimCount, len(buf))
		}
	}

	if childCount > 0 {
		v.Children = make([]Span, childCount)
		for i := range v.Children {
			v.Children[i].Offset = r.u64()
		}
		for i := range v.Children {
			v.Children[i].Size = r.u64()
		}
	}

	switch {
	case isArray:
		v.Dims = make([]uint64, dimCount)
		v.Chunks = make([]uint64, dimCount)
		for i := range v.Dims {
			v.Dims[i] = r.u64()
		}
		for i := range v.Chunks {
			v.Chunks[i] = r.u64()
		}
	case v.DataType == DataTypeString:
		n := r.u64()
		if n > utils.MaxStringSize {
			return nil, fmt.Errorf("%w: string length %d exceeds %d", utils.ErrCorruptMetadata, n, utils.MaxStringSize)
		}
		v.Value = r.bytes(int(n)) //nolint:gosec // G115: bounded by MaxStringSize
	case v.DataType.IsScalar():
		v.Value = r.bytes(v.DataType.Size())
	}

	v.Name = string(r.bytes(nameLen))
	if r.err != nil {
		return nil, r.err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// recordReader is a bounds-checked little-endian cursor. The first failure
// sticks and later reads return zero values.
type recordReader struct {
	buf []byte
	pos int
	err error
}

func (r *recordReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: record truncated at byte %d (need %d, have %d)",
			utils.ErrCorruptMetadata, r.pos, n, len(r.buf)-r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *recordReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *recordReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *recordReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *recordReader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *recordReader) bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
