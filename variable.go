package omfiles

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/utils"
)

// Variable is one node of an om file: a chunked array, a scalar attribute
// or a group holding only children. Variables are cheap handles into the
// Reader's metadata; they stay valid until the Reader is closed.
type Variable struct {
	r    *Reader
	h    core.Handle
	node *core.Node
}

// Name returns the variable's name. The legacy root is unnamed.
func (v *Variable) Name() string {
	return v.node.Var.Name
}

// Path returns the slash-separated path relative to the root.
func (v *Variable) Path() string {
	return v.node.Path
}

// DataType returns the stored data type.
func (v *Variable) DataType() DataType {
	return v.node.Var.DataType
}

// Compression returns the chunk compression scheme of an array.
func (v *Variable) Compression() Compression {
	return v.node.Var.Compression
}

// ScaleFactor returns the quantization scale of an array.
func (v *Variable) ScaleFactor() float32 {
	return v.node.Var.ScaleFactor
}

// AddOffset returns the quantization offset of an array.
func (v *Variable) AddOffset() float32 {
	return v.node.Var.AddOffset
}

// Dims returns the array dimensions, outermost first.
func (v *Variable) Dims() []uint64 {
	return slices.Clone(v.node.Var.Dims)
}

// Chunks returns the chunk dimensions.
func (v *Variable) Chunks() []uint64 {
	return slices.Clone(v.node.Var.Chunks)
}

// IsArray reports whether the variable holds chunked array data.
func (v *Variable) IsArray() bool {
	return v.node.Var.DataType.IsArray()
}

// IsScalar reports whether the variable holds a single value.
func (v *Variable) IsScalar() bool {
	return v.node.Var.DataType.IsScalar()
}

// ChunkCount returns the number of chunks of an array, 0 otherwise.
func (v *Variable) ChunkCount() uint64 {
	if !v.IsArray() {
		return 0
	}
	return chunkCount(v.node.Var.Dims, v.node.Var.Chunks)
}

func chunkCount(dims, chunks []uint64) uint64 {
	n := uint64(1)
	for i := range dims {
		n *= utils.CeilDiv(dims[i], chunks[i])
	}
	return n
}

// NumChildren returns the number of direct children.
func (v *Variable) NumChildren() int {
	return len(v.node.Children)
}

// Child returns the i-th direct child in record order.
func (v *Variable) Child(i int) (*Variable, error) {
	if i < 0 || i >= len(v.node.Children) {
		return nil, fmt.Errorf("%w: child %d of %d", utils.ErrRange, i, len(v.node.Children))
	}
	return v.r.variable(v.node.Children[i]), nil
}

// Children returns all direct children in record order.
func (v *Variable) Children() []*Variable {
	out := make([]*Variable, len(v.node.Children))
	for i, h := range v.node.Children {
		out[i] = v.r.variable(h)
	}
	return out
}

// ChildByName returns the direct child called name.
func (v *Variable) ChildByName(name string) (*Variable, bool) {
	h, ok := v.r.tree.Child(v.h, name)
	if !ok {
		return nil, false
	}
	return v.r.variable(h), true
}

// Attributes returns the scalar children of the variable.
func (v *Variable) Attributes() []*Variable {
	var out []*Variable
	for _, h := range v.node.Children {
		if v.r.tree.Node(h).Var.DataType.IsScalar() {
			out = append(out, v.r.variable(h))
		}
	}
	return out
}

// ReadAttribute returns the value of the scalar child called name as its
// natural Go type (int8 ... float64, or string).
func (v *Variable) ReadAttribute(name string) (any, error) {
	c, ok := v.ChildByName(name)
	if !ok || !c.IsScalar() {
		return nil, fmt.Errorf("attribute %q not found", name)
	}
	return c.Value()
}

// Value returns a scalar's value as its natural Go type.
func (v *Variable) Value() (any, error) {
	rec := v.node.Var
	if !rec.DataType.IsScalar() {
		return nil, fmt.Errorf("%w: %s is not a scalar", utils.ErrDataTypeMismatch, rec.DataType)
	}
	b := rec.Value
	le := binary.LittleEndian
	switch rec.DataType {
	case core.DataTypeInt8:
		return int8(b[0]), nil //nolint:gosec // G115: bit reinterpretation
	case core.DataTypeUint8:
		return b[0], nil
	case core.DataTypeInt16:
		return int16(le.Uint16(b)), nil //nolint:gosec // G115: bit reinterpretation
	case core.DataTypeUint16:
		return le.Uint16(b), nil
	case core.DataTypeInt32:
		return int32(le.Uint32(b)), nil //nolint:gosec // G115: bit reinterpretation
	case core.DataTypeUint32:
		return le.Uint32(b), nil
	case core.DataTypeInt64:
		return int64(le.Uint64(b)), nil //nolint:gosec // G115: bit reinterpretation
	case core.DataTypeUint64:
		return le.Uint64(b), nil
	case core.DataTypeFloat:
		return math.Float32frombits(le.Uint32(b)), nil
	case core.DataTypeDouble:
		return math.Float64frombits(le.Uint64(b)), nil
	default:
		return string(b), nil
	}
}

// StringValue returns the value of a string scalar.
func (v *Variable) StringValue() (string, error) {
	if v.node.Var.DataType != core.DataTypeString {
		return "", fmt.Errorf("%w: %s is not a string", utils.ErrDataTypeMismatch, v.node.Var.DataType)
	}
	return string(v.node.Var.Value), nil
}

// ReadScalar returns the value of a numeric scalar variable. T must match
// the stored type exactly.
func ReadScalar[T Element](v *Variable) (T, error) {
	var out T
	if !v.IsScalar() || v.node.Var.DataType == core.DataTypeString {
		return out, fmt.Errorf("%w: %s is not a numeric scalar", utils.ErrDataTypeMismatch, v.node.Var.DataType)
	}
	if err := checkElementType[T](v.node.Var.DataType); err != nil {
		return out, err
	}
	dst := []T{out}
	getElements(dst, v.node.Var.Value)
	return dst[0], nil
}
