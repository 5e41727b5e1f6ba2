package omfiles

import (
	"context"
	"fmt"

	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/utils"
)

// ConvertFile copies every variable of src into dst, preserving names,
// hierarchy, compression and quantization parameters, and finishes dst.
// Legacy files become a version 3 file whose root is the array named name.
//
// Arrays are copied one row of chunks at a time, so memory use is bounded
// by one chunk row rather than the array size.
func ConvertFile(ctx context.Context, dst *Writer, src *Reader, name string) error {
	root := src.Root()
	ref, err := convertTree(ctx, dst, root, name)
	if err != nil {
		return err
	}
	return dst.Finish(ref)
}

func convertTree(ctx context.Context, dst *Writer, v *Variable, name string) (Ref, error) {
	children := make([]Ref, 0, v.NumChildren())
	for _, c := range v.Children() {
		ref, err := convertTree(ctx, dst, c, c.Name())
		if err != nil {
			return Ref{}, err
		}
		children = append(children, ref)
	}
	return Convert(ctx, dst, v, name, children...)
}

// Convert copies the value of a single variable into dst under name with
// the given children and returns its Ref. The children of v are not copied.
func Convert(ctx context.Context, dst *Writer, v *Variable, name string, children ...Ref) (Ref, error) {
	dt := v.DataType()
	switch {
	case dt == core.DataTypeNone:
		return dst.WriteGroup(name, children...)
	case dt == core.DataTypeString:
		s, err := v.StringValue()
		if err != nil {
			return Ref{}, err
		}
		return dst.WriteString(name, s, children...)
	case dt.IsScalar():
		return dst.writeScalarBytes(name, dt, v.node.Var.Value, children)
	}

	switch dt.Element() {
	case core.DataTypeInt8:
		return convertArray[int8](ctx, dst, v, name, children)
	case core.DataTypeUint8:
		return convertArray[uint8](ctx, dst, v, name, children)
	case core.DataTypeInt16:
		return convertArray[int16](ctx, dst, v, name, children)
	case core.DataTypeUint16:
		return convertArray[uint16](ctx, dst, v, name, children)
	case core.DataTypeInt32:
		return convertArray[int32](ctx, dst, v, name, children)
	case core.DataTypeUint32:
		return convertArray[uint32](ctx, dst, v, name, children)
	case core.DataTypeInt64:
		return convertArray[int64](ctx, dst, v, name, children)
	case core.DataTypeUint64:
		return convertArray[uint64](ctx, dst, v, name, children)
	case core.DataTypeFloat:
		return convertArray[float32](ctx, dst, v, name, children)
	case core.DataTypeDouble:
		return convertArray[float64](ctx, dst, v, name, children)
	default:
		return Ref{}, fmt.Errorf("%w: cannot convert %s", utils.ErrUnsupportedFormat, dt)
	}
}

func convertArray[T Element](ctx context.Context, dst *Writer, v *Variable, name string, children []Ref) (Ref, error) {
	dims, chunks := v.Dims(), v.Chunks()
	aw, err := PrepareArray[T](dst, ArrayDescriptor{
		Dims:        dims,
		Chunks:      chunks,
		Compression: v.Compression(),
		ScaleFactor: v.ScaleFactor(),
		AddOffset:   v.AddOffset(),
	})
	if err != nil {
		return Ref{}, err
	}

	ranges := FullRange(dims)
	for start := uint64(0); start < dims[0]; start += chunks[0] {
		ranges[0] = Range{Start: start, End: min(start+chunks[0], dims[0])}
		slab, err := ReadRange[T](ctx, v, ranges)
		if err != nil {
			return Ref{}, err
		}
		shape := make([]uint64, len(dims))
		for i, r := range ranges {
			shape[i] = r.Len()
		}
		if err := aw.WriteSubArray(slab, shape, make([]uint64, len(dims)), shape); err != nil {
			return Ref{}, err
		}
	}
	return aw.Finalize(name, children...)
}

// writeScalarBytes writes a numeric scalar from its encoded value.
func (w *Writer) writeScalarBytes(name string, dt core.DataType, value []byte, children []Ref) (Ref, error) {
	if err := w.begin(); err != nil {
		return Ref{}, err
	}
	kids, err := childSpans(children)
	if err != nil {
		return Ref{}, err
	}
	return w.writeRecord(&core.Variable{
		DataType: dt,
		Name:     name,
		Children: kids,
		Value:    value,
	})
}
