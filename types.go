package omfiles

import (
	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/hyperslab"
	"github.com/scigolib/omfiles/internal/intpack"
)

// DataType is the element type of a variable.
type DataType = core.DataType

// Data types. Scalar types describe attributes, array types chunked
// variables, and DataTypeNone groups children without a value.
const (
	DataTypeNone        = core.DataTypeNone
	DataTypeInt8        = core.DataTypeInt8
	DataTypeUint8       = core.DataTypeUint8
	DataTypeInt16       = core.DataTypeInt16
	DataTypeUint16      = core.DataTypeUint16
	DataTypeInt32       = core.DataTypeInt32
	DataTypeUint32      = core.DataTypeUint32
	DataTypeInt64       = core.DataTypeInt64
	DataTypeUint64      = core.DataTypeUint64
	DataTypeFloat       = core.DataTypeFloat
	DataTypeDouble      = core.DataTypeDouble
	DataTypeString      = core.DataTypeString
	DataTypeInt8Array   = core.DataTypeInt8Array
	DataTypeUint8Array  = core.DataTypeUint8Array
	DataTypeInt16Array  = core.DataTypeInt16Array
	DataTypeUint16Array = core.DataTypeUint16Array
	DataTypeInt32Array  = core.DataTypeInt32Array
	DataTypeUint32Array = core.DataTypeUint32Array
	DataTypeInt64Array  = core.DataTypeInt64Array
	DataTypeUint64Array = core.DataTypeUint64Array
	DataTypeFloatArray  = core.DataTypeFloatArray
	DataTypeDoubleArray = core.DataTypeDoubleArray
)

// Compression selects how chunks are encoded.
type Compression = core.Compression

// Compression schemes.
const (
	CompressionPforDelta2dInt16            = core.CompressionPforDelta2dInt16
	CompressionFpxXor2d                    = core.CompressionFpxXor2d
	CompressionPforDelta2d                 = core.CompressionPforDelta2d
	CompressionPforDelta2dInt16Logarithmic = core.CompressionPforDelta2dInt16Logarithmic
	CompressionNone                        = core.CompressionNone
)

// PackerID selects the byte compressor behind the integer packer.
type PackerID = intpack.PackerID

// Packers.
const (
	PackerNone = intpack.PackerNone
	PackerZstd = intpack.PackerZstd
	PackerS2   = intpack.PackerS2
	PackerLZ4  = intpack.PackerLZ4
)

// ParsePacker maps a packer name ("none", "zstd", "s2", "lz4") to its id.
func ParsePacker(name string) (PackerID, error) {
	return intpack.ParsePacker(name)
}

// Range is a half-open interval [Start, End) along one axis.
type Range = hyperslab.Range

// Cube places a read region inside a larger output array with extents Dims,
// starting at Offset.
type Cube = hyperslab.Cube

// Element is the set of Go types that map to om numeric data types.
type Element interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// elementType returns the scalar data type for T.
func elementType[T Element]() core.DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return core.DataTypeInt8
	case uint8:
		return core.DataTypeUint8
	case int16:
		return core.DataTypeInt16
	case uint16:
		return core.DataTypeUint16
	case int32:
		return core.DataTypeInt32
	case uint32:
		return core.DataTypeUint32
	case int64:
		return core.DataTypeInt64
	case uint64:
		return core.DataTypeUint64
	case float32:
		return core.DataTypeFloat
	default:
		return core.DataTypeDouble
	}
}

// FullRange returns ranges covering every element of dims.
func FullRange(dims []uint64) []Range {
	out := make([]Range, len(dims))
	for i, d := range dims {
		out[i] = Range{Start: 0, End: d}
	}
	return out
}
