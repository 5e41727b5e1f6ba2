package core

import "fmt"

// DataType is the om data type enumerant stored in every variable record.
// Scalar types describe attributes; array types describe chunked variables.
type DataType uint8

// Data type constants, numbered as on disk.
const (
	DataTypeNone        DataType = 0
	DataTypeInt8        DataType = 1
	DataTypeUint8       DataType = 2
	DataTypeInt16       DataType = 3
	DataTypeUint16      DataType = 4
	DataTypeInt32       DataType = 5
	DataTypeUint32      DataType = 6
	DataTypeInt64       DataType = 7
	DataTypeUint64      DataType = 8
	DataTypeFloat       DataType = 9
	DataTypeDouble      DataType = 10
	DataTypeString      DataType = 11
	DataTypeInt8Array   DataType = 12
	DataTypeUint8Array  DataType = 13
	DataTypeInt16Array  DataType = 14
	DataTypeUint16Array DataType = 15
	DataTypeInt32Array  DataType = 16
	DataTypeUint32Array DataType = 17
	DataTypeInt64Array  DataType = 18
	DataTypeUint64Array DataType = 19
	DataTypeFloatArray  DataType = 20
	DataTypeDoubleArray DataType = 21
	DataTypeStringArray DataType = 22
)

// arrayOffset is the distance between a scalar type and its array type.
const arrayOffset = DataTypeInt8Array - DataTypeInt8

var dataTypeNames = [...]string{
	"none", "int8", "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64",
	"float", "double", "string",
	"int8_array", "uint8_array", "int16_array", "uint16_array", "int32_array", "uint32_array",
	"int64_array", "uint64_array", "float_array", "double_array", "string_array",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("datatype(%d)", uint8(t))
}

// Valid reports whether t is a known enumerant.
func (t DataType) Valid() bool {
	return t <= DataTypeStringArray
}

// IsArray reports whether t is a numeric array type. String arrays are
// recognized but not supported.
func (t DataType) IsArray() bool {
	return t >= DataTypeInt8Array && t <= DataTypeDoubleArray
}

// IsScalar reports whether t is a scalar type (numeric or string).
func (t DataType) IsScalar() bool {
	return t >= DataTypeInt8 && t <= DataTypeString
}

// Element returns the scalar element type of an array type. Scalar types are
// returned unchanged.
func (t DataType) Element() DataType {
	if t >= DataTypeInt8Array && t <= DataTypeStringArray {
		return t - arrayOffset
	}
	return t
}

// Array returns the array type for a numeric scalar type.
func (t DataType) Array() DataType {
	if t >= DataTypeInt8 && t <= DataTypeString {
		return t + arrayOffset
	}
	return t
}

// Size returns the byte width of one element of t (or its element type).
// Strings and None have no fixed width and return 0.
func (t DataType) Size() int {
	switch t.Element() {
	case DataTypeInt8, DataTypeUint8:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeUint32, DataTypeFloat:
		return 4
	case DataTypeInt64, DataTypeUint64, DataTypeDouble:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the element type is float or double.
func (t DataType) IsFloat() bool {
	e := t.Element()
	return e == DataTypeFloat || e == DataTypeDouble
}

// Compression identifies the per-chunk codec scheme.
type Compression uint8

// Compression schemes, numbered as on disk.
const (
	// CompressionPforDelta2dInt16 quantizes floats to int16 using scale and offset.
	CompressionPforDelta2dInt16 Compression = 0
	// CompressionFpxXor2d stores floats losslessly with xor deltas.
	CompressionFpxXor2d Compression = 1
	// CompressionPforDelta2d is lossless for integers; floats are quantized to
	// int32 (float) or int64 (double).
	CompressionPforDelta2d Compression = 2
	// CompressionPforDelta2dInt16Logarithmic quantizes log10(1+v) to int16.
	CompressionPforDelta2dInt16Logarithmic Compression = 3
	// CompressionNone stores raw little-endian elements.
	CompressionNone Compression = 4
)

func (c Compression) String() string {
	switch c {
	case CompressionPforDelta2dInt16:
		return "pfor_delta2d_int16"
	case CompressionFpxXor2d:
		return "fpx_xor2d"
	case CompressionPforDelta2d:
		return "pfor_delta2d"
	case CompressionPforDelta2dInt16Logarithmic:
		return "pfor_delta2d_int16_logarithmic"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// Valid reports whether c is a known scheme.
func (c Compression) Valid() bool {
	return c <= CompressionNone
}
