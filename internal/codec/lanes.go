package codec

import (
	"encoding/binary"
	"math"

	"github.com/scigolib/omfiles/internal/core"
)

var le = binary.LittleEndian

// intLanes widens integer elements to int64. Unsigned 64-bit values are
// reinterpreted; delta arithmetic wraps consistently in both directions.
//
//nolint:gosec // G115: bit-exact reinterpretation throughout
func intLanes(raw []byte, dt core.DataType) []int64 {
	n := len(raw) / dt.Size()
	lanes := make([]int64, n)
	switch dt {
	case core.DataTypeInt8:
		for i := range lanes {
			lanes[i] = int64(int8(raw[i]))
		}
	case core.DataTypeUint8:
		for i := range lanes {
			lanes[i] = int64(raw[i])
		}
	case core.DataTypeInt16:
		for i := range lanes {
			lanes[i] = int64(int16(le.Uint16(raw[2*i:])))
		}
	case core.DataTypeUint16:
		for i := range lanes {
			lanes[i] = int64(le.Uint16(raw[2*i:]))
		}
	case core.DataTypeInt32:
		for i := range lanes {
			lanes[i] = int64(int32(le.Uint32(raw[4*i:])))
		}
	case core.DataTypeUint32:
		for i := range lanes {
			lanes[i] = int64(le.Uint32(raw[4*i:]))
		}
	case core.DataTypeInt64, core.DataTypeUint64:
		for i := range lanes {
			lanes[i] = int64(le.Uint64(raw[8*i:]))
		}
	}
	return lanes
}

// storeIntLanes narrows lanes back to the element width.
//
//nolint:gosec // G115: truncation to the stored width is intended
func storeIntLanes(dst []byte, dt core.DataType, lanes []int64) {
	switch dt {
	case core.DataTypeInt8, core.DataTypeUint8:
		for i, l := range lanes {
			dst[i] = byte(l)
		}
	case core.DataTypeInt16, core.DataTypeUint16:
		for i, l := range lanes {
			le.PutUint16(dst[2*i:], uint16(l))
		}
	case core.DataTypeInt32, core.DataTypeUint32:
		for i, l := range lanes {
			le.PutUint32(dst[4*i:], uint32(l))
		}
	case core.DataTypeInt64, core.DataTypeUint64:
		for i, l := range lanes {
			le.PutUint64(dst[8*i:], uint64(l))
		}
	}
}

// bitLanes returns the IEEE bit patterns of float elements.
func bitLanes(raw []byte, dt core.DataType) []uint64 {
	n := len(raw) / dt.Size()
	bits := make([]uint64, n)
	if dt == core.DataTypeFloat {
		for i := range bits {
			bits[i] = uint64(le.Uint32(raw[4*i:]))
		}
		return bits
	}
	for i := range bits {
		bits[i] = le.Uint64(raw[8*i:])
	}
	return bits
}

//nolint:gosec // G115: float32 patterns occupy the low 32 bits
func storeBitLanes(dst []byte, dt core.DataType, bits []uint64) {
	if dt == core.DataTypeFloat {
		for i, b := range bits {
			le.PutUint32(dst[4*i:], uint32(b))
		}
		return
	}
	for i, b := range bits {
		le.PutUint64(dst[8*i:], b)
	}
}

// floatAt reads element i of a float or double buffer.
func floatAt(raw []byte, dt core.DataType, i int) float64 {
	if dt == core.DataTypeFloat {
		return float64(math.Float32frombits(le.Uint32(raw[4*i:])))
	}
	return math.Float64frombits(le.Uint64(raw[8*i:]))
}

// putFloat writes element i of a float or double buffer.
func putFloat(dst []byte, dt core.DataType, i int, v float64) {
	if dt == core.DataTypeFloat {
		le.PutUint32(dst[4*i:], math.Float32bits(float32(v)))
		return
	}
	le.PutUint64(dst[8*i:], math.Float64bits(v))
}
