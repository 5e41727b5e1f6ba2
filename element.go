package omfiles

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/utils"
)

// encodeElements returns the little-endian bytes of src.
func encodeElements[T Element](src []T) []byte {
	buf := make([]byte, len(src)*elementType[T]().Size())
	putElements(buf, src)
	return buf
}

// putElements writes src into buf, which must be large enough.
func putElements[T Element](buf []byte, src []T) {
	if len(src) == 0 {
		return
	}
	// Fixed-size slices always encode; the error only reports a short buffer.
	if _, err := binary.Encode(buf, binary.LittleEndian, src); err != nil {
		panic(fmt.Sprintf("omfiles: encode %d elements: %v", len(src), err))
	}
}

// getElements fills dst from the little-endian bytes in buf.
func getElements[T Element](dst []T, buf []byte) {
	if len(dst) == 0 {
		return
	}
	if _, err := binary.Decode(buf, binary.LittleEndian, dst); err != nil {
		panic(fmt.Sprintf("omfiles: decode %d elements: %v", len(dst), err))
	}
}

// float64At converts the element at index i of buf to float64.
func float64At(buf []byte, dt core.DataType, i int) float64 {
	le := binary.LittleEndian
	switch dt.Element() {
	case core.DataTypeInt8:
		return float64(int8(buf[i]))
	case core.DataTypeUint8:
		return float64(buf[i])
	case core.DataTypeInt16:
		return float64(int16(le.Uint16(buf[2*i:]))) //nolint:gosec // G115: bit reinterpretation
	case core.DataTypeUint16:
		return float64(le.Uint16(buf[2*i:]))
	case core.DataTypeInt32:
		return float64(int32(le.Uint32(buf[4*i:]))) //nolint:gosec // G115: bit reinterpretation
	case core.DataTypeUint32:
		return float64(le.Uint32(buf[4*i:]))
	case core.DataTypeInt64:
		return float64(int64(le.Uint64(buf[8*i:]))) //nolint:gosec // G115: bit reinterpretation
	case core.DataTypeUint64:
		return float64(le.Uint64(buf[8*i:]))
	case core.DataTypeFloat:
		return float64(math.Float32frombits(le.Uint32(buf[4*i:])))
	default:
		return math.Float64frombits(le.Uint64(buf[8*i:]))
	}
}

// checkElementType fails unless T matches the array element type dt.
func checkElementType[T Element](dt core.DataType) error {
	if want := elementType[T](); dt.Element() != want {
		return fmt.Errorf("%w: variable holds %s, requested %s", utils.ErrDataTypeMismatch, dt.Element(), want)
	}
	return nil
}
