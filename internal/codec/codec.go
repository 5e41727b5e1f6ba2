// Package codec encodes and decodes single chunk buffers.
//
// A chunk travels through three stages: element bytes are mapped to int64
// lanes (quantized floats, bit patterns or plain integers), the lanes are
// delta coded across rows of the chunk's last axis, and the result is handed
// to the integer packer in internal/intpack. Every supported pair of
// compression scheme and data type has one entry in a static dispatch table.
//
// All functions are stateless and safe for concurrent use.
package codec

import (
	"fmt"
	"math"

	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/intpack"
	"github.com/scigolib/omfiles/internal/utils"
)

// Params selects the codec for one variable.
type Params struct {
	DataType    core.DataType // element type; array types are normalized
	Compression core.Compression
	ScaleFactor float32
	AddOffset   float32
	Packer      intpack.PackerID // encode only; frames are self-describing
}

type key struct {
	c  core.Compression
	dt core.DataType
}

type scheme struct {
	encode func(raw []byte, rowLen int, p Params) ([]byte, error)
	decode func(data, dst []byte, rowLen int, p Params) error
}

var schemes = buildSchemes()

func buildSchemes() map[key]scheme {
	m := make(map[key]scheme)
	ints := []core.DataType{
		core.DataTypeInt8, core.DataTypeUint8, core.DataTypeInt16, core.DataTypeUint16,
		core.DataTypeInt32, core.DataTypeUint32, core.DataTypeInt64, core.DataTypeUint64,
	}
	floats := []core.DataType{core.DataTypeFloat, core.DataTypeDouble}

	raw := scheme{encode: encodeRaw, decode: decodeRaw}
	for _, dt := range append(ints, floats...) {
		m[key{core.CompressionNone, dt}] = raw
	}
	for _, dt := range ints {
		m[key{core.CompressionPforDelta2d, dt}] = scheme{encode: encodeInts, decode: decodeInts}
	}
	for _, dt := range floats {
		m[key{core.CompressionFpxXor2d, dt}] = scheme{encode: encodeXor, decode: decodeXor}
		m[key{core.CompressionPforDelta2d, dt}] = quantScheme(wideLane(dt), false)
		m[key{core.CompressionPforDelta2dInt16, dt}] = quantScheme(int16Lane, false)
		m[key{core.CompressionPforDelta2dInt16Logarithmic, dt}] = quantScheme(int16Lane, true)
	}
	return m
}

func lookup(p Params) (scheme, error) {
	s, ok := schemes[key{p.Compression, p.DataType.Element()}]
	if !ok {
		return scheme{}, fmt.Errorf("%w: compression %s does not support %s",
			utils.ErrUnsupportedFormat, p.Compression, p.DataType.Element())
	}
	return s, nil
}

// Supports reports whether the scheme can encode the data type.
func Supports(c core.Compression, dt core.DataType) bool {
	_, ok := schemes[key{c, dt.Element()}]
	return ok
}

// IsLossy reports whether the scheme quantizes the data type.
func IsLossy(c core.Compression, dt core.DataType) bool {
	if !dt.IsFloat() {
		return false
	}
	return c == core.CompressionPforDelta2d || c == core.CompressionPforDelta2dInt16 ||
		c == core.CompressionPforDelta2dInt16Logarithmic
}

// Validate checks that p names a supported combination with usable
// quantization parameters.
func Validate(p Params) error {
	_, err := resolve(p)
	return err
}

func resolve(p Params) (scheme, error) {
	s, err := lookup(p)
	if err != nil {
		return scheme{}, err
	}
	if IsLossy(p.Compression, p.DataType) {
		sf := float64(p.ScaleFactor)
		if sf == 0 || math.IsNaN(sf) || math.IsInf(sf, 0) {
			return scheme{}, fmt.Errorf("%w: scale factor %v is not usable for %s", utils.ErrCodec, p.ScaleFactor, p.Compression)
		}
	}
	return s, nil
}

// Encode encodes one chunk. raw holds the chunk's elements in row-major
// order as little-endian bytes; rowLen is the chunk's extent along the last
// axis.
func Encode(raw []byte, rowLen int, p Params) ([]byte, error) {
	s, err := resolve(p)
	if err != nil {
		return nil, err
	}
	size := p.DataType.Size()
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %s elements", utils.ErrCodec, len(raw), p.DataType.Element())
	}
	if err := checkRows(len(raw)/size, rowLen); err != nil {
		return nil, err
	}
	return s.encode(raw, rowLen, p)
}

// Decode decodes one chunk into dst, which must be exactly the chunk's
// element count times the element size.
func Decode(data, dst []byte, rowLen int, p Params) error {
	s, err := resolve(p)
	if err != nil {
		return err
	}
	size := p.DataType.Size()
	if len(dst)%size != 0 {
		return fmt.Errorf("%w: output of %d bytes is not a whole number of elements", utils.ErrCodec, len(dst))
	}
	if err := checkRows(len(dst)/size, rowLen); err != nil {
		return err
	}
	return s.decode(data, dst, rowLen, p)
}

func checkRows(n, rowLen int) error {
	if n == 0 {
		return nil
	}
	if rowLen <= 0 || n%rowLen != 0 {
		return fmt.Errorf("%w: %d elements do not form rows of %d", utils.ErrCodec, n, rowLen)
	}
	return nil
}

func encodeRaw(raw []byte, _ int, _ Params) ([]byte, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func decodeRaw(data, dst []byte, _ int, _ Params) error {
	if len(data) != len(dst) {
		return fmt.Errorf("%w: raw chunk holds %d bytes, expected %d", utils.ErrCodec, len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

func encodeInts(raw []byte, rowLen int, p Params) ([]byte, error) {
	lanes := intLanes(raw, p.DataType.Element())
	delta2dEncode(lanes, rowLen)
	return packLanes(lanes, p.Packer)
}

func decodeInts(data, dst []byte, rowLen int, p Params) error {
	dt := p.DataType.Element()
	lanes, err := unpackLanes(data, len(dst)/dt.Size())
	if err != nil {
		return err
	}
	delta2dDecode(lanes, rowLen)
	storeIntLanes(dst, dt, lanes)
	return nil
}

func encodeXor(raw []byte, rowLen int, p Params) ([]byte, error) {
	bits := bitLanes(raw, p.DataType.Element())
	xor2dEncode(bits, rowLen)
	frame, err := intpack.Encode(bits, packerOrDefault(p.Packer))
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func decodeXor(data, dst []byte, rowLen int, p Params) error {
	dt := p.DataType.Element()
	bits := make([]uint64, len(dst)/dt.Size())
	if err := intpack.Decode(data, bits); err != nil {
		return err
	}
	xor2dDecode(bits, rowLen)
	storeBitLanes(dst, dt, bits)
	return nil
}

func quantScheme(lane laneRange, logarithmic bool) scheme {
	return scheme{
		encode: func(raw []byte, rowLen int, p Params) ([]byte, error) {
			lanes := quantizeLanes(raw, p, lane, logarithmic)
			delta2dEncode(lanes, rowLen)
			return packLanes(lanes, p.Packer)
		},
		decode: func(data, dst []byte, rowLen int, p Params) error {
			dt := p.DataType.Element()
			lanes, err := unpackLanes(data, len(dst)/dt.Size())
			if err != nil {
				return err
			}
			delta2dDecode(lanes, rowLen)
			dequantizeLanes(dst, lanes, p, lane, logarithmic)
			return nil
		},
	}
}

func packerOrDefault(id intpack.PackerID) intpack.PackerID {
	if _, ok := intpack.Lookup(id); !ok {
		return intpack.DefaultPacker
	}
	return id
}

func packLanes(lanes []int64, packer intpack.PackerID) ([]byte, error) {
	vals := make([]uint64, len(lanes))
	for i, l := range lanes {
		vals[i] = intpack.ZigZag(l)
	}
	return intpack.Encode(vals, packerOrDefault(packer))
}

func unpackLanes(data []byte, n int) ([]int64, error) {
	vals := make([]uint64, n)
	if err := intpack.Decode(data, vals); err != nil {
		return nil, err
	}
	lanes := make([]int64, n)
	for i, v := range vals {
		lanes[i] = intpack.UnZigZag(v)
	}
	return lanes, nil
}
