package intpack

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/scigolib/omfiles/internal/utils"
)

// Frame layout:
//
//	u8       packer id
//	uvarint  element count
//	uvarint  unpacked body length
//	...      packed body (uvarint stream of the elements)
//
// An empty element list still produces a valid three-byte frame.

// Encode packs values into a self-describing frame using the given packer.
// When the packer cannot shrink the stream the frame is stored unpacked.
func Encode(values []uint64, id PackerID) ([]byte, error) {
	p, ok := packers[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown packer %d", utils.ErrCodec, id)
	}

	raw := make([]byte, 0, len(values)*2)
	for _, v := range values {
		raw = binary.AppendUvarint(raw, v)
	}

	body, err := p.Compress(raw)
	if errors.Is(err, errIncompressible) {
		p, body = packers[PackerNone], raw
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrCodec, err)
	}

	out := make([]byte, 0, len(body)+2*binary.MaxVarintLen64+1)
	out = append(out, byte(p.ID()))
	out = binary.AppendUvarint(out, uint64(len(values)))
	out = binary.AppendUvarint(out, uint64(len(raw)))
	return append(out, body...), nil
}

// Decode unpacks a frame written by Encode into dst, which must have exactly
// the element count recorded in the frame.
func Decode(frame []byte, dst []uint64) error {
	if len(frame) < 1 {
		return fmt.Errorf("%w: empty frame", utils.ErrCodec)
	}
	p, ok := packers[PackerID(frame[0])]
	if !ok {
		return fmt.Errorf("%w: unknown packer %d", utils.ErrCodec, frame[0])
	}
	pos := 1

	count, n := binary.Uvarint(frame[pos:])
	if n <= 0 {
		return fmt.Errorf("%w: truncated element count", utils.ErrCodec)
	}
	pos += n
	if count != uint64(len(dst)) {
		return fmt.Errorf("%w: frame holds %d elements, expected %d", utils.ErrCodec, count, len(dst))
	}

	rawLen, n := binary.Uvarint(frame[pos:])
	if n <= 0 {
		return fmt.Errorf("%w: truncated body length", utils.ErrCodec)
	}
	pos += n
	// Every element takes at least one and at most MaxVarintLen64 bytes.
	if rawLen < count || rawLen > count*binary.MaxVarintLen64 {
		return fmt.Errorf("%w: body length %d inconsistent with %d elements", utils.ErrCodec, rawLen, count)
	}

	raw, err := p.Decompress(frame[pos:], int(rawLen)) //nolint:gosec // G115: bounded by element count above
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrCodec, err)
	}

	for i := range dst {
		v, n := binary.Uvarint(raw)
		if n <= 0 {
			return fmt.Errorf("%w: truncated body at element %d", utils.ErrCodec, i)
		}
		dst[i] = v
		raw = raw[n:]
	}
	if len(raw) != 0 {
		return fmt.Errorf("%w: %d trailing bytes in body", utils.ErrCodec, len(raw))
	}
	return nil
}

// DecodeCount reads the element count of a frame without unpacking it.
func DecodeCount(frame []byte) (uint64, error) {
	if len(frame) < 2 {
		return 0, fmt.Errorf("%w: frame too short", utils.ErrCodec)
	}
	count, n := binary.Uvarint(frame[1:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: truncated element count", utils.ErrCodec)
	}
	return count, nil
}

// ZigZag maps signed integers onto unsigned ones so that small magnitudes
// stay small.
func ZigZag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63) //nolint:gosec // G115: bit reinterpretation
}

// UnZigZag reverses ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1) //nolint:gosec // G115: bit reinterpretation
}
