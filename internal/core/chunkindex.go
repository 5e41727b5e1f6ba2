package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scigolib/omfiles/internal/intpack"
	"github.com/scigolib/omfiles/internal/utils"
)

// ChunkIndex maps linear chunk indices to byte ranges. Offsets are relative
// to the data region start (Base). The index is immutable after construction
// and safe for concurrent use.
type ChunkIndex struct {
	base   uint64
	bounds []uint64 // len = chunks+1, bounds[0] == 0, non-decreasing
}

// ChunkCount returns the number of chunks covered by the index.
func (ix *ChunkIndex) ChunkCount() uint64 {
	return uint64(len(ix.bounds) - 1)
}

// Base returns the absolute file offset of the data region.
func (ix *ChunkIndex) Base() uint64 {
	return ix.base
}

// OffsetAndLength returns the data-relative offset and byte length of chunk i.
func (ix *ChunkIndex) OffsetAndLength(i uint64) (uint64, uint32, error) {
	if i >= ix.ChunkCount() {
		return 0, 0, fmt.Errorf("%w: chunk %d of %d", utils.ErrRange, i, ix.ChunkCount())
	}
	off, end := ix.bounds[i], ix.bounds[i+1]
	return off, uint32(end - off), nil //nolint:gosec // G115: lengths checked at construction
}

// Span returns the absolute file span of chunk i.
func (ix *ChunkIndex) Span(i uint64) (Span, error) {
	off, n, err := ix.OffsetAndLength(i)
	if err != nil {
		return Span{}, err
	}
	return Span{Offset: ix.base + off, Size: uint64(n)}, nil
}

// DataEnd returns the absolute offset one past the last chunk byte.
func (ix *ChunkIndex) DataEnd() uint64 {
	return ix.base + ix.bounds[len(ix.bounds)-1]
}

func newChunkIndex(base uint64, bounds []uint64, limit uint64) (*ChunkIndex, error) {
	if len(bounds) == 0 || bounds[0] != 0 {
		return nil, fmt.Errorf("%w: index must start at the data region", utils.ErrCorruptIndex)
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] < bounds[i-1] {
			return nil, fmt.Errorf("%w: offset of chunk %d decreases (%d < %d)",
				utils.ErrCorruptIndex, i, bounds[i], bounds[i-1])
		}
		if bounds[i]-bounds[i-1] > math.MaxUint32 {
			return nil, fmt.Errorf("%w: chunk %d length %d exceeds 32 bits",
				utils.ErrCorruptIndex, i-1, bounds[i]-bounds[i-1])
		}
	}
	if end := base + bounds[len(bounds)-1]; end > limit {
		return nil, fmt.Errorf("%w: chunk data ends at %d beyond %d", utils.ErrCorruptIndex, end, limit)
	}
	return &ChunkIndex{base: base, bounds: bounds}, nil
}

// ParseLegacyIndex decodes the v1/v2 table of n cumulative end offsets.
// limit is the file size; chunk data may not extend past it.
func ParseLegacyIndex(table []byte, n uint64, dataStart, limit uint64) (*ChunkIndex, error) {
	if uint64(len(table)) != 8*n {
		return nil, fmt.Errorf("%w: legacy table holds %d bytes, want %d", utils.ErrCorruptIndex, len(table), 8*n)
	}
	bounds := make([]uint64, n+1)
	for i := range n {
		bounds[i+1] = binary.LittleEndian.Uint64(table[8*i:])
	}
	return newChunkIndex(dataStart, bounds, limit)
}

// DecodeLUT decodes a v3 lookup table frame for n chunks. The frame holds
// n+1 absolute offsets, delta and zigzag coded.
func DecodeLUT(frame []byte, n uint64, limit uint64) (*ChunkIndex, error) {
	count, err := intpack.DecodeCount(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrCorruptIndex, err)
	}
	if count != n+1 {
		return nil, fmt.Errorf("%w: lookup table holds %d entries, want %d", utils.ErrCorruptIndex, count, n+1)
	}
	vals := make([]uint64, n+1)
	if err := intpack.Decode(frame, vals); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrCorruptIndex, err)
	}

	base := vals[0]
	bounds := make([]uint64, n+1)
	var acc int64
	for i := 1; i < len(vals); i++ {
		d := intpack.UnZigZag(vals[i])
		if d < 0 {
			return nil, fmt.Errorf("%w: offset of chunk %d decreases", utils.ErrCorruptIndex, i)
		}
		acc += d
		if acc < 0 {
			return nil, fmt.Errorf("%w: offset overflow at chunk %d", utils.ErrCorruptIndex, i)
		}
		bounds[i] = uint64(acc)
	}
	return newChunkIndex(base, bounds, limit)
}

// IndexBuilder accumulates chunk end offsets during a write. Chunks must be
// appended in increasing linear order.
type IndexBuilder struct {
	base   uint64
	bounds []uint64
}

// NewIndexBuilder starts an index whose data region begins at base.
func NewIndexBuilder(base uint64, expected uint64) *IndexBuilder {
	bounds := make([]uint64, 1, expected+1)
	return &IndexBuilder{base: base, bounds: bounds}
}

// Append records the next chunk, which occupies length bytes.
func (b *IndexBuilder) Append(length uint64) error {
	if length > math.MaxUint32 {
		return fmt.Errorf("%w: chunk length %d exceeds 32 bits", utils.ErrCodec, length)
	}
	b.bounds = append(b.bounds, b.bounds[len(b.bounds)-1]+length)
	return nil
}

// Len returns the number of chunks appended so far.
func (b *IndexBuilder) Len() uint64 {
	return uint64(len(b.bounds) - 1)
}

// Base returns the absolute offset of the data region.
func (b *IndexBuilder) Base() uint64 {
	return b.base
}

// Index freezes the builder into a read-only ChunkIndex.
func (b *IndexBuilder) Index() *ChunkIndex {
	bounds := make([]uint64, len(b.bounds))
	copy(bounds, b.bounds)
	return &ChunkIndex{base: b.base, bounds: bounds}
}

// EncodeLUT serializes the index as a v3 lookup table frame.
func (b *IndexBuilder) EncodeLUT(packer intpack.PackerID) ([]byte, error) {
	vals := make([]uint64, len(b.bounds))
	vals[0] = b.base
	for i := 1; i < len(b.bounds); i++ {
		vals[i] = intpack.ZigZag(int64(b.bounds[i] - b.bounds[i-1])) //nolint:gosec // G115: lengths fit 32 bits
	}
	return intpack.Encode(vals, packer)
}

// EncodeLegacy serializes the index as the v1/v2 table of cumulative end
// offsets relative to the data region.
func (b *IndexBuilder) EncodeLegacy() []byte {
	buf := make([]byte, 0, 8*b.Len())
	for _, end := range b.bounds[1:] {
		buf = binary.LittleEndian.AppendUint64(buf, end)
	}
	return buf
}
