package writer

import (
	"fmt"
	"slices"

	"github.com/scigolib/omfiles/internal/hyperslab"
	"github.com/scigolib/omfiles/internal/utils"
)

// ChunkSequence tracks which chunk of an array must be written next.
//
// Chunks are accepted strictly in row-major order of their coordinates:
// the rightmost axis varies fastest. Edge chunks at the array boundary are
// truncated to the array extent.
//
// Example (2D, array 25x35, chunks 10x10):
//
//	index 0  -> [0,0] shape [10,10]
//	index 3  -> [0,3] shape [10,5]
//	index 8  -> [2,0] shape [5,10]
//	index 11 -> [2,3] shape [5,5]
type ChunkSequence struct {
	dims   []uint64
	chunks []uint64
	total  uint64
	next   uint64
}

// NewChunkSequence validates the shape and starts at chunk 0.
func NewChunkSequence(dims, chunks []uint64) (*ChunkSequence, error) {
	if len(dims) != len(chunks) {
		return nil, fmt.Errorf("%w: array has %d dims, chunk has %d dims",
			utils.ErrShapeMismatch, len(dims), len(chunks))
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: array must have at least 1 dimension", utils.ErrShapeMismatch)
	}
	for i := range dims {
		if dims[i] == 0 || chunks[i] == 0 {
			return nil, fmt.Errorf("%w: dimension %d must be larger than 0", utils.ErrShapeMismatch, i)
		}
	}
	return &ChunkSequence{
		dims:   slices.Clone(dims),
		chunks: slices.Clone(chunks),
		total:  hyperslab.ChunkCount(dims, chunks),
	}, nil
}

// Total returns the number of chunks in the array.
func (cs *ChunkSequence) Total() uint64 {
	return cs.total
}

// Next returns the linear index of the chunk expected next.
func (cs *ChunkSequence) Next() uint64 {
	return cs.next
}

// Done reports whether every chunk has been accepted.
func (cs *ChunkSequence) Done() bool {
	return cs.next == cs.total
}

// NextCoordinate returns the coordinate of the chunk expected next.
func (cs *ChunkSequence) NextCoordinate() []uint64 {
	return hyperslab.ChunkCoordinate(cs.dims, cs.chunks, cs.next)
}

// Expect checks that coord is the next chunk and returns its actual shape.
// The sequence is not advanced; call Advance once the chunk is stored.
func (cs *ChunkSequence) Expect(coord []uint64) ([]uint64, error) {
	if cs.Done() {
		return nil, fmt.Errorf("%w: all %d chunks already written", utils.ErrSequence, cs.total)
	}
	want := cs.NextCoordinate()
	if !slices.Equal(coord, want) {
		return nil, fmt.Errorf("%w: got chunk %v, expected %v", utils.ErrSequence, coord, want)
	}
	return hyperslab.ChunkShape(cs.dims, cs.chunks, want), nil
}

// Advance moves to the following chunk.
func (cs *ChunkSequence) Advance() {
	if cs.next < cs.total {
		cs.next++
	}
}

// Dims returns the array dimensions (read-only copy).
func (cs *ChunkSequence) Dims() []uint64 {
	return slices.Clone(cs.dims)
}

// ChunkDims returns the chunk dimensions (read-only copy).
func (cs *ChunkSequence) ChunkDims() []uint64 {
	return slices.Clone(cs.chunks)
}
