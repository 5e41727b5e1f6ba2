package omfiles

import (
	"context"
	"errors"

	"github.com/scigolib/omfiles/internal/hyperslab"
	"github.com/scigolib/omfiles/internal/utils"
)

// ChunkIterator walks an array variable one chunk at a time in row-major
// chunk order, holding at most one decoded chunk in memory.
//
// Usage:
//
//	it, err := omfiles.NewChunkIterator[float32](ctx, v)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for it.Next() {
//	    data, err := it.Chunk()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    process(it.ChunkStart(), it.ChunkShape(), data)
//	}
//	if err := it.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// The iterator follows the Go scanner pattern (bufio.Scanner). The context
// is checked on every Next call.
type ChunkIterator[T Element] struct {
	v          *Variable
	dims       []uint64
	chunks     []uint64
	total      uint64
	current    uint64
	err        error
	ctx        context.Context
	onProgress func(current, total uint64)
}

// NewChunkIterator returns an iterator over the chunks of v. T must match
// the variable's element type.
func NewChunkIterator[T Element](ctx context.Context, v *Variable) (*ChunkIterator[T], error) {
	if !v.IsArray() {
		return nil, errors.New("chunk iteration needs an array variable")
	}
	if err := checkElementType[T](v.DataType()); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &ChunkIterator[T]{
		v:      v,
		dims:   v.Dims(),
		chunks: v.Chunks(),
		total:  v.ChunkCount(),
		ctx:    ctx,
	}, nil
}

// Next advances to the next chunk. Returns false when iteration is complete
// or an error occurred. Check Err() after iteration to distinguish.
func (it *ChunkIterator[T]) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}

	if it.current >= it.total {
		return false
	}
	it.current++

	if it.onProgress != nil {
		it.onProgress(it.current, it.total)
	}
	return true
}

// Chunk decodes the current chunk and returns its elements in row-major
// order over ChunkShape. A decode failure also stops the iteration.
func (it *ChunkIterator[T]) Chunk() ([]T, error) {
	if it.current < 1 || it.current > it.total {
		return nil, errors.New("no current chunk: call Next() first")
	}
	done, err := it.v.r.acquire()
	if err != nil {
		it.err = err
		return nil, err
	}
	defer done()

	ix, err := it.v.r.chunkIndex(it.v.h)
	if err != nil {
		it.err = err
		return nil, err
	}
	shape := it.ChunkShape()
	buf, err := it.v.decodeChunk(ix, it.v.codecParams(), it.current-1, shape)
	if err != nil {
		it.err = err
		return nil, err
	}
	defer utils.ReleaseBuffer(buf)

	out := make([]T, len(buf)/elementType[T]().Size())
	getElements(out, buf)
	return out, nil
}

// ChunkCoords returns the coordinates of the current chunk in chunk units.
// For element indices use ChunkStart.
func (it *ChunkIterator[T]) ChunkCoords() []uint64 {
	if it.current < 1 || it.current > it.total {
		return nil
	}
	return hyperslab.ChunkCoordinate(it.dims, it.chunks, it.current-1)
}

// ChunkStart returns the element offset of the current chunk.
func (it *ChunkIterator[T]) ChunkStart() []uint64 {
	coord := it.ChunkCoords()
	for i := range coord {
		coord[i] *= it.chunks[i]
	}
	return coord
}

// ChunkShape returns the extents of the current chunk. Chunks at the upper
// edge of a dimension may be smaller than the chunk dimensions.
func (it *ChunkIterator[T]) ChunkShape() []uint64 {
	coord := it.ChunkCoords()
	if coord == nil {
		return nil
	}
	return hyperslab.ChunkShape(it.dims, it.chunks, coord)
}

// Progress returns the current chunk number (1-based) and the chunk count.
func (it *ChunkIterator[T]) Progress() (current, total uint64) {
	return it.current, it.total
}

// Total returns the number of chunks.
func (it *ChunkIterator[T]) Total() uint64 {
	return it.total
}

// Err returns any error that occurred during iteration.
func (it *ChunkIterator[T]) Err() error {
	return it.err
}

// OnProgress sets a callback invoked after each successful Next with the
// current chunk number and the total.
func (it *ChunkIterator[T]) OnProgress(fn func(current, total uint64)) {
	it.onProgress = fn
}

// Reset rewinds the iterator to the first chunk and clears the error.
func (it *ChunkIterator[T]) Reset() {
	it.current = 0
	it.err = nil
}
