// Package hyperslab decomposes a rectangular read request over a chunked
// array into per-chunk work items and copies data between chunk buffers and
// caller arrays.
package hyperslab

import (
	"fmt"
	"iter"

	"github.com/scigolib/omfiles/internal/utils"
)

// Range is a half-open interval [Start, End) along one axis.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns End-Start.
func (r Range) Len() uint64 {
	return r.End - r.Start
}

// WorkItem describes the overlap between one chunk and the requested region.
type WorkItem struct {
	Chunk     []uint64 // chunk coordinate
	Linear    uint64   // row-major linear chunk index
	Shape     []uint64 // actual chunk extents (edge chunks are truncated)
	InOffset  []uint64 // start of the overlap inside the chunk
	Count     []uint64 // extent of the overlap
	OutOffset []uint64 // start of the overlap inside the requested region
}

// Elements returns the number of elements in the overlap.
func (w WorkItem) Elements() uint64 {
	n := uint64(1)
	for _, c := range w.Count {
		n *= c
	}
	return n
}

// ChunkElements returns the number of elements stored in the chunk.
func (w WorkItem) ChunkElements() uint64 {
	n := uint64(1)
	for _, c := range w.Shape {
		n *= c
	}
	return n
}

// Plan is a validated request. It holds no cursor; Items may be ranged over
// any number of times and At gives random access for parallel execution.
type Plan struct {
	dims    []uint64
	chunks  []uint64
	nChunks []uint64 // chunks per axis over the whole array
	ranges  []Range
	first   []uint64 // first chunk per axis touched by the request
	span    []uint64 // chunks per axis touched by the request
	total   uint64
}

// NewPlan validates ranges against dims and prepares the decomposition.
// Ranges are never clamped: any range with start >= end or end > dim is
// rejected with ErrRange.
func NewPlan(dims, chunks []uint64, ranges []Range) (*Plan, error) {
	if len(ranges) != len(dims) {
		return nil, fmt.Errorf("%w: %d ranges for %d dimensions", utils.ErrShapeMismatch, len(ranges), len(dims))
	}
	if len(chunks) != len(dims) {
		return nil, fmt.Errorf("%w: %d chunk dimensions for %d dimensions", utils.ErrShapeMismatch, len(chunks), len(dims))
	}

	n := len(dims)
	p := &Plan{
		dims:    dims,
		chunks:  chunks,
		nChunks: make([]uint64, n),
		ranges:  ranges,
		first:   make([]uint64, n),
		span:    make([]uint64, n),
		total:   1,
	}
	for i, r := range ranges {
		if r.Start >= r.End || r.End > dims[i] {
			return nil, fmt.Errorf("%w: axis %d range [%d, %d) with dimension %d",
				utils.ErrRange, i, r.Start, r.End, dims[i])
		}
		if chunks[i] == 0 {
			return nil, fmt.Errorf("%w: chunk dimension %d is zero", utils.ErrShapeMismatch, i)
		}
		p.nChunks[i] = utils.CeilDiv(dims[i], chunks[i])
		p.first[i] = r.Start / chunks[i]
		last := (r.End - 1) / chunks[i]
		p.span[i] = last - p.first[i] + 1
		p.total *= p.span[i]
	}
	return p, nil
}

// Len returns the number of work items.
func (p *Plan) Len() uint64 {
	return p.total
}

// OutShape returns the extents of the requested region.
func (p *Plan) OutShape() []uint64 {
	out := make([]uint64, len(p.ranges))
	for i, r := range p.ranges {
		out[i] = r.Len()
	}
	return out
}

// Elements returns the number of elements in the requested region, failing
// when it exceeds limit.
func (p *Plan) Elements(limit uint64) (uint64, error) {
	return utils.ElementCount(p.OutShape(), limit)
}

// At returns the i-th work item in row-major chunk order.
func (p *Plan) At(i uint64) WorkItem {
	n := len(p.dims)
	coord := make([]uint64, n)
	rem := i
	for d := n - 1; d >= 0; d-- {
		coord[d] = p.first[d] + rem%p.span[d]
		rem /= p.span[d]
	}
	return p.item(coord)
}

// Items yields every work item in row-major chunk order.
func (p *Plan) Items() iter.Seq[WorkItem] {
	return func(yield func(WorkItem) bool) {
		for i := range p.total {
			if !yield(p.At(i)) {
				return
			}
		}
	}
}

func (p *Plan) item(coord []uint64) WorkItem {
	n := len(p.dims)
	w := WorkItem{
		Chunk:     coord,
		Shape:     make([]uint64, n),
		InOffset:  make([]uint64, n),
		Count:     make([]uint64, n),
		OutOffset: make([]uint64, n),
	}
	for d := range n {
		w.Linear = w.Linear*p.nChunks[d] + coord[d]

		cStart := coord[d] * p.chunks[d]
		cEnd := min(cStart+p.chunks[d], p.dims[d])
		w.Shape[d] = cEnd - cStart

		lo := max(cStart, p.ranges[d].Start)
		hi := min(cEnd, p.ranges[d].End)
		w.InOffset[d] = lo - cStart
		w.Count[d] = hi - lo
		w.OutOffset[d] = lo - p.ranges[d].Start
	}
	return w
}

// Clamp trims ranges to dims, for callers that prefer lenient bounds.
// Empty results after clamping are still rejected by NewPlan.
func Clamp(ranges []Range, dims []uint64) []Range {
	out := make([]Range, len(ranges))
	for i, r := range ranges {
		if i < len(dims) {
			r.End = min(r.End, dims[i])
			r.Start = min(r.Start, r.End)
		}
		out[i] = r
	}
	return out
}

// ChunkShape returns the actual extents of the chunk at coord.
func ChunkShape(dims, chunks, coord []uint64) []uint64 {
	shape := make([]uint64, len(dims))
	for d := range dims {
		start := coord[d] * chunks[d]
		shape[d] = min(start+chunks[d], dims[d]) - start
	}
	return shape
}

// ChunkCoordinate converts a linear chunk index to its coordinate.
func ChunkCoordinate(dims, chunks []uint64, linear uint64) []uint64 {
	coord := make([]uint64, len(dims))
	for d := len(dims) - 1; d >= 0; d-- {
		n := utils.CeilDiv(dims[d], chunks[d])
		coord[d] = linear % n
		linear /= n
	}
	return coord
}

// ChunkCount returns the number of chunks of the whole array.
func ChunkCount(dims, chunks []uint64) uint64 {
	total := uint64(1)
	for d := range dims {
		total *= utils.CeilDiv(dims[d], chunks[d])
	}
	return total
}
