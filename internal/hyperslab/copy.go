package hyperslab

import (
	"fmt"
	"math"

	"github.com/scigolib/omfiles/internal/utils"
)

// Cube places a requested region inside a larger caller array: the array has
// extents Dims and the region starts at Offset.
type Cube struct {
	Dims   []uint64
	Offset []uint64
}

// Validate checks that a region of the given shape fits inside the cube.
func (c Cube) Validate(shape []uint64) error {
	if len(c.Dims) != len(shape) || len(c.Offset) != len(shape) {
		return fmt.Errorf("%w: cube has %d dims and %d offsets for a %d-dimensional region",
			utils.ErrShapeMismatch, len(c.Dims), len(c.Offset), len(shape))
	}
	for i := range shape {
		if c.Offset[i] > c.Dims[i] || shape[i] > c.Dims[i]-c.Offset[i] {
			return fmt.Errorf("%w: axis %d offset %d and count %d exceed cube dimension %d",
				utils.ErrShapeMismatch, i, c.Offset[i], shape[i], c.Dims[i])
		}
	}
	_, err := c.Elements()
	return err
}

// Elements returns the element count of the cube, failing when the product
// of its dimensions overflows.
func (c Cube) Elements() (uint64, error) {
	n, err := utils.ElementCount(c.Dims, math.MaxUint64)
	if err != nil {
		return 0, fmt.Errorf("%w: cube %v: %w", utils.ErrShapeMismatch, c.Dims, err)
	}
	return n, nil
}

// Scatter copies the overlap described by w from a decoded chunk into the
// caller array described by out.
func Scatter(dst []byte, out Cube, chunk []byte, w WorkItem, elemSize int) {
	copyRegion(w.Count, elemSize,
		chunk, w.Shape, w.InOffset,
		dst, out.Dims, offsetSum(out.Offset, w.OutOffset),
		false)
}

// Gather copies the overlap described by w from the caller array described
// by src into a chunk buffer.
func Gather(chunk []byte, w WorkItem, src []byte, in Cube, elemSize int) {
	copyRegion(w.Count, elemSize,
		chunk, w.Shape, w.InOffset,
		src, in.Dims, offsetSum(in.Offset, w.OutOffset),
		true)
}

func offsetSum(a, b []uint64) []uint64 {
	out := make([]uint64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// copyRegion moves a count-shaped block between a chunk buffer and an array
// one contiguous last-axis run at a time. toChunk selects the direction.
func copyRegion(count []uint64, elemSize int,
	chunk []byte, chunkDims, chunkOff []uint64,
	arr []byte, arrDims, arrOff []uint64,
	toChunk bool,
) {
	n := len(count)
	for _, c := range count {
		if c == 0 {
			return
		}
	}
	runBytes := count[n-1] * uint64(elemSize) //nolint:gosec // G115: element sizes are 1..8
	idx := make([]uint64, n)

	for {
		var cPos, aPos uint64
		for d := range n {
			cPos = cPos*chunkDims[d] + chunkOff[d] + idx[d]
			aPos = aPos*arrDims[d] + arrOff[d] + idx[d]
		}
		cPos *= uint64(elemSize) //nolint:gosec // G115: element sizes are 1..8
		aPos *= uint64(elemSize) //nolint:gosec // G115: element sizes are 1..8
		if toChunk {
			copy(chunk[cPos:cPos+runBytes], arr[aPos:aPos+runBytes])
		} else {
			copy(arr[aPos:aPos+runBytes], chunk[cPos:cPos+runBytes])
		}

		// Advance the odometer over every axis but the last.
		d := n - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
