package omfiles

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/scigolib/omfiles/internal/backend"
	"github.com/scigolib/omfiles/internal/codec"
	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/hyperslab"
	"github.com/scigolib/omfiles/internal/utils"
)

// ReadRange reads the region described by ranges, one half-open interval per
// dimension, and returns it as a dense row-major slice. T must match the
// variable's element type.
//
// Ranges are not clamped: any range with Start >= End or End beyond the
// dimension fails with ErrRange. Use ClampRanges for lenient bounds.
//
// Example:
//
//	// rows 10..20 and all columns of a [100, 50] float array
//	data, err := omfiles.ReadRange[float32](ctx, v, []omfiles.Range{{Start: 10, End: 20}, {Start: 0, End: 50}})
func ReadRange[T Element](ctx context.Context, v *Variable, ranges []Range) ([]T, error) {
	if err := checkElementType[T](v.DataType()); err != nil {
		return nil, err
	}
	shape, n, err := v.outShape(ranges)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n*uint64(elementType[T]().Size()))
	if err := v.read(ctx, ranges, buf, Cube{Dims: shape, Offset: make([]uint64, len(shape))}); err != nil {
		return nil, err
	}
	out := make([]T, n)
	getElements(out, buf)
	return out, nil
}

// ReadSlice reads count elements per dimension starting at start.
func ReadSlice[T Element](ctx context.Context, v *Variable, start, count []uint64) ([]T, error) {
	if len(start) != len(count) {
		return nil, fmt.Errorf("%w: %d start coordinates for %d counts", utils.ErrShapeMismatch, len(start), len(count))
	}
	ranges := make([]Range, len(start))
	for i := range start {
		ranges[i] = Range{Start: start[i], End: start[i] + count[i]}
	}
	return ReadRange[T](ctx, v, ranges)
}

// ReadInto reads the region described by ranges into out, a row-major array
// with extents cube.Dims, placing the region at cube.Offset. Elements of out
// outside the region are left untouched. On error the contents of out are
// undefined.
func ReadInto[T Element](ctx context.Context, v *Variable, ranges []Range, out []T, cube Cube) error {
	if err := checkElementType[T](v.DataType()); err != nil {
		return err
	}
	n, err := cube.Elements()
	if err != nil {
		return err
	}
	if uint64(len(out)) != n {
		return fmt.Errorf("%w: output holds %d elements, cube %v needs %d",
			utils.ErrShapeMismatch, len(out), cube.Dims, n)
	}
	buf := encodeElements(out)
	if err := v.read(ctx, ranges, buf, cube); err != nil {
		return err
	}
	getElements(out, buf)
	return nil
}

// ReadFloat64 reads the region like ReadRange and converts every element to
// float64, whatever the stored numeric type.
func (v *Variable) ReadFloat64(ctx context.Context, ranges []Range) ([]float64, error) {
	shape, n, err := v.outShape(ranges)
	if err != nil {
		return nil, err
	}
	dt := v.DataType()
	buf := make([]byte, n*uint64(dt.Size()))
	if err := v.read(ctx, ranges, buf, Cube{Dims: shape, Offset: make([]uint64, len(shape))}); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64At(buf, dt, i)
	}
	return out, nil
}

// ClampRanges trims ranges to the variable's dimensions.
func (v *Variable) ClampRanges(ranges []Range) []Range {
	return hyperslab.Clamp(ranges, v.node.Var.Dims)
}

// WillNeed hints that the chunks covering ranges will be read soon. On
// memory-mapped files the pages are prefetched; otherwise it does nothing.
func (v *Variable) WillNeed(ranges []Range) error {
	done, err := v.r.acquire()
	if err != nil {
		return err
	}
	defer done()

	plan, err := v.plan(ranges)
	if err != nil {
		return err
	}
	pf, ok := v.r.be.(backend.Prefetcher)
	if !ok {
		return nil
	}
	ix, err := v.r.chunkIndex(v.h)
	if err != nil {
		return err
	}

	// Adjacent chunks are merged into one hint.
	var start, end uint64
	for w := range plan.Items() {
		s, err := ix.Span(w.Linear)
		if err != nil {
			return err
		}
		if s.Offset == end && end != 0 {
			end = s.End()
			continue
		}
		if end > start {
			if err := pf.WillNeed(start, end-start); err != nil {
				return err
			}
		}
		start, end = s.Offset, s.End()
	}
	if end > start {
		return pf.WillNeed(start, end-start)
	}
	return nil
}

func (v *Variable) plan(ranges []Range) (*hyperslab.Plan, error) {
	rec := v.node.Var
	if !rec.DataType.IsArray() {
		return nil, fmt.Errorf("%w: %q is %s, not an array", utils.ErrDataTypeMismatch, v.Path(), rec.DataType)
	}
	return hyperslab.NewPlan(rec.Dims, rec.Chunks, ranges)
}

// outShape validates ranges and returns the region shape and element count.
func (v *Variable) outShape(ranges []Range) ([]uint64, uint64, error) {
	plan, err := v.plan(ranges)
	if err != nil {
		return nil, 0, err
	}
	n, err := plan.Elements(utils.MaxReadElements)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", utils.ErrRange, err)
	}
	return plan.OutShape(), n, nil
}

func (v *Variable) codecParams() codec.Params {
	rec := v.node.Var
	return codec.Params{
		DataType:    rec.DataType.Element(),
		Compression: rec.Compression,
		ScaleFactor: rec.ScaleFactor,
		AddOffset:   rec.AddOffset,
	}
}

// read decodes every chunk touched by ranges and scatters it into dst, the
// little-endian bytes of the array described by out.
func (v *Variable) read(ctx context.Context, ranges []Range, dst []byte, out Cube) error {
	done, err := v.r.acquire()
	if err != nil {
		return err
	}
	defer done()

	plan, err := v.plan(ranges)
	if err != nil {
		return err
	}
	if err := out.Validate(plan.OutShape()); err != nil {
		return err
	}
	elemSize := v.node.Var.DataType.Size()
	n, err := out.Elements()
	if err != nil {
		return err
	}
	size, err := utils.SafeMultiply(n, uint64(elemSize))
	if err != nil || uint64(len(dst)) != size {
		return fmt.Errorf("%w: output of %d bytes for %d elements of %d bytes",
			utils.ErrShapeMismatch, len(dst), n, elemSize)
	}

	ix, err := v.r.chunkIndex(v.h)
	if err != nil {
		return err
	}
	p := v.codecParams()
	if err := codec.Validate(p); err != nil {
		return utils.WrapError(fmt.Sprintf("variable %q", v.Path()), err)
	}

	workers := v.r.concurrency
	if plan.Len() < uint64(workers) { //nolint:gosec // G115: concurrency is positive
		workers = int(plan.Len()) //nolint:gosec // G115: bounded by concurrency
	}

	if workers <= 1 {
		for w := range plan.Items() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := v.readChunk(ix, p, w, dst, out); err != nil {
				return err
			}
		}
		return nil
	}

	// Every chunk covers a disjoint part of dst, so workers scatter without
	// coordination.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := range plan.Items() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return v.readChunk(ix, p, w, dst, out)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (v *Variable) readChunk(ix *core.ChunkIndex, p codec.Params, w hyperslab.WorkItem, dst []byte, out Cube) error {
	chunk, err := v.decodeChunk(ix, p, w.Linear, w.Shape)
	if err != nil {
		return err
	}
	defer utils.ReleaseBuffer(chunk)
	hyperslab.Scatter(dst, out, chunk, w, p.DataType.Size())
	return nil
}

// decodeChunk returns the decoded bytes of one chunk in a pooled buffer the
// caller must release.
func (v *Variable) decodeChunk(ix *core.ChunkIndex, p codec.Params, linear uint64, shape []uint64) ([]byte, error) {
	span, err := ix.Span(linear)
	if err != nil {
		return nil, err
	}
	data, release, err := v.r.be.View(span.Offset, span.Size)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("chunk %d", linear), err)
	}
	defer release()

	elements := uint64(1)
	for _, s := range shape {
		elements *= s
	}
	buf := utils.GetBuffer(int(elements) * p.DataType.Size()) //nolint:gosec // G115: bounded by MaxChunkElements
	rowLen := int(shape[len(shape)-1])                         //nolint:gosec // G115: bounded by MaxChunkElements
	if err := codec.Decode(data, buf, rowLen, p); err != nil {
		utils.ReleaseBuffer(buf)
		return nil, fmt.Errorf("%w: variable %q chunk %d: %w", utils.ErrCorruptChunk, v.Path(), linear, err)
	}
	return buf, nil
}
