package omfiles

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/scigolib/omfiles/internal/codec"
	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/hyperslab"
	"github.com/scigolib/omfiles/internal/intpack"
	"github.com/scigolib/omfiles/internal/utils"
	"github.com/scigolib/omfiles/internal/writer"
)

// largeChunkBytes is the uncompressed chunk size above which a warning is
// logged; chunks this large defeat partial reads.
const largeChunkBytes = 4 * 1024 * 1024

// ArrayDescriptor describes a chunked array before it is written.
type ArrayDescriptor struct {
	Dims        []uint64 // array extents, outermost first
	Chunks      []uint64 // chunk extents, each in [1, Dims[i]]
	Compression Compression
	ScaleFactor float32 // quantization scale for lossy float schemes
	AddOffset   float32 // subtracted before scaling
}

// ArrayWriter encodes the chunks of one array in row-major chunk order.
// Obtain one with PrepareArray and end it with Finalize.
type ArrayWriter[T Element] struct {
	w    *Writer
	enc  *chunkEncoder
	desc ArrayDescriptor
	done bool
}

// PrepareArray starts a new array variable on w. Only one array may be open
// at a time; other variables can be written once it is finalized.
//
// Example:
//
//	aw, err := omfiles.PrepareArray[float32](w, omfiles.ArrayDescriptor{
//	    Dims:        []uint64{720, 1440},
//	    Chunks:      []uint64{32, 32},
//	    Compression: omfiles.CompressionPforDelta2dInt16,
//	    ScaleFactor: 20,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := aw.WriteArray(data); err != nil {
//	    return err
//	}
//	temp, err := aw.Finalize("temperature")
func PrepareArray[T Element](w *Writer, desc ArrayDescriptor) (*ArrayWriter[T], error) {
	if err := w.begin(); err != nil {
		return nil, err
	}
	desc.Dims = slices.Clone(desc.Dims)
	desc.Chunks = slices.Clone(desc.Chunks)

	enc, err := newChunkEncoder(w.sink, desc, elementType[T](), w.cfg.packer, w.cfg.progress, w.log())
	if err != nil {
		return nil, err
	}
	w.active = true
	return &ArrayWriter[T]{w: w, enc: enc, desc: desc}, nil
}

func (aw *ArrayWriter[T]) check() error {
	if aw.done || aw.w.closed {
		return utils.ErrClosed
	}
	return nil
}

// WriteChunk encodes the chunk at coord. Chunks must arrive in row-major
// order; an out-of-order coordinate fails with ErrSequence and leaves the
// array unchanged. data holds the chunk's elements in row-major order and
// must match the chunk's extents, which are smaller at the array edge.
func (aw *ArrayWriter[T]) WriteChunk(coord []uint64, data []T) error {
	if err := aw.check(); err != nil {
		return err
	}
	return aw.enc.writeChunk(coord, encodeElements(data))
}

// WriteArray encodes a complete array given in row-major order.
func (aw *ArrayWriter[T]) WriteArray(data []T) error {
	if err := aw.check(); err != nil {
		return err
	}
	return aw.enc.writeRegion(encodeElements(data), aw.desc.Dims, make([]uint64, len(aw.desc.Dims)), aw.desc.Dims)
}

// WriteSubArray encodes the next run of chunks from part of a larger buffer.
// data is a row-major array with extents dims; the region starting at offset
// with extents count is written as the array block that begins at the next
// unwritten chunk. count must be a multiple of the chunk dimensions except
// where the block reaches the array edge, and the chunks it covers must be
// consecutive in row-major order, which holds whenever count spans the full
// array along every axis but the first.
//
// This allows streaming an array in slabs:
//
//	for i := uint64(0); i < rows; i += chunkRows {
//	    slab := produce(i) // [chunkRows, cols]
//	    err := aw.WriteSubArray(slab, []uint64{chunkRows, cols}, []uint64{0, 0}, []uint64{chunkRows, cols})
//	}
func (aw *ArrayWriter[T]) WriteSubArray(data []T, dims, offset, count []uint64) error {
	if err := aw.check(); err != nil {
		return err
	}
	n, err := utils.ElementCount(dims, utils.MaxReadElements)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrShapeMismatch, err)
	}
	if uint64(len(data)) != n {
		return fmt.Errorf("%w: data holds %d elements, dims %v need %d", utils.ErrShapeMismatch, len(data), dims, n)
	}
	return aw.enc.writeRegion(encodeElements(data), dims, offset, count)
}

// Finalize writes the chunk lookup table and the array's variable record.
// All chunks must have been written. The returned Ref can be listed as a
// child of another variable or passed to Writer.Finish.
func (aw *ArrayWriter[T]) Finalize(name string, children ...Ref) (Ref, error) {
	if err := aw.check(); err != nil {
		return Ref{}, err
	}
	if !aw.enc.seq.Done() {
		return Ref{}, fmt.Errorf("%w: %d of %d chunks written", utils.ErrSequence, aw.enc.seq.Next(), aw.enc.seq.Total())
	}
	// Names are checked before the lookup table is written; a rejected
	// Finalize leaves the array open.
	if strings.Contains(name, "/") {
		return Ref{}, fmt.Errorf("%w: %q contains \"/\"", utils.ErrInvalidName, name)
	}
	kids, err := childSpans(children)
	if err != nil {
		return Ref{}, err
	}

	lut, err := aw.enc.index.EncodeLUT(aw.w.cfg.packer)
	if err != nil {
		return Ref{}, err
	}
	lutOffset := aw.w.sink.Pos()
	if _, err := aw.w.sink.Write(lut); err != nil {
		return Ref{}, err
	}

	ref, err := aw.w.writeRecord(&core.Variable{
		DataType:    elementType[T]().Array(),
		Compression: aw.desc.Compression,
		Name:        name,
		Children:    kids,
		Lut:         core.Span{Offset: lutOffset, Size: uint64(len(lut))},
		ScaleFactor: aw.desc.ScaleFactor,
		AddOffset:   aw.desc.AddOffset,
		Dims:        aw.desc.Dims,
		Chunks:      aw.desc.Chunks,
	})
	if err != nil {
		return Ref{}, err
	}

	aw.done = true
	aw.w.active = false
	aw.w.log().Debug("array finalized", "name", name, "chunks", aw.enc.seq.Total(),
		"bytes", aw.enc.index.Index().DataEnd()-aw.enc.index.Base())
	return ref, nil
}

// chunkEncoder encodes chunks into a sink and records their lengths. It is
// shared by the version 3 and legacy writers.
type chunkEncoder struct {
	sink     *writer.Sink
	seq      *writer.ChunkSequence
	index    *core.IndexBuilder
	params   codec.Params
	progress func(written, total uint64)
	logger   *slog.Logger
	warned   bool
}

func newChunkEncoder(sink *writer.Sink, desc ArrayDescriptor, dt core.DataType, packer intpack.PackerID,
	progress func(written, total uint64), logger *slog.Logger,
) (*chunkEncoder, error) {
	if err := core.ValidateShape(desc.Dims, desc.Chunks); err != nil {
		return nil, err
	}
	if !codec.Supports(desc.Compression, dt) {
		return nil, fmt.Errorf("%w: %s cannot store %s", utils.ErrUnsupportedFormat, desc.Compression, dt)
	}
	p := codec.Params{
		DataType:    dt,
		Compression: desc.Compression,
		ScaleFactor: desc.ScaleFactor,
		AddOffset:   desc.AddOffset,
		Packer:      packer,
	}
	if err := codec.Validate(p); err != nil {
		return nil, err
	}
	seq, err := writer.NewChunkSequence(desc.Dims, desc.Chunks)
	if err != nil {
		return nil, err
	}
	return &chunkEncoder{
		sink:     sink,
		seq:      seq,
		index:    core.NewIndexBuilder(sink.Pos(), seq.Total()),
		params:   p,
		progress: progress,
		logger:   logger,
	}, nil
}

// writeChunk encodes one chunk given as little-endian element bytes.
func (e *chunkEncoder) writeChunk(coord []uint64, raw []byte) error {
	shape, err := e.seq.Expect(coord)
	if err != nil {
		return err
	}
	n := uint64(1)
	for _, s := range shape {
		n *= s
	}
	size := e.params.DataType.Size()
	if uint64(len(raw)) != n*uint64(size) {
		return fmt.Errorf("%w: chunk %v holds %d elements, expected %d",
			utils.ErrShapeMismatch, coord, len(raw)/size, n)
	}
	return e.store(raw, shape)
}

// writeRegion encodes the chunks covered by the count-sized block at offset
// inside src (a row-major array with extents srcDims), placed at the next
// unwritten chunk.
func (e *chunkEncoder) writeRegion(src []byte, srcDims, offset, count []uint64) error {
	dims, chunks := e.seq.Dims(), e.seq.ChunkDims()
	if len(srcDims) != len(dims) || len(offset) != len(dims) || len(count) != len(dims) {
		return fmt.Errorf("%w: region needs %d dimensions", utils.ErrShapeMismatch, len(dims))
	}
	in := Cube{Dims: srcDims, Offset: offset}
	if err := in.Validate(count); err != nil {
		return err
	}
	if e.seq.Done() {
		return fmt.Errorf("%w: all %d chunks already written", utils.ErrSequence, e.seq.Total())
	}

	start := e.seq.NextCoordinate()
	ranges := make([]Range, len(dims))
	for i := range dims {
		s := start[i] * chunks[i]
		end := s + count[i]
		if count[i] == 0 || end > dims[i] || (end != dims[i] && count[i]%chunks[i] != 0) {
			return fmt.Errorf("%w: block of %v at %v does not cover whole chunks of %v",
				utils.ErrShapeMismatch, count, start, chunks)
		}
		ranges[i] = Range{Start: s, End: end}
	}
	plan, err := hyperslab.NewPlan(dims, chunks, ranges)
	if err != nil {
		return err
	}

	// Reject the whole block before writing anything if its chunks are not
	// the next ones in sequence.
	first := e.seq.Next()
	for i := range plan.Len() {
		if w := plan.At(i); w.Linear != first+i {
			return fmt.Errorf("%w: block %v at %v covers chunk %v out of order",
				utils.ErrSequence, count, start, w.Chunk)
		}
	}

	size := e.params.DataType.Size()
	for w := range plan.Items() {
		if _, err := e.seq.Expect(w.Chunk); err != nil {
			return err
		}
		buf := utils.GetBuffer(int(w.ChunkElements()) * size) //nolint:gosec // G115: bounded by MaxChunkElements
		hyperslab.Gather(buf, w, src, in, size)
		err := e.store(buf, w.Shape)
		utils.ReleaseBuffer(buf)
		if err != nil {
			return err
		}
	}
	return nil
}

// store encodes the next chunk and appends it to the sink and index.
func (e *chunkEncoder) store(raw []byte, shape []uint64) error {
	if len(raw) > largeChunkBytes && !e.warned {
		e.warned = true
		e.logger.Warn("chunk exceeds 4 MiB uncompressed, consider smaller chunk dimensions",
			"bytes", len(raw), "chunk_dims", e.seq.ChunkDims())
	}
	rowLen := int(shape[len(shape)-1]) //nolint:gosec // G115: bounded by MaxChunkElements
	data, err := codec.Encode(raw, rowLen, e.params)
	if err != nil {
		return err
	}
	if _, err := e.sink.Write(data); err != nil {
		return err
	}
	if err := e.index.Append(uint64(len(data))); err != nil {
		return err
	}
	e.seq.Advance()
	if e.progress != nil {
		e.progress(e.seq.Next(), e.seq.Total())
	}
	return nil
}
