package omfiles

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/utils"
	"github.com/scigolib/omfiles/internal/writer"
)

// LegacyDescriptor describes a version 2 file: one two-dimensional float32
// array.
type LegacyDescriptor struct {
	Dims        [2]uint64
	Chunks      [2]uint64
	Compression Compression // CompressionPforDelta2dInt16 or CompressionFpxXor2d
	ScaleFactor float32
}

// LegacyWriter writes a version 2 file. The chunk table precedes the data,
// so the output must support positioned writes; header and table are
// written by Finish.
//
// Thread-safety: Not thread-safe. Caller must synchronize access.
type LegacyWriter struct {
	out      io.WriterAt
	header   *core.LegacyHeader
	sink     *writer.Sink
	enc      *chunkEncoder
	finished bool
}

// NewLegacyWriter prepares a version 2 file on out.
func NewLegacyWriter(out io.WriterAt, desc LegacyDescriptor, opts ...WriterOption) (*LegacyWriter, error) {
	cfg := defaultWriterConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if desc.Compression != core.CompressionPforDelta2dInt16 && desc.Compression != core.CompressionFpxXor2d {
		return nil, fmt.Errorf("%w: legacy files support %s and %s, not %s", utils.ErrUnsupportedFormat,
			core.CompressionPforDelta2dInt16, core.CompressionFpxXor2d, desc.Compression)
	}

	h := &core.LegacyHeader{
		Version:     core.VersionLegacy2,
		Compression: desc.Compression,
		ScaleFactor: desc.ScaleFactor,
		Dims:        desc.Dims,
		Chunks:      desc.Chunks,
	}
	if err := core.ValidateShape(h.Dims[:], h.Chunks[:]); err != nil {
		return nil, err
	}

	perAxis := []uint64{utils.CeilDiv(h.Dims[0], h.Chunks[0]), utils.CeilDiv(h.Dims[1], h.Chunks[1])}
	if _, err := utils.ElementCount(perAxis, math.MaxUint32); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrShapeMismatch, err)
	}

	dataStart := h.DataStart()
	sink := writer.NewSink(io.NewOffsetWriter(out, int64(dataStart)), cfg.bufferSize) //nolint:gosec // G115: bounded by the chunk count check
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	enc, err := newChunkEncoder(sink, ArrayDescriptor{
		Dims:        h.Dims[:],
		Chunks:      h.Chunks[:],
		Compression: desc.Compression,
		ScaleFactor: desc.ScaleFactor,
	}, core.DataTypeFloat, cfg.packer, cfg.progress, logger)
	if err != nil {
		return nil, err
	}
	// Sink positions start at zero; legacy offsets are relative to the data
	// region, so the index base is zero as well.
	return &LegacyWriter{out: out, header: h, sink: sink, enc: enc}, nil
}

// WriteChunk encodes the chunk at coord; see ArrayWriter.WriteChunk.
func (lw *LegacyWriter) WriteChunk(coord []uint64, data []float32) error {
	if lw.finished {
		return utils.ErrClosed
	}
	return lw.enc.writeChunk(coord, encodeElements(data))
}

// WriteArray encodes the complete array given in row-major order.
func (lw *LegacyWriter) WriteArray(data []float32) error {
	if lw.finished {
		return utils.ErrClosed
	}
	n := lw.header.Dims[0] * lw.header.Dims[1]
	if uint64(len(data)) != n {
		return fmt.Errorf("%w: data holds %d elements, dims %v need %d", utils.ErrShapeMismatch, len(data), lw.header.Dims, n)
	}
	dims := lw.header.Dims[:]
	return lw.enc.writeRegion(encodeElements(data), dims, []uint64{0, 0}, dims)
}

// Finish flushes the chunk data and writes the header and chunk table.
func (lw *LegacyWriter) Finish() error {
	if lw.finished {
		return utils.ErrClosed
	}
	if !lw.enc.seq.Done() {
		return fmt.Errorf("%w: %d of %d chunks written", utils.ErrSequence, lw.enc.seq.Next(), lw.enc.seq.Total())
	}
	if err := lw.sink.Flush(); err != nil {
		return err
	}

	head := append(lw.header.Encode(), lw.enc.index.EncodeLegacy()...)
	if _, err := lw.out.WriteAt(head, 0); err != nil {
		return utils.NewIOError("write", 0, err)
	}
	lw.finished = true
	return nil
}
