package omfiles

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/utils"
	"github.com/scigolib/omfiles/internal/writer"
)

// CreateMode specifies how to create a new om file.
type CreateMode int

const (
	// CreateTruncate creates a new file, overwriting if it exists.
	CreateTruncate CreateMode = iota

	// CreateExclusive creates a new file, failing if it already exists.
	CreateExclusive
)

// Ref locates a variable record written by a Writer. Refs are passed as
// children of later variables and finally as the root to Finish.
type Ref struct {
	span core.Span
	name string
}

// Offset returns the file offset of the record.
func (r Ref) Offset() uint64 { return r.span.Offset }

// Size returns the record size in bytes.
func (r Ref) Size() uint64 { return r.span.Size }

// Writer streams a version 3 om file. Variables are written bottom up:
// children first, then the variables that list them, and finally the root
// passed to Finish. Array data is encoded chunk by chunk, so memory use is
// bounded by one chunk plus the chunk lookup table.
//
// A file written by a Writer that is abandoned before Finish has no trailer
// and cannot be opened.
//
// Thread-safety: Not thread-safe. Caller must synchronize access.
type Writer struct {
	sink     *writer.Sink
	closer   io.Closer
	cfg      writerConfig
	started  bool
	active   bool // an ArrayWriter is open
	finished bool
	closed   bool
}

// Create creates the file at path and returns a Writer for it.
//
// Example:
//
//	w, err := omfiles.Create("temperature.om", omfiles.CreateTruncate)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
func Create(path string, mode CreateMode, opts ...WriterOption) (*Writer, error) {
	var wm writer.CreateMode
	switch mode {
	case CreateTruncate:
		wm = writer.ModeTruncate
	case CreateExclusive:
		wm = writer.ModeExclusive
	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}

	f, err := writer.CreateFile(path, wm)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer: %w", err)
	}
	w, err := NewWriter(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter returns a Writer streaming to out. Close does not close out.
func NewWriter(out io.Writer, opts ...WriterOption) (*Writer, error) {
	cfg := defaultWriterConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Writer{
		sink: writer.NewSink(out, cfg.bufferSize),
		cfg:  cfg,
	}, nil
}

func (w *Writer) log() *slog.Logger {
	if w.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.cfg.logger
}

// begin checks that a new variable may be written and emits the header on
// first use.
func (w *Writer) begin() error {
	if w.finished || w.closed {
		return utils.ErrClosed
	}
	if w.active {
		return fmt.Errorf("%w: an array is still being written", utils.ErrSequence)
	}
	if w.started {
		return nil
	}
	if _, err := w.sink.Write(core.V3Header()); err != nil {
		return err
	}
	w.started = true
	return nil
}

// writeRecord appends a 64-byte aligned variable record.
func (w *Writer) writeRecord(v *core.Variable) (Ref, error) {
	if strings.Contains(v.Name, "/") {
		return Ref{}, fmt.Errorf("%w: %q contains \"/\"", utils.ErrInvalidName, v.Name)
	}
	buf, err := v.Encode()
	if err != nil {
		return Ref{}, err
	}
	if err := w.sink.Align(core.Alignment); err != nil {
		return Ref{}, err
	}
	off := w.sink.Pos()
	if _, err := w.sink.Write(buf); err != nil {
		return Ref{}, err
	}
	return Ref{span: core.Span{Offset: off, Size: uint64(len(buf))}, name: v.Name}, nil
}

// childSpans returns the record spans of children. Children must be written
// variables with non-empty names that are unique among the siblings and free
// of "/", so that every path in the file resolves to one variable.
func childSpans(children []Ref) ([]core.Span, error) {
	if len(children) == 0 {
		return nil, nil
	}
	out := make([]core.Span, len(children))
	seen := make(map[string]bool, len(children))
	for i, c := range children {
		switch {
		case c.span.Size == 0:
			return nil, fmt.Errorf("child %d is not a written variable", i)
		case c.name == "":
			return nil, fmt.Errorf("%w: child %d has an empty name", utils.ErrInvalidName, i)
		case strings.Contains(c.name, "/"):
			return nil, fmt.Errorf("%w: child %q contains \"/\"", utils.ErrInvalidName, c.name)
		case seen[c.name]:
			return nil, fmt.Errorf("%w: duplicate child name %q", utils.ErrInvalidName, c.name)
		}
		seen[c.name] = true
		out[i] = c.span
	}
	return out, nil
}

// WriteScalar writes a numeric scalar variable. Scalars listed as children
// of another variable act as its attributes.
func WriteScalar[T Element](w *Writer, name string, value T, children ...Ref) (Ref, error) {
	if err := w.begin(); err != nil {
		return Ref{}, err
	}
	kids, err := childSpans(children)
	if err != nil {
		return Ref{}, err
	}
	return w.writeRecord(&core.Variable{
		DataType: elementType[T](),
		Name:     name,
		Children: kids,
		Value:    encodeElements([]T{value}),
	})
}

// WriteString writes a string scalar variable.
func (w *Writer) WriteString(name, value string, children ...Ref) (Ref, error) {
	if err := w.begin(); err != nil {
		return Ref{}, err
	}
	if len(value) > utils.MaxStringSize {
		return Ref{}, fmt.Errorf("%w: string of %d bytes exceeds %d", utils.ErrShapeMismatch, len(value), utils.MaxStringSize)
	}
	kids, err := childSpans(children)
	if err != nil {
		return Ref{}, err
	}
	return w.writeRecord(&core.Variable{
		DataType: core.DataTypeString,
		Name:     name,
		Children: kids,
		Value:    []byte(value),
	})
}

// WriteGroup writes a variable without a value that only groups children.
func (w *Writer) WriteGroup(name string, children ...Ref) (Ref, error) {
	if err := w.begin(); err != nil {
		return Ref{}, err
	}
	kids, err := childSpans(children)
	if err != nil {
		return Ref{}, err
	}
	return w.writeRecord(&core.Variable{
		DataType: core.DataTypeNone,
		Name:     name,
		Children: kids,
	})
}

// Finish writes the trailer pointing at root and flushes the output. The
// Writer accepts no further variables.
func (w *Writer) Finish(root Ref) error {
	if err := w.begin(); err != nil {
		return err
	}
	if root.span.Size == 0 {
		return errors.New("root must be a written variable")
	}
	if err := w.sink.Align(core.Alignment); err != nil {
		return err
	}
	tr := core.Trailer{RootOffset: root.span.Offset, RootSize: root.span.Size}
	if _, err := w.sink.Write(tr.Encode()); err != nil {
		return err
	}
	if err := w.sink.Flush(); err != nil {
		return err
	}
	w.finished = true
	w.log().Debug("trailer written", "root_offset", root.span.Offset, "size", w.sink.Pos())
	return nil
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() uint64 {
	return w.sink.Pos()
}

// Close flushes buffered bytes and, for files opened by Create, closes the
// file. Closing before Finish leaves an incomplete file. It is safe to call
// Close multiple times.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.sink.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = utils.NewIOError("close", -1, cerr)
		}
	}
	return err
}
