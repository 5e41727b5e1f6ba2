// Package writer provides the streaming output primitives for om files: a
// buffered, position-counting sink and the chunk sequencer that enforces
// row-major chunk order.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/scigolib/omfiles/internal/utils"
)

// CreateMode specifies the file creation behavior.
type CreateMode int

const (
	// ModeTruncate creates a new file, truncating if it exists.
	// Equivalent to os.Create() behavior.
	ModeTruncate CreateMode = iota

	// ModeExclusive creates a new file, fails if it exists.
	// Equivalent to os.O_CREATE | os.O_EXCL.
	ModeExclusive
)

// CreateFile opens filename for writing according to mode.
func CreateFile(filename string, mode CreateMode) (*os.File, error) {
	var f *os.File
	var err error

	switch mode {
	case ModeTruncate:
		//nolint:gosec // G304: user-provided filename is intentional for a file library
		f, err = os.Create(filename)
	case ModeExclusive:
		//nolint:gosec // G304: user-provided filename is intentional for a file library
		f, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}
	if err != nil {
		return nil, utils.NewIOError("create", -1, err)
	}
	return f, nil
}

// DefaultBufferSize is the sink buffer used when the caller gives none.
const DefaultBufferSize = 256 * 1024

// Sink streams bytes to an io.Writer through a buffer and tracks the
// absolute position of the next byte. Once a write fails the sink stays
// failed and returns the same error.
//
// Thread-safety: Not thread-safe. Caller must synchronize access.
type Sink struct {
	bw  *bufio.Writer
	pos uint64
	err error
}

// NewSink wraps w. bufSize <= 0 selects DefaultBufferSize.
func NewSink(w io.Writer, bufSize int) *Sink {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Sink{bw: bufio.NewWriterSize(w, bufSize)}
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.bw.Write(p)
	s.pos += uint64(n) //nolint:gosec // G115: n is non-negative
	if err != nil {
		s.err = utils.NewIOError("write", int64(s.pos), err) //nolint:gosec // G115: file offsets fit int64
		return n, s.err
	}
	return n, nil
}

// Pos returns the absolute offset of the next byte to be written.
func (s *Sink) Pos() uint64 {
	return s.pos
}

var zeros [64]byte

// Align pads with zero bytes until Pos is a multiple of alignment.
func (s *Sink) Align(alignment uint64) error {
	pad := (alignment - s.pos%alignment) % alignment
	for pad > 0 {
		n := min(pad, uint64(len(zeros)))
		if _, err := s.Write(zeros[:n]); err != nil {
			return err
		}
		pad -= n
	}
	return nil
}

// Flush writes buffered bytes to the underlying writer.
func (s *Sink) Flush() error {
	if s.err != nil {
		return s.err
	}
	if err := s.bw.Flush(); err != nil {
		s.err = utils.NewIOError("flush", -1, err)
		return s.err
	}
	return nil
}
