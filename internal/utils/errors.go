package utils

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer of the library. Callers match them with
// errors.Is; the root package re-exports each one.
var (
	ErrUnsupportedFormat = errors.New("unsupported om format")
	ErrNotOmFile         = errors.New("not an om file")
	ErrFileTooSmall      = errors.New("file too small")
	ErrCorruptMetadata   = errors.New("corrupt metadata")
	ErrCorruptIndex      = errors.New("corrupt chunk index")
	ErrCorruptChunk      = errors.New("corrupt chunk")
	ErrCodec             = errors.New("codec error")
	ErrRange             = errors.New("range out of bounds")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrSequence          = errors.New("chunk written out of sequence")
	ErrClosed            = errors.New("use after close")
	ErrDataTypeMismatch  = errors.New("data type mismatch")
	ErrInvalidName       = errors.New("invalid variable name")
)

// OmError represents a structured om error.
type OmError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *OmError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &OmError{
		Context: context,
		Cause:   cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *OmError) Unwrap() error {
	return e.Cause
}

// IOError reports a failure of the underlying byte source or sink.
type IOError struct {
	Op     string // "read", "write", "mmap", ...
	Offset int64  // -1 when not applicable
	Err    error
}

func (e *IOError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("om io: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("om io: %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as an IOError. A nil err yields nil.
func NewIOError(op string, offset int64, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Offset: offset, Err: err}
}
