// Package testing provides test doubles for the om library.
package testing

import (
	"errors"
	"sync/atomic"
)

// ErrInjected is returned by FailingReaderAt once its budget is exhausted.
var ErrInjected = errors.New("injected read failure")

// MockReaderAt is a mock implementation of io.ReaderAt for testing.
type MockReaderAt struct {
	data []byte
}

// NewMockReaderAt creates a new mock reader with the given data.
func NewMockReaderAt(data []byte) *MockReaderAt {
	return &MockReaderAt{data: data}
}

// ReadAt implements io.ReaderAt interface for the mock reader.
func (m *MockReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}

	if off > int64(len(m.data)) || (off == int64(len(m.data)) && len(p) > 0) {
		return 0, errors.New("offset beyond EOF")
	}

	n = copy(p, m.data[off:])
	if n < len(p) {
		err = errors.New("short read")
	}
	return
}

// FailingReaderAt serves reads from data until a number of successful reads
// has been used up; every later read fails with ErrInjected.
type FailingReaderAt struct {
	MockReaderAt
	remaining atomic.Int64
	closed    atomic.Bool
}

// NewFailingReaderAt allows okReads successful reads before failing.
func NewFailingReaderAt(data []byte, okReads int64) *FailingReaderAt {
	f := &FailingReaderAt{MockReaderAt: MockReaderAt{data: data}}
	f.remaining.Store(okReads)
	return f
}

// ReadAt implements io.ReaderAt.
func (f *FailingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if f.remaining.Add(-1) < 0 {
		return 0, ErrInjected
	}
	return f.MockReaderAt.ReadAt(p, off)
}

// Allow grants n more successful reads.
func (f *FailingReaderAt) Allow(n int64) {
	f.remaining.Store(n)
}

// Close implements io.Closer and records the call.
func (f *FailingReaderAt) Close() error {
	f.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (f *FailingReaderAt) Closed() bool {
	return f.closed.Load()
}
