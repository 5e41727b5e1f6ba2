// Package backend provides the byte sources a reader decodes from. Every
// backend hands out borrowed views: a slice that is valid until its release
// function runs. Memory and mmap backends return slices of their storage;
// the ReaderAt backend fills pooled scratch buffers with positioned reads.
//
// All backends are safe for concurrent View calls. Close must not race with
// outstanding views.
package backend

import (
	"fmt"
	"io"

	"github.com/scigolib/omfiles/internal/utils"
)

// Backend is a random-access, read-only byte source.
type Backend interface {
	// Size returns the total number of bytes.
	Size() uint64

	// View returns n bytes starting at off. The slice must not be modified
	// and must not be used after release is called.
	View(off, n uint64) (data []byte, release func(), err error)

	// Close releases the underlying resources.
	Close() error
}

// Prefetcher is implemented by backends that can hint the OS about
// upcoming reads.
type Prefetcher interface {
	WillNeed(off, n uint64) error
}

func noRelease() {}

func checkBounds(off, n, size uint64) error {
	if off > size || n > size-off {
		return utils.NewIOError("view", int64(off), //nolint:gosec // G115: offsets come from files
			fmt.Errorf("range [%d, +%d) beyond end of data (%d bytes): %w", off, n, size, io.ErrUnexpectedEOF))
	}
	return nil
}

// Memory serves views from an in-memory byte slice.
type Memory struct {
	data []byte
}

// NewMemory wraps data. The slice must not be modified while in use.
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

// Size implements Backend.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// View implements Backend.
func (m *Memory) View(off, n uint64) ([]byte, func(), error) {
	if err := checkBounds(off, n, m.Size()); err != nil {
		return nil, nil, err
	}
	return m.data[off : off+n : off+n], noRelease, nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	m.data = nil
	return nil
}

// ReaderAt serves views through positioned reads into scratch buffers.
type ReaderAt struct {
	r      io.ReaderAt
	size   uint64
	closer io.Closer
}

// NewReaderAt wraps r, which holds size bytes. If r implements io.Closer it
// is closed together with the backend.
func NewReaderAt(r io.ReaderAt, size uint64) *ReaderAt {
	b := &ReaderAt{r: r, size: size}
	if c, ok := r.(io.Closer); ok {
		b.closer = c
	}
	return b
}

// Size implements Backend.
func (b *ReaderAt) Size() uint64 {
	return b.size
}

// View implements Backend.
func (b *ReaderAt) View(off, n uint64) ([]byte, func(), error) {
	if err := checkBounds(off, n, b.size); err != nil {
		return nil, nil, err
	}
	buf := utils.GetBuffer(int(n)) //nolint:gosec // G115: bounded by file size
	read, err := b.r.ReadAt(buf, int64(off)) //nolint:gosec // G115: bounded by file size
	if read == len(buf) {
		// io.ReaderAt may report io.EOF together with a full read.
		err = nil
	}
	if err != nil {
		utils.ReleaseBuffer(buf)
		return nil, nil, utils.NewIOError("read", int64(off), err) //nolint:gosec // G115: bounded by file size
	}
	return buf, func() { utils.ReleaseBuffer(buf) }, nil
}

// Close implements Backend.
func (b *ReaderAt) Close() error {
	if b.closer == nil {
		return nil
	}
	err := b.closer.Close()
	b.closer = nil
	return err
}
