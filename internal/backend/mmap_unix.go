//go:build darwin || linux

package backend

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/scigolib/omfiles/internal/utils"
)

const mmapSupported = true

// Mmap serves views directly from a read-only shared memory map. Views are
// lock-free and involve no copies.
type Mmap struct {
	data []byte
}

// OpenMmap maps path read-only. The descriptor is closed right after the
// mapping is established.
func OpenMmap(path string) (*Mmap, error) {
	//nolint:gosec // G304: user-provided filename is intentional for a file library
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewIOError("open", -1, err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, utils.NewIOError("stat", -1, err)
	}
	size := fi.Size()
	if size == 0 {
		return &Mmap{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, utils.NewIOError("mmap", -1, fmt.Errorf("memory-mapping %s: %w", path, err))
	}
	return &Mmap{data: data}, nil
}

// Size implements Backend.
func (m *Mmap) Size() uint64 {
	return uint64(len(m.data))
}

// View implements Backend.
func (m *Mmap) View(off, n uint64) ([]byte, func(), error) {
	if err := checkBounds(off, n, m.Size()); err != nil {
		return nil, nil, err
	}
	return m.data[off : off+n : off+n], noRelease, nil
}

// WillNeed advises the kernel that [off, off+n) will be read soon.
func (m *Mmap) WillNeed(off, n uint64) error {
	if err := checkBounds(off, n, m.Size()); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	page := uint64(os.Getpagesize()) //nolint:gosec // G115: page size is positive
	start := off &^ (page - 1)
	if err := unix.Madvise(m.data[start:off+n], unix.MADV_WILLNEED); err != nil {
		return utils.NewIOError("madvise", int64(off), err) //nolint:gosec // G115: bounded by mapping size
	}
	return nil
}

// Close unmaps the file.
func (m *Mmap) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if err != nil {
		return utils.NewIOError("munmap", -1, err)
	}
	return nil
}
