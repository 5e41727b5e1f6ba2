//go:build !(darwin || linux)

package backend

import "errors"

const mmapSupported = false

// Mmap is unavailable on this platform.
type Mmap struct{}

// OpenMmap always fails on this platform.
func OpenMmap(string) (*Mmap, error) {
	return nil, errors.New("memory mapping is not supported on this platform")
}

// Size implements Backend.
func (*Mmap) Size() uint64 { return 0 }

// View implements Backend.
func (*Mmap) View(uint64, uint64) ([]byte, func(), error) {
	return nil, nil, errors.New("memory mapping is not supported on this platform")
}

// Close implements Backend.
func (*Mmap) Close() error { return nil }
