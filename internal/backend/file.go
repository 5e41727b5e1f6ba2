package backend

import (
	"os"

	"github.com/scigolib/omfiles/internal/utils"
)

// OpenFile opens path for reading. With useMmap the file is memory mapped
// where the platform supports it; otherwise positioned reads are used.
func OpenFile(path string, useMmap bool) (Backend, error) {
	if useMmap && mmapSupported {
		m, err := OpenMmap(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	//nolint:gosec // G304: user-provided filename is intentional for a file library
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewIOError("open", -1, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, utils.NewIOError("stat", -1, err)
	}
	return NewReaderAt(f, uint64(fi.Size())), nil //nolint:gosec // G115: file sizes are non-negative
}
