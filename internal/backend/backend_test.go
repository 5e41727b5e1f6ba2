package backend

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	mocktesting "github.com/scigolib/omfiles/internal/testing"
	"github.com/scigolib/omfiles/internal/utils"
)

func testData() []byte {
	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func openAll(t *testing.T, data []byte) map[string]Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	file, err := OpenFile(path, false)
	require.NoError(t, err)
	mapped, err := OpenFile(path, true)
	require.NoError(t, err)

	backends := map[string]Backend{
		"memory":   NewMemory(data),
		"readerat": NewReaderAt(mocktesting.NewMockReaderAt(data), uint64(len(data))),
		"file":     file,
		"mmap":     mapped,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			_ = b.Close()
		}
	})
	return backends
}

func TestBackends_View(t *testing.T) {
	data := testData()
	for name, b := range openAll(t, data) {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, uint64(len(data)), b.Size())

			tests := []struct{ off, n uint64 }{
				{0, 3}, {0, 0}, {100, 900}, {9999, 1}, {10000, 0}, {0, 10000},
			}
			for _, tt := range tests {
				view, release, err := b.View(tt.off, tt.n)
				require.NoError(t, err)
				require.Equal(t, data[tt.off:tt.off+tt.n], view)
				release()
			}
		})
	}
}

func TestBackends_ViewOutOfBounds(t *testing.T) {
	for name, b := range openAll(t, testData()) {
		t.Run(name, func(t *testing.T) {
			for _, tt := range []struct{ off, n uint64 }{{9999, 2}, {10001, 0}, {1 << 62, 1 << 62}} {
				_, _, err := b.View(tt.off, tt.n)
				var ioErr *utils.IOError
				require.ErrorAs(t, err, &ioErr)
			}
		})
	}
}

func TestBackends_ConcurrentViews(t *testing.T) {
	data := testData()
	for name, b := range openAll(t, data) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for g := range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range 50 {
						off := uint64((g*997 + i*131) % 9000)
						view, release, err := b.View(off, 1000)
						if err != nil {
							t.Error(err)
							return
						}
						if view[0] != data[off] || view[999] != data[off+999] {
							t.Errorf("mismatch at %d", off)
						}
						release()
					}
				}()
			}
			wg.Wait()
		})
	}
}

func TestReaderAt_ReadFailure(t *testing.T) {
	r := mocktesting.NewFailingReaderAt(testData(), 1)
	b := NewReaderAt(r, 10000)

	_, release, err := b.View(0, 10)
	require.NoError(t, err)
	release()

	_, _, err = b.View(0, 10)
	require.ErrorIs(t, err, mocktesting.ErrInjected)
	var ioErr *utils.IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, "read", ioErr.Op)

	require.NoError(t, b.Close())
	require.True(t, r.Closed())
}

func TestMmap_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	b, err := OpenFile(path, true)
	require.NoError(t, err)
	require.Equal(t, uint64(0), b.Size())
	require.NoError(t, b.Close())
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing"), false)
	require.ErrorIs(t, err, os.ErrNotExist)
}
