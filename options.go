package omfiles

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/scigolib/omfiles/internal/intpack"
)

// OpenOption configures a Reader during Open.
// This follows the functional options pattern.
//
// Example:
//
//	r, err := omfiles.Open("temperature.om",
//	    omfiles.WithMmap(true),
//	    omfiles.WithReadConcurrency(4),
//	)
type OpenOption func(*openConfig) error

type openConfig struct {
	logger      *slog.Logger
	mmap        bool
	concurrency int
}

func defaultOpenConfig() openConfig {
	return openConfig{
		mmap:        true,
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// WithLogger sets the logger for reader debug events. A nil logger discards
// output.
func WithLogger(l *slog.Logger) OpenOption {
	return func(c *openConfig) error {
		c.logger = l
		return nil
	}
}

// WithMmap selects memory-mapped access for Open. When false, or on platforms
// without mmap, chunks are read with positioned reads into scratch buffers.
// Default: true.
func WithMmap(enabled bool) OpenOption {
	return func(c *openConfig) error {
		c.mmap = enabled
		return nil
	}
}

// WithReadConcurrency bounds how many chunks one read decodes in parallel.
// 1 decodes sequentially. Default: GOMAXPROCS.
func WithReadConcurrency(n int) OpenOption {
	return func(c *openConfig) error {
		if n < 1 {
			return fmt.Errorf("read concurrency must be at least 1, got %d", n)
		}
		c.concurrency = n
		return nil
	}
}

// WriterOption configures a Writer.
type WriterOption func(*writerConfig) error

type writerConfig struct {
	logger     *slog.Logger
	packer     intpack.PackerID
	bufferSize int
	progress   func(written, total uint64)
}

func defaultWriterConfig() writerConfig {
	return writerConfig{packer: intpack.DefaultPacker}
}

// WithWriterLogger sets the logger for writer events. A nil logger discards
// output.
func WithWriterLogger(l *slog.Logger) WriterOption {
	return func(c *writerConfig) error {
		c.logger = l
		return nil
	}
}

// WithPacker selects the byte compressor used for chunk payloads and lookup
// tables. Default: PackerZstd.
func WithPacker(id PackerID) WriterOption {
	return func(c *writerConfig) error {
		if _, ok := intpack.Lookup(id); !ok {
			return fmt.Errorf("%w: unknown packer %d", ErrUnsupportedFormat, id)
		}
		c.packer = id
		return nil
	}
}

// WithBufferSize sets the size of the output buffer in bytes.
func WithBufferSize(n int) WriterOption {
	return func(c *writerConfig) error {
		if n < 0 {
			return fmt.Errorf("buffer size must not be negative, got %d", n)
		}
		c.bufferSize = n
		return nil
	}
}

// WithProgress registers a callback invoked after every chunk an
// ArrayWriter stores, with the number of chunks written and the total.
func WithProgress(fn func(written, total uint64)) WriterOption {
	return func(c *writerConfig) error {
		c.progress = fn
		return nil
	}
}
