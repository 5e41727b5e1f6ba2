// Package omfiles reads and writes om files: chunked, compressed
// multi-dimensional arrays of numeric data with a small hierarchy of named
// variables and scalar attributes.
//
// Both the legacy single-array layout (versions 1 and 2) and the
// hierarchical version 3 layout can be read. New files are written as
// version 3 by Writer; LegacyWriter produces version 2 files.
package omfiles

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/scigolib/omfiles/internal/backend"
	"github.com/scigolib/omfiles/internal/core"
	"github.com/scigolib/omfiles/internal/utils"
)

// Reader is an open om file. Metadata is parsed once by Open; chunk lookup
// tables are loaded on first use of each variable.
//
// A Reader is safe for concurrent use by multiple goroutines as long as
// their output buffers are distinct. Close waits for running reads.
type Reader struct {
	mu     sync.RWMutex
	closed bool

	be          backend.Backend
	version     uint8
	tree        *core.Tree
	legacy      *core.LegacyHeader // nil for version 3
	logger      *slog.Logger
	concurrency int

	idxMu   sync.Mutex
	indexes map[core.Handle]*core.ChunkIndex
	loads   singleflight.Group
}

// Open opens the om file at path.
func Open(path string, opts ...OpenOption) (*Reader, error) {
	cfg, err := applyOpenOptions(opts)
	if err != nil {
		return nil, err
	}
	be, err := backend.OpenFile(path, cfg.mmap)
	if err != nil {
		return nil, utils.WrapError("file open failed", err)
	}
	r, err := newReader(be, cfg)
	if err != nil {
		_ = be.Close()
		return nil, err
	}
	return r, nil
}

// OpenReader opens an om file served by ra, which holds size bytes. If ra
// also implements io.Closer, Close closes it.
func OpenReader(ra io.ReaderAt, size int64, opts ...OpenOption) (*Reader, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size %d", size)
	}
	cfg, err := applyOpenOptions(opts)
	if err != nil {
		return nil, err
	}
	return newReader(backend.NewReaderAt(ra, uint64(size)), cfg)
}

// OpenBytes opens an om file held in memory. data must not be modified
// while the Reader is in use.
func OpenBytes(data []byte, opts ...OpenOption) (*Reader, error) {
	cfg, err := applyOpenOptions(opts)
	if err != nil {
		return nil, err
	}
	return newReader(backend.NewMemory(data), cfg)
}

func applyOpenOptions(opts []OpenOption) (openConfig, error) {
	cfg := defaultOpenConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return openConfig{}, err
		}
	}
	return cfg, nil
}

func newReader(be backend.Backend, cfg openConfig) (*Reader, error) {
	r := &Reader{
		be:          be,
		logger:      cfg.logger,
		concurrency: cfg.concurrency,
		indexes:     make(map[core.Handle]*core.ChunkIndex),
	}

	head, err := r.copyBytes(0, min(be.Size(), core.V3HeaderSize))
	if err != nil {
		return nil, utils.WrapError("header read failed", err)
	}
	r.version, err = core.DetectVersion(head)
	if err != nil {
		return nil, err
	}

	if r.version == core.Version3 {
		err = r.openV3()
	} else {
		err = r.openLegacy()
	}
	if err != nil {
		return nil, err
	}

	r.log().Debug("opened om file", "version", r.version, "variables", r.tree.Len(), "size", be.Size())
	return r, nil
}

func (r *Reader) openLegacy() error {
	size := r.be.Size()
	if size < core.LegacyHeaderSize {
		return fmt.Errorf("%w: legacy file of %d bytes", utils.ErrFileTooSmall, size)
	}
	buf, err := r.copyBytes(0, core.LegacyHeaderSize)
	if err != nil {
		return utils.WrapError("legacy header read failed", err)
	}
	h, err := core.ParseLegacyHeader(buf)
	if err != nil {
		return err
	}

	perAxis := []uint64{
		utils.CeilDiv(h.Dims[0], h.Chunks[0]),
		utils.CeilDiv(h.Dims[1], h.Chunks[1]),
	}
	if _, err := utils.ElementCount(perAxis, (size-core.LegacyHeaderSize)/8); err != nil {
		return fmt.Errorf("%w: legacy chunk table does not fit in %d bytes: %w", utils.ErrCorruptIndex, size, err)
	}

	r.legacy = h
	r.tree = core.NewLegacyTree(&core.Variable{
		DataType:    core.DataTypeFloatArray,
		Compression: h.Compression,
		ScaleFactor: h.ScaleFactor,
		Dims:        h.Dims[:],
		Chunks:      h.Chunks[:],
	})
	return nil
}

func (r *Reader) openV3() error {
	size := r.be.Size()
	if size < core.V3HeaderSize+core.TrailerSize {
		return fmt.Errorf("%w: %d bytes cannot hold header and trailer", utils.ErrFileTooSmall, size)
	}
	buf, err := r.copyBytes(size-core.TrailerSize, core.TrailerSize)
	if err != nil {
		return utils.WrapError("trailer read failed", err)
	}
	tr, err := core.ParseTrailer(buf)
	if err != nil {
		return err
	}

	root := core.Span{Offset: tr.RootOffset, Size: tr.RootSize}
	r.tree, err = core.LoadTree(func(s core.Span) ([]byte, error) {
		return r.copyBytes(s.Offset, s.Size)
	}, root, size-core.TrailerSize)
	if err != nil {
		return utils.WrapError("metadata load failed", err)
	}
	return nil
}

// copyBytes returns an owned copy of n bytes at off.
func (r *Reader) copyBytes(off, n uint64) ([]byte, error) {
	view, release, err := r.be.View(off, n)
	if err != nil {
		return nil, err
	}
	defer release()
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Close releases the file. Further calls on the Reader or its variables fail
// with ErrClosed. It is safe to call Close multiple times.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.be.Close()
}

// acquire takes the read lock for one operation.
func (r *Reader) acquire() (func(), error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, utils.ErrClosed
	}
	return r.mu.RUnlock, nil
}

// Version returns the format version: 1 or 2 for legacy files, 3 otherwise.
func (r *Reader) Version() uint8 {
	return r.version
}

// IsLegacy reports whether the file uses the single-array layout.
func (r *Reader) IsLegacy() bool {
	return r.legacy != nil
}

// Size returns the file size in bytes.
func (r *Reader) Size() uint64 {
	return r.be.Size()
}

// Root returns the root variable. Legacy files have a single unnamed
// float array as root.
func (r *Reader) Root() *Variable {
	return r.variable(r.tree.Root())
}

// Lookup finds a variable by slash-separated path relative to the root,
// for example "temperature" or "surface/temperature". The empty path is the
// root itself.
func (r *Reader) Lookup(path string) (*Variable, bool) {
	h, ok := r.tree.Lookup(path)
	if !ok {
		return nil, false
	}
	return r.variable(h), true
}

// Paths returns the path of every variable in depth-first record order.
// The root is listed first with path "".
func (r *Reader) Paths() []string {
	paths := make([]string, 0, r.tree.Len())
	r.tree.Walk(func(_ core.Handle, n *core.Node) bool {
		paths = append(paths, n.Path)
		return true
	})
	return paths
}

// Walk visits every variable depth first, starting at the root. Returning
// false from fn stops the walk.
func (r *Reader) Walk(fn func(path string, v *Variable) bool) {
	r.tree.Walk(func(h core.Handle, n *core.Node) bool {
		return fn(n.Path, r.variable(h))
	})
}

func (r *Reader) variable(h core.Handle) *Variable {
	return &Variable{r: r, h: h, node: r.tree.Node(h)}
}

// chunkIndex returns the lookup table of an array variable, loading it on
// first use. Concurrent first uses share one load.
func (r *Reader) chunkIndex(h core.Handle) (*core.ChunkIndex, error) {
	r.idxMu.Lock()
	ix, ok := r.indexes[h]
	r.idxMu.Unlock()
	if ok {
		return ix, nil
	}

	v, err, _ := r.loads.Do(strconv.Itoa(int(h)), func() (any, error) {
		ix, err := r.loadIndex(h)
		if err != nil {
			return nil, err
		}
		r.idxMu.Lock()
		r.indexes[h] = ix
		r.idxMu.Unlock()
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.ChunkIndex), nil
}

func (r *Reader) loadIndex(h core.Handle) (*core.ChunkIndex, error) {
	node := r.tree.Node(h)
	size := r.be.Size()

	var ix *core.ChunkIndex
	if r.legacy != nil {
		n := r.legacy.ChunkCount()
		table, release, err := r.be.View(core.LegacyHeaderSize, 8*n)
		if err != nil {
			return nil, utils.WrapError("legacy chunk table read failed", err)
		}
		ix, err = core.ParseLegacyIndex(table, n, r.legacy.DataStart(), size)
		release()
		if err != nil {
			return nil, err
		}
	} else {
		v := node.Var
		perAxis := make([]uint64, len(v.Dims))
		for i := range v.Dims {
			perAxis[i] = utils.CeilDiv(v.Dims[i], v.Chunks[i])
		}
		n, err := utils.ElementCount(perAxis, size)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %q chunk count: %w", utils.ErrCorruptIndex, node.Path, err)
		}
		if v.Lut.Size == 0 || v.Lut.End() > size || v.Lut.End() < v.Lut.Offset {
			return nil, fmt.Errorf("%w: variable %q lookup table [%d,+%d) outside file of %d bytes",
				utils.ErrCorruptIndex, node.Path, v.Lut.Offset, v.Lut.Size, size)
		}
		frame, release, err := r.be.View(v.Lut.Offset, v.Lut.Size)
		if err != nil {
			return nil, utils.WrapError("lookup table read failed", err)
		}
		ix, err = core.DecodeLUT(frame, n, size)
		release()
		if err != nil {
			return nil, utils.WrapError(fmt.Sprintf("variable %q", node.Path), err)
		}
	}

	r.log().Debug("chunk index loaded", "variable", node.Path, "chunks", ix.ChunkCount())
	return ix, nil
}
