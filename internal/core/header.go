package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scigolib/omfiles/internal/utils"
)

// om magic bytes and format versions.
const (
	Magic0 = 'O'
	Magic1 = 'M'

	VersionLegacy1 = 1
	VersionLegacy2 = 2
	Version3       = 3
)

// Fixed structure sizes in bytes.
const (
	V3HeaderSize     = 3
	LegacyHeaderSize = 40
	TrailerSize      = 24
	Alignment        = 64
)

// DetectVersion inspects the first bytes of a file and returns its format
// version. head must hold at least the 3 header bytes.
func DetectVersion(head []byte) (uint8, error) {
	if len(head) < V3HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes", utils.ErrFileTooSmall, len(head))
	}
	if head[0] != Magic0 || head[1] != Magic1 {
		return 0, utils.ErrNotOmFile
	}
	switch v := head[2]; v {
	case VersionLegacy1, VersionLegacy2, Version3:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: version %d", utils.ErrUnsupportedFormat, v)
	}
}

// V3Header returns the 3-byte header that starts every v3 file.
func V3Header() []byte {
	return []byte{Magic0, Magic1, Version3}
}

// LegacyHeader is the fixed 40-byte header of v1/v2 files. Legacy files
// always hold a single two-dimensional float array.
type LegacyHeader struct {
	Version     uint8
	Compression Compression
	ScaleFactor float32
	Dims        [2]uint64
	Chunks      [2]uint64
}

// ParseLegacyHeader decodes a v1/v2 header. Version 1 files predate the
// compression byte and always use CompressionPforDelta2dInt16.
func ParseLegacyHeader(buf []byte) (*LegacyHeader, error) {
	if len(buf) < LegacyHeaderSize {
		return nil, fmt.Errorf("%w: legacy header needs %d bytes, got %d",
			utils.ErrFileTooSmall, LegacyHeaderSize, len(buf))
	}
	version, err := DetectVersion(buf)
	if err != nil {
		return nil, err
	}
	if version == Version3 {
		return nil, fmt.Errorf("%w: version 3 is not a legacy file", utils.ErrUnsupportedFormat)
	}

	h := &LegacyHeader{
		Version:     version,
		Compression: Compression(buf[3]),
		ScaleFactor: math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])),
		Dims: [2]uint64{
			binary.LittleEndian.Uint64(buf[8:16]),
			binary.LittleEndian.Uint64(buf[16:24]),
		},
		Chunks: [2]uint64{
			binary.LittleEndian.Uint64(buf[24:32]),
			binary.LittleEndian.Uint64(buf[32:40]),
		},
	}
	if version == VersionLegacy1 {
		h.Compression = CompressionPforDelta2dInt16
	}

	if !h.Compression.Valid() {
		return nil, fmt.Errorf("%w: legacy compression %s", utils.ErrUnsupportedFormat, h.Compression)
	}
	for i := range 2 {
		if h.Dims[i] == 0 || h.Chunks[i] == 0 || h.Chunks[i] > h.Dims[i] {
			return nil, fmt.Errorf("%w: legacy dims %v chunks %v", utils.ErrCorruptMetadata, h.Dims, h.Chunks)
		}
	}
	return h, nil
}

// Encode serializes the header into its 40-byte form.
func (h *LegacyHeader) Encode() []byte {
	buf := make([]byte, LegacyHeaderSize)
	buf[0], buf[1], buf[2] = Magic0, Magic1, h.Version
	buf[3] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(h.ScaleFactor))
	binary.LittleEndian.PutUint64(buf[8:16], h.Dims[0])
	binary.LittleEndian.PutUint64(buf[16:24], h.Dims[1])
	binary.LittleEndian.PutUint64(buf[24:32], h.Chunks[0])
	binary.LittleEndian.PutUint64(buf[32:40], h.Chunks[1])
	return buf
}

// ChunkCount returns the number of chunks described by the header.
func (h *LegacyHeader) ChunkCount() uint64 {
	return utils.CeilDiv(h.Dims[0], h.Chunks[0]) * utils.CeilDiv(h.Dims[1], h.Chunks[1])
}

// DataStart returns the absolute offset of the chunk data region.
func (h *LegacyHeader) DataStart() uint64 {
	return LegacyHeaderSize + 8*h.ChunkCount()
}

// Trailer closes every v3 file and points at the root variable record.
//
//	'O' 'M' 3, 5 reserved zero bytes, u64 root offset, u64 root size
type Trailer struct {
	RootOffset uint64
	RootSize   uint64
}

// ParseTrailer decodes the last TrailerSize bytes of a v3 file.
func ParseTrailer(buf []byte) (Trailer, error) {
	if len(buf) != TrailerSize {
		return Trailer{}, fmt.Errorf("%w: trailer needs %d bytes, got %d", utils.ErrFileTooSmall, TrailerSize, len(buf))
	}
	if buf[0] != Magic0 || buf[1] != Magic1 {
		return Trailer{}, fmt.Errorf("%w: trailer magic missing", utils.ErrCorruptMetadata)
	}
	if buf[2] != Version3 {
		return Trailer{}, fmt.Errorf("%w: trailer version %d", utils.ErrUnsupportedFormat, buf[2])
	}
	return Trailer{
		RootOffset: binary.LittleEndian.Uint64(buf[8:16]),
		RootSize:   binary.LittleEndian.Uint64(buf[16:24]),
	}, nil
}

// Encode serializes the trailer.
func (t Trailer) Encode() []byte {
	buf := make([]byte, TrailerSize)
	buf[0], buf[1], buf[2] = Magic0, Magic1, Version3
	binary.LittleEndian.PutUint64(buf[8:16], t.RootOffset)
	binary.LittleEndian.PutUint64(buf[16:24], t.RootSize)
	return buf
}
