// Package intpack implements the integer-compression primitive used for
// chunk payloads and chunk lookup tables.
//
// Integers are written as a uvarint stream which is then handed to a
// byte-oriented Packer (zstd, S2, LZ4 or none). A frame records which packer
// produced it, so readers never need out-of-band configuration.
package intpack

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// PackerID identifies the byte compressor used for a frame body.
type PackerID uint8

// Packer identifiers as stored in the first byte of each frame.
const (
	PackerNone PackerID = 0
	PackerZstd PackerID = 1
	PackerS2   PackerID = 2
	PackerLZ4  PackerID = 3
)

// DefaultPacker is used when the caller does not choose one.
const DefaultPacker = PackerZstd

func (id PackerID) String() string {
	if p, ok := packers[id]; ok {
		return p.Name()
	}
	return fmt.Sprintf("packer(%d)", uint8(id))
}

// Packer compresses the uvarint stream of a frame.
// Implementations must be safe for concurrent use.
type Packer interface {
	// ID returns the identifier stored in the frame header.
	ID() PackerID

	// Name returns a human-readable name.
	Name() string

	// Compress returns the packed form of src. It returns errIncompressible
	// when packing would not shrink the input; the frame encoder then falls
	// back to PackerNone.
	Compress(src []byte) ([]byte, error)

	// Decompress reverses Compress. rawLen is the exact unpacked length.
	Decompress(src []byte, rawLen int) ([]byte, error)
}

var packers = map[PackerID]Packer{
	PackerNone: nonePacker{},
	PackerZstd: zstdPacker{},
	PackerS2:   s2Packer{},
	PackerLZ4:  lz4Packer{},
}

// Lookup returns the packer registered for id.
func Lookup(id PackerID) (Packer, bool) {
	p, ok := packers[id]
	return p, ok
}

// ParsePacker maps a packer name ("none", "zstd", "s2", "lz4") to its id.
func ParsePacker(name string) (PackerID, error) {
	for id, p := range packers {
		if p.Name() == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown packer %q", name)
}

var errIncompressible = errors.New("data is incompressible")

type nonePacker struct{}

func (nonePacker) ID() PackerID { return PackerNone }
func (nonePacker) Name() string { return "none" }
func (nonePacker) Compress(src []byte) ([]byte, error) {
	return src, nil
}

func (nonePacker) Decompress(src []byte, rawLen int) ([]byte, error) {
	if len(src) != rawLen {
		return nil, fmt.Errorf("stored body: size %d does not match expected %d", len(src), rawLen)
	}
	return src, nil
}

// maxUnpackedBytes caps the memory a single zstd body may decode into.
const maxUnpackedBytes = 1 << 32

// zstd encoder and decoder are shared; both are safe for concurrent use
// through EncodeAll/DecodeAll. DecodeAll never grows dst past its capacity,
// so a body cannot decode to more than the length its frame declares.
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
			zstd.WithLowerEncoderMem(true),
		)
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(maxUnpackedBytes),
			zstd.WithDecodeAllCapLimit(true),
		)
	})
)

type zstdPacker struct{}

func (zstdPacker) ID() PackerID { return PackerZstd }
func (zstdPacker) Name() string { return "zstd" }

func (zstdPacker) Compress(src []byte) ([]byte, error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	out := enc.EncodeAll(src, nil)
	if len(out) >= len(src) {
		return nil, errIncompressible
	}
	return out, nil
}

func (zstdPacker) Decompress(src []byte, rawLen int) ([]byte, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(src, make([]byte, 0, rawLen))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != rawLen {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), rawLen)
	}
	return out, nil
}

type s2Packer struct{}

func (s2Packer) ID() PackerID { return PackerS2 }
func (s2Packer) Name() string { return "s2" }

func (s2Packer) Compress(src []byte) ([]byte, error) {
	out := s2.Encode(nil, src)
	if len(out) >= len(src) {
		return nil, errIncompressible
	}
	return out, nil
}

func (s2Packer) Decompress(src []byte, rawLen int) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("s2 header: %w", err)
	}
	if n != rawLen {
		return nil, fmt.Errorf("s2 decompress: header says %d bytes, expected %d", n, rawLen)
	}
	out, err := s2.Decode(make([]byte, rawLen), src)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}
	return out, nil
}

type lz4Packer struct{}

func (lz4Packer) ID() PackerID { return PackerLZ4 }
func (lz4Packer) Name() string { return "lz4" }

func (lz4Packer) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	written, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(src) {
		return nil, errIncompressible
	}
	return dst[:written], nil
}

func (lz4Packer) Decompress(src []byte, rawLen int) ([]byte, error) {
	dst := make([]byte, rawLen)
	read, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != rawLen {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawLen)
	}
	return dst, nil
}
