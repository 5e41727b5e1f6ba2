package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/omfiles/internal/utils"
)

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name    string
		head    []byte
		want    uint8
		wantErr error
	}{
		{name: "legacy v1", head: []byte{'O', 'M', 1}, want: 1},
		{name: "legacy v2", head: []byte{'O', 'M', 2, 0}, want: 2},
		{name: "v3", head: []byte{'O', 'M', 3}, want: 3},
		{name: "too small", head: []byte{'O'}, wantErr: utils.ErrFileTooSmall},
		{name: "bad magic", head: []byte{'H', 'D', 3}, wantErr: utils.ErrNotOmFile},
		{name: "unknown version", head: []byte{'O', 'M', 9}, wantErr: utils.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectVersion(tt.head)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLegacyHeader_RoundTrip(t *testing.T) {
	h := &LegacyHeader{
		Version:     VersionLegacy2,
		Compression: CompressionFpxXor2d,
		ScaleFactor: 20,
		Dims:        [2]uint64{100, 50},
		Chunks:      [2]uint64{10, 7},
	}
	buf := h.Encode()
	require.Len(t, buf, LegacyHeaderSize)

	got, err := ParseLegacyHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, uint64(10*8), got.ChunkCount())
	require.Equal(t, uint64(LegacyHeaderSize+8*80), got.DataStart())
}

func TestParseLegacyHeader_V1ForcesCompression(t *testing.T) {
	h := &LegacyHeader{
		Version:     VersionLegacy1,
		Compression: CompressionNone, // ignored by version 1 readers
		ScaleFactor: 1,
		Dims:        [2]uint64{4, 4},
		Chunks:      [2]uint64{2, 2},
	}
	got, err := ParseLegacyHeader(h.Encode())
	require.NoError(t, err)
	require.Equal(t, CompressionPforDelta2dInt16, got.Compression)
}

func TestParseLegacyHeader_Errors(t *testing.T) {
	valid := (&LegacyHeader{Version: 2, ScaleFactor: 1, Dims: [2]uint64{4, 4}, Chunks: [2]uint64{2, 2}}).Encode()

	zeroChunk := append([]byte(nil), valid...)
	zeroChunk[24] = 0

	bigChunk := append([]byte(nil), valid...)
	bigChunk[32] = 9

	badCompression := append([]byte(nil), valid...)
	badCompression[3] = 77

	v3 := append([]byte(nil), valid...)
	v3[2] = 3

	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{"truncated", valid[:20], utils.ErrFileTooSmall},
		{"zero chunk", zeroChunk, utils.ErrCorruptMetadata},
		{"chunk larger than dim", bigChunk, utils.ErrCorruptMetadata},
		{"unknown compression", badCompression, utils.ErrUnsupportedFormat},
		{"v3 header", v3, utils.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLegacyHeader(tt.buf)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTrailer_RoundTrip(t *testing.T) {
	tr := Trailer{RootOffset: 4096, RootSize: 123}
	buf := tr.Encode()
	require.Len(t, buf, TrailerSize)
	require.Equal(t, []byte{'O', 'M', 3, 0, 0, 0, 0, 0}, buf[:8])

	got, err := ParseTrailer(buf)
	require.NoError(t, err)
	require.Equal(t, tr, got)
}

func TestParseTrailer_Errors(t *testing.T) {
	_, err := ParseTrailer(make([]byte, 10))
	require.ErrorIs(t, err, utils.ErrFileTooSmall)

	_, err = ParseTrailer(make([]byte, TrailerSize))
	require.ErrorIs(t, err, utils.ErrCorruptMetadata)

	buf := Trailer{}.Encode()
	buf[2] = 4
	_, err = ParseTrailer(buf)
	require.ErrorIs(t, err, utils.ErrUnsupportedFormat)
}
