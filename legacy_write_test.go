package omfiles

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLegacy writes a version 2 file and returns its bytes.
func writeLegacy(t *testing.T, desc LegacyDescriptor, data []float32) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.om")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	lw, err := NewLegacyWriter(f, desc, WithBufferSize(64))
	require.NoError(t, err)
	require.NoError(t, lw.WriteArray(data))
	require.NoError(t, lw.Finish())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}

func wave(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(20 + 10*math.Sin(float64(i)/5))
	}
	return out
}

func TestLegacy_MatchesVersion3(t *testing.T) {
	values := wave(5 * 7)
	tests := []struct {
		name        string
		compression Compression
		scale       float32
	}{
		{"fpx", CompressionFpxXor2d, 0},
		{"int16", CompressionPforDelta2dInt16, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			legacy := writeLegacy(t, LegacyDescriptor{
				Dims: [2]uint64{5, 7}, Chunks: [2]uint64{2, 3},
				Compression: tt.compression, ScaleFactor: tt.scale,
			}, values)
			v3 := buildFile(t, func(w *Writer) Ref {
				return writeArray(t, w, ArrayDescriptor{
					Dims: []uint64{5, 7}, Chunks: []uint64{2, 3},
					Compression: tt.compression, ScaleFactor: tt.scale,
				}, values, "data")
			})

			lr := openBytes(t, legacy)
			assert.Equal(t, uint8(2), lr.Version())
			assert.True(t, lr.IsLegacy())
			assert.Equal(t, []string{""}, lr.Paths())
			lv := lr.Root()
			assert.Equal(t, DataTypeFloatArray, lv.DataType())
			assert.Equal(t, tt.compression, lv.Compression())
			assert.Equal(t, []uint64{5, 7}, lv.Dims())
			assert.Equal(t, []uint64{2, 3}, lv.Chunks())

			ranges := []Range{{Start: 1, End: 5}, {Start: 2, End: 7}}
			want, err := ReadRange[float32](context.Background(), openBytes(t, v3).Root(), ranges)
			require.NoError(t, err)
			got, err := ReadRange[float32](context.Background(), lv, ranges)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLegacy_Version1(t *testing.T) {
	values := wave(4 * 4)
	data := writeLegacy(t, LegacyDescriptor{
		Dims: [2]uint64{4, 4}, Chunks: [2]uint64{2, 2},
		Compression: CompressionPforDelta2dInt16, ScaleFactor: 100,
	}, values)
	// Version 1 files have no compression byte; whatever is stored there
	// is ignored.
	data[2], data[3] = 1, 0xAB

	r := openBytes(t, data)
	assert.Equal(t, uint8(1), r.Version())
	assert.Equal(t, CompressionPforDelta2dInt16, r.Root().Compression())

	got, err := ReadRange[float32](context.Background(), r.Root(), FullRange([]uint64{4, 4}))
	require.NoError(t, err)
	for i := range values {
		assert.InDelta(t, values[i], got[i], 0.005)
	}
}

func TestLegacy_Corrupt(t *testing.T) {
	clean := writeLegacy(t, LegacyDescriptor{
		Dims: [2]uint64{4, 4}, Chunks: [2]uint64{2, 2}, Compression: CompressionFpxXor2d,
	}, wave(16))

	tests := []struct {
		name    string
		mutate  func(b []byte) []byte
		wantErr error
		atOpen  bool
	}{
		{
			name:    "chunk end beyond file",
			mutate:  func(b []byte) []byte { binary.LittleEndian.PutUint64(b[40+8*3:], 1<<40); return b },
			wantErr: ErrCorruptIndex,
		},
		{
			name: "decreasing offsets",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint64(b[40+8:], 1)
				return b
			},
			wantErr: ErrCorruptIndex,
		},
		{
			name:    "table truncated",
			mutate:  func(b []byte) []byte { return b[:50] },
			wantErr: ErrCorruptIndex,
			atOpen:  true,
		},
		{
			name:    "zero chunk dimension",
			mutate:  func(b []byte) []byte { binary.LittleEndian.PutUint64(b[24:], 0); return b },
			wantErr: ErrCorruptMetadata,
			atOpen:  true,
		},
		{
			name:    "unknown compression",
			mutate:  func(b []byte) []byte { b[3] = 17; return b },
			wantErr: ErrUnsupportedFormat,
			atOpen:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), clean...))
			r, err := OpenBytes(data)
			if tt.atOpen {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { _ = r.Close() }()
			_, err = ReadRange[float32](context.Background(), r.Root(), FullRange([]uint64{4, 4}))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLegacyWriter_Errors(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x.om"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	_, err = NewLegacyWriter(f, LegacyDescriptor{
		Dims: [2]uint64{4, 4}, Chunks: [2]uint64{2, 2}, Compression: CompressionNone,
	})
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewLegacyWriter(f, LegacyDescriptor{
		Dims: [2]uint64{4, 0}, Chunks: [2]uint64{2, 2}, Compression: CompressionFpxXor2d,
	})
	require.ErrorIs(t, err, ErrShapeMismatch)

	lw, err := NewLegacyWriter(f, LegacyDescriptor{
		Dims: [2]uint64{4, 4}, Chunks: [2]uint64{2, 2}, Compression: CompressionFpxXor2d,
	})
	require.NoError(t, err)
	require.ErrorIs(t, lw.WriteArray(make([]float32, 3)), ErrShapeMismatch)
	require.NoError(t, lw.WriteChunk([]uint64{0, 0}, []float32{1, 2, 3, 4}))
	require.ErrorIs(t, lw.WriteChunk([]uint64{1, 1}, []float32{1, 2, 3, 4}), ErrSequence)
	require.ErrorIs(t, lw.Finish(), ErrSequence)

	require.NoError(t, lw.WriteChunk([]uint64{0, 1}, []float32{1, 2, 3, 4}))
	require.NoError(t, lw.WriteChunk([]uint64{1, 0}, []float32{1, 2, 3, 4}))
	require.NoError(t, lw.WriteChunk([]uint64{1, 1}, []float32{1, 2, 3, 4}))
	require.NoError(t, lw.Finish())
	require.ErrorIs(t, lw.Finish(), ErrClosed)
	require.ErrorIs(t, lw.WriteChunk([]uint64{0, 0}, nil), ErrClosed)
}
