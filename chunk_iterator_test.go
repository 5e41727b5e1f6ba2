package omfiles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIterator_Walk(t *testing.T) {
	data := buildFile(t, func(w *Writer) Ref {
		return writeArray(t, w, ArrayDescriptor{
			Dims: []uint64{5, 7}, Chunks: []uint64{2, 3}, Compression: CompressionPforDelta2d,
		}, ramp[uint16](35), "grid")
	})
	r := openBytes(t, data)
	v := r.Root()

	it, err := NewChunkIterator[uint16](context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), it.Total())

	var progress []uint64
	it.OnProgress(func(current, total uint64) {
		assert.Equal(t, uint64(9), total)
		progress = append(progress, current)
	})

	_, err = it.Chunk()
	require.Error(t, err, "Chunk before Next")

	var coords [][]uint64
	seen := 0
	for it.Next() {
		chunk, err := it.Chunk()
		require.NoError(t, err)
		coords = append(coords, it.ChunkCoords())

		start, shape := it.ChunkStart(), it.ChunkShape()
		require.Len(t, chunk, int(shape[0]*shape[1]))
		for i := range shape[0] {
			for j := range shape[1] {
				want := uint16((start[0]+i)*7 + start[1] + j)
				assert.Equal(t, want, chunk[i*shape[1]+j])
			}
		}
		seen += len(chunk)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 35, seen)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}, progress)
	assert.Equal(t, []uint64{0, 0}, coords[0])
	assert.Equal(t, []uint64{0, 2}, coords[2])
	assert.Equal(t, []uint64{2, 2}, coords[8])

	current, total := it.Progress()
	assert.Equal(t, uint64(9), current)
	assert.Equal(t, uint64(9), total)

	it.Reset()
	it.OnProgress(nil)
	require.True(t, it.Next())
	assert.Equal(t, []uint64{0, 0}, it.ChunkStart())
	assert.Equal(t, []uint64{2, 3}, it.ChunkShape())
}

func TestChunkIterator_Context(t *testing.T) {
	r := openBytes(t, sample4x4(t))
	ctx, cancel := context.WithCancel(context.Background())

	it, err := NewChunkIterator[int32](ctx, r.Root())
	require.NoError(t, err)
	require.True(t, it.Next())
	cancel()
	require.False(t, it.Next())
	require.ErrorIs(t, it.Err(), context.Canceled)

	it.Reset()
	require.NoError(t, it.Err())
}

func TestChunkIterator_Errors(t *testing.T) {
	data := buildFile(t, func(w *Writer) Ref {
		s, err := w.WriteString("name", "x")
		require.NoError(t, err)
		return s
	})
	r := openBytes(t, data)
	_, err := NewChunkIterator[int32](context.Background(), r.Root())
	require.Error(t, err)

	r2 := openBytes(t, sample4x4(t))
	_, err = NewChunkIterator[float64](context.Background(), r2.Root())
	require.ErrorIs(t, err, ErrDataTypeMismatch)
}
