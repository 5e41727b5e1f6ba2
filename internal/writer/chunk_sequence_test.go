package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/omfiles/internal/utils"
)

func TestNewChunkSequence(t *testing.T) {
	tests := []struct {
		name      string
		dims      []uint64
		chunks    []uint64
		wantTotal uint64
		wantErr   bool
	}{
		{"1D exact", []uint64{100}, []uint64{10}, 10, false},
		{"1D partial", []uint64{105}, []uint64{10}, 11, false},
		{"2D partial", []uint64{25, 35}, []uint64{10, 10}, 12, false},
		{"3D", []uint64{4, 4, 4}, []uint64{2, 2, 2}, 8, false},
		{"rank mismatch", []uint64{10, 10}, []uint64{5}, 0, true},
		{"empty", []uint64{}, []uint64{}, 0, true},
		{"zero dim", []uint64{0}, []uint64{1}, 0, true},
		{"zero chunk", []uint64{4}, []uint64{0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := NewChunkSequence(tt.dims, tt.chunks)
			if tt.wantErr {
				require.ErrorIs(t, err, utils.ErrShapeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, cs.Total())
			assert.Equal(t, uint64(0), cs.Next())
			assert.False(t, cs.Done())
		})
	}
}

func TestChunkSequence_RowMajorWalk(t *testing.T) {
	cs, err := NewChunkSequence([]uint64{25, 35}, []uint64{10, 10})
	require.NoError(t, err)

	wantShapes := map[uint64][]uint64{
		0:  {10, 10},
		3:  {10, 5},
		8:  {5, 10},
		11: {5, 5},
	}

	for i := uint64(0); i < cs.Total(); i++ {
		coord := []uint64{i / 4, i % 4}
		shape, err := cs.Expect(coord)
		require.NoError(t, err, "chunk %d", i)
		if want, ok := wantShapes[i]; ok {
			assert.Equal(t, want, shape, "chunk %d", i)
		}
		cs.Advance()
	}
	assert.True(t, cs.Done())

	_, err = cs.Expect([]uint64{0, 0})
	require.ErrorIs(t, err, utils.ErrSequence)

	// Advance past the end is a no-op.
	cs.Advance()
	assert.Equal(t, cs.Total(), cs.Next())
}

func TestChunkSequence_OutOfOrder(t *testing.T) {
	cs, err := NewChunkSequence([]uint64{4, 4}, []uint64{2, 2})
	require.NoError(t, err)

	_, err = cs.Expect([]uint64{0, 1})
	require.ErrorIs(t, err, utils.ErrSequence)
	assert.Equal(t, uint64(0), cs.Next(), "failed expect must not advance")

	_, err = cs.Expect([]uint64{0, 0})
	require.NoError(t, err)
	cs.Advance()
	assert.Equal(t, []uint64{0, 1}, cs.NextCoordinate())

	_, err = cs.Expect([]uint64{0})
	require.ErrorIs(t, err, utils.ErrSequence)
}

func TestChunkSequence_Copies(t *testing.T) {
	dims := []uint64{8}
	chunks := []uint64{4}
	cs, err := NewChunkSequence(dims, chunks)
	require.NoError(t, err)

	dims[0] = 99
	assert.Equal(t, []uint64{8}, cs.Dims())
	got := cs.ChunkDims()
	got[0] = 1
	assert.Equal(t, []uint64{4}, cs.ChunkDims())
}
