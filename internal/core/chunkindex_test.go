package core

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/omfiles/internal/intpack"
	"github.com/scigolib/omfiles/internal/utils"
)

func TestIndexBuilder_LUTRoundTrip(t *testing.T) {
	lengths := []uint64{10, 0, 300, 7, 7, 65536}
	b := NewIndexBuilder(3, uint64(len(lengths)))
	for _, l := range lengths {
		require.NoError(t, b.Append(l))
	}
	require.Equal(t, uint64(len(lengths)), b.Len())

	for _, packer := range []intpack.PackerID{intpack.PackerNone, intpack.PackerZstd, intpack.PackerLZ4} {
		frame, err := b.EncodeLUT(packer)
		require.NoError(t, err)

		ix, err := DecodeLUT(frame, uint64(len(lengths)), 1<<20)
		require.NoError(t, err)
		require.Equal(t, uint64(3), ix.Base())
		require.Equal(t, uint64(len(lengths)), ix.ChunkCount())

		var want uint64
		for i, l := range lengths {
			off, n, err := ix.OffsetAndLength(uint64(i))
			require.NoError(t, err)
			require.Equal(t, want, off)
			require.Equal(t, uint32(l), n)
			want += l
		}
		require.Equal(t, 3+want, ix.DataEnd())
	}
}

func TestIndex_MonotonicProperty(t *testing.T) {
	b := NewIndexBuilder(40, 50)
	for i := range 50 {
		require.NoError(t, b.Append(uint64(i*i%97)))
	}
	ix := b.Index()
	var prev uint64
	for i := range ix.ChunkCount() {
		off, _, err := ix.OffsetAndLength(i)
		require.NoError(t, err)
		require.GreaterOrEqual(t, off, prev)
		prev = off
	}
}

func TestParseLegacyIndex(t *testing.T) {
	b := NewIndexBuilder(40+3*8, 3)
	for _, l := range []uint64{5, 9, 2} {
		require.NoError(t, b.Append(l))
	}
	table := b.EncodeLegacy()
	require.Len(t, table, 24)

	ix, err := ParseLegacyIndex(table, 3, 64, 64+16)
	require.NoError(t, err)

	span, err := ix.Span(1)
	require.NoError(t, err)
	require.Equal(t, Span{Offset: 69, Size: 9}, span)

	_, _, err = ix.OffsetAndLength(3)
	require.ErrorIs(t, err, utils.ErrRange)
}

func TestParseLegacyIndex_Corrupt(t *testing.T) {
	decreasing := binary.LittleEndian.AppendUint64(nil, 10)
	decreasing = binary.LittleEndian.AppendUint64(decreasing, 4)

	_, err := ParseLegacyIndex(decreasing, 2, 56, 1000)
	require.ErrorIs(t, err, utils.ErrCorruptIndex)

	_, err = ParseLegacyIndex(decreasing[:8], 2, 56, 1000)
	require.ErrorIs(t, err, utils.ErrCorruptIndex)

	pastEOF := binary.LittleEndian.AppendUint64(nil, 500)
	_, err = ParseLegacyIndex(pastEOF, 1, 48, 100)
	require.ErrorIs(t, err, utils.ErrCorruptIndex)
}

func TestDecodeLUT_Corrupt(t *testing.T) {
	negative, err := intpack.Encode([]uint64{3, intpack.ZigZag(5), intpack.ZigZag(-2)}, intpack.PackerNone)
	require.NoError(t, err)
	_, err = DecodeLUT(negative, 2, 1000)
	require.ErrorIs(t, err, utils.ErrCorruptIndex)

	short, err := intpack.Encode([]uint64{3, 4}, intpack.PackerNone)
	require.NoError(t, err)
	_, err = DecodeLUT(short, 2, 1000)
	require.ErrorIs(t, err, utils.ErrCorruptIndex)

	_, err = DecodeLUT([]byte{1}, 2, 1000)
	require.ErrorIs(t, err, utils.ErrCorruptIndex)
}
