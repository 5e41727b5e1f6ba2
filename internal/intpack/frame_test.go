package intpack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/omfiles/internal/utils"
)

func TestFrameRoundTrip(t *testing.T) {
	ramp := make([]uint64, 4096)
	for i := range ramp {
		ramp[i] = uint64(i % 17)
	}
	noisy := make([]uint64, 512)
	x := uint64(88172645463325252)
	for i := range noisy {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		noisy[i] = x
	}

	inputs := []struct {
		name   string
		values []uint64
	}{
		{"empty", []uint64{}},
		{"single", []uint64{42}},
		{"zeros", make([]uint64, 1000)},
		{"max values", []uint64{math.MaxUint64, math.MaxUint64, 0, math.MaxUint64}},
		{"ramp", ramp},
		{"noisy", noisy},
	}

	for _, id := range []PackerID{PackerNone, PackerZstd, PackerS2, PackerLZ4} {
		for _, in := range inputs {
			t.Run(id.String()+"/"+in.name, func(t *testing.T) {
				frame, err := Encode(in.values, id)
				require.NoError(t, err)

				count, err := DecodeCount(frame)
				require.NoError(t, err)
				require.Equal(t, uint64(len(in.values)), count)

				got := make([]uint64, len(in.values))
				require.NoError(t, Decode(frame, got))
				require.Equal(t, in.values, got)
			})
		}
	}
}

func TestEncode_FallsBackToNone(t *testing.T) {
	frame, err := Encode([]uint64{1}, PackerZstd)
	require.NoError(t, err)
	require.Equal(t, byte(PackerNone), frame[0])
}

func TestEncode_CompressesRepetitiveData(t *testing.T) {
	values := make([]uint64, 10000)
	frame, err := Encode(values, PackerZstd)
	require.NoError(t, err)
	require.Equal(t, byte(PackerZstd), frame[0])
	require.Less(t, len(frame), 1000)
}

func TestDecode_Errors(t *testing.T) {
	good, err := Encode([]uint64{1, 2, 3, 4, 5}, PackerNone)
	require.NoError(t, err)

	tests := []struct {
		name  string
		frame []byte
		count int
	}{
		{"empty frame", nil, 5},
		{"unknown packer", append([]byte{99}, good[1:]...), 5},
		{"count mismatch", good, 4},
		{"truncated body", good[:len(good)-2], 5},
		{"truncated header", good[:1], 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(tt.frame, make([]uint64, tt.count))
			require.ErrorIs(t, err, utils.ErrCodec)
		})
	}
}

func TestDecode_ZstdBodyLargerThanDeclared(t *testing.T) {
	enc, err := zstdEncoder()
	require.NoError(t, err)
	body := enc.EncodeAll(make([]byte, 1<<20), nil)

	_, err = zstdPacker{}.Decompress(body, 10)
	require.Error(t, err)

	frame := []byte{byte(PackerZstd), 10, 10}
	frame = append(frame, body...)
	require.ErrorIs(t, Decode(frame, make([]uint64, 10)), utils.ErrCodec)
}

func TestEncode_UnknownPacker(t *testing.T) {
	_, err := Encode([]uint64{1}, PackerID(42))
	require.ErrorIs(t, err, utils.ErrCodec)
}

func TestZigZag(t *testing.T) {
	tests := []struct {
		in   int64
		want uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{math.MaxInt64, math.MaxUint64 - 1},
		{math.MinInt64, math.MaxUint64},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ZigZag(tt.in))
		require.Equal(t, tt.in, UnZigZag(tt.want))
	}
}

func TestParsePacker(t *testing.T) {
	for _, name := range []string{"none", "zstd", "s2", "lz4"} {
		id, err := ParsePacker(name)
		require.NoError(t, err)
		require.Equal(t, name, id.String())
	}
	_, err := ParsePacker("gzip")
	require.Error(t, err)
	require.Equal(t, "packer(9)", PackerID(9).String())
}
