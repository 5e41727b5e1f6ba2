package omfiles

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertFile_Version3(t *testing.T) {
	src := buildFile(t, func(w *Writer) Ref {
		title, err := w.WriteString("title", "forecast")
		require.NoError(t, err)
		scale, err := WriteScalar(w, "version", uint16(7))
		require.NoError(t, err)
		temp := writeArray(t, w, ArrayDescriptor{
			Dims: []uint64{9, 4, 5}, Chunks: []uint64{4, 2, 5},
			Compression: CompressionPforDelta2dInt16, ScaleFactor: 10, AddOffset: 5,
		}, wave(9*4*5), "temperature", scale)
		counts := writeArray(t, w, ArrayDescriptor{
			Dims: []uint64{6}, Chunks: []uint64{4}, Compression: CompressionPforDelta2d,
		}, []uint32{1, 1, 2, 3, 5, 8}, "counts")
		group, err := w.WriteGroup("fields", temp, counts)
		require.NoError(t, err)
		root, err := w.WriteGroup("", title, group)
		require.NoError(t, err)
		return root
	})
	sr := openBytes(t, src)

	var out bytes.Buffer
	w, err := NewWriter(&out, WithPacker(PackerLZ4))
	require.NoError(t, err)
	require.NoError(t, ConvertFile(context.Background(), w, sr, ""))

	dr := openBytes(t, out.Bytes())
	assert.Equal(t, sr.Paths(), dr.Paths())

	for _, path := range []string{"fields/temperature", "fields/counts"} {
		a, ok := sr.Lookup(path)
		require.True(t, ok)
		b, ok := dr.Lookup(path)
		require.True(t, ok)
		assert.Equal(t, a.DataType(), b.DataType())
		assert.Equal(t, a.Compression(), b.Compression())
		assert.Equal(t, a.Chunks(), b.Chunks())

		want, err := a.ReadFloat64(context.Background(), FullRange(a.Dims()))
		require.NoError(t, err)
		got, err := b.ReadFloat64(context.Background(), FullRange(b.Dims()))
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}

	title, ok := dr.Lookup("title")
	require.True(t, ok)
	s, err := title.StringValue()
	require.NoError(t, err)
	assert.Equal(t, "forecast", s)

	ver, ok := dr.Lookup("fields/temperature/version")
	require.True(t, ok)
	n, err := ReadScalar[uint16](ver)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), n)
}

func TestConvertFile_Legacy(t *testing.T) {
	values := wave(6 * 6)
	legacy := writeLegacy(t, LegacyDescriptor{
		Dims: [2]uint64{6, 6}, Chunks: [2]uint64{4, 4}, Compression: CompressionFpxXor2d,
	}, values)
	lr := openBytes(t, legacy)

	var out bytes.Buffer
	w, err := NewWriter(&out)
	require.NoError(t, err)
	require.NoError(t, ConvertFile(context.Background(), w, lr, "temperature"))

	r := openBytes(t, out.Bytes())
	assert.Equal(t, uint8(3), r.Version())
	assert.Equal(t, "temperature", r.Root().Name())
	got, err := ReadRange[float32](context.Background(), r.Root(), FullRange([]uint64{6, 6}))
	require.NoError(t, err)
	assert.Equal(t, values, got)
}
