package omfiles

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildFile writes a version 3 file in memory. fn returns the root.
func buildFile(t *testing.T, fn func(w *Writer) Ref, opts ...WriterOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts...)
	require.NoError(t, err)
	root := fn(w)
	require.NoError(t, w.Finish(root))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// writeArray writes a complete array and returns its Ref.
func writeArray[T Element](t *testing.T, w *Writer, desc ArrayDescriptor, data []T, name string, children ...Ref) Ref {
	t.Helper()
	aw, err := PrepareArray[T](w, desc)
	require.NoError(t, err)
	require.NoError(t, aw.WriteArray(data))
	ref, err := aw.Finalize(name, children...)
	require.NoError(t, err)
	return ref
}

// ramp returns 0, 1, ..., n-1.
func ramp[T Element](n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(i)
	}
	return out
}

func openBytes(t *testing.T, data []byte, opts ...OpenOption) *Reader {
	t.Helper()
	r, err := OpenBytes(data, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// sample4x4 is a [4,4] int32 array 0..15 in [2,2] chunks.
func sample4x4(t *testing.T) []byte {
	t.Helper()
	return buildFile(t, func(w *Writer) Ref {
		return writeArray(t, w, ArrayDescriptor{
			Dims:        []uint64{4, 4},
			Chunks:      []uint64{2, 2},
			Compression: CompressionPforDelta2d,
		}, ramp[int32](16), "data")
	})
}
