package core

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/omfiles/internal/utils"
)

func TestVariable_EncodeDecode(t *testing.T) {
	f64 := binary.LittleEndian.AppendUint64(nil, math.Float64bits(2.5))

	tests := []struct {
		name string
		v    *Variable
	}{
		{
			name: "float array with children",
			v: &Variable{
				DataType:    DataTypeFloatArray,
				Compression: CompressionPforDelta2dInt16,
				Name:        "temperature_2m",
				Children:    []Span{{Offset: 64, Size: 20}, {Offset: 128, Size: 31}},
				Lut:         Span{Offset: 4000, Size: 37},
				ScaleFactor: 20,
				AddOffset:   -1.5,
				Dims:        []uint64{721, 1440, 24},
				Chunks:      []uint64{1, 32, 24},
			},
		},
		{
			name: "double scalar",
			v:    &Variable{DataType: DataTypeDouble, Name: "version", Value: f64},
		},
		{
			name: "string scalar",
			v:    &Variable{DataType: DataTypeString, Name: "units", Value: []byte("kelvin")},
		},
		{
			name: "empty string",
			v:    &Variable{DataType: DataTypeString, Name: "empty", Value: []byte{}},
		},
		{
			name: "group node",
			v:    &Variable{DataType: DataTypeNone, Name: "", Children: []Span{{Offset: 3, Size: 40}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.v.Encode()
			require.NoError(t, err)
			require.Len(t, buf, tt.v.EncodedSize())

			got, err := DecodeVariable(buf)
			require.NoError(t, err)
			require.Equal(t, tt.v.DataType, got.DataType)
			require.Equal(t, tt.v.Name, got.Name)
			require.Equal(t, tt.v.Dims, got.Dims)
			require.Equal(t, tt.v.Chunks, got.Chunks)
			require.Equal(t, tt.v.Lut, got.Lut)
			require.Equal(t, tt.v.ScaleFactor, got.ScaleFactor)
			require.Equal(t, tt.v.AddOffset, got.AddOffset)
			require.Equal(t, len(tt.v.Children), len(got.Children))
			for i := range tt.v.Children {
				require.Equal(t, tt.v.Children[i], got.Children[i])
			}
			require.Equal(t, len(tt.v.Value), len(got.Value))
			if len(tt.v.Value) > 0 {
				require.Equal(t, tt.v.Value, got.Value)
			}
		})
	}
}

func TestDecodeVariable_Truncated(t *testing.T) {
	v := &Variable{
		DataType: DataTypeInt32Array,
		Name:     "x",
		Dims:     []uint64{10},
		Chunks:   []uint64{5},
	}
	buf, err := v.Encode()
	require.NoError(t, err)

	for _, n := range []int{0, 4, 8, 30, len(buf) - 1} {
		_, err := DecodeVariable(buf[:n])
		require.ErrorIs(t, err, utils.ErrCorruptMetadata, "prefix %d", n)
	}
}

func TestDecodeVariable_Rejects(t *testing.T) {
	unknownType := []byte{40, 0, 0, 0, 0, 0, 0, 0}
	_, err := DecodeVariable(unknownType)
	require.ErrorIs(t, err, utils.ErrUnsupportedFormat)

	hugeChildren := []byte{0, 0, 0, 0, 0xff, 0xff, 0xff, 0x7f}
	_, err = DecodeVariable(hugeChildren)
	require.ErrorIs(t, err, utils.ErrCorruptMetadata)

	v := &Variable{DataType: DataTypeInt32Array, Name: "x", Dims: []uint64{10}, Chunks: []uint64{5}}
	buf, err := v.Encode()
	require.NoError(t, err)
	buf[1] = 9 // unknown compression
	_, err = DecodeVariable(buf)
	require.ErrorIs(t, err, utils.ErrUnsupportedFormat)
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name    string
		dims    []uint64
		chunks  []uint64
		wantErr bool
	}{
		{"valid 2D", []uint64{4, 4}, []uint64{2, 2}, false},
		{"chunk equals dim", []uint64{10}, []uint64{10}, false},
		{"no dims", nil, nil, true},
		{"arity mismatch", []uint64{10, 10}, []uint64{5}, true},
		{"zero dim", []uint64{0}, []uint64{1}, true},
		{"zero chunk", []uint64{10}, []uint64{0}, true},
		{"chunk larger than dim", []uint64{10}, []uint64{11}, true},
		{"chunk too large", []uint64{1 << 20, 1 << 20}, []uint64{1 << 20, 1 << 20}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShape(tt.dims, tt.chunks)
			if tt.wantErr {
				require.ErrorIs(t, err, utils.ErrShapeMismatch)
				return
			}
			require.NoError(t, err)
		})
	}
}
