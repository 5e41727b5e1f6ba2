package codec

import (
	"math"

	"github.com/scigolib/omfiles/internal/core"
)

// laneRange is the integer range a quantized value is clamped to. The
// maximum doubles as the NaN marker.
type laneRange struct {
	min, max int64
}

var (
	int16Lane = laneRange{math.MinInt16, math.MaxInt16}
	int32Lane = laneRange{math.MinInt32, math.MaxInt32}
	int64Lane = laneRange{math.MinInt64, math.MaxInt64}
)

// wideLane is the lossless-width lane used by PforDelta2d for floats.
func wideLane(dt core.DataType) laneRange {
	if dt == core.DataTypeDouble {
		return int64Lane
	}
	return int32Lane
}

// quantize maps v to its stored integer: round((v-offset)*scale), or
// round(log10(1+v)*scale) for the logarithmic scheme. Rounding is half away
// from zero. Results are clamped to the lane; NaN maps to the lane maximum.
func quantize(v float64, scale, offset float32, lane laneRange, logarithmic bool) int64 {
	if math.IsNaN(v) {
		return lane.max
	}
	var x float64
	if logarithmic {
		x = math.Log10(1+v) * float64(scale)
	} else {
		x = (v - float64(offset)) * float64(scale)
	}
	x = math.Round(x)
	switch {
	case math.IsNaN(x):
		return lane.max
	case x >= float64(lane.max):
		return lane.max
	case x <= float64(lane.min):
		return lane.min
	}
	return int64(x)
}

// dequantize reverses quantize. The lane maximum decodes to NaN.
func dequantize(s int64, scale, offset float32, lane laneRange, logarithmic bool) float64 {
	if s == lane.max {
		return math.NaN()
	}
	if logarithmic {
		return math.Pow(10, float64(s)/float64(scale)) - 1
	}
	return float64(s)/float64(scale) + float64(offset)
}

func quantizeLanes(raw []byte, p Params, lane laneRange, logarithmic bool) []int64 {
	dt := p.DataType.Element()
	lanes := make([]int64, len(raw)/dt.Size())
	for i := range lanes {
		lanes[i] = quantize(floatAt(raw, dt, i), p.ScaleFactor, p.AddOffset, lane, logarithmic)
	}
	return lanes
}

func dequantizeLanes(dst []byte, lanes []int64, p Params, lane laneRange, logarithmic bool) {
	dt := p.DataType.Element()
	for i, s := range lanes {
		putFloat(dst, dt, i, dequantize(s, p.ScaleFactor, p.AddOffset, lane, logarithmic))
	}
}
