package media

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescale(t *testing.T) {
	tests := []struct {
		name     string
		a        int64
		from, to Rational
		want     int64
	}{
		{"30fps to ms", 90, Rational{1, 30}, Rational{1, 1000}, 3000},
		{"ms to 90k", 40, Rational{1, 1000}, Rational{1, 90000}, 3600},
		{"identity", 12345, Rational{1, 25}, Rational{1, 25}, 12345},
		{"rounds to nearest", 1, Rational{1, 3}, Rational{1, 2}, 1},
		{"halfway away from zero", 1, Rational{1, 4}, Rational{1, 2}, 1},
		{"negative halfway", -1, Rational{1, 4}, Rational{1, 2}, -1},
		{"zero", 0, Rational{1, 30}, Rational{1, 15360}, 0},
		{"coarser base", 1001, Rational{1, 30000}, Rational{1, 30}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rescale(tt.a, tt.from, tt.to))
		})
	}
}

func TestRescaleRnd_Modes(t *testing.T) {
	from, to := Rational{1, 3}, Rational{1, 2} // 2/3 of a tick
	assert.Equal(t, int64(0), RescaleRnd(1, from, to, RoundZero))
	assert.Equal(t, int64(0), RescaleRnd(1, from, to, RoundDown))
	assert.Equal(t, int64(1), RescaleRnd(1, from, to, RoundUp))
	assert.Equal(t, int64(1), RescaleRnd(1, from, to, RoundInf))

	assert.Equal(t, int64(0), RescaleRnd(-1, from, to, RoundZero))
	assert.Equal(t, int64(-1), RescaleRnd(-1, from, to, RoundDown))
	assert.Equal(t, int64(0), RescaleRnd(-1, from, to, RoundUp))
	assert.Equal(t, int64(-1), RescaleRnd(-1, from, to, RoundInf))
}

func TestRescaleTS_PassesSentinels(t *testing.T) {
	from, to := Rational{1, 30}, Rational{1, 1000}
	assert.Equal(t, NoPTS, RescaleTS(NoPTS, from, to))
	assert.Equal(t, int64(math.MaxInt64), RescaleTS(math.MaxInt64, from, to))
	// Without pass-through the sentinel is treated as a number and overflows.
	assert.NotEqual(t, int64(math.MaxInt64), Rescale(math.MaxInt64, from, to))
}

func TestRescale_InvalidBase(t *testing.T) {
	assert.Equal(t, int64(math.MinInt64), Rescale(10, Rational{1, 30}, Rational{0, 1}))
	assert.Equal(t, int64(math.MinInt64), Rescale(10, Rational{1, 0}, Rational{1, 30}))
}

func TestRescale_Overflow(t *testing.T) {
	got := Rescale(math.MaxInt64/2, Rational{1000, 1}, Rational{1, 1})
	assert.Equal(t, int64(math.MinInt64), got)
}

func TestRescale_LargeValuesUse128Bit(t *testing.T) {
	// a*b overflows int64 but the quotient fits.
	a := int64(1) << 50
	got := Rescale(a, Rational{1, 1 << 30}, Rational{1, 1 << 20})
	assert.Equal(t, int64(1)<<40, got)
}

func TestRescaleTS_Monotonic(t *testing.T) {
	bases := []struct{ from, to Rational }{
		{Rational{1, 30}, Rational{1, 1000}},
		{Rational{1, 90000}, Rational{1, 1000}},
		{Rational{1001, 30000}, Rational{1, 15360}},
		{Rational{1, 1000}, Rational{1, 30}},
	}
	for _, b := range bases {
		prev := RescaleTS(-500, b.from, b.to)
		for pts := int64(-499); pts < 5000; pts++ {
			cur := RescaleTS(pts, b.from, b.to)
			require.LessOrEqualf(t, prev, cur, "pts %d from %s to %s", pts, b.from, b.to)
			prev = cur
		}
	}
}

func TestRational(t *testing.T) {
	assert.True(t, Rational{1, 30}.Valid())
	assert.False(t, Rational{0, 1}.Valid())
	assert.False(t, Rational{1, 0}.Valid())
	assert.InDelta(t, 29.97, Rational{30000, 1001}.Float64(), 0.01)
	assert.Equal(t, 0.0, Rational{1, 0}.Float64())
	assert.Equal(t, "1/30", Rational{1, 30}.String())
}

func TestFirstVideo(t *testing.T) {
	streams := []StreamInfo{
		{Index: 0, Type: MediaAudio},
		{Index: 1, Type: MediaVideo, Codec: "h264"},
		{Index: 2, Type: MediaVideo, Codec: "mjpeg"},
	}
	v, ok := FirstVideo(streams)
	require.True(t, ok)
	assert.Equal(t, 1, v.Index)

	_, ok = FirstVideo(streams[:1])
	assert.False(t, ok)
}
