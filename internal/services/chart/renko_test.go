package chart

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(closes, volumes []float64) Series {
	s := Series{
		Dates:   make([]time.Time, len(closes)),
		Opens:   make([]float64, len(closes)),
		Highs:   make([]float64, len(closes)),
		Lows:    make([]float64, len(closes)),
		Closes:  closes,
		Volumes: volumes,
	}
	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s.Dates[i] = base.Add(time.Duration(i) * time.Minute)
		s.Opens[i] = c
		s.Highs[i] = c + 1
		s.Lows[i] = c - 1
	}
	return s
}

func TestBuildRenkoMonotone(t *testing.T) {
	s := testSeries([]float64{100, 110, 120, 130, 140, 150}, []float64{1, 1, 1, 1, 1, 1})

	out, err := BuildRenko(s, FixedSize(10))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 1, 1, 1}, out.Bricks)
	assert.Equal(t, []float64{110, 120, 130, 140, 150}, out.Levels)
	assert.Equal(t, 10.0, out.BrickSize)
	// final candle volume settles on the last brick
	assert.Equal(t, []float64{1, 1, 1, 1, 2}, out.Volumes)
}

func TestBuildRenkoReversalPenalty(t *testing.T) {
	s := testSeries(
		[]float64{100, 110, 120, 115, 105, 95, 85},
		[]float64{10, 20, 30, 40, 50, 60, 70},
	)

	out, err := BuildRenko(s, FixedSize(10))
	require.NoError(t, err)

	// three down moves, one consumed by the reversal
	assert.Equal(t, []int{1, 1, -1, -1}, out.Bricks)
	assert.Equal(t, []float64{110, 120, 110, 100}, out.Levels)
	// the dropped unit's volume folds into the next surviving brick; the
	// trailing candle settles on the last brick
	assert.Equal(t, []float64{10, 20, 120, 130}, out.Volumes)
	assert.Equal(t, []time.Time{s.Dates[0], s.Dates[1], s.Dates[4], s.Dates[5]}, out.Dates)
}

func TestBuildRenkoSingleReversal(t *testing.T) {
	s := testSeries([]float64{100, 110, 120, 115, 105, 95}, nil)

	out, err := BuildRenko(s, FixedSize(10))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, -1}, out.Bricks)
	assert.Nil(t, out.Volumes)
}

func TestBuildRenkoQuietStepVolumeCarry(t *testing.T) {
	s := testSeries([]float64{100, 101, 102, 125}, []float64{5, 6, 7, 8})

	out, err := BuildRenko(s, FixedSize(10))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, out.Bricks)
	// both quiet steps carry into the emitting step's first brick
	assert.Equal(t, []float64{18, 8}, out.Volumes)
	assert.Equal(t, []time.Time{s.Dates[2], s.Dates[2]}, out.Dates)
}

func TestBuildRenkoATRSizing(t *testing.T) {
	closes := []float64{100, 110, 120, 115, 105, 95, 85}
	s := testSeries(closes, nil)

	want, err := ComputeATR(len(closes)-1, s.Highs, s.Lows, s.Closes)
	require.NoError(t, err)

	out, err := BuildRenko(s, ATRSizeTotal())
	require.NoError(t, err)
	assert.Equal(t, want, out.BrickSize)

	out, err = BuildRenko(s, ATRSize(3))
	require.NoError(t, err)
	want, err = ComputeATR(3, s.Highs, s.Lows, s.Closes)
	require.NoError(t, err)
	assert.Equal(t, want, out.BrickSize)
}

func TestBuildRenkoSizeBounds(t *testing.T) {
	s := testSeries([]float64{100, 110, 120, 115, 105, 95, 85}, nil)

	atr, err := ComputeATR(s.Len()-1, s.Highs, s.Lows, s.Closes)
	require.NoError(t, err)
	upper := (120.0 - 85.0) / 2
	lower := 0.01 * atr

	// both bounds are inclusive
	_, err = BuildRenko(s, FixedSize(upper))
	assert.NoError(t, err)
	_, err = BuildRenko(s, FixedSize(lower))
	assert.NoError(t, err)

	var cfgErr *ConfigError
	_, err = BuildRenko(s, FixedSize(upper+0.01))
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))

	_, err = BuildRenko(s, FixedSize(lower*0.99))
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestBuildRenkoVolumeConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float64, 200)
	volumes := make([]float64, 200)
	closes[0] = 1000
	volumes[0] = rng.Float64() * 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] + (rng.Float64()-0.5)*40
		volumes[i] = rng.Float64() * 100
	}
	s := testSeries(closes, volumes)

	out, err := BuildRenko(s, ATRSize(14))
	require.NoError(t, err)
	require.NotEmpty(t, out.Bricks)

	var in, got float64
	for _, v := range volumes {
		in += v
	}
	for _, v := range out.Volumes {
		got += v
	}
	assert.InDelta(t, in, got, 1e-6)

	// deterministic: a second run yields identical output
	again, err := BuildRenko(s, ATRSize(14))
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestBuildRenkoTooShort(t *testing.T) {
	s := testSeries([]float64{100}, nil)
	_, err := BuildRenko(s, FixedSize(1))
	var inErr *InputError
	require.Error(t, err)
	assert.True(t, errors.As(err, &inErr))
}

func TestSeriesValidate(t *testing.T) {
	s := testSeries([]float64{100, 110, 120}, nil)
	assert.NoError(t, s.Validate())

	bad := testSeries([]float64{100, 110, 120}, nil)
	bad.Highs = bad.Highs[:2]
	var inErr *InputError
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.As(err, &inErr))

	// partial gap is rejected, full gap is fine
	gap := testSeries([]float64{100, 110, 120}, nil)
	gap.Highs[1] = math.NaN()
	require.Error(t, gap.Validate())

	gap.Opens[1] = math.NaN()
	gap.Lows[1] = math.NaN()
	gap.Closes[1] = math.NaN()
	require.NoError(t, gap.Validate())

	trimmed := gap.DropMissing()
	assert.Equal(t, 2, trimmed.Len())
	assert.Equal(t, []float64{100, 120}, trimmed.Closes)
}
