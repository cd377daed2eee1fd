package chart

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPointFigureReversalBounds(t *testing.T) {
	s := testSeries([]float64{100, 110, 120}, nil)

	var cfgErr *ConfigError
	_, err := BuildPointFigure(s, FixedSize(10), 0)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))

	_, err = BuildPointFigure(s, FixedSize(10), 10)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestBuildPointFigureSimple(t *testing.T) {
	s := testSeries(
		[]float64{100, 110, 120, 115, 105, 95, 85},
		[]float64{10, 20, 30, 40, 50, 60, 70},
	)

	out, err := BuildPointFigure(s, FixedSize(10), 1)
	require.NoError(t, err)

	// two up boxes, then a down run that pays one box for the reversal
	assert.Equal(t, []int{2, -2}, out.Columns)
	assert.Equal(t, []float64{30, 250}, out.Volumes)
	assert.Equal(t, [][]float64{{100, 110}, {110, 100}}, out.Levels)
	assert.Equal(t, []time.Time{s.Dates[0], s.Dates[3]}, out.Dates)
	assert.Equal(t, 10.0, out.BoxSize)
}

func TestBuildPointFigureReversalThreshold(t *testing.T) {
	s := testSeries([]float64{200, 160, 190, 170, 200}, []float64{1, 2, 3, 4, 5})

	// with a one-box reversal every discounted swing opens a column
	out, err := BuildPointFigure(s, FixedSize(10), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{-4, 2, -1, 2}, out.Columns)
	assert.Equal(t, []float64{1, 2, 3, 9}, out.Volumes)

	// with a three-box reversal the swings buffer until they add up
	out, err = BuildPointFigure(s, FixedSize(10), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{-4, 3}, out.Columns)
	assert.Equal(t, []float64{1, 14}, out.Volumes)
}

func TestBuildPointFigureDanglingRemainder(t *testing.T) {
	// the buffered remainder matches the last column's direction, so it is
	// folded in at the end
	s := testSeries([]float64{100, 140, 120, 150}, []float64{1, 1, 1, 1})
	out, err := BuildPointFigure(s, FixedSize(10), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, out.Columns)
	assert.Equal(t, []float64{4}, out.Volumes)

	// an opposite-signed remainder contributes no boxes
	s = testSeries([]float64{100, 140, 110}, nil)
	out, err = BuildPointFigure(s, FixedSize(10), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, out.Columns)
}

func TestBuildPointFigureLevels(t *testing.T) {
	s := testSeries([]float64{200, 160, 190}, nil)
	out, err := BuildPointFigure(s, FixedSize(10), 1)
	require.NoError(t, err)

	require.Equal(t, []int{-4, 2}, out.Columns)
	// O columns offset their stack down by one box
	assert.Equal(t, [][]float64{{190, 180, 170, 160}, {160, 170}}, out.Levels)
}

func TestBuildPointFigureQuietSeries(t *testing.T) {
	s := testSeries([]float64{100, 100.5, 100.2, 100.4}, []float64{1, 1, 1, 1})

	// synthetic highs/lows give an ATR of 2, so no step crosses a box
	out, err := BuildPointFigure(s, ATRSizeTotal(), 1)
	require.NoError(t, err)
	assert.Empty(t, out.Columns)
	assert.Equal(t, 2.0, out.BoxSize)
}

func TestBuildPointFigureVolumeConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	closes := make([]float64, 300)
	volumes := make([]float64, 300)
	closes[0] = 500
	volumes[0] = rng.Float64() * 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] + (rng.Float64()-0.5)*30
		volumes[i] = rng.Float64() * 100
	}
	s := testSeries(closes, volumes)

	var in float64
	for _, v := range volumes {
		in += v
	}

	for _, reversal := range []int{1, 3, 9} {
		out, err := BuildPointFigure(s, ATRSize(14), reversal)
		require.NoError(t, err)
		require.NotEmpty(t, out.Columns)

		var got float64
		for _, v := range out.Volumes {
			got += v
		}
		assert.InDelta(t, in, got, 1e-6, "reversal %d", reversal)

		for i := 1; i < len(out.Columns); i++ {
			assert.True(t, out.Columns[i-1]*out.Columns[i] < 0,
				"columns must alternate direction")
		}
		require.Equal(t, len(out.Columns), len(out.Levels))
	}
}

func TestBuildPointFigureTooShort(t *testing.T) {
	s := testSeries([]float64{100}, nil)
	_, err := BuildPointFigure(s, FixedSize(1), 1)
	var inErr *InputError
	require.Error(t, err)
	assert.True(t, errors.As(err, &inErr))
}
