package chart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeATR(t *testing.T) {
	highs := []float64{10, 12, 11, 13, 14}
	lows := []float64{9, 10, 9, 11, 12}
	closes := []float64{9.5, 11, 10, 12, 13}

	// window covers indexes 2..4: true ranges 2, 3, 2
	got, err := ComputeATR(3, highs, lows, closes)
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, got, 1e-12)

	// whole series minus one point: true ranges 2.5, 2, 3, 2
	got, err = ComputeATR(4, highs, lows, closes)
	require.NoError(t, err)
	assert.InDelta(t, (2.5+2.0+3.0+2.0)/4.0, got, 1e-12)
}

func TestComputeATRLengthBounds(t *testing.T) {
	highs := []float64{10, 12, 11}
	lows := []float64{9, 10, 9}
	closes := []float64{9.5, 11, 10}

	var cfgErr *ConfigError

	_, err := ComputeATR(0, highs, lows, closes)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))

	_, err = ComputeATR(3, highs, lows, closes)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))

	_, err = ComputeATR(2, highs, lows, closes)
	assert.NoError(t, err)
}
