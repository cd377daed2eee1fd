package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartFeed/internal/domain/models"
	domrepo "ChartFeed/internal/domain/repository"
	"ChartFeed/internal/services/chart"
	cachepkg "ChartFeed/pkg/cache"
)

type fakeCandleStore struct {
	candles []models.Candle
	calls   int
	err     error
}

func (f *fakeCandleStore) GetCandles(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	f.calls++
	return f.candles, f.err
}

func (f *fakeCandleStore) GetLatestNCandles(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if n > len(f.candles) {
		n = len(f.candles)
	}
	return f.candles[len(f.candles)-n:], nil
}

func risingCandles(closes ...float64) []models.Candle {
	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: "BTCUSDT",
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10,
		}
	}
	return out
}

func TestChartUseCaseGetRenko(t *testing.T) {
	store := &fakeCandleStore{candles: risingCandles(100, 110, 120, 130, 140, 150)}
	uc := NewChartUseCase(store)

	out, err := uc.GetRenko(context.Background(), &models.RenkoRequest{
		Symbol:    "BTCUSDT",
		N:         500,
		TF:        "1m",
		BrickSize: "10",
		ATRLength: "14",
	})
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", out.Symbol)
	assert.Equal(t, "1m", out.TF)
	assert.Equal(t, 10.0, out.BrickSize)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, out.Bricks)
	assert.Len(t, out.Levels, 5)
}

func TestChartUseCaseGetPointFigure(t *testing.T) {
	store := &fakeCandleStore{candles: risingCandles(100, 110, 120, 115, 105, 95, 85)}
	uc := NewChartUseCase(store)

	out, err := uc.GetPointFigure(context.Background(), &models.PointFigureRequest{
		Symbol:    "BTCUSDT",
		N:         500,
		TF:        "1m",
		BoxSize:   "10",
		ATRLength: "total",
		Reversal:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, -2}, out.Columns)
	assert.Equal(t, 1, out.Reversal)
	assert.Len(t, out.Levels, 2)
}

func TestChartUseCaseConfigErrors(t *testing.T) {
	store := &fakeCandleStore{candles: risingCandles(100, 110, 120)}
	uc := NewChartUseCase(store)

	var cfgErr *chart.ConfigError
	_, err := uc.GetRenko(context.Background(), &models.RenkoRequest{
		Symbol: "BTCUSDT", N: 500, TF: "1m", BrickSize: "bogus", ATRLength: "14",
	})
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
	assert.Zero(t, store.calls, "config errors must fail before the store is hit")

	_, err = uc.GetRenko(context.Background(), &models.RenkoRequest{
		Symbol: "BTCUSDT", N: 500, TF: "1m", BrickSize: "atr", ATRLength: "-3",
	})
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestChartUseCaseNotEnoughData(t *testing.T) {
	store := &fakeCandleStore{candles: risingCandles(100)}
	uc := NewChartUseCase(store)

	var inErr *chart.InputError
	_, err := uc.GetRenko(context.Background(), &models.RenkoRequest{
		Symbol: "BTCUSDT", N: 500, TF: "1m", BrickSize: "atr", ATRLength: "total",
	})
	require.Error(t, err)
	assert.True(t, errors.As(err, &inErr))
}

func TestChartUseCaseCaching(t *testing.T) {
	store := &fakeCandleStore{candles: risingCandles(100, 110, 120, 130, 140, 150)}
	uc := NewChartUseCase(store)
	mem := cachepkg.NewMemoryCache()
	defer mem.Close()
	uc.SetCache(mem, time.Minute)

	req := &models.RenkoRequest{
		Symbol: "BTCUSDT", N: 500, TF: "1m", BrickSize: "10", ATRLength: "14",
	}
	first, err := uc.GetRenko(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls)

	second, err := uc.GetRenko(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls, "second call must be served from cache")
	assert.Equal(t, first.Bricks, second.Bricks)
	assert.Equal(t, first.BrickSize, second.BrickSize)

	// a different sizing is a different cache entry
	req2 := &models.RenkoRequest{
		Symbol: "BTCUSDT", N: 500, TF: "1m", BrickSize: "atr", ATRLength: "total",
	}
	_, err = uc.GetRenko(context.Background(), req2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestParseSizing(t *testing.T) {
	_, err := parseSizing("atr", "total")
	assert.NoError(t, err)

	_, err = parseSizing("atr", "14")
	assert.NoError(t, err)

	_, err = parseSizing("2.5", "14")
	assert.NoError(t, err)

	var cfgErr *chart.ConfigError
	for _, tc := range [][2]string{
		{"atr", "zero"},
		{"atr", "0"},
		{"-1", "14"},
		{"NaN", "14"},
		{"", "14"},
	} {
		_, err = parseSizing(tc[0], tc[1])
		require.Error(t, err, "size=%q atr_length=%q", tc[0], tc[1])
		assert.True(t, errors.As(err, &cfgErr))
	}
}
