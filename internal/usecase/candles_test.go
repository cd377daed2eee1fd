package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "ChartFeed/internal/domain/repository"
)

func TestCandlesUseCaseGetCandles(t *testing.T) {
	store := &fakeCandleStore{candles: risingCandles(100, 110, 120, 130, 140, 150)}
	uc := NewCandlesUseCase(store)

	from := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	res, err := uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol:    "BTCUSDT",
		From:      from,
		To:        from.Add(time.Hour),
		Timeframe: domrepo.TF1m,
		Limit:     4,
	})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", res.Symbol)
	assert.Equal(t, "1m", res.Timeframe)
	assert.Equal(t, 4, res.Count, "limit must truncate the result")
	assert.Len(t, res.Candles, 4)

	// zero limit falls back to the default cap
	res, err = uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol: "BTCUSDT", From: from, To: from.Add(time.Hour), Timeframe: domrepo.TF1m,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Count)
}

func TestCandlesUseCaseParamErrors(t *testing.T) {
	store := &fakeCandleStore{}
	uc := NewCandlesUseCase(store)
	now := time.Now()

	_, err := uc.GetCandles(context.Background(), GetCandlesParams{From: now, To: now})
	require.Error(t, err)

	_, err = uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol: "BTCUSDT", From: now.Add(time.Hour), To: now,
	})
	require.Error(t, err)
	assert.Zero(t, store.calls)

	store.err = errors.New("boom")
	_, err = uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol: "BTCUSDT", From: now.Add(-time.Hour), To: now,
	})
	require.Error(t, err)
}
