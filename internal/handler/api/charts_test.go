package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartFeed/internal/domain/models"
	domrepo "ChartFeed/internal/domain/repository"
	icache "ChartFeed/internal/service/cache"
	"ChartFeed/internal/usecase"
)

type fakeCandleStore struct {
	candles []models.Candle
	calls   int
}

func (f *fakeCandleStore) GetCandles(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	f.calls++
	return f.candles, nil
}

func (f *fakeCandleStore) GetLatestNCandles(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	f.calls++
	if n > len(f.candles) {
		n = len(f.candles)
	}
	return f.candles[len(f.candles)-n:], nil
}

func candlesAt(closes ...float64) []models.Candle {
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

func newTestChartsHandler(store *fakeCandleStore) *ChartsHandler {
	h := NewChartsHandler(usecase.NewChartUseCase(store))
	h.SetCache(icache.NewTTLCache())
	return h
}

func TestChartsHandlerRenko(t *testing.T) {
	store := &fakeCandleStore{candles: candlesAt(100, 110, 120, 130, 140, 150)}
	h := newTestChartsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/charts/renko?symbol=BTCUSDT&brick_size=10", nil)
	rec := httptest.NewRecorder()
	h.Renko().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out models.RenkoChart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "BTCUSDT", out.Symbol)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, out.Bricks)
	require.Equal(t, 1, store.calls)

	// same query again comes straight from the handler cache
	rec2 := httptest.NewRecorder()
	h.Renko().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/charts/renko?symbol=BTCUSDT&brick_size=10", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, 1, store.calls, "cached response must not hit the store")
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
}

func TestChartsHandlerRenkoLookback(t *testing.T) {
	store := &fakeCandleStore{candles: candlesAt(100, 110, 120, 130, 140, 150)}
	h := newTestChartsHandler(store)

	rec := httptest.NewRecorder()
	h.Renko().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/renko?symbol=BTCUSDT&brick_size=10&n=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var full models.RenkoChart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	assert.Len(t, full.Bricks, 5)

	// a shorter lookback is a different cache entry, not the cached full chart
	rec = httptest.NewRecorder()
	h.Renko().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/renko?symbol=BTCUSDT&brick_size=10&n=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var short models.RenkoChart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &short))
	assert.Len(t, short.Bricks, 2)
	assert.Equal(t, 2, store.calls)
}

func TestChartsHandlerPointFigure(t *testing.T) {
	store := &fakeCandleStore{candles: candlesAt(100, 110, 120, 115, 105, 95, 85)}
	h := newTestChartsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/charts/pnf?symbol=BTCUSDT&box_size=10&reversal=1", nil)
	rec := httptest.NewRecorder()
	h.PointFigure().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out models.PointFigureChart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []int{2, -2}, out.Columns)
	assert.Equal(t, 1, out.Reversal)
}

func TestChartsHandlerPnFDefaultWindow(t *testing.T) {
	// ten candles cannot satisfy the default 14-period ATR window
	store := &fakeCandleStore{candles: candlesAt(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)}
	h := newTestChartsHandler(store)

	rec := httptest.NewRecorder()
	h.PointFigure().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/pnf?symbol=BTCUSDT", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// an explicit whole-series window fits
	rec = httptest.NewRecorder()
	h.PointFigure().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/pnf?symbol=BTCUSDT&atr_length=total", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChartsHandlerMissingSymbol(t *testing.T) {
	h := newTestChartsHandler(&fakeCandleStore{})

	rec := httptest.NewRecorder()
	h.Renko().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/renko", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.PointFigure().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/pnf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChartsHandlerBadSizing(t *testing.T) {
	store := &fakeCandleStore{candles: candlesAt(100, 110, 120)}
	h := newTestChartsHandler(store)

	rec := httptest.NewRecorder()
	h.Renko().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/renko?symbol=BTCUSDT&brick_size=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.calls)
}

func TestChartsHandlerRateLimit(t *testing.T) {
	store := &fakeCandleStore{candles: candlesAt(100, 110, 120, 130, 140, 150)}
	h := newTestChartsHandler(store)

	// bucket capacity is 5 per remote; burst through it
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.Renko().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/renko?symbol=BTCUSDT&brick_size=10", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	h.Renko().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/renko?symbol=BTCUSDT&brick_size=10", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
