package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartFeed/internal/usecase"
	applogger "ChartFeed/pkg/logger"
)

func newCandlesEcho(t *testing.T, store *fakeCandleStore) *echo.Echo {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)

	h := NewChartsEchoHandler(l, usecase.NewChartUseCase(store))
	h.SetCandlesUseCase(usecase.NewCandlesUseCase(store))

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

type candlesEnvelope struct {
	Status int                      `json:"status"`
	Data   usecase.GetCandlesResult `json:"data"`
}

func TestCandlesEndpoint(t *testing.T) {
	store := &fakeCandleStore{candles: candlesAt(100, 110, 120, 130)}
	e := newCandlesEcho(t, store)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/candles?symbol=BTCUSDT&limit=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env candlesEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, "BTCUSDT", env.Data.Symbol)
	assert.Equal(t, "1m", env.Data.Timeframe)
	assert.Equal(t, 3, env.Data.Count)
	assert.Len(t, env.Data.Candles, 3)
	assert.Equal(t, 1, store.calls)
}

func TestCandlesEndpointBadRequest(t *testing.T) {
	store := &fakeCandleStore{candles: candlesAt(100, 110)}
	e := newCandlesEcho(t, store)

	// missing symbol
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/candles", nil))
	var env candlesEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusBadRequest, env.Status)

	// inverted range
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/candles?symbol=BTCUSDT&from=2024-10-11T00:00:00Z&to=2024-10-10T00:00:00Z", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusBadRequest, env.Status)

	assert.Zero(t, store.calls)
}
