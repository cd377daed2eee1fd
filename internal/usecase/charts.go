package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"ChartFeed/internal/domain/models"
	domrepo "ChartFeed/internal/domain/repository"
	"ChartFeed/internal/services/chart"
	cachepkg "ChartFeed/pkg/cache"
	applogger "ChartFeed/pkg/logger"
)

// ChartUseCase builds Renko and point-and-figure charts from stored candles.
type ChartUseCase struct {
	store domrepo.CandleStore
	cache cachepkg.Service
	l     *applogger.Logger
	ttl   time.Duration
}

func NewChartUseCase(store domrepo.CandleStore) *ChartUseCase {
	return &ChartUseCase{store: store, ttl: 30 * time.Second}
}

// SetCache injects a cache for serialized chart responses.
func (uc *ChartUseCase) SetCache(c cachepkg.Service, ttl time.Duration) {
	uc.cache = c
	if ttl > 0 {
		uc.ttl = ttl
	}
}

// SetLogger injects a structured logger.
func (uc *ChartUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

func (uc *ChartUseCase) GetRenko(ctx context.Context, req *models.RenkoRequest) (*models.RenkoChart, error) {
	tf := domrepo.NormalizeTimeframe(req.TF)
	sizing, err := parseSizing(req.BrickSize, req.ATRLength)
	if err != nil {
		return nil, err
	}

	key := cachepkg.GenerateKeyWithParams("chartfeed:charts:renko",
		req.Symbol, string(tf), req.N, req.BrickSize, req.ATRLength)
	if out, ok := cacheGet[models.RenkoChart](ctx, uc, key); ok {
		return out, nil
	}

	series, err := uc.loadSeries(ctx, req.Symbol, req.N, tf)
	if err != nil {
		return nil, err
	}
	rk, err := chart.BuildRenko(series, sizing)
	if err != nil {
		return nil, err
	}

	out := &models.RenkoChart{
		Symbol:    req.Symbol,
		TF:        string(tf),
		BrickSize: rk.BrickSize,
		Bricks:    rk.Bricks,
		Dates:     rk.Dates,
		Volumes:   rk.Volumes,
		Levels:    rk.Levels,
	}
	uc.cacheSet(ctx, key, out)
	return out, nil
}

func (uc *ChartUseCase) GetPointFigure(ctx context.Context, req *models.PointFigureRequest) (*models.PointFigureChart, error) {
	tf := domrepo.NormalizeTimeframe(req.TF)
	sizing, err := parseSizing(req.BoxSize, req.ATRLength)
	if err != nil {
		return nil, err
	}

	key := cachepkg.GenerateKeyWithParams("chartfeed:charts:pnf",
		req.Symbol, string(tf), req.N, req.BoxSize, req.ATRLength, req.Reversal)
	if out, ok := cacheGet[models.PointFigureChart](ctx, uc, key); ok {
		return out, nil
	}

	series, err := uc.loadSeries(ctx, req.Symbol, req.N, tf)
	if err != nil {
		return nil, err
	}
	pf, err := chart.BuildPointFigure(series, sizing, req.Reversal)
	if err != nil {
		return nil, err
	}

	out := &models.PointFigureChart{
		Symbol:   req.Symbol,
		TF:       string(tf),
		BoxSize:  pf.BoxSize,
		Reversal: req.Reversal,
		Columns:  pf.Columns,
		Dates:    pf.Dates,
		Volumes:  pf.Volumes,
		Levels:   pf.Levels,
	}
	uc.cacheSet(ctx, key, out)
	return out, nil
}

// loadSeries fetches the latest candles and turns them into an aligned series.
// Rows where every price field is missing are dropped before aggregation.
func (uc *ChartUseCase) loadSeries(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) (chart.Series, error) {
	candles, err := uc.store.GetLatestNCandles(ctx, symbol, n, tf)
	if err != nil {
		return chart.Series{}, fmt.Errorf("load candles: %w", err)
	}
	series := toSeries(candles)
	if err := series.Validate(); err != nil {
		return chart.Series{}, err
	}
	series = series.DropMissing()
	if series.Len() < 2 {
		return chart.Series{}, &chart.InputError{
			Reason: fmt.Sprintf("not enough candles for %s: have %d, need 2", symbol, series.Len()),
		}
	}
	return series, nil
}

func toSeries(candles []models.Candle) chart.Series {
	s := chart.Series{
		Dates:   make([]time.Time, len(candles)),
		Opens:   make([]float64, len(candles)),
		Highs:   make([]float64, len(candles)),
		Lows:    make([]float64, len(candles)),
		Closes:  make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Dates[i] = c.Bucket
		s.Opens[i] = c.Open
		s.Highs[i] = c.High
		s.Lows[i] = c.Low
		s.Closes[i] = c.Close
		s.Volumes[i] = c.Volume
	}
	return s
}

// parseSizing turns the size and atr_length request strings into a sizing
// choice. size is either a positive number or "atr"; atr_length is either a
// window length or "total" and only applies to ATR sizing.
func parseSizing(size, atrLength string) (chart.Sizing, error) {
	if size == "atr" {
		if atrLength == "total" {
			return chart.ATRSizeTotal(), nil
		}
		window, err := strconv.Atoi(atrLength)
		if err != nil || window < 1 {
			return chart.Sizing{}, &chart.ConfigError{
				Reason: fmt.Sprintf("atr_length must be a positive integer or %q, got %q", "total", atrLength),
			}
		}
		return chart.ATRSize(window), nil
	}
	v, err := strconv.ParseFloat(size, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return chart.Sizing{}, &chart.ConfigError{
			Reason: fmt.Sprintf("size must be a positive number or %q, got %q", "atr", size),
		}
	}
	return chart.FixedSize(v), nil
}

func cacheGet[T any](ctx context.Context, uc *ChartUseCase, key string) (*T, bool) {
	if uc.cache == nil {
		return nil, false
	}
	var raw string
	if err := uc.cache.Get(ctx, key, &raw); err != nil {
		if err != cachepkg.ErrCacheMiss && uc.l != nil {
			uc.l.Warn("chart cache get error", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		if uc.l != nil {
			uc.l.Warn("chart cache decode error", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	}
	return &out, true
}

func (uc *ChartUseCase) cacheSet(ctx context.Context, key string, v interface{}) {
	if uc.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, key, string(b), uc.ttl); err != nil && uc.l != nil {
		uc.l.Warn("chart cache set error", applogger.String("key", key), applogger.Error(err))
	}
}
