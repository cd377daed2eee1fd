package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ChartFeed/internal/domain/models"
	icache "ChartFeed/internal/service/cache"
	"ChartFeed/internal/service/metrics"
	"ChartFeed/internal/service/ratelimit"
	"ChartFeed/internal/services/chart"
	"ChartFeed/internal/usecase"
	xhttp "ChartFeed/pkg/http"
	applogger "ChartFeed/pkg/logger"
)

type ChartsHandler struct {
	uc    *usecase.ChartUseCase
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewChartsHandler(uc *usecase.ChartUseCase) *ChartsHandler {
	metrics.Register()
	return &ChartsHandler{uc: uc, rl: ratelimit.New()}
}

func (h *ChartsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ChartsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *ChartsHandler) Renko() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "renko"
		defer func() { metrics.ChartLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("charts.renko missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":renko", 5, 2) {
			if h.l != nil {
				h.l.Warn("charts.renko rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		req := &models.RenkoRequest{
			Symbol:    symbol,
			N:         xhttp.ParseIntDefault(r.URL.Query().Get("n"), 500),
			TF:        r.URL.Query().Get("tf"),
			BrickSize: queryOr(r, "brick_size", "atr"),
			ATRLength: queryOr(r, "atr_length", "14"),
		}

		cacheKey := "renko:" + symbol + ":" + req.TF + ":" + strconv.Itoa(req.N) + ":" + req.BrickSize + ":" + req.ATRLength
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("charts.renko cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("charts.renko cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("charts.renko write_error", applogger.Error(err))
				}
				return
			}
		}

		res, err := h.uc.GetRenko(r.Context(), req)
		if err != nil {
			metrics.ChartErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("charts.renko error", applogger.Error(err))
			}
			http.Error(w, err.Error(), chartErrorStatus(err))
			return
		}
		metrics.ChartUnits.WithLabelValues(endpoint).Observe(float64(len(res.Bricks)))

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("charts.renko marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("charts.renko cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("charts.renko write_error", applogger.Error(err))
		}
	}
}

func (h *ChartsHandler) PointFigure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "pnf"
		defer func() { metrics.ChartLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("charts.pnf missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":pnf", 5, 2) {
			if h.l != nil {
				h.l.Warn("charts.pnf rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		req := &models.PointFigureRequest{
			Symbol:    symbol,
			N:         xhttp.ParseIntDefault(r.URL.Query().Get("n"), 500),
			TF:        r.URL.Query().Get("tf"),
			BoxSize:   queryOr(r, "box_size", "atr"),
			ATRLength: queryOr(r, "atr_length", "14"),
			Reversal:  xhttp.ParseIntDefault(r.URL.Query().Get("reversal"), 1),
		}

		cacheKey := "pnf:" + symbol + ":" + req.TF + ":" + strconv.Itoa(req.N) + ":" + req.BoxSize + ":" + req.ATRLength + ":" + strconv.Itoa(req.Reversal)
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("charts.pnf cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("charts.pnf cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("charts.pnf write_error", applogger.Error(err))
				}
				return
			}
		}

		res, err := h.uc.GetPointFigure(r.Context(), req)
		if err != nil {
			metrics.ChartErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("charts.pnf error", applogger.Error(err))
			}
			http.Error(w, err.Error(), chartErrorStatus(err))
			return
		}
		metrics.ChartUnits.WithLabelValues(endpoint).Observe(float64(len(res.Columns)))

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("charts.pnf marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("charts.pnf cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("charts.pnf write_error", applogger.Error(err))
		}
	}
}

// chartErrorStatus maps chart domain errors to HTTP status codes. Bad
// configuration and unusable input are the caller's fault.
func chartErrorStatus(err error) int {
	var cfgErr *chart.ConfigError
	var inErr *chart.InputError
	if errors.As(err, &cfgErr) || errors.As(err, &inErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func queryOr(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}
