package backfill

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ChartFeed/internal/domain/models"
	drepo "ChartFeed/internal/domain/repository"
	xhttp "ChartFeed/pkg/http"
	applogger "ChartFeed/pkg/logger"
)

// Client fetches historical candles over REST to fill gaps behind the live
// feed. Fetched candles go through the same Storage path as live ones, so
// the idempotency key dedupes overlap.
type Client struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
	l       *applogger.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, l *applogger.Logger) *Client {
	return &Client{
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		baseURL: baseURL,
		apiKey:  apiKey,
		l:       l,
	}
}

// candleResponse is the upstream REST shape: parallel arrays plus a status.
type candleResponse struct {
	S string    `json:"s"`
	T []int64   `json:"t"`
	O []float64 `json:"o"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	C []float64 `json:"c"`
	V []float64 `json:"v"`
}

// FetchCandles pulls candles for one symbol in [from, to].
func (c *Client) FetchCandles(ctx context.Context, symbol, resolution string, from, to time.Time) ([]*models.Candle, error) {
	var res candleResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {resolution},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {c.apiKey},
		},
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("backfill fetch %s: %w", symbol, err)
	}
	if res.S == "no_data" {
		return nil, nil
	}
	if res.S != "ok" {
		return nil, fmt.Errorf("backfill fetch %s: status %q", symbol, res.S)
	}
	if len(res.T) != len(res.C) || len(res.T) != len(res.O) ||
		len(res.T) != len(res.H) || len(res.T) != len(res.L) || len(res.T) != len(res.V) {
		return nil, fmt.Errorf("backfill fetch %s: misaligned arrays", symbol)
	}

	out := make([]*models.Candle, 0, len(res.T))
	for i := range res.T {
		out = append(out, &models.Candle{
			Bucket: time.Unix(res.T[i], 0).UTC(),
			Symbol: symbol,
			Open:   res.O[i],
			High:   res.H[i],
			Low:    res.L[i],
			Close:  res.C[i],
			Volume: res.V[i],
		})
	}
	return out, nil
}

// Run backfills the given window for every symbol and stores the results.
func (c *Client) Run(ctx context.Context, storage drepo.Storage, symbols []string, resolution string, window time.Duration) error {
	to := time.Now()
	from := to.Add(-window)
	for _, sym := range symbols {
		candles, err := c.FetchCandles(ctx, sym, resolution, from, to)
		if err != nil {
			if c.l != nil {
				c.l.Warn("backfill fetch failed", applogger.String("symbol", sym), applogger.Error(err))
			}
			continue
		}
		if len(candles) == 0 {
			continue
		}
		if err := storage.StoreBatch(ctx, candles); err != nil {
			if c.l != nil {
				c.l.Error("backfill store failed", applogger.String("symbol", sym), applogger.Error(err))
			}
			return fmt.Errorf("backfill store %s: %w", sym, err)
		}
		if c.l != nil {
			c.l.Info("backfill window stored",
				applogger.String("symbol", sym),
				applogger.Int("candles", len(candles)),
			)
		}
	}
	return nil
}
