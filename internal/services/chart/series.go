package chart

import (
	"math"
	"time"
)

// Series holds parallel OHLCV arrays for one symbol, ordered by time.
// Volumes is optional; a nil slice means the source carries no volume data.
type Series struct {
	Dates   []time.Time
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

func (s Series) Len() int { return len(s.Closes) }

// Validate checks that all arrays have equal length and that missing values
// are consistent: a candle is either fully present or fully missing, so NaN
// in any of open/high/low/close at an index requires NaN in all four.
// The aggregators assume validated input and do not re-check.
func (s Series) Validate() error {
	n := len(s.Closes)
	if len(s.Dates) != n || len(s.Opens) != n || len(s.Highs) != n || len(s.Lows) != n {
		return inputErrorf("mismatched array lengths: dates=%d opens=%d highs=%d lows=%d closes=%d",
			len(s.Dates), len(s.Opens), len(s.Highs), len(s.Lows), n)
	}
	if s.Volumes != nil && len(s.Volumes) != n {
		return inputErrorf("mismatched volume length: volumes=%d closes=%d", len(s.Volumes), n)
	}
	for i := 0; i < n; i++ {
		missing := 0
		if math.IsNaN(s.Opens[i]) {
			missing++
		}
		if math.IsNaN(s.Highs[i]) {
			missing++
		}
		if math.IsNaN(s.Lows[i]) {
			missing++
		}
		if math.IsNaN(s.Closes[i]) {
			missing++
		}
		if missing != 0 && missing != 4 {
			return inputErrorf("inconsistent missing values at index %d", i)
		}
	}
	return nil
}

// DropMissing returns a copy of the series with fully-missing candles
// removed. Call after Validate so partial gaps have already been rejected.
func (s Series) DropMissing() Series {
	out := Series{
		Dates:  make([]time.Time, 0, len(s.Dates)),
		Opens:  make([]float64, 0, len(s.Opens)),
		Highs:  make([]float64, 0, len(s.Highs)),
		Lows:   make([]float64, 0, len(s.Lows)),
		Closes: make([]float64, 0, len(s.Closes)),
	}
	if s.Volumes != nil {
		out.Volumes = make([]float64, 0, len(s.Volumes))
	}
	for i := range s.Closes {
		if math.IsNaN(s.Closes[i]) {
			continue
		}
		out.Dates = append(out.Dates, s.Dates[i])
		out.Opens = append(out.Opens, s.Opens[i])
		out.Highs = append(out.Highs, s.Highs[i])
		out.Lows = append(out.Lows, s.Lows[i])
		out.Closes = append(out.Closes, s.Closes[i])
		if s.Volumes != nil {
			out.Volumes = append(out.Volumes, s.Volumes[i])
		}
	}
	return out
}
