package models

import "time"

// Candle represents a single OHLCV bucket for one symbol.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
