package chart

// Sizing selects how the brick or box size of a chart is determined: a fixed
// price amount, or derived from the average true range of the series over a
// trailing window or the whole series.
type Sizing struct {
	fixed  float64
	atr    bool
	total  bool
	window int
}

// FixedSize uses an explicit price amount per brick/box. The amount is
// bounds-checked against the series when the aggregation runs.
func FixedSize(v float64) Sizing { return Sizing{fixed: v} }

// ATRSize derives the size from the ATR over the trailing window.
func ATRSize(window int) Sizing { return Sizing{atr: true, window: window} }

// ATRSizeTotal derives the size from the ATR over the whole series.
func ATRSizeTotal() Sizing { return Sizing{atr: true, total: true} }

// resolve computes the effective size for the given series. ATR sizes need
// no bounds check; fixed sizes must lie within [0.01 * whole-series ATR,
// half the close range], both ends inclusive.
func (z Sizing) resolve(highs, lows, closes []float64) (float64, error) {
	if z.atr {
		length := z.window
		if z.total {
			length = len(closes) - 1
		}
		return ComputeATR(length, highs, lows, closes)
	}

	fullATR, err := ComputeATR(len(closes)-1, highs, lows, closes)
	if err != nil {
		return 0, err
	}
	minClose, maxClose := closes[0], closes[0]
	for _, c := range closes[1:] {
		if c < minClose {
			minClose = c
		}
		if c > maxClose {
			maxClose = c
		}
	}
	upper := (maxClose - minClose) / 2
	lower := 0.01 * fullATR
	if z.fixed > upper {
		return 0, configErrorf("size %v larger than half the close range (%v)", z.fixed, upper)
	}
	if z.fixed < lower {
		return 0, configErrorf("size %v smaller than 1%% of the series ATR (%v)", z.fixed, lower)
	}
	return z.fixed, nil
}
