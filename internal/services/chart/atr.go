package chart

import "math"

// ComputeATR returns the average true range over the trailing window of the
// given length. The true range at index i is the largest of |high-low|,
// |high-prevClose| and |low-prevClose|.
func ComputeATR(length int, highs, lows, closes []float64) (float64, error) {
	if length < 1 {
		return 0, configErrorf("atr length %d, must be at least 1", length)
	}
	if length >= len(closes) {
		return 0, configErrorf("atr length %d too large for series of %d points", length, len(closes))
	}
	sum := 0.0
	for i := len(closes) - length; i < len(closes); i++ {
		prevClose := closes[i-1]
		tr := math.Abs(highs[i] - lows[i])
		if v := math.Abs(highs[i] - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(lows[i] - prevClose); v > tr {
			tr = v
		}
		sum += tr
	}
	return sum / float64(length), nil
}
