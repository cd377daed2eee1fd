package chart

import "time"

// RenkoSeries is the output of BuildRenko: the close series regularized into
// a sequence of fixed-size directional bricks, with dates and volumes
// resampled onto the bricks.
type RenkoSeries struct {
	Bricks    []int       // +1 per up brick, -1 per down brick, in time order
	Dates     []time.Time // source date of each brick
	Volumes   []float64   // volume attributed to each brick; nil without input volumes
	Levels    []float64   // price level after applying each brick
	BrickSize float64
}

// BuildRenko converts the close series into signed unit bricks of the
// resolved brick size. A trend reversal consumes one brick's worth of price
// movement before the first opposite brick is drawn. Input volume is only
// redistributed, never created or dropped: the sum over Volumes equals the
// sum over the input whenever at least one brick is produced.
func BuildRenko(s Series, sizing Sizing) (*RenkoSeries, error) {
	closes := s.Closes
	if len(closes) < 2 {
		return nil, inputErrorf("renko needs at least 2 closes, got %d", len(closes))
	}
	size, err := sizing.resolve(s.Highs, s.Lows, closes)
	if err != nil {
		return nil, err
	}

	hasVol := s.Volumes != nil

	// First pass: walk consecutive closes and expand each step into signed
	// unit deltas. The reference close advances by whole bricks only, so
	// drift against the true close stays below one brick. Steps that do not
	// cross a brick boundary park their volume in a carry consumed by the
	// next emitting step. A multi-brick step rides its whole volume on the
	// first brick of the step.
	var (
		units     []int
		unitDates []time.Time
		unitVols  []float64
		ref       = closes[0]
		carry     float64
	)
	for i := 0; i+1 < len(closes); i++ {
		diff := int((closes[i+1] - ref) / size)
		if diff == 0 {
			if hasVol {
				carry += s.Volumes[i]
			}
			continue
		}
		sign, count := 1, diff
		if diff < 0 {
			sign, count = -1, -diff
		}
		for k := 0; k < count; k++ {
			units = append(units, sign)
			unitDates = append(unitDates, s.Dates[i])
			if hasVol {
				if k == 0 {
					unitVols = append(unitVols, s.Volumes[i]+carry)
				} else {
					unitVols = append(unitVols, 0)
				}
			}
		}
		if hasVol {
			carry = 0
		}
		ref += float64(diff) * size
	}
	if hasVol {
		carry += s.Volumes[len(closes)-1]
	}

	// Second pass: emit bricks, paying the reversal penalty. When a unit's
	// sign differs from the previous one, that unit is consumed: no brick is
	// drawn and its volume folds into the next surviving bucket, or into the
	// previous brick when the reversal lands on the final unit.
	out := &RenkoSeries{BrickSize: size}
	level := closes[0]
	lastSign := 0
	fold := 0.0
	for i, sign := range units {
		vol := fold
		fold = 0
		if hasVol {
			vol += unitVols[i]
		}
		if lastSign != 0 && sign != lastSign {
			lastSign = sign
			if i == len(units)-1 {
				if hasVol && len(out.Volumes) > 0 {
					out.Volumes[len(out.Volumes)-1] += vol
				}
			} else if hasVol {
				fold = vol
			}
			continue
		}
		lastSign = sign
		out.Bricks = append(out.Bricks, sign)
		out.Dates = append(out.Dates, unitDates[i])
		if hasVol {
			out.Volumes = append(out.Volumes, vol)
		}
		level += size * float64(sign)
		out.Levels = append(out.Levels, level)
	}

	// Trailing quiet-step volume settles on the last brick.
	if hasVol && len(out.Volumes) > 0 {
		out.Volumes[len(out.Volumes)-1] += carry
	}
	return out, nil
}
