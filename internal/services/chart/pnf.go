package chart

import "time"

// PointFigureSeries is the output of BuildPointFigure: the close series
// regularized into alternating X and O columns of fixed-size boxes.
type PointFigureSeries struct {
	Columns []int       // signed box count per column: >0 X column, <0 O column
	Dates   []time.Time // date of the first movement in each column
	Volumes []float64   // volume attributed to each column; nil without input volumes
	Levels  [][]float64 // stacked box price levels per column
	BoxSize float64
}

// BuildPointFigure converts the close series into point-and-figure columns of
// the resolved box size. Starting a new column costs one box of opposite
// movement, and a column only opens once cumulative opposite movement reaches
// reversal boxes. Volume is only redistributed, never created or dropped.
func BuildPointFigure(s Series, sizing Sizing, reversal int) (*PointFigureSeries, error) {
	if reversal < 1 || reversal > 9 {
		return nil, configErrorf("reversal %d outside [1,9]", reversal)
	}
	closes := s.Closes
	if len(closes) < 2 {
		return nil, inputErrorf("point-and-figure needs at least 2 closes, got %d", len(closes))
	}
	size, err := sizing.resolve(s.Highs, s.Lows, closes)
	if err != nil {
		return nil, err
	}

	hasVol := s.Volumes != nil

	// First pass: per-step signed box counts, one entry per emitting step,
	// with quiet-step volume carried to the next emitting step.
	var (
		deltas []int
		dDates []time.Time
		dVols  []float64
		ref    = closes[0]
		carry  float64
	)
	for i := 0; i+1 < len(closes); i++ {
		diff := int((closes[i+1] - ref) / size)
		if diff == 0 {
			if hasVol {
				carry += s.Volumes[i]
			}
			continue
		}
		deltas = append(deltas, diff)
		dDates = append(dDates, s.Dates[i])
		if hasVol {
			dVols = append(dVols, s.Volumes[i]+carry)
			carry = 0
		}
		ref += float64(diff) * size
	}
	if len(deltas) == 0 {
		return &PointFigureSeries{BoxSize: size}, nil
	}
	// Trailing quiet-step volume and the final candle settle on the last step.
	if hasVol {
		dVols[len(dVols)-1] += carry + s.Volumes[len(closes)-1]
	}

	// Second pass: combine adjacent like-signed steps. Each run keeps its
	// first date and the summed volume.
	combined, starts := combineAdjacent(deltas)
	cDates, cVols := coalesceVolumeDates(dVols, dDates, starts, hasVol)

	// Third pass: every run after the first pays one box for the reversal.
	// Runs discounted to zero contribute no column and their volume rides
	// forward; surviving runs merge into the previous entry when signs match.
	adj := []int{combined[0]}
	aDates := []time.Time{cDates[0]}
	var aVols []float64
	if hasVol {
		aVols = []float64{cVols[0]}
	}
	cache := 0.0
	for i := 1; i < len(combined); i++ {
		v := combined[i]
		if v > 0 {
			v--
		} else {
			v++
		}
		last := adj[len(adj)-1]
		switch {
		case v != 0 && last*v < 0:
			adj = append(adj, v)
			aDates = append(aDates, cDates[i])
			if hasVol {
				aVols = append(aVols, cVols[i]+cache)
				cache = 0
			}
		case v != 0:
			adj[len(adj)-1] += v
			if hasVol {
				aVols[len(aVols)-1] += cVols[i] + cache
				cache = 0
			}
		default:
			if hasVol {
				cache += cVols[i]
			}
		}
	}
	if hasVol {
		aVols[len(aVols)-1] += cache
	}

	// Fourth pass: buffer changes until they reach the reversal threshold,
	// then flush into a new column or merge into the last one. The largest
	// same-signed pending change is remembered so a dangling remainder that
	// matches the final column's direction is kept at the end; an
	// opposite-signed remainder contributes no boxes.
	cols := []int{adj[0]}
	colDates := []time.Time{aDates[0]}
	var colVols []float64
	if hasVol {
		colVols = []float64{aVols[0]}
	}
	rolling := 0
	volCache := 0.0
	biggest := 0
	for i := 1; i < len(adj); i++ {
		rolling += adj[i]
		if hasVol {
			volCache += aVols[i]
		}
		if rolling*cols[len(cols)-1] > 0 && abs(rolling) > abs(biggest) {
			biggest = rolling
		}
		if abs(rolling) >= reversal {
			if rolling*cols[len(cols)-1] > 0 {
				cols[len(cols)-1] += rolling
				if hasVol {
					colVols[len(colVols)-1] += volCache
				}
			} else {
				cols = append(cols, rolling)
				colDates = append(colDates, aDates[i])
				if hasVol {
					colVols = append(colVols, volCache)
				}
			}
			rolling = 0
			volCache = 0
			biggest = 0
		}
	}
	cols[len(cols)-1] += biggest
	if hasVol {
		colVols[len(colVols)-1] += volCache
	}

	out := &PointFigureSeries{
		Columns: cols,
		Dates:   colDates,
		Volumes: colVols,
		BoxSize: size,
	}

	// Box price levels per column. O columns offset their stack by one box
	// to match conventional point-and-figure placement.
	price := closes[0]
	for _, c := range cols {
		sign, count := 1, c
		if c < 0 {
			sign, count = -1, -c
		}
		start := 0
		if sign < 0 {
			start = 1
		}
		levels := make([]float64, 0, count)
		for k := start; k < count+start; k++ {
			levels = append(levels, price+float64(k)*size*float64(sign))
		}
		price += size * float64(sign*count)
		out.Levels = append(out.Levels, levels)
	}
	return out, nil
}

// combineAdjacent sums runs of like-signed values and returns the summed
// runs together with the index of the first element of each run.
func combineAdjacent(vals []int) (sums, starts []int) {
	for i := 0; i < len(vals); {
		j := i
		for j < len(vals) && (vals[j] > 0) == (vals[i] > 0) {
			j++
		}
		total := 0
		for _, v := range vals[i:j] {
			total += v
		}
		sums = append(sums, total)
		starts = append(starts, i)
		i = j
	}
	return sums, starts
}

// coalesceVolumeDates keeps the date at each run start and sums the volumes
// between consecutive run starts.
func coalesceVolumeDates(vols []float64, dates []time.Time, starts []int, hasVol bool) ([]time.Time, []float64) {
	outDates := make([]time.Time, 0, len(starts))
	var outVols []float64
	for i, start := range starts {
		outDates = append(outDates, dates[start])
		if !hasVol {
			continue
		}
		end := len(vols)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		sum := 0.0
		for _, v := range vols[start:end] {
			sum += v
		}
		outVols = append(outVols, sum)
	}
	return outDates, outVols
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
