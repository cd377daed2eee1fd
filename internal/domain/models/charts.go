package models

import "time"

// RenkoChart is a close series regularized into fixed-size directional
// bricks. Slices are index-aligned: Bricks[i] happened at Dates[i], carried
// Volumes[i] and closed at price Levels[i].
type RenkoChart struct {
	Symbol    string      `json:"symbol"`
	TF        string      `json:"tf"`
	BrickSize float64     `json:"brick_size"`
	Bricks    []int       `json:"bricks"`
	Dates     []time.Time `json:"dates"`
	Volumes   []float64   `json:"volumes,omitempty"`
	Levels    []float64   `json:"levels"`
}

// PointFigureChart is a close series regularized into alternating X and O
// columns. Columns[i] is the signed box count of column i; Levels[i] holds
// the box prices stacked in that column.
type PointFigureChart struct {
	Symbol   string      `json:"symbol"`
	TF       string      `json:"tf"`
	BoxSize  float64     `json:"box_size"`
	Reversal int         `json:"reversal"`
	Columns  []int       `json:"columns"`
	Dates    []time.Time `json:"dates"`
	Volumes  []float64   `json:"volumes,omitempty"`
	Levels   [][]float64 `json:"levels"`
}
