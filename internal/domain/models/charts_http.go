package models

// Requests for chart HTTP endpoints. Defined in domain for consistency and reuse.
//
// BrickSize/BoxSize and ATRLength arrive as strings because each accepts
// either a number or a keyword ("atr", "total"); parsing happens in the
// usecase layer.

type RenkoRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required"`
	N         int    `query:"n" json:"n" default:"500" validate:"gte=2,lte=10000"`
	TF        string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	BrickSize string `query:"brick_size" json:"brick_size" default:"atr"`
	ATRLength string `query:"atr_length" json:"atr_length" default:"14"`
}

type PointFigureRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required"`
	N         int    `query:"n" json:"n" default:"500" validate:"gte=2,lte=10000"`
	TF        string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	BoxSize   string `query:"box_size" json:"box_size" default:"atr"`
	ATRLength string `query:"atr_length" json:"atr_length" default:"14"`
	Reversal  int    `query:"reversal" json:"reversal" default:"1" validate:"gte=1,lte=9"`
}
