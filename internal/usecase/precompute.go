package usecase

import (
	"context"
	"fmt"

	"ChartFeed/internal/domain/models"
	"ChartFeed/pkg/queue"

	applogger "ChartFeed/pkg/logger"
)

// ChartPrecomputePayload selects the chart variants to warm for one symbol.
type ChartPrecomputePayload struct {
	Symbol   string `json:"symbol"`
	N        int    `json:"n"`
	TF       string `json:"tf"`
	Reversal int    `json:"reversal"`
}

// ChartPrecomputeJob warms the chart cache ahead of reads. It runs the same
// usecase paths the HTTP handlers use, so a warmed entry is byte-identical to
// an on-demand one.
type ChartPrecomputeJob struct {
	uc *ChartUseCase
	l  *applogger.Logger
}

func NewChartPrecomputeJob(uc *ChartUseCase, l *applogger.Logger) *ChartPrecomputeJob {
	return &ChartPrecomputeJob{uc: uc, l: l}
}

func (j *ChartPrecomputeJob) Name() string { return "chart_precompute" }
func (j *ChartPrecomputeJob) Type() string { return "chart_precompute" }

func (j *ChartPrecomputeJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ChartPrecomputePayload](payload)
	if err != nil {
		return fmt.Errorf("chart precompute payload: %w", err)
	}
	if p.Symbol == "" {
		return fmt.Errorf("chart precompute: symbol required")
	}
	if p.N < 2 {
		p.N = 500
	}
	if p.TF == "" {
		p.TF = "1m"
	}
	if p.Reversal < 1 || p.Reversal > 9 {
		p.Reversal = 1
	}

	if _, err := j.uc.GetRenko(ctx, &models.RenkoRequest{
		Symbol:    p.Symbol,
		N:         p.N,
		TF:        p.TF,
		BrickSize: "atr",
		ATRLength: "14",
	}); err != nil {
		if j.l != nil {
			j.l.Warn("precompute renko failed",
				applogger.String("symbol", p.Symbol), applogger.Error(err))
		}
		return err
	}

	if _, err := j.uc.GetPointFigure(ctx, &models.PointFigureRequest{
		Symbol:    p.Symbol,
		N:         p.N,
		TF:        p.TF,
		BoxSize:   "atr",
		ATRLength: "14",
		Reversal:  p.Reversal,
	}); err != nil {
		if j.l != nil {
			j.l.Warn("precompute pnf failed",
				applogger.String("symbol", p.Symbol), applogger.Error(err))
		}
		return err
	}

	if j.l != nil {
		j.l.Debug("chart cache warmed", applogger.String("symbol", p.Symbol))
	}
	return nil
}

var _ queue.Job = (*ChartPrecomputeJob)(nil)
