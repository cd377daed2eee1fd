package usecase

import (
	"context"
	"fmt"

	applogger "ChartFeed/pkg/logger"
	"ChartFeed/pkg/queue"
)

// LogSinkJob drains aggregated error-log batches off the queue and re-emits
// them as single lines with a repeat count.
type LogSinkJob struct {
	l *applogger.Logger
}

func NewLogSinkJob(l *applogger.Logger) *LogSinkJob {
	return &LogSinkJob{l: l}
}

func (j *LogSinkJob) Name() string { return "app_logs" }
func (j *LogSinkJob) Type() string { return "app_logs" }

func (j *LogSinkJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]applogger.AggregatedLogEntry](payload)
	if err != nil {
		return fmt.Errorf("app logs payload: %w", err)
	}
	for _, e := range *entries {
		j.l.Info("aggregated "+e.Level,
			applogger.String("message", e.Message),
			applogger.String("caller", e.Caller),
			applogger.Int("count", e.Count),
		)
	}
	return nil
}

var _ queue.Job = (*LogSinkJob)(nil)
