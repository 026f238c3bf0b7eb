package recorder

import (
	"context"

	"TickerScope/internal/model"
)

// Recorder persists scan history for later review.
type Recorder interface {
	RecordRun(ctx context.Context, report *model.Report) error
	RecentRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	Close() error
}
