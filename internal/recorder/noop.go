package recorder

import (
	"context"

	"TickerScope/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *model.Report) error { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]model.RunSummary, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
