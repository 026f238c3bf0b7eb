package collector

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of codes handled per chunk.
const DefaultBatchSize = 50

// BatchOptions controls BatchFetch.
type BatchOptions struct {
	BatchSize   int
	Concurrency int           // parallel fetches inside a chunk; 1 is sequential
	Pause       time.Duration // wait between chunks
	Logger      *zap.Logger
	OnChunk     func(done, total int)
}

// Outcome is the result of resolving one code. Err is set when the code
// produced no usable data.
type Outcome struct {
	Resolved
	Err error
}

// BatchFetch resolves every code through r in chunks of BatchSize. Chunks run
// one after another; a failing code is recorded in its Outcome and never
// aborts the batch. Outcomes keep the order of codes. When ctx is cancelled
// the remaining codes are returned with the context error.
func BatchFetch(ctx context.Context, r *Resolver, codes []string, opts BatchOptions) []Outcome {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]Outcome, len(codes))
	for start := 0; start < len(codes); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(codes) {
			end = len(codes)
		}

		if err := ctx.Err(); err != nil {
			for i := start; i < len(codes); i++ {
				out[i] = Outcome{Resolved: Resolved{Code: codes[i]}, Err: err}
			}
			return out
		}

		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				res, err := r.Resolve(ctx, codes[i])
				if res.Code == "" {
					res.Code = codes[i]
				}
				out[i] = Outcome{Resolved: res, Err: err}
				if err != nil {
					log.Debug("skipping code", zap.String("code", codes[i]), zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()

		log.Info("chunk fetched", zap.Int("done", end), zap.Int("total", len(codes)))
		if opts.OnChunk != nil {
			opts.OnChunk(end, len(codes))
		}
		if opts.Pause > 0 && end < len(codes) {
			select {
			case <-ctx.Done():
			case <-time.After(opts.Pause):
			}
		}
	}
	return out
}
