package service

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// ReplicateConfig configures one fan-out run.
type ReplicateConfig struct {
	Replicates int
	Retry      *RetryPolicy
	Progress   core.ProgressFunc
	Logger     *slog.Logger
}

// RunReplicates issues cfg.Replicates logically independent invocations of
// call against the same input, with concurrency bounded by the replicate
// count and per-call retry via cfg.Retry.
//
// It always returns the full outcome set once every replicate has reached
// a terminal state; individual failures are recorded, not propagated. The
// progress callback fires exactly once per terminal outcome, in completion
// order, with a monotonically increasing completed count. If every
// replicate fails, the outcomes are returned together with an
// AllReplicatesFailedError carrying the per-replicate causes.
func RunReplicates[T any](ctx context.Context, cfg ReplicateConfig, call func(ctx context.Context) (T, error)) ([]core.ReplicateOutcome[T], error) {
	if cfg.Replicates < 1 {
		return nil, core.ErrValidation(core.CodeInvalidReplicates, "replicate count must be at least 1")
	}
	retry := cfg.Retry
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	if retry.MaxAttempts < 1 {
		return nil, core.ErrValidation(core.CodeInvalidRetryBudget, "retry budget must be at least 1 attempt")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	k := cfg.Replicates
	outcomes := make([]core.ReplicateOutcome[T], k)

	// The mutex both guards the completion counter and serializes
	// progress delivery, so callers observe strictly increasing counts.
	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k)
	for i := 0; i < k; i++ {
		g.Go(func() error {
			var result T
			err := retry.Execute(gctx, func(ctx context.Context) error {
				r, callErr := call(ctx)
				if callErr == nil {
					result = r
				}
				return callErr
			})

			mu.Lock()
			outcomes[i] = core.ReplicateOutcome[T]{Index: i, Result: result, Err: err}
			completed++
			done, total := completed, k
			if cfg.Progress != nil {
				cfg.Progress(done, total)
			}
			mu.Unlock()

			if err != nil {
				logger.Warn("replicate failed", "replicate", i, "error", err)
			} else {
				logger.Debug("replicate completed", "replicate", i, "done", done, "total", total)
			}
			return nil
		})
	}
	// Replicate errors are recorded in outcomes, never returned from the
	// group, so Wait cannot fail on its own.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	var causes []error
	for _, o := range outcomes {
		if o.Err != nil {
			causes = append(causes, o.Err)
		}
	}
	if len(causes) == k {
		return outcomes, &core.AllReplicatesFailedError{Replicates: k, Causes: causes}
	}
	return outcomes, nil
}

// SuccessPayloads extracts the payloads of successful outcomes ordered by
// original replicate index, so downstream aggregation is independent of
// completion timing.
func SuccessPayloads[T any](outcomes []core.ReplicateOutcome[T]) []T {
	payloads := make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Success() {
			payloads = append(payloads, o.Result)
		}
	}
	return payloads
}
