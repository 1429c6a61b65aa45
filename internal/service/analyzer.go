package service

import (
	"context"
	"log/slog"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// Analyzer orchestrates the consensus pipeline: resolve the upload through
// the content-addressed cache, fan out the replicated analysis calls, and
// aggregate the successful predictions.
type Analyzer struct {
	capability core.ScoreAnalyzer
	uploads    *UploadCache
	aggregator *Aggregator
	retry      *RetryPolicy
	replicates int
	logger     *slog.Logger
}

// AnalyzerOption configures the analyzer.
type AnalyzerOption func(*Analyzer)

// WithReplicates sets the default replicate count.
func WithReplicates(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.replicates = n
	}
}

// WithRetryPolicy sets the per-call retry policy.
func WithRetryPolicy(p *RetryPolicy) AnalyzerOption {
	return func(a *Analyzer) {
		a.retry = p
	}
}

// WithLogger sets the analyzer logger.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithUploadCache shares an existing upload cache. Analyzers built per
// request reuse one cache so a document still uploads at most once per
// process.
func WithUploadCache(cache *UploadCache) AnalyzerOption {
	return func(a *Analyzer) {
		a.uploads = cache
	}
}

// NewAnalyzer creates an analyzer for the given capability and uploader.
// Configuration is validated up front: a replicate count below 1 or an
// empty retry budget fails before any call is issued.
func NewAnalyzer(capability core.ScoreAnalyzer, uploader core.Uploader, opts ...AnalyzerOption) (*Analyzer, error) {
	a := &Analyzer{
		capability: capability,
		aggregator: NewAggregator(),
		retry:      DefaultRetryPolicy(),
		replicates: 3,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.replicates < 1 {
		return nil, core.ErrValidation(core.CodeInvalidReplicates, "replicate count must be at least 1")
	}
	if a.retry == nil || a.retry.MaxAttempts < 1 {
		return nil, core.ErrValidation(core.CodeInvalidRetryBudget, "retry budget must be at least 1 attempt")
	}
	if a.uploads == nil {
		a.uploads = NewUploadCache(uploader, a.logger)
	}
	return a, nil
}

// Replicates returns the configured replicate count.
func (a *Analyzer) Replicates() int {
	return a.replicates
}

// AnalyzeScore runs the consensus analysis of a multi-instrument score
// book held in memory. The document is uploaded at most once; all
// replicates share the resolved handle.
func (a *Analyzer) AnalyzeScore(ctx context.Context, doc []byte, progress core.ProgressFunc) (core.ScoreAnalysis, error) {
	ref, err := a.resolve(ctx, doc)
	if err != nil {
		return core.ScoreAnalysis{}, err
	}
	return a.analyzeScoreRef(ctx, ref, progress)
}

// AnalyzeScoreURL runs the consensus analysis against a document the
// service fetches itself; no upload is involved.
func (a *Analyzer) AnalyzeScoreURL(ctx context.Context, url string, progress core.ProgressFunc) (core.ScoreAnalysis, error) {
	return a.analyzeScoreRef(ctx, core.FileRef{URL: url}, progress)
}

func (a *Analyzer) analyzeScoreRef(ctx context.Context, ref core.FileRef, progress core.ProgressFunc) (core.ScoreAnalysis, error) {
	outcomes, err := RunReplicates(ctx, a.replicateConfig(progress), func(ctx context.Context) (core.ScoreAnalysis, error) {
		return a.capability.AnalyzeScore(ctx, ref)
	})
	if err != nil {
		return core.ScoreAnalysis{}, err
	}

	successes := SuccessPayloads(outcomes)
	a.logger.Info("score analysis replicates finished",
		"succeeded", len(successes), "requested", a.replicates)

	// replicates=1 is the degenerate single-call path: the sole result
	// passes through untouched.
	if a.replicates == 1 {
		return successes[0], nil
	}
	return a.aggregator.AggregateScores(successes), nil
}

// IdentifyPart runs the consensus identification of a single-part PDF.
// Name and voice are majority-voted; page bounds are left to the caller,
// which knows the local page count.
func (a *Analyzer) IdentifyPart(ctx context.Context, doc []byte, progress core.ProgressFunc) (core.PartIdentity, error) {
	ref, err := a.resolve(ctx, doc)
	if err != nil {
		return core.PartIdentity{}, err
	}
	return a.identifyPartRef(ctx, ref, progress)
}

// IdentifyPartURL is IdentifyPart against a service-fetched URL.
func (a *Analyzer) IdentifyPartURL(ctx context.Context, url string, progress core.ProgressFunc) (core.PartIdentity, error) {
	return a.identifyPartRef(ctx, core.FileRef{URL: url}, progress)
}

func (a *Analyzer) identifyPartRef(ctx context.Context, ref core.FileRef, progress core.ProgressFunc) (core.PartIdentity, error) {
	outcomes, err := RunReplicates(ctx, a.replicateConfig(progress), func(ctx context.Context) (core.PartIdentity, error) {
		return a.capability.IdentifyPart(ctx, ref)
	})
	if err != nil {
		return core.PartIdentity{}, err
	}

	successes := SuccessPayloads(outcomes)
	a.logger.Info("part identification replicates finished",
		"succeeded", len(successes), "requested", a.replicates)

	if a.replicates == 1 {
		return successes[0], nil
	}
	return a.aggregator.AggregatePartIdentities(successes), nil
}

func (a *Analyzer) resolve(ctx context.Context, doc []byte) (core.FileRef, error) {
	fileID, err := a.uploads.Resolve(ctx, doc)
	if err != nil {
		return core.FileRef{}, err
	}
	return core.FileRef{FileID: fileID}, nil
}

func (a *Analyzer) replicateConfig(progress core.ProgressFunc) ReplicateConfig {
	return ReplicateConfig{
		Replicates: a.replicates,
		Retry:      a.retry,
		Progress:   progress,
		Logger:     a.logger,
	}
}
