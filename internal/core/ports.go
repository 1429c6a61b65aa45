package core

import "context"

// FileRef identifies a document reachable by the analysis service, either
// by a service-issued file ID (after upload) or by a direct URL.
type FileRef struct {
	FileID string
	URL    string
}

// Uploader transfers document bytes to the analysis service and returns
// the service-issued file ID.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// ScoreAnalyzer is the external analysis capability. Each call is one
// independent prediction; callers decide how many replicates to issue.
type ScoreAnalyzer interface {
	// AnalyzeScore predicts the instrument parts of a multi-instrument
	// score book.
	AnalyzeScore(ctx context.Context, ref FileRef) (ScoreAnalysis, error)

	// IdentifyPart predicts the instrument name and voice of a PDF that
	// contains a single part.
	IdentifyPart(ctx context.Context, ref FileRef) (PartIdentity, error)
}

// ProgressFunc receives progress as replicates reach a terminal state
// (success or exhausted retries). done is monotonically increasing, is
// delivered in completion order, and reaches total exactly once per run.
// The invoker serializes calls, so implementations need not be safe for
// concurrent use.
type ProgressFunc func(done, total int)
