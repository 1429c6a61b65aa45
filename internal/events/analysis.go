package events

import "github.com/hugo-lorenzo-mato/partitura-ai/internal/core"

// Event type constants for the analysis pipeline.
const (
	TypeAnalysisStarted   = "analysis_started"
	TypeReplicateProgress = "replicate_progress"
	TypeAnalysisCompleted = "analysis_completed"
	TypeAnalysisFailed    = "analysis_failed"
	TypePartExtracted     = "part_extracted"
)

// AnalysisStartedEvent is emitted when a consensus run begins.
type AnalysisStartedEvent struct {
	BaseEvent
	Replicates int `json:"replicates"`
}

// NewAnalysisStartedEvent creates a new analysis started event.
func NewAnalysisStartedEvent(jobID string, replicates int) AnalysisStartedEvent {
	return AnalysisStartedEvent{
		BaseEvent:  NewBaseEvent(TypeAnalysisStarted, jobID),
		Replicates: replicates,
	}
}

// ReplicateProgressEvent is emitted once per terminal replicate outcome.
type ReplicateProgressEvent struct {
	BaseEvent
	Done  int `json:"done"`
	Total int `json:"total"`
}

// NewReplicateProgressEvent creates a new replicate progress event.
func NewReplicateProgressEvent(jobID string, done, total int) ReplicateProgressEvent {
	return ReplicateProgressEvent{
		BaseEvent: NewBaseEvent(TypeReplicateProgress, jobID),
		Done:      done,
		Total:     total,
	}
}

// AnalysisCompletedEvent carries the consensus result.
type AnalysisCompletedEvent struct {
	BaseEvent
	Parts []core.InstrumentPart `json:"parts"`
}

// NewAnalysisCompletedEvent creates a new analysis completed event.
func NewAnalysisCompletedEvent(jobID string, parts []core.InstrumentPart) AnalysisCompletedEvent {
	return AnalysisCompletedEvent{
		BaseEvent: NewBaseEvent(TypeAnalysisCompleted, jobID),
		Parts:     parts,
	}
}

// AnalysisFailedEvent is emitted when a run produces no usable result.
type AnalysisFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// NewAnalysisFailedEvent creates a new analysis failed event.
func NewAnalysisFailedEvent(jobID, errMsg string) AnalysisFailedEvent {
	return AnalysisFailedEvent{
		BaseEvent: NewBaseEvent(TypeAnalysisFailed, jobID),
		Error:     errMsg,
	}
}

// PartExtractedEvent is emitted for each file written during a split.
type PartExtractedEvent struct {
	BaseEvent
	Part     core.InstrumentPart `json:"part"`
	Filename string              `json:"filename"`
}

// NewPartExtractedEvent creates a new part extracted event.
func NewPartExtractedEvent(jobID string, part core.InstrumentPart, filename string) PartExtractedEvent {
	return PartExtractedEvent{
		BaseEvent: NewBaseEvent(TypePartExtracted, jobID),
		Part:      part,
		Filename:  filename,
	}
}
