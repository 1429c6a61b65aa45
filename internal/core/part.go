// Package core holds the domain types and ports shared by the analysis
// pipeline: instrument part predictions, replicate outcomes, and the
// structured error taxonomy.
package core

// InstrumentPart is a single detected instrument part with an optional
// voice/desk number and a 1-indexed inclusive page range.
type InstrumentPart struct {
	Name      string `json:"name"`
	Voice     string `json:"voice,omitempty"` // empty when the part carries no voice/desk number
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// Valid reports whether the part carries enough information to be used.
// Parts without a name or without a positive start page are discarded at
// the conversion boundary.
func (p InstrumentPart) Valid() bool {
	return p.Name != "" && p.StartPage >= 1
}

// PageCount returns the number of pages the part spans.
func (p InstrumentPart) PageCount() int {
	if p.EndPage < p.StartPage {
		return 1
	}
	return p.EndPage - p.StartPage + 1
}

// ScoreAnalysis is the structured prediction for a multi-instrument score
// book: the ordered list of detected parts.
type ScoreAnalysis struct {
	Parts []InstrumentPart `json:"instruments"`
}

// PartIdentity is the structured prediction for a PDF that contains a
// single instrument part. Page bounds are inferred locally (the part spans
// the whole document), not by the analysis service.
type PartIdentity struct {
	Name      string `json:"name"`
	Voice     string `json:"voice,omitempty"`
	StartPage int    `json:"start_page,omitempty"`
	EndPage   int    `json:"end_page,omitempty"`
	Pages     int    `json:"pages,omitempty"`
}

// ReplicateOutcome records the terminal result of one replicate: either a
// payload or the error that exhausted its retry budget. Index is the launch
// index, so ordered views of outcomes are independent of completion timing.
type ReplicateOutcome[T any] struct {
	Index  int
	Result T
	Err    error
}

// Success reports whether the replicate produced a payload.
func (o ReplicateOutcome[T]) Success() bool {
	return o.Err == nil
}
