package core

import (
	"encoding/json"
	"testing"
)

func TestInstrumentPartValid(t *testing.T) {
	tests := []struct {
		name string
		part InstrumentPart
		want bool
	}{
		{"complete", InstrumentPart{Name: "Trumpet", StartPage: 1, EndPage: 2}, true},
		{"no voice", InstrumentPart{Name: "Flute", StartPage: 3, EndPage: 3}, true},
		{"missing name", InstrumentPart{StartPage: 1, EndPage: 2}, false},
		{"zero start page", InstrumentPart{Name: "Oboe", StartPage: 0, EndPage: 2}, false},
		{"negative start page", InstrumentPart{Name: "Oboe", StartPage: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.part.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstrumentPartPageCount(t *testing.T) {
	tests := []struct {
		name string
		part InstrumentPart
		want int
	}{
		{"single page", InstrumentPart{StartPage: 4, EndPage: 4}, 1},
		{"range", InstrumentPart{StartPage: 2, EndPage: 6}, 5},
		{"end before start", InstrumentPart{StartPage: 5, EndPage: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.part.PageCount(); got != tt.want {
				t.Errorf("PageCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreAnalysisJSON(t *testing.T) {
	raw := `{"instruments":[{"name":"Clarinet in Bb","voice":"1","start_page":3,"end_page":7},{"name":"Timpani","start_page":12,"end_page":13}]}`

	var analysis ScoreAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(analysis.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(analysis.Parts))
	}
	if analysis.Parts[0].Voice != "1" {
		t.Errorf("Parts[0].Voice = %q, want 1", analysis.Parts[0].Voice)
	}
	if analysis.Parts[1].Voice != "" {
		t.Errorf("Parts[1].Voice = %q, want absent", analysis.Parts[1].Voice)
	}
}

func TestPartIdentityJSONOmitsAbsentVoice(t *testing.T) {
	out, err := json.Marshal(PartIdentity{Name: "Horn"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"name":"Horn"}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestReplicateOutcomeSuccess(t *testing.T) {
	ok := ReplicateOutcome[int]{Index: 0, Result: 42}
	if !ok.Success() {
		t.Error("outcome without error must be a success")
	}
	failed := ReplicateOutcome[int]{Index: 1, Err: ErrTimeout("deadline")}
	if failed.Success() {
		t.Error("outcome with error must not be a success")
	}
}
