package service

import (
	"testing"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

func part(name, voice string, start, end int) core.InstrumentPart {
	return core.InstrumentPart{Name: name, Voice: voice, StartPage: start, EndPage: end}
}

func TestAggregateScores_FullAgreement(t *testing.T) {
	agg := NewAggregator()

	replica := core.ScoreAnalysis{Parts: []core.InstrumentPart{
		part("Trumpet", "1", 3, 7),
		part("Clarinet in Bb", "", 8, 12),
	}}
	result := agg.AggregateScores([]core.ScoreAnalysis{replica, replica, replica})

	if len(result.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(result.Parts))
	}
	if result.Parts[0] != replica.Parts[0] {
		t.Errorf("Parts[0] = %+v, want %+v", result.Parts[0], replica.Parts[0])
	}
	if result.Parts[1] != replica.Parts[1] {
		t.Errorf("Parts[1] = %+v, want %+v", result.Parts[1], replica.Parts[1])
	}
}

func TestAggregateScores_MajorityThreshold(t *testing.T) {
	agg := NewAggregator()

	// S=5: a part reported by 3 replicates meets the threshold of 3,
	// one reported by 2 does not.
	oboe := core.ScoreAnalysis{Parts: []core.InstrumentPart{part("Oboe", "", 1, 2)}}
	viola := core.ScoreAnalysis{Parts: []core.InstrumentPart{part("Viola", "", 5, 6)}}

	result := agg.AggregateScores([]core.ScoreAnalysis{oboe, oboe, oboe, viola, viola})
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	if result.Parts[0].Name != "Oboe" {
		t.Errorf("Parts[0].Name = %q, want Oboe", result.Parts[0].Name)
	}
}

func TestAggregateScores_EmptyRepliesDoNotRaiseThreshold(t *testing.T) {
	agg := NewAggregator()

	// Two replicates succeeded but saw no parts; the one replicate that
	// did contribute is a majority of one, so its part survives.
	trumpet := core.ScoreAnalysis{Parts: []core.InstrumentPart{part("Trumpet", "", 1, 4)}}
	empty := core.ScoreAnalysis{}

	result := agg.AggregateScores([]core.ScoreAnalysis{trumpet, empty, empty})
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	if result.Parts[0].Name != "Trumpet" {
		t.Errorf("Parts[0].Name = %q, want Trumpet", result.Parts[0].Name)
	}

	// With two contributors the threshold is a real majority again: a
	// part seen by only one of them is dropped.
	horn := core.ScoreAnalysis{Parts: []core.InstrumentPart{part("Horn", "", 5, 8)}}
	result = agg.AggregateScores([]core.ScoreAnalysis{trumpet, horn, trumpet, empty})
	if len(result.Parts) != 1 || result.Parts[0].Name != "Trumpet" {
		t.Errorf("Parts = %+v, want only Trumpet", result.Parts)
	}
}

func TestAggregateScores_InvalidOnlyReplyDoesNotContribute(t *testing.T) {
	agg := NewAggregator()

	// A replicate whose parts are all discarded as invalid counts the
	// same as an empty one for the threshold denominator.
	flute := core.ScoreAnalysis{Parts: []core.InstrumentPart{part("Flute", "", 2, 3)}}
	invalid := core.ScoreAnalysis{Parts: []core.InstrumentPart{part("", "", 1, 2), part("Piccolo", "", 0, 2)}}

	result := agg.AggregateScores([]core.ScoreAnalysis{flute, invalid, invalid})
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	if result.Parts[0].Name != "Flute" {
		t.Errorf("Parts[0].Name = %q, want Flute", result.Parts[0].Name)
	}
}

func TestAggregateScores_DistinctReplicatesNotObservations(t *testing.T) {
	agg := NewAggregator()

	// One replicate reporting the same part twice still counts once
	// toward the membership threshold.
	doubled := core.ScoreAnalysis{Parts: []core.InstrumentPart{
		part("Horn", "2", 4, 5),
		part("Horn", "2", 4, 5),
	}}
	tuba := core.ScoreAnalysis{Parts: []core.InstrumentPart{part("Tuba", "", 9, 10)}}

	result := agg.AggregateScores([]core.ScoreAnalysis{doubled, tuba, tuba})
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	if result.Parts[0].Name != "Tuba" {
		t.Errorf("Parts[0].Name = %q, want Tuba (Horn has one distinct contributor, below threshold 2)", result.Parts[0].Name)
	}
}

func TestAggregateScores_ModalPageWins(t *testing.T) {
	agg := NewAggregator()

	// Start observations [1,1,3]: 1 is strictly most frequent.
	analyses := []core.ScoreAnalysis{
		{Parts: []core.InstrumentPart{part("Flute", "", 1, 4)}},
		{Parts: []core.InstrumentPart{part("Flute", "", 1, 4)}},
		{Parts: []core.InstrumentPart{part("Flute", "", 3, 4)}},
	}
	result := agg.AggregateScores(analyses)
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	if result.Parts[0].StartPage != 1 {
		t.Errorf("StartPage = %d, want 1", result.Parts[0].StartPage)
	}
}

func TestAggregateScores_MedianTieBreak(t *testing.T) {
	agg := NewAggregator()

	// Start observations [1,3]: no strict mode, the median rule takes
	// the lower of the two middles.
	analyses := []core.ScoreAnalysis{
		{Parts: []core.InstrumentPart{part("Bassoon", "", 1, 6)}},
		{Parts: []core.InstrumentPart{part("Bassoon", "", 3, 6)}},
	}
	result := agg.AggregateScores(analyses)
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	if result.Parts[0].StartPage != 1 {
		t.Errorf("StartPage = %d, want 1 (lower median)", result.Parts[0].StartPage)
	}
}

func TestAggregateScores_CasingPreserved(t *testing.T) {
	agg := NewAggregator()

	analyses := []core.ScoreAnalysis{
		{Parts: []core.InstrumentPart{part("Trumpet", "", 2, 3)}},
		{Parts: []core.InstrumentPart{part("Trumpet", "", 2, 3)}},
		{Parts: []core.InstrumentPart{part("trumpet", "", 2, 3)}},
	}
	result := agg.AggregateScores(analyses)
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1 (casing variants share one group)", len(result.Parts))
	}
	if result.Parts[0].Name != "Trumpet" {
		t.Errorf("Name = %q, want Trumpet (most frequent casing)", result.Parts[0].Name)
	}
}

func TestAggregateScores_VoiceDotVariantsMerge(t *testing.T) {
	agg := NewAggregator()

	analyses := []core.ScoreAnalysis{
		{Parts: []core.InstrumentPart{part("Clarinet", "1.", 2, 3)}},
		{Parts: []core.InstrumentPart{part("Clarinet", "1", 2, 3)}},
		{Parts: []core.InstrumentPart{part("Clarinet", "1", 2, 3)}},
	}
	result := agg.AggregateScores(analyses)
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1 (dot variants share one group)", len(result.Parts))
	}
	if result.Parts[0].Voice != "1" {
		t.Errorf("Voice = %q, want 1 (most frequent spelling)", result.Parts[0].Voice)
	}
}

func TestAggregateScores_FirstAppearanceOrder(t *testing.T) {
	agg := NewAggregator()

	analyses := []core.ScoreAnalysis{
		{Parts: []core.InstrumentPart{part("Trumpet", "", 1, 2), part("Oboe", "", 3, 4)}},
		{Parts: []core.InstrumentPart{part("Oboe", "", 3, 4), part("Trumpet", "", 1, 2)}},
	}
	result := agg.AggregateScores(analyses)
	if len(result.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(result.Parts))
	}
	if result.Parts[0].Name != "Trumpet" || result.Parts[1].Name != "Oboe" {
		t.Errorf("order = [%s, %s], want [Trumpet, Oboe]", result.Parts[0].Name, result.Parts[1].Name)
	}
}

func TestAggregateScores_SkipsInvalidParts(t *testing.T) {
	agg := NewAggregator()

	analyses := []core.ScoreAnalysis{
		{Parts: []core.InstrumentPart{part("", "", 1, 2), part("Tuba", "", 0, 2), part("Cello", "", 5, 9)}},
		{Parts: []core.InstrumentPart{part("Cello", "", 5, 9)}},
	}
	result := agg.AggregateScores(analyses)
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	if result.Parts[0].Name != "Cello" {
		t.Errorf("Name = %q, want Cello", result.Parts[0].Name)
	}
}

func TestAggregateScores_MissingEndDefaultsToStart(t *testing.T) {
	agg := NewAggregator()

	analyses := []core.ScoreAnalysis{
		{Parts: []core.InstrumentPart{part("Timpani", "", 11, 0)}},
		{Parts: []core.InstrumentPart{part("Timpani", "", 11, 0)}},
	}
	result := agg.AggregateScores(analyses)
	if len(result.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(result.Parts))
	}
	got := result.Parts[0]
	if got.StartPage != 11 || got.EndPage != 11 {
		t.Errorf("pages = %d-%d, want 11-11", got.StartPage, got.EndPage)
	}
}

func TestAggregatePartIdentities_NameMajority(t *testing.T) {
	agg := NewAggregator()

	result := agg.AggregatePartIdentities([]core.PartIdentity{
		{Name: "Oboe"},
		{Name: "Oboe"},
		{Name: "Clarinet"},
	})
	if result.Name != "Oboe" {
		t.Errorf("Name = %q, want Oboe", result.Name)
	}
}

func TestAggregatePartIdentities_AbsentVoiceIsACandidate(t *testing.T) {
	agg := NewAggregator()

	result := agg.AggregatePartIdentities([]core.PartIdentity{
		{Name: "Horn"},
		{Name: "Horn"},
		{Name: "Horn", Voice: "1st"},
	})
	if result.Voice != "" {
		t.Errorf("Voice = %q, want absent", result.Voice)
	}
}

func TestAggregatePartIdentities_IndependentVotes(t *testing.T) {
	agg := NewAggregator()

	// The winning name and winning voice come from different replicates.
	result := agg.AggregatePartIdentities([]core.PartIdentity{
		{Name: "Trombone", Voice: "2"},
		{Name: "Trombone", Voice: "1"},
		{Name: "Euphonium", Voice: "1"},
	})
	if result.Name != "Trombone" {
		t.Errorf("Name = %q, want Trombone", result.Name)
	}
	if result.Voice != "1" {
		t.Errorf("Voice = %q, want 1", result.Voice)
	}
}

func TestAggregatePartIdentities_TieFirstSeen(t *testing.T) {
	agg := NewAggregator()

	result := agg.AggregatePartIdentities([]core.PartIdentity{
		{Name: "Violin"},
		{Name: "Viola"},
	})
	if result.Name != "Violin" {
		t.Errorf("Name = %q, want Violin (first seen wins ties)", result.Name)
	}
}

func TestAggregatePartIdentities_VotesOnExactVoiceValues(t *testing.T) {
	agg := NewAggregator()

	// Unlike the multi-part grouping, single-part voice votes are cast
	// on exact values: "1." and "1" stay distinct candidates and the
	// winner is reported verbatim.
	result := agg.AggregatePartIdentities([]core.PartIdentity{
		{Name: "Clarinet", Voice: "1."},
		{Name: "Clarinet", Voice: "1."},
		{Name: "Clarinet", Voice: "1"},
	})
	if result.Voice != "1." {
		t.Errorf("Voice = %q, want the exact majority value \"1.\"", result.Voice)
	}
}

func TestMajorityThreshold(t *testing.T) {
	tests := []struct {
		s    int
		want int
	}{
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{6, 3},
	}
	for _, tt := range tests {
		if got := majorityThreshold(tt.s); got != tt.want {
			t.Errorf("majorityThreshold(%d) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestPickPage(t *testing.T) {
	tests := []struct {
		name string
		vals []int
		want int
		ok   bool
	}{
		{name: "empty", vals: nil, want: 0, ok: false},
		{name: "single", vals: []int{4}, want: 4, ok: true},
		{name: "strict mode", vals: []int{1, 1, 3}, want: 1, ok: true},
		{name: "even tie lower median", vals: []int{1, 3}, want: 1, ok: true},
		{name: "odd all distinct takes middle", vals: []int{9, 1, 5}, want: 5, ok: true},
		{name: "four way tie lower of middles", vals: []int{2, 8, 4, 6}, want: 4, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickPage(tt.vals)
			if got != tt.want || ok != tt.ok {
				t.Errorf("pickPage(%v) = (%d, %v), want (%d, %v)", tt.vals, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Trumpet", "trumpet"},
		{"  Clarinet   in  Bb ", "clarinet in bb"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeVoice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.", "1"},
		{" 1 ", "1"},
		{"II", "II"},
		{"null", ""},
		{"None", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeVoice(tt.in); got != tt.want {
			t.Errorf("NormalizeVoice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
