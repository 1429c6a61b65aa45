package service

import (
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// Aggregator reconciles divergent structured predictions from multiple
// replicates into a single result via majority voting.
type Aggregator struct{}

// NewAggregator creates a new aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// partKey is the normalized identity of a part: case/whitespace-folded
// name and voice. Parts with equal keys across replicates are treated as
// observations of the same entity.
type partKey struct {
	name  string
	voice string
}

// countedValue tracks how often one original spelling was observed.
// Values are kept in first-seen order so ties break deterministically.
type countedValue struct {
	value string
	count int
}

func bump(values []countedValue, v string) []countedValue {
	for i := range values {
		if values[i].value == v {
			values[i].count++
			return values
		}
	}
	return append(values, countedValue{value: v, count: 1})
}

// mostCommon returns the highest-count value; ties go to the value seen
// first.
func mostCommon(values []countedValue) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	best := values[0]
	for _, cv := range values[1:] {
		if cv.count > best.count {
			best = cv
		}
	}
	return best.value, true
}

// partGroup accumulates every observation of one normalized part identity
// across the successful replicates.
type partGroup struct {
	replicas map[int]bool // distinct replicate indices that contributed
	names    []countedValue
	voices   []countedValue
	starts   []int
	ends     []int
}

// AggregateScores combines the successful multi-part predictions of S
// replicates into one consensus listing.
//
// A part is included only if a majority of the contributing replicates
// reported it, where contributing means the replicate predicted at least
// one valid part. A successful call that saw no parts does not raise the
// bar for the replicates that did. Page bounds take the modal observed
// value, falling back to the median (lower of the two middles for even
// counts) when no value is strictly most frequent. Name and voice keep
// the most frequently observed original spelling. Output order is the
// first-appearance order of each part's normalized identity across the
// replicate list.
func (a *Aggregator) AggregateScores(analyses []core.ScoreAnalysis) core.ScoreAnalysis {
	groups := make(map[partKey]*partGroup)
	var order []partKey
	contributing := 0

	for idx, analysis := range analyses {
		observed := false
		for _, part := range analysis.Parts {
			if !part.Valid() {
				continue
			}
			observed = true
			key := partKey{
				name:  NormalizeName(part.Name),
				voice: NormalizeVoice(part.Voice),
			}
			g, ok := groups[key]
			if !ok {
				g = &partGroup{replicas: make(map[int]bool)}
				groups[key] = g
				order = append(order, key)
			}
			g.replicas[idx] = true
			g.names = bump(g.names, part.Name)
			g.voices = bump(g.voices, part.Voice)
			g.starts = append(g.starts, part.StartPage)
			end := part.EndPage
			if end == 0 {
				end = part.StartPage
			}
			g.ends = append(g.ends, end)
		}
		if observed {
			contributing++
		}
	}

	threshold := majorityThreshold(contributing)

	out := core.ScoreAnalysis{Parts: make([]core.InstrumentPart, 0, len(order))}
	for _, key := range order {
		g := groups[key]
		if len(g.replicas) < threshold {
			continue
		}

		start, ok := pickPage(g.starts)
		if !ok {
			continue
		}
		end, ok := pickPage(g.ends)
		if !ok || end < start {
			end = start
		}

		name, _ := mostCommon(g.names)
		voice, _ := mostCommon(g.voices)

		out.Parts = append(out.Parts, core.InstrumentPart{
			Name:      name,
			Voice:     voice,
			StartPage: start,
			EndPage:   end,
		})
	}
	return out
}

// AggregatePartIdentities majority-votes name and voice independently
// across S successful single-part predictions. Votes are cast on exact
// values, so "1." and "1" are distinct candidates here. Absent voice is
// a valid candidate value; ties break by first-seen order.
func (a *Aggregator) AggregatePartIdentities(identities []core.PartIdentity) core.PartIdentity {
	var names, voices []countedValue
	for _, id := range identities {
		if id.Name != "" {
			names = bump(names, id.Name)
		}
		voices = bump(voices, id.Voice)
	}

	name, _ := mostCommon(names)
	voice, _ := mostCommon(voices)
	return core.PartIdentity{Name: name, Voice: voice}
}

// majorityThreshold returns ceil(s/2): a strict majority for odd s, half
// for even s.
func majorityThreshold(s int) int {
	return (s + 1) / 2
}

// pickPage selects the consensus page number from all observations: the
// modal value if one value is strictly most frequent, otherwise the
// median of the sorted observations, taking the lower of the two middle
// elements for even counts.
func pickPage(vals []int) (int, bool) {
	if len(vals) == 0 {
		return 0, false
	}

	counts := make(map[int]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	max, modal, modalTies := 0, 0, 0
	for v, c := range counts {
		switch {
		case c > max:
			max, modal, modalTies = c, v, 1
		case c == max:
			modalTies++
		}
	}
	if modalTies == 1 {
		return modal, true
	}

	sorted := make([]int, len(vals))
	copy(sorted, vals)
	sort.Ints(sorted)
	return sorted[(len(sorted)-1)/2], true
}

// NormalizeName folds a part name for identity comparison: lowercase with
// collapsed internal whitespace.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NormalizeVoice folds a voice/desk label: trimmed, trailing dots dropped
// ("1." and "1" are the same desk). Empty, "null" and "none" mean absent.
func NormalizeVoice(voice string) string {
	v := strings.TrimSpace(voice)
	v = strings.TrimRight(v, ".")
	switch strings.ToLower(v) {
	case "", "null", "none":
		return ""
	}
	return v
}
