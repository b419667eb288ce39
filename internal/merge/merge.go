package merge

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/persona"
)

type Strategy string

const (
	Chronological Strategy = "chronological"
	Manual        Strategy = "manual"
	ByPlatform    Strategy = "platform"
)

var Strategies = []Strategy{Chronological, Manual, ByPlatform}

func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Strategies, st) {
		return st, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (want chronological, manual or platform)", s)
}

const UnknownPlatform = "Unknown"

// Palette holds the persona colors; colorIndex always indexes into it.
var Palette = [8]string{
	"#8b5cf6", "#10b981", "#f59e0b", "#3b82f6",
	"#ec4899", "#14b8a6", "#f97316", "#6366f1",
}

func ColorIndex(queueIndex int) int {
	return queueIndex % len(Palette)
}

func Color(colorIndex int) string {
	return Palette[((colorIndex%len(Palette))+len(Palette))%len(Palette)]
}

// Exchange is a turn pair tagged with where it came from plus the prune
// overlay (selected/expanded).
type Exchange struct {
	parse.TurnPair
	SourcePersonaID    string `json:"sourcePersonaId"`
	SourcePersonaName  string `json:"sourcePersonaName"`
	SourcePersonaIndex int    `json:"sourcePersonaIndex"`
	SourcePlatform     string `json:"sourcePlatform"`
	ColorIndex         int    `json:"colorIndex"`
	OriginalIndex      int    `json:"originalIndex"`
	Selected           bool   `json:"selected"`
	Expanded           bool   `json:"expanded"`
}

// UnmarshalJSON treats an absent "selected" field as selected.
func (e *Exchange) UnmarshalJSON(data []byte) error {
	type alias Exchange
	a := alias{Selected: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = Exchange(a)
	return nil
}

// Lookup resolves persona ids. *persona.Library satisfies it.
type Lookup interface {
	Get(id string) (persona.Persona, bool)
}

type Result struct {
	Exchanges []Exchange
	// Missing lists queue ids that did not resolve, in queue order.
	Missing []string
}

// Resolve drops queue ids that do not resolve. Queue positions, and hence
// colors, are assigned over the resolved queue, so a stale id never shifts
// the output.
func Resolve(queue []string, lookup Lookup) (found []persona.Persona, missing []string) {
	for _, id := range queue {
		p, ok := lookup.Get(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		found = append(found, p)
	}
	return found, missing
}

// Merge combines the queued personas' exchanges under strategy. Every
// exchange starts selected and collapsed. An unrecognised strategy is
// treated as chronological.
func Merge(queue []string, lookup Lookup, strategy Strategy) Result {
	personas, missing := Resolve(queue, lookup)
	flat := flatten(personas)

	switch strategy {
	case Manual:
	case ByPlatform:
		flat = groupByPlatform(flat)
	default:
		sortByTimestamp(flat)
	}
	return Result{Exchanges: flat, Missing: missing}
}

// Single builds the working set for a one-persona queue without a merge.
func Single(p persona.Persona) []Exchange {
	return flatten([]persona.Persona{p})
}

func flatten(personas []persona.Persona) []Exchange {
	var out []Exchange
	for qi, p := range personas {
		platform := p.PlatformName
		if platform == "" {
			platform = UnknownPlatform
		}
		for oi, tp := range p.Exchanges {
			out = append(out, Exchange{
				TurnPair:           tp,
				SourcePersonaID:    p.ID,
				SourcePersonaName:  p.Name,
				SourcePersonaIndex: qi,
				SourcePlatform:     platform,
				ColorIndex:         ColorIndex(qi),
				OriginalIndex:      oi,
				Selected:           true,
			})
		}
	}
	return out
}

func sortByTimestamp(xs []Exchange) {
	slices.SortStableFunc(xs, func(a, b Exchange) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
}

// groupByPlatform keeps groups in first-seen order; a map alone would lose it.
func groupByPlatform(xs []Exchange) []Exchange {
	var order []string
	groups := make(map[string][]Exchange)
	for _, x := range xs {
		if _, ok := groups[x.SourcePlatform]; !ok {
			order = append(order, x.SourcePlatform)
		}
		groups[x.SourcePlatform] = append(groups[x.SourcePlatform], x)
	}

	out := make([]Exchange, 0, len(xs))
	for _, name := range order {
		g := groups[name]
		sortByTimestamp(g)
		out = append(out, g...)
	}
	return out
}

// Legend is one color key row for the merge queue display.
type Legend struct {
	PersonaID string `json:"personaId"`
	Name      string `json:"name"`
	Color     string `json:"color"`
}

func BuildLegend(queue []string, lookup Lookup) []Legend {
	personas, _ := Resolve(queue, lookup)
	out := make([]Legend, 0, len(personas))
	for i, p := range personas {
		out = append(out, Legend{PersonaID: p.ID, Name: p.Name, Color: Color(ColorIndex(i))})
	}
	return out
}

// Pairs strips the provenance, keeping only selected exchanges.
func Pairs(xs []Exchange) []parse.TurnPair {
	var out []parse.TurnPair
	for _, x := range xs {
		if x.Selected {
			out = append(out, x.TurnPair)
		}
	}
	return out
}
