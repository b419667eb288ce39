package merge

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/persona"
)

func pairs(prefix string, ts ...int64) []parse.TurnPair {
	out := make([]parse.TurnPair, len(ts))
	for i, t := range ts {
		out[i] = parse.TurnPair{
			UserText:      prefix + "-u" + string(rune('0'+i)),
			AssistantText: prefix + "-a" + string(rune('0'+i)),
			Timestamp:     t,
		}
	}
	return out
}

func fixture() *persona.Library {
	return persona.NewLibrary(
		persona.Persona{ID: "A", Name: "Alpha", PlatformName: "X", Exchanges: pairs("A", 100, 200)},
		persona.Persona{ID: "B", Name: "Beta", PlatformName: "Y", Exchanges: pairs("B", 150)},
	)
}

type ref struct {
	persona string
	index   int
}

func refs(xs []Exchange) []ref {
	out := make([]ref, len(xs))
	for i, x := range xs {
		out[i] = ref{x.SourcePersonaID, x.OriginalIndex}
	}
	return out
}

func TestMergeChronological(t *testing.T) {
	res := Merge([]string{"A", "B"}, fixture(), Chronological)
	want := []ref{{"A", 0}, {"B", 0}, {"A", 1}}
	if diff := cmp.Diff(want, refs(res.Exchanges), cmp.AllowUnexported(ref{})); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.Missing)

	for _, x := range res.Exchanges {
		assert.True(t, x.Selected)
		assert.False(t, x.Expanded)
	}
	// colors follow queue position, not output position
	assert.Equal(t, 0, res.Exchanges[0].ColorIndex)
	assert.Equal(t, 1, res.Exchanges[1].ColorIndex)
	assert.Equal(t, 0, res.Exchanges[2].ColorIndex)
	assert.Equal(t, "Beta", res.Exchanges[1].SourcePersonaName)
	assert.Equal(t, "Y", res.Exchanges[1].SourcePlatform)
}

func TestMergeManual(t *testing.T) {
	res := Merge([]string{"A", "B"}, fixture(), Manual)
	want := []ref{{"A", 0}, {"A", 1}, {"B", 0}}
	if diff := cmp.Diff(want, refs(res.Exchanges), cmp.AllowUnexported(ref{})); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	res = Merge([]string{"B", "A"}, fixture(), Manual)
	assert.Equal(t, []ref{{"B", 0}, {"A", 0}, {"A", 1}}, refs(res.Exchanges))
	assert.Equal(t, 1, res.Exchanges[1].SourcePersonaIndex)
}

func TestMergeChronologicalStableOnTies(t *testing.T) {
	lib := persona.NewLibrary(
		persona.Persona{ID: "A", Exchanges: pairs("A", 5, 5, 5)},
		persona.Persona{ID: "B", Exchanges: pairs("B", 5, 1)},
	)
	first := Merge([]string{"A", "B"}, lib, Chronological)
	second := Merge([]string{"A", "B"}, lib, Chronological)
	assert.Equal(t, first, second)
	assert.Equal(t, []ref{{"B", 1}, {"A", 0}, {"A", 1}, {"A", 2}, {"B", 0}}, refs(first.Exchanges))
}

func TestMergeByPlatform(t *testing.T) {
	lib := persona.NewLibrary(
		persona.Persona{ID: "z1", PlatformName: "Zeta", Exchanges: pairs("z1", 30, 10)},
		persona.Persona{ID: "a1", PlatformName: "Alpha", Exchanges: pairs("a1", 5)},
		persona.Persona{ID: "z2", PlatformName: "Zeta", Exchanges: pairs("z2", 20)},
		persona.Persona{ID: "n1", Exchanges: pairs("n1", 1)},
	)
	res := Merge([]string{"z1", "a1", "z2", "n1"}, lib, ByPlatform)

	// first-seen group order, not alphabetical
	want := []ref{{"z1", 1}, {"z2", 0}, {"z1", 0}, {"a1", 0}, {"n1", 0}}
	assert.Equal(t, want, refs(res.Exchanges))
	assert.Equal(t, UnknownPlatform, res.Exchanges[4].SourcePlatform)

	// each platform forms exactly one contiguous run
	seen := map[string]bool{}
	prev := ""
	for _, x := range res.Exchanges {
		if x.SourcePlatform != prev {
			require.False(t, seen[x.SourcePlatform], "platform %s split", x.SourcePlatform)
			seen[x.SourcePlatform] = true
			prev = x.SourcePlatform
		}
	}
	assert.Len(t, seen, 3)
}

func TestMergeStaleIDs(t *testing.T) {
	for _, st := range Strategies {
		t.Run(string(st), func(t *testing.T) {
			clean := Merge([]string{"A", "B"}, fixture(), st)
			stale := Merge([]string{"A", "gone", "B"}, fixture(), st)
			assert.Equal(t, clean.Exchanges, stale.Exchanges)
			assert.Equal(t, []string{"gone"}, stale.Missing)
		})
	}
}

func TestMergeEmpty(t *testing.T) {
	res := Merge(nil, fixture(), Chronological)
	assert.Empty(t, res.Exchanges)
	res = Merge([]string{"gone"}, fixture(), Manual)
	assert.Empty(t, res.Exchanges)
	assert.Equal(t, []string{"gone"}, res.Missing)
}

func TestColorWraps(t *testing.T) {
	var lib []persona.Persona
	var queue []string
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		lib = append(lib, persona.Persona{ID: id, Name: id, Exchanges: pairs(id, int64(i))})
		queue = append(queue, id)
	}
	res := Merge(queue, persona.NewLibrary(lib...), Manual)
	require.Len(t, res.Exchanges, 10)
	assert.Equal(t, 0, res.Exchanges[8].ColorIndex)
	assert.Equal(t, 1, res.Exchanges[9].ColorIndex)
	assert.Equal(t, 9, res.Exchanges[9].SourcePersonaIndex)

	legend := BuildLegend(queue, persona.NewLibrary(lib...))
	require.Len(t, legend, 10)
	assert.Equal(t, Palette[0], legend[8].Color)
}

func TestSingle(t *testing.T) {
	p := persona.Persona{ID: "A", Name: "Alpha", PlatformName: "X", Exchanges: pairs("A", 300, 100)}
	got := Single(p)
	require.Len(t, got, 2)
	for i, x := range got {
		assert.Equal(t, 0, x.SourcePersonaIndex)
		assert.Equal(t, 0, x.ColorIndex)
		assert.Equal(t, i, x.OriginalIndex)
		assert.True(t, x.Selected)
	}
	assert.Equal(t, int64(300), got[0].Timestamp, "single load keeps persona order")
}

func TestParseStrategy(t *testing.T) {
	st, err := ParseStrategy(" Platform ")
	require.NoError(t, err)
	assert.Equal(t, ByPlatform, st)
	_, err = ParseStrategy("random")
	assert.Error(t, err)
}

func TestExchangeJSON(t *testing.T) {
	x := Exchange{
		TurnPair:        parse.TurnPair{UserText: "u", AssistantText: "a", Timestamp: 7},
		SourcePersonaID: "A",
		ColorIndex:      3,
		Selected:        false,
		Expanded:        true,
	}
	data, err := json.Marshal(x)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user":"u"`)
	assert.Contains(t, string(data), `"selected":false`)

	var back Exchange
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, x, back)

	var legacy Exchange
	require.NoError(t, json.Unmarshal([]byte(`{"user":"u","timestamp":1}`), &legacy))
	assert.True(t, legacy.Selected, "absent selected means selected")
}

func TestPairs(t *testing.T) {
	xs := Single(persona.Persona{ID: "A", Exchanges: pairs("A", 1, 2, 3)})
	xs[1].Selected = false
	got := Pairs(xs)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[1].Timestamp)
}
