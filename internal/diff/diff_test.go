package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

func defaultRaw(t *testing.T) snapshot.Raw {
	t.Helper()
	gs, err := engine.NewGame(42, engine.Options{})
	require.NoError(t, err)
	return snapshot.Project(gs)
}

func TestIdenticalSnapshotsHaveNoRecords(t *testing.T) {
	raw := defaultRaw(t)
	assert.Empty(t, Diff(snapshot.FromRaw(raw), snapshot.FromRaw(raw), nil))
}

func TestMonsterHPOffByOne(t *testing.T) {
	raw := defaultRaw(t)
	require.NotEmpty(t, raw.Monsters)

	other := defaultRaw(t)
	other.Monsters[0].HP--

	recs := Diff(snapshot.FromRaw(raw), snapshot.FromRaw(other), DefaultTable())
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "monsters[id=1].hp", r.Path)
	assert.Equal(t, Divergent, r.Severity)
	assert.Equal(t, "4", r.Expected)
	assert.Equal(t, "3", r.Actual)
}

func TestMissingElements(t *testing.T) {
	raw := defaultRaw(t)
	other := defaultRaw(t)
	other.Monsters = other.Monsters[:1]
	other.Inventory = other.Inventory[:len(other.Inventory)-1]

	recs := Diff(snapshot.FromRaw(raw), snapshot.FromRaw(other), DefaultTable())
	require.Len(t, recs, 2)

	paths := map[string]Record{}
	for _, r := range recs {
		paths[r.Path] = r
	}
	mon, ok := paths["monsters[id=2]"]
	require.True(t, ok, "records: %v", recs)
	assert.Equal(t, Divergent, mon.Severity)
	assert.Equal(t, Absent, mon.Actual)

	inv, ok := paths["inventory[slot=c]"]
	require.True(t, ok, "records: %v", recs)
	assert.Equal(t, Major, inv.Severity)
}

func TestMissingFieldIsAtLeastMajor(t *testing.T) {
	table, err := NewTable(Cosmetic, Rule{Pattern: "a", Severity: Cosmetic})
	require.NoError(t, err)

	e := snapshot.Map(snapshot.F("a", snapshot.Int(1)), snapshot.F("b", snapshot.Int(2)))
	a := snapshot.Map(snapshot.F("b", snapshot.Int(3)), snapshot.F("c", snapshot.Int(4)))

	recs := Diff(e, a, table)
	require.Len(t, recs, 3)
	assert.Equal(t, Record{Path: "a", Severity: Major, Expected: "1", Actual: Absent, Explanation: "missing in actual"}, recs[0])
	assert.Equal(t, "b", recs[1].Path)
	assert.Equal(t, Cosmetic, recs[1].Severity)
	assert.Equal(t, Record{Path: "c", Severity: Major, Expected: Absent, Actual: "4", Explanation: "not in expected"}, recs[2])
}

func TestPositionalListLengthMismatch(t *testing.T) {
	e := snapshot.Map(snapshot.F("xs", snapshot.List(snapshot.Int(1), snapshot.Int(2), snapshot.Int(3))))
	a := snapshot.Map(snapshot.F("xs", snapshot.List(snapshot.Int(1))))
	recs := Diff(e, a, DefaultTable())
	require.Len(t, recs, 2)
	assert.Equal(t, "xs[1]", recs[0].Path)
	assert.Equal(t, "xs[2]", recs[1].Path)
}

func TestTerrainRowExplanation(t *testing.T) {
	raw := defaultRaw(t)
	other := defaultRaw(t)
	row := []byte(other.Levels[0].Rows[5])
	row[25] = '+'
	other.Levels[0].Rows[5] = string(row)

	recs := Diff(snapshot.FromRaw(raw), snapshot.FromRaw(other), DefaultTable())
	require.Len(t, recs, 1)
	assert.Equal(t, "levels[id=1].rows[5]", recs[0].Path)
	assert.Equal(t, Major, recs[0].Severity)
	assert.Contains(t, recs[0].Explanation, "1 cell(s) differ")
	assert.Contains(t, recs[0].Explanation, "x=25 door 'S' -> door '+'")
}

func TestClassify(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		path string
		want Severity
	}{
		{"rng.calls", Divergent},
		{"rng.checksum", Divergent},
		{"player.pos.x", Divergent},
		{"player.hp", Divergent},
		{"player.hp_max", Major},
		{"player.attributes.str", Minor},
		{"player.conducts.food", Minor},
		{"player.luck", Major},
		{"turn", Major},
		{"inventory[slot=a].quantity", Major},
		{"monsters[id=3].hp", Divergent},
		{"monsters[id=3].pos.y", Divergent},
		{"monsters[id=3].movement", Minor},
		{"monsters[id=3].tactic", Major},
		{"monsters[id=3]", Divergent},
		{"levels[id=1].lit[2]", Cosmetic},
		{"levels[id=1].rows[2]", Major},
		{"messages[0]", Cosmetic},
		{"something.else", Major},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, _ := table.Classify(tt.path)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "monsters[*].hp", Normalize("monsters[id=7].hp"))
	assert.Equal(t, "levels[*].rows[*]", Normalize("levels[id=1].rows[4]"))
	assert.Equal(t, "player.hp", Normalize("player.hp"))
}

func TestShippedTableMatchesDefault(t *testing.T) {
	loaded, err := LoadTable("../../configs/severity.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable().Rules(), loaded.Rules())
	assert.Equal(t, DefaultTable().Default(), loaded.Default())
}

func TestParseTableErrors(t *testing.T) {
	_, err := ParseTable([]byte("rules:\n  - pattern: x\n    severity: catastrophic\n"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("rules:\n  - severity: minor\n"))
	assert.Error(t, err)

	table, err := ParseTable([]byte("rules: []\n"))
	require.NoError(t, err)
	assert.Equal(t, Major, table.Default())
}

func TestTableYAMLRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(DefaultTable())
	require.NoError(t, err)
	back, err := ParseTable(out)
	require.NoError(t, err)
	assert.Equal(t, DefaultTable().Rules(), back.Rules())
}

func TestSeverityText(t *testing.T) {
	for _, s := range All() {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var back Severity
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	_, err := ParseSeverity("fatal")
	assert.Error(t, err)
	assert.True(t, Divergent.AtLeast(Major))
	assert.False(t, Minor.AtLeast(Major))
}

func TestWorstAndCount(t *testing.T) {
	_, ok := Worst(nil)
	assert.False(t, ok)

	recs := []Record{{Severity: Minor}, {Severity: Major}, {Severity: Minor}}
	w, ok := Worst(recs)
	require.True(t, ok)
	assert.Equal(t, Major, w)
	assert.Equal(t, map[Severity]int{Minor: 2, Major: 1}, Count(recs))
	assert.Len(t, AtLeast(recs, Major), 1)
}
