package diff

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule assigns a severity to every path matching Pattern. Patterns use
// path.Match syntax where '*' also spans dots; square brackets are literal so
// "monsters[*].hp" matches "monsters[id=7].hp".
type Rule struct {
	Pattern  string   `yaml:"pattern" json:"pattern"`
	Severity Severity `yaml:"severity" json:"severity"`
	Note     string   `yaml:"note,omitempty" json:"note,omitempty"`

	compiled string
}

// Table is an ordered severity policy. The first matching rule wins.
type Table struct {
	rules []Rule
	def   Severity
}

type tableFile struct {
	Default Severity `yaml:"default"`
	Rules   []Rule   `yaml:"rules"`
}

// NewTable validates rules and builds a table.
func NewTable(def Severity, rules ...Rule) (*Table, error) {
	t := &Table{def: def, rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("diff: rule %d: empty pattern", i)
		}
		r.compiled = escapeBrackets(r.Pattern)
		if _, err := path.Match(r.compiled, ""); err != nil {
			return nil, fmt.Errorf("diff: rule %d %q: %w", i, r.Pattern, err)
		}
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// ParseTable reads a YAML severity table.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	f.Default = Major
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("diff: parse table: %w", err)
	}
	return NewTable(f.Default, f.Rules...)
}

// LoadTable reads a YAML severity table from disk.
func LoadTable(file string) (*Table, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("diff: load table: %w", err)
	}
	return ParseTable(data)
}

// Rules returns a copy of the policy in match order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Default is the severity for paths no rule matches.
func (t *Table) Default() Severity { return t.def }

// Classify returns the severity and note for a record path.
func (t *Table) Classify(p string) (Severity, string) {
	norm := Normalize(p)
	for _, r := range t.rules {
		if ok, _ := path.Match(r.compiled, norm); ok {
			return r.Severity, r.Note
		}
	}
	return t.def, ""
}

// MarshalYAML writes the table back in the file layout.
func (t *Table) MarshalYAML() (any, error) {
	return tableFile{Default: t.def, Rules: t.Rules()}, nil
}

var selector = regexp.MustCompile(`\[[^\]]*\]`)

// Normalize replaces list selectors with [*]: "levels[id=1].rows[4]" becomes
// "levels[*].rows[*]".
func Normalize(p string) string {
	return selector.ReplaceAllString(p, "[*]")
}

func escapeBrackets(p string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(p)
}

// DefaultTable is the built-in policy. configs/severity.yaml carries the same
// rules for editing.
func DefaultTable() *Table {
	t, err := NewTable(Major, defaultRules...)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultRules = []Rule{
	{Pattern: "rng*", Severity: Divergent, Note: "generator state"},
	{Pattern: "player.pos*", Severity: Divergent, Note: "position"},
	{Pattern: "player.level", Severity: Divergent, Note: "position"},
	{Pattern: "player.hp", Severity: Divergent, Note: "hit points"},
	{Pattern: "player.dead", Severity: Divergent, Note: "alive status"},
	{Pattern: "player.attributes*", Severity: Minor},
	{Pattern: "player.nutrition", Severity: Minor},
	{Pattern: "player.hunger", Severity: Minor},
	{Pattern: "player.conducts*", Severity: Minor},
	{Pattern: "player*", Severity: Major},
	{Pattern: "turn", Severity: Major},
	{Pattern: "inventory*", Severity: Major},
	{Pattern: "monsters[*].pos*", Severity: Divergent, Note: "position"},
	{Pattern: "monsters[*].hp", Severity: Divergent, Note: "hit points"},
	{Pattern: "monsters[*].movement", Severity: Minor},
	{Pattern: "monsters[*]", Severity: Divergent, Note: "alive status"},
	{Pattern: "monsters*", Severity: Major},
	{Pattern: "levels[*].lit*", Severity: Cosmetic, Note: "lighting"},
	{Pattern: "levels[*].rows*", Severity: Major, Note: "terrain"},
	{Pattern: "levels*", Severity: Major},
	{Pattern: "messages*", Severity: Cosmetic},
}
