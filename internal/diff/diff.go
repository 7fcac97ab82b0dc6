package diff

import (
	"fmt"
	"strings"

	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

// Absent stands in for the value on the side that lacks a field or element.
const Absent = "<absent>"

// Record is one graded mismatch.
type Record struct {
	Turn        uint64   `json:"turn"`
	Path        string   `json:"path"`
	Severity    Severity `json:"severity"`
	Expected    string   `json:"expected"`
	Actual      string   `json:"actual"`
	Explanation string   `json:"explanation,omitempty"`
}

func (r Record) String() string {
	s := fmt.Sprintf("turn %d %s [%s]: expected %s, got %s", r.Turn, r.Path, r.Severity, r.Expected, r.Actual)
	if r.Explanation != "" {
		s += " (" + r.Explanation + ")"
	}
	return s
}

// Diff walks both trees and returns one record per mismatching leaf, in path
// order. Keyed lists are aligned by key and other lists by position.
func Diff(expected, actual snapshot.Node, t *Table) []Record {
	if t == nil {
		t = DefaultTable()
	}
	d := differ{table: t}
	d.walk("", expected, actual)
	return d.out
}

type differ struct {
	table *Table
	out   []Record
}

func (d *differ) walk(p string, e, a snapshot.Node) {
	if e.Kind() != a.Kind() {
		d.leaf(p, e, a)
		return
	}
	switch e.Kind() {
	case snapshot.KindMap:
		d.walkMap(p, e, a)
	case snapshot.KindList:
		if e.Key() != "" && e.Key() == a.Key() {
			d.walkKeyed(p, e, a)
		} else {
			d.walkList(p, e, a)
		}
	default:
		if !e.Equal(a) {
			d.leaf(p, e, a)
		}
	}
}

func (d *differ) walkMap(p string, e, a snapshot.Node) {
	ef, af := e.Fields(), a.Fields()
	i, j := 0, 0
	for i < len(ef) || j < len(af) {
		switch {
		case j >= len(af) || (i < len(ef) && ef[i].Name < af[j].Name):
			d.missing(join(p, ef[i].Name), ef[i].Value.Text(), Absent, "missing in actual")
			i++
		case i >= len(ef) || af[j].Name < ef[i].Name:
			d.missing(join(p, af[j].Name), Absent, af[j].Value.Text(), "not in expected")
			j++
		default:
			d.walk(join(p, ef[i].Name), ef[i].Value, af[j].Value)
			i++
			j++
		}
	}
}

func (d *differ) walkKeyed(p string, e, a snapshot.Node) {
	key := e.Key()
	index := make(map[string]snapshot.Node, len(a.Items()))
	for _, it := range a.Items() {
		index[it.KeyOf(key)] = it
	}
	seen := make(map[string]bool, len(e.Items()))
	for _, it := range e.Items() {
		k := it.KeyOf(key)
		seen[k] = true
		ip := fmt.Sprintf("%s[%s=%s]", p, key, k)
		other, ok := index[k]
		if !ok {
			d.missing(ip, it.Text(), Absent, "missing in actual")
			continue
		}
		d.walk(ip, it, other)
	}
	for _, it := range a.Items() {
		k := it.KeyOf(key)
		if seen[k] {
			continue
		}
		d.missing(fmt.Sprintf("%s[%s=%s]", p, key, k), Absent, it.Text(), "not in expected")
	}
}

func (d *differ) walkList(p string, e, a snapshot.Node) {
	ei, ai := e.Items(), a.Items()
	n := min(len(ei), len(ai))
	for i := 0; i < n; i++ {
		d.walk(fmt.Sprintf("%s[%d]", p, i), ei[i], ai[i])
	}
	for i := n; i < len(ei); i++ {
		d.missing(fmt.Sprintf("%s[%d]", p, i), ei[i].Text(), Absent, "missing in actual")
	}
	for i := n; i < len(ai); i++ {
		d.missing(fmt.Sprintf("%s[%d]", p, i), Absent, ai[i].Text(), "not in expected")
	}
}

func (d *differ) leaf(p string, e, a snapshot.Node) {
	sev, note := d.table.Classify(p)
	why := note
	if isTerrainRow(p) && e.Kind() == snapshot.KindString && a.Kind() == snapshot.KindString {
		why = explainRow(e.StrValue(), a.StrValue())
	}
	d.out = append(d.out, Record{
		Path:        p,
		Severity:    sev,
		Expected:    e.Text(),
		Actual:      a.Text(),
		Explanation: why,
	})
}

func (d *differ) missing(p, expected, actual, why string) {
	sev, _ := d.table.Classify(p)
	d.out = append(d.out, Record{
		Path:        p,
		Severity:    max(sev, Major),
		Expected:    expected,
		Actual:      actual,
		Explanation: why,
	})
}

func join(p, name string) string {
	if p == "" {
		return name
	}
	return p + "." + name
}

func isTerrainRow(p string) bool {
	return strings.HasPrefix(Normalize(p), "levels[*].rows[")
}

// Worst returns the highest severity among records, and false when there are
// none.
func Worst(records []Record) (Severity, bool) {
	if len(records) == 0 {
		return 0, false
	}
	w := Cosmetic
	for _, r := range records {
		w = max(w, r.Severity)
	}
	return w, true
}

// Count tallies records per severity.
func Count(records []Record) map[Severity]int {
	out := make(map[Severity]int, len(severityNames))
	for _, r := range records {
		out[r.Severity]++
	}
	return out
}

// AtLeast filters records to those meeting the threshold.
func AtLeast(records []Record, threshold Severity) []Record {
	var out []Record
	for _, r := range records {
		if r.Severity >= threshold {
			out = append(out, r)
		}
	}
	return out
}
