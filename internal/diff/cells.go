package diff

import (
	"fmt"
	"strings"
)

// cellClass buckets a terrain glyph for mismatch explanations.
func cellClass(g byte) string {
	switch g {
	case '-', '|', '=':
		return "wall"
	case '+', '\'', 'L', 'x', 'o', 'S':
		return "door"
	case '#':
		return "corridor"
	case '.', '<', '>', '{', '_', '\\', 'T':
		return "room"
	case ' ':
		return "rock"
	}
	return "other"
}

const maxCellNotes = 3

// explainRow lists the first few differing columns of two glyph rows.
func explainRow(expected, actual string) string {
	n := max(len(expected), len(actual))
	var notes []string
	diffs := 0
	for x := 0; x < n; x++ {
		e, a := glyphAt(expected, x), glyphAt(actual, x)
		if e == a {
			continue
		}
		diffs++
		if len(notes) < maxCellNotes {
			notes = append(notes, fmt.Sprintf("x=%d %s %q -> %s %q", x, cellClass(e), e, cellClass(a), a))
		}
	}
	if diffs == 0 {
		return ""
	}
	s := fmt.Sprintf("%d cell(s) differ: %s", diffs, strings.Join(notes, "; "))
	if diffs > maxCellNotes {
		s += "; ..."
	}
	return s
}

func glyphAt(row string, x int) byte {
	if x < len(row) {
		return row[x]
	}
	return 0
}
