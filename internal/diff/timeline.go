package diff

import (
	"fmt"

	"github.com/MJE43/nh-parity-go/internal/rng"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

// Checkpoint is the state after a turn together with the draws that turn
// made. Traced is false when the draws were not captured.
type Checkpoint struct {
	Turn   uint64
	State  snapshot.Node
	Trace  []rng.TraceEntry
	Traced bool
}

// Timeline is the result of comparing two checkpoint sequences.
type Timeline struct {
	Records         []Record         `json:"records"`
	Diverged        bool             `json:"diverged"`
	DivergenceTurn  uint64           `json:"divergence_turn,omitempty"`
	Divergence      *TraceDivergence `json:"divergence,omitempty"`
	SuppressedTurns int              `json:"suppressed_turns"`
}

// TracePath is the record path used for a generator trace divergence.
const TracePath = "rng.trace"

// CompareTimelines diffs checkpoints turn by turn. Once the traces diverge,
// records for later turns are dropped and counted in SuppressedTurns.
func CompareTimelines(expected, actual []Checkpoint, t *Table) Timeline {
	if t == nil {
		t = DefaultTable()
	}
	byTurn := make(map[uint64]Checkpoint, len(actual))
	for _, c := range actual {
		byTurn[c.Turn] = c
	}

	var tl Timeline
	var offset int
	for _, e := range expected {
		a, ok := byTurn[e.Turn]
		if !ok {
			if tl.Diverged {
				tl.SuppressedTurns++
				continue
			}
			sev, _ := t.Classify("turn")
			tl.Records = append(tl.Records, Record{
				Turn:        e.Turn,
				Path:        "turn",
				Severity:    max(sev, Major),
				Expected:    fmt.Sprint(e.Turn),
				Actual:      Absent,
				Explanation: "no checkpoint for this turn",
			})
			continue
		}

		records := Diff(e.State, a.State, t)
		for i := range records {
			records[i].Turn = e.Turn
		}
		if tl.Diverged {
			if len(records) > 0 {
				tl.SuppressedTurns++
			}
			continue
		}

		if e.Traced && a.Traced {
			if d, diverged := CompareTraces(e.Trace, a.Trace); diverged {
				d.Index += offset
				d.ContextStart += offset
				tl.Diverged = true
				tl.DivergenceTurn = e.Turn
				tl.Divergence = d
				sev, _ := t.Classify(TracePath)
				records = append(records, Record{
					Turn:        e.Turn,
					Path:        TracePath,
					Severity:    sev,
					Expected:    entryText(d.Expected),
					Actual:      entryText(d.Actual),
					Explanation: d.Description,
				})
			}
			offset += len(e.Trace)
		}
		tl.Records = append(tl.Records, records...)
	}
	return tl
}

func entryText(e *rng.TraceEntry) string {
	if e == nil {
		return Absent
	}
	return call(*e)
}
