package rng

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
)

type goldenVector struct {
	Seed   uint64            `json:"seed"`
	First  []string          `json:"first"`
	At     map[string]string `json:"at"`
	Rn2100 []int             `json:"rn2_100"`
}

type goldenFile struct {
	Description string         `json:"description"`
	Vectors     []goldenVector `json:"vectors"`
}

func loadGolden(t *testing.T) goldenFile {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "isaac64_golden.json"))
	if err != nil {
		t.Fatalf("Failed to read golden vectors: %v", err)
	}
	var gf goldenFile
	if err := json.Unmarshal(data, &gf); err != nil {
		t.Fatalf("Failed to parse golden vectors: %v", err)
	}
	if len(gf.Vectors) == 0 {
		t.Fatal("golden file has no vectors")
	}
	return gf
}

func parseHex(t *testing.T, s string) uint64 {
	t.Helper()
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return v
}

func TestIsaac64GoldenVectors(t *testing.T) {
	gf := loadGolden(t)

	for _, v := range gf.Vectors {
		t.Run("seed="+strconv.FormatUint(v.Seed, 10), func(t *testing.T) {
			g := New(v.Seed)
			for i, want := range v.First {
				if got := g.Next(); got != parseHex(t, want) {
					t.Errorf("output %d: got %#016x, want %s", i, got, want)
				}
			}

			// Indices past the first refill exercise update() more than once.
			idx := make([]int, 0, len(v.At))
			for k := range v.At {
				n, err := strconv.Atoi(k)
				if err != nil {
					t.Fatalf("bad index %q", k)
				}
				idx = append(idx, n)
			}
			sort.Ints(idx)

			pos := len(v.First)
			for _, target := range idx {
				var got uint64
				for ; pos <= target; pos++ {
					got = g.Next()
				}
				want := parseHex(t, v.At[strconv.Itoa(target)])
				if got != want {
					t.Errorf("output %d: got %#016x, want %#016x", target, got, want)
				}
			}
		})
	}
}

func TestRn2GoldenSequences(t *testing.T) {
	gf := loadGolden(t)

	for _, v := range gf.Vectors {
		t.Run("seed="+strconv.FormatUint(v.Seed, 10), func(t *testing.T) {
			g := New(v.Seed)
			for i, want := range v.Rn2100 {
				if got := g.Rn2(100); got != want {
					t.Errorf("rn2(100) #%d: got %d, want %d", i, got, want)
				}
			}
			if g.Calls() != uint64(len(v.Rn2100)) {
				t.Errorf("expected %d raw draws, got %d", len(v.Rn2100), g.Calls())
			}
		})
	}
}
