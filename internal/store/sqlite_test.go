package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func sampleReport(label string, started time.Time) *converge.Report {
	failing := converge.FixtureResult{
		Fixture:  "fight_newt",
		Seed:     1234,
		Verdict:  converge.Fail,
		Commands: 6,
		Turns:    6,
		Records: []diff.Record{
			{Turn: 2, Path: "monsters[id=1].hp", Severity: diff.Divergent, Expected: "4", Actual: "3"},
			{Turn: 2, Path: "player.nutrition", Severity: diff.Minor, Expected: "899", Actual: "898"},
			{Turn: 3, Path: "levels[id=1].lit[2]", Severity: diff.Cosmetic, Expected: "true", Actual: "false",
				Explanation: "lighting"},
		},
		Histogram:      map[diff.Severity]int{diff.Divergent: 1, diff.Minor: 1, diff.Cosmetic: 1},
		Diverged:       true,
		DivergenceTurn: 2,
		FinalDigest:    "abc123",
		Duration:       15 * time.Millisecond,
	}
	passing := converge.FixtureResult{
		Fixture:     "dig_east_wall",
		Seed:        42,
		Verdict:     converge.Pass,
		Commands:    15,
		Turns:       15,
		FinalDigest: "def456",
		Duration:    30 * time.Millisecond,
	}
	return &converge.Report{
		Label:      label,
		Oracle:     "kernel",
		Verdict:    converge.Fail,
		Threshold:  diff.Major,
		Fixtures:   []converge.FixtureResult{failing, passing},
		Histogram:  map[diff.Severity]int{diff.Divergent: 1, diff.Minor: 1, diff.Cosmetic: 1},
		Counts:     map[converge.Verdict]int{converge.Fail: 1, converge.Pass: 1},
		ParityRate: decimal.RequireFromString("0.5"),
		StartedAt:  started,
		Duration:   50 * time.Millisecond,
	}
}

func TestSaveAndGetSweep(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := sampleReport("nightly", started)
	require.NoError(t, db.SaveReport(ctx, r, "1.2.3"))
	require.NotEmpty(t, r.ID, "an ID is assigned on save")
	for _, f := range r.Fixtures {
		assert.NotEmpty(t, f.ID)
	}

	sw, err := db.GetSweep(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "nightly", sw.Label)
	assert.Equal(t, converge.Fail, sw.Verdict)
	assert.Equal(t, diff.Major, sw.Threshold)
	assert.True(t, sw.ParityRate.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 2, sw.FixtureCount)
	assert.Equal(t, 1, sw.PassCount)
	assert.Equal(t, 1, sw.FailCount)
	assert.Equal(t, 1, sw.DivergentCount)
	assert.Equal(t, 0, sw.MajorCount)
	assert.Equal(t, 1, sw.MinorCount)
	assert.Equal(t, 1, sw.CosmeticCount)
	assert.Equal(t, 50*time.Millisecond, sw.Duration)
	assert.Equal(t, "1.2.3", sw.EngineVersion)
	assert.True(t, sw.StartedAt.Equal(started), "started_at %v", sw.StartedAt)

	full, err := db.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, full.ID)
	require.Len(t, full.Fixtures, 2)
	assert.Equal(t, r.Fixtures[0].Records, full.Fixtures[0].Records)
	assert.Equal(t, 1, full.Histogram[diff.Divergent])
}

func TestGetSweepNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetSweep(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetFixtureResults(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.ListRecords(ctx, RecordsQuery{SweepID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteSweep(ctx, "missing"), ErrNotFound)
}

func TestSaveReportRejectsNil(t *testing.T) {
	db := newTestDB(t)
	assert.ErrorIs(t, db.SaveReport(context.Background(), nil, ""), ErrInvalidReport)
}

func TestSaveReportDuplicateRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := sampleReport("dup", time.Now())
	require.NoError(t, db.SaveReport(ctx, r, ""))
	require.Error(t, db.SaveReport(ctx, r, ""))

	results, err := db.GetFixtureResults(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestGetFixtureResults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := sampleReport("", time.Now())
	require.NoError(t, db.SaveReport(ctx, r, ""))

	results, err := db.GetFixtureResults(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// ordered by fixture name
	assert.Equal(t, "dig_east_wall", results[0].Fixture)
	assert.Equal(t, converge.Pass, results[0].Verdict)
	assert.Nil(t, results[0].DivergenceTurn)
	assert.Equal(t, 0, results[0].RecordCount)

	newt := results[1]
	assert.Equal(t, "fight_newt", newt.Fixture)
	assert.Equal(t, uint64(1234), newt.Seed)
	assert.True(t, newt.Diverged)
	require.NotNil(t, newt.DivergenceTurn)
	assert.Equal(t, uint64(2), *newt.DivergenceTurn)
	assert.Equal(t, 3, newt.RecordCount)
	assert.Equal(t, "abc123", newt.FinalDigest)
	assert.Equal(t, 15*time.Millisecond, newt.Duration)
}

func TestLargeSeedSurvives(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := sampleReport("", time.Now())
	r.Fixtures[0].Seed = 1<<63 + 5
	require.NoError(t, db.SaveReport(ctx, r, ""))

	results, err := db.GetFixtureResults(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63+5), results[1].Seed)
}

func TestListRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := sampleReport("", time.Now())
	require.NoError(t, db.SaveReport(ctx, r, ""))

	tests := []struct {
		name  string
		query RecordsQuery
		paths []string
		total int
		pages int
	}{
		{
			name:  "all worst first",
			query: RecordsQuery{SweepID: r.ID},
			paths: []string{"monsters[id=1].hp", "player.nutrition", "levels[id=1].lit[2]"},
			total: 3,
			pages: 1,
		},
		{
			name:  "minimum severity",
			query: RecordsQuery{SweepID: r.ID, MinSeverity: diff.Minor},
			paths: []string{"monsters[id=1].hp", "player.nutrition"},
			total: 2,
			pages: 1,
		},
		{
			name:  "second page",
			query: RecordsQuery{SweepID: r.ID, Page: 2, PerPage: 2},
			paths: []string{"levels[id=1].lit[2]"},
			total: 3,
			pages: 2,
		},
		{
			name:  "other fixture",
			query: RecordsQuery{SweepID: r.ID, Fixture: "dig_east_wall"},
			paths: nil,
			total: 0,
			pages: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := db.ListRecords(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.total, page.TotalCount)
			assert.Equal(t, tt.pages, page.TotalPages)

			var paths []string
			for _, rec := range page.Records {
				paths = append(paths, rec.Path)
				assert.Equal(t, "fight_newt", rec.Fixture)
				assert.Equal(t, r.ID, rec.SweepID)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}

	page, err := db.ListRecords(ctx, RecordsQuery{SweepID: r.ID, MinSeverity: diff.Cosmetic})
	require.NoError(t, err)
	last := page.Records[len(page.Records)-1]
	assert.Equal(t, diff.Cosmetic, last.Severity)
	assert.Equal(t, "lighting", last.Explanation)
	assert.Equal(t, uint64(3), last.Turn)
}

func TestListSweeps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i, label := range []string{"nightly", "pr", "nightly"} {
		r := sampleReport(label, base.Add(time.Duration(i)*time.Hour))
		if i == 1 {
			r.Verdict = converge.Pass
		}
		require.NoError(t, db.SaveReport(ctx, r, ""))
		ids = append(ids, r.ID)
	}

	all, err := db.ListSweeps(ctx, SweepsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalCount)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 50, all.PerPage)
	require.Len(t, all.Sweeps, 3)
	assert.Equal(t, ids[2], all.Sweeps[0].ID, "newest first")
	assert.Equal(t, ids[0], all.Sweeps[2].ID)

	nightly, err := db.ListSweeps(ctx, SweepsQuery{Label: "nightly"})
	require.NoError(t, err)
	assert.Equal(t, 2, nightly.TotalCount)

	passed, err := db.ListSweeps(ctx, SweepsQuery{Verdict: converge.Pass})
	require.NoError(t, err)
	require.Len(t, passed.Sweeps, 1)
	assert.Equal(t, ids[1], passed.Sweeps[0].ID)

	paged, err := db.ListSweeps(ctx, SweepsQuery{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, paged.TotalPages)
	require.Len(t, paged.Sweeps, 1)
	assert.Equal(t, ids[0], paged.Sweeps[0].ID)

	empty, err := db.ListSweeps(ctx, SweepsQuery{Label: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, empty.Sweeps)
	assert.Empty(t, empty.Sweeps)
}

func TestDeleteSweepCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := sampleReport("", time.Now())
	require.NoError(t, db.SaveReport(ctx, r, ""))
	require.NoError(t, db.DeleteSweep(ctx, r.ID))

	_, err := db.GetSweep(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM diff_records`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM fixture_results`).Scan(&n))
	assert.Zero(t, n)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	var version int64
	require.NoError(t, db.db.QueryRow(`SELECT MAX(version_id) FROM goose_db_version`).Scan(&version))
	assert.Equal(t, int64(1), version)
}
