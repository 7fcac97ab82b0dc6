package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	defaultSweepsPerPage  = 50
	defaultRecordsPerPage = 100
)

// SQLiteDB implements DB on SQLite.
type SQLiteDB struct {
	db *sql.DB
}

var _ DB = (*SQLiteDB)(nil)

// NewSQLiteDB opens the database at path in WAL mode with foreign keys on.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, multierr.Append(fmt.Errorf("store: enable WAL mode: %w", err), db.Close())
	}

	return &SQLiteDB{db: db}, nil
}

// Close checkpoints the write-ahead log and closes the connection.
func (s *SQLiteDB) Close() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return multierr.Append(err, s.db.Close())
}

// Ping checks the connection.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded migrations that have not run yet.
func (s *SQLiteDB) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("store: migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("store: migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveReport stores a sweep, its fixture results and their records in one
// transaction. A report without an ID is given one.
func (s *SQLiteDB) SaveReport(ctx context.Context, r *converge.Report, engineVersion string) (err error) {
	if r == nil {
		return fmt.Errorf("%w: nil report", ErrInvalidReport)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for i := range r.Fixtures {
		if r.Fixtures[i].ID == "" {
			r.Fixtures[i].ID = uuid.NewString()
		}
	}
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, rbErr)
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO sweeps (
		id, label, oracle, verdict, threshold, parity_rate,
		fixture_count, pass_count, fail_count, inconclusive_count, error_count,
		divergent_count, major_count, minor_count, cosmetic_count,
		timed_out, started_at, duration_ns, engine_version, report_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Label, r.Oracle, string(r.Verdict), r.Threshold.String(), r.ParityRate.String(),
		len(r.Fixtures), r.Counts[converge.Pass], r.Counts[converge.Fail],
		r.Counts[converge.Inconclusive], r.Counts[converge.Error],
		r.Histogram[diff.Divergent], r.Histogram[diff.Major], r.Histogram[diff.Minor], r.Histogram[diff.Cosmetic],
		boolInt(r.TimedOut), r.StartedAt.UTC(), int64(r.Duration), engineVersion, string(blob),
	)
	if err != nil {
		return fmt.Errorf("store: save sweep %s: %w", r.ID, err)
	}

	resultStmt, err := tx.PrepareContext(ctx, `INSERT INTO fixture_results (
		id, sweep_id, fixture, seed, verdict, reason, commands, turns, record_count,
		diverged, divergence_turn, suppressed_turns, final_digest, duration_ns
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer resultStmt.Close()

	recordStmt, err := tx.PrepareContext(ctx, `INSERT INTO diff_records (
		sweep_id, result_id, fixture, turn, path, severity, severity_rank, expected, actual, explanation
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer recordStmt.Close()

	for _, f := range r.Fixtures {
		var divergenceTurn sql.NullInt64
		if f.Diverged {
			divergenceTurn = sql.NullInt64{Int64: int64(f.DivergenceTurn), Valid: true}
		}
		_, err = resultStmt.ExecContext(ctx,
			f.ID, r.ID, f.Fixture, int64(f.Seed), string(f.Verdict), nullString(f.Reason),
			f.Commands, int64(f.Turns), len(f.Records), boolInt(f.Diverged), divergenceTurn,
			f.SuppressedTurns, nullString(f.FinalDigest), int64(f.Duration),
		)
		if err != nil {
			return fmt.Errorf("store: save fixture %s: %w", f.Fixture, err)
		}

		for _, rec := range f.Records {
			_, err = recordStmt.ExecContext(ctx,
				r.ID, f.ID, f.Fixture, int64(rec.Turn), rec.Path, rec.Severity.String(), int(rec.Severity),
				rec.Expected, rec.Actual, nullString(rec.Explanation),
			)
			if err != nil {
				return fmt.Errorf("store: save record %s: %w", rec.Path, err)
			}
		}
	}

	return tx.Commit()
}

const sweepColumns = `id, label, oracle, verdict, threshold, parity_rate,
	fixture_count, pass_count, fail_count, inconclusive_count, error_count,
	divergent_count, major_count, minor_count, cosmetic_count,
	timed_out, started_at, duration_ns, engine_version, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSweep(row scanner) (*Sweep, error) {
	var (
		sw                 Sweep
		verdict, threshold string
		parity             string
		timedOut           int
		duration           int64
		createdAt          sql.NullTime
	)
	err := row.Scan(
		&sw.ID, &sw.Label, &sw.Oracle, &verdict, &threshold, &parity,
		&sw.FixtureCount, &sw.PassCount, &sw.FailCount, &sw.InconclusiveCount, &sw.ErrorCount,
		&sw.DivergentCount, &sw.MajorCount, &sw.MinorCount, &sw.CosmeticCount,
		&timedOut, &sw.StartedAt, &duration, &sw.EngineVersion, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	sw.Verdict = converge.Verdict(verdict)
	if sw.Threshold, err = diff.ParseSeverity(threshold); err != nil {
		return nil, fmt.Errorf("store: sweep %s: %w", sw.ID, err)
	}
	if err := sw.ParityRate.UnmarshalText([]byte(parity)); err != nil {
		return nil, fmt.Errorf("store: sweep %s parity rate: %w", sw.ID, err)
	}
	sw.TimedOut = timedOut == 1
	sw.Duration = time.Duration(duration)
	if createdAt.Valid {
		sw.CreatedAt = createdAt.Time
	}
	return &sw, nil
}

// GetSweep returns the summary row of a sweep.
func (s *SQLiteDB) GetSweep(ctx context.Context, id string) (*Sweep, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sweepColumns+` FROM sweeps WHERE id = ?`, id)
	sw, err := scanSweep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sweep %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return sw, nil
}

// GetReport returns the full report exactly as it was saved.
func (s *SQLiteDB) GetReport(ctx context.Context, id string) (*converge.Report, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM sweeps WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sweep %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var r converge.Report
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return nil, fmt.Errorf("store: decode report %s: %w", id, err)
	}
	return &r, nil
}

// ListSweeps returns sweeps newest first, filtered by label and verdict.
func (s *SQLiteDB) ListSweeps(ctx context.Context, query SweepsQuery) (*SweepsList, error) {
	var (
		where []string
		args  []any
	)
	if query.Label != "" {
		where = append(where, "label = ?")
		args = append(args, query.Label)
	}
	if query.Verdict != "" {
		where = append(where, "verdict = ?")
		args = append(args, string(query.Verdict))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sweeps "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("store: count sweeps: %w", err)
	}

	page, perPage, totalPages, offset := paginate(query.Page, query.PerPage, defaultSweepsPerPage, totalCount)

	rows, err := s.db.QueryContext(ctx, `SELECT `+sweepColumns+` FROM sweeps `+whereClause+`
		ORDER BY started_at DESC, id
		LIMIT ? OFFSET ?`, append(args, perPage, offset)...)
	if err != nil {
		return nil, fmt.Errorf("store: query sweeps: %w", err)
	}
	defer rows.Close()

	sweeps := []Sweep{}
	for rows.Next() {
		sw, err := scanSweep(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan sweep: %w", err)
		}
		sweeps = append(sweeps, *sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate sweeps: %w", err)
	}

	return &SweepsList{
		Sweeps:     sweeps,
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// GetFixtureResults returns the fixture rows of a sweep ordered by fixture
// name.
func (s *SQLiteDB) GetFixtureResults(ctx context.Context, sweepID string) ([]FixtureRow, error) {
	if _, err := s.GetSweep(ctx, sweepID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, sweep_id, fixture, seed, verdict, reason, commands, turns, record_count,
		diverged, divergence_turn, suppressed_turns, final_digest, duration_ns
		FROM fixture_results WHERE sweep_id = ?
		ORDER BY fixture`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("store: query fixture results: %w", err)
	}
	defer rows.Close()

	results := []FixtureRow{}
	for rows.Next() {
		var (
			f                FixtureRow
			seed, turns, dur int64
			verdict          string
			reason, digest   sql.NullString
			diverged         int
			divergenceTurn   sql.NullInt64
		)
		err := rows.Scan(
			&f.ID, &f.SweepID, &f.Fixture, &seed, &verdict, &reason, &f.Commands, &turns, &f.RecordCount,
			&diverged, &divergenceTurn, &f.SuppressedTurns, &digest, &dur,
		)
		if err != nil {
			return nil, fmt.Errorf("store: scan fixture result: %w", err)
		}
		f.Seed = uint64(seed)
		f.Turns = uint64(turns)
		f.Verdict = converge.Verdict(verdict)
		f.Reason = reason.String
		f.Diverged = diverged == 1
		if divergenceTurn.Valid {
			t := uint64(divergenceTurn.Int64)
			f.DivergenceTurn = &t
		}
		f.FinalDigest = digest.String
		f.Duration = time.Duration(dur)
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate fixture results: %w", err)
	}
	return results, nil
}

// ListRecords pages the records of a sweep, worst severity first and then
// by fixture and turn.
func (s *SQLiteDB) ListRecords(ctx context.Context, query RecordsQuery) (*RecordsPage, error) {
	if _, err := s.GetSweep(ctx, query.SweepID); err != nil {
		return nil, err
	}

	whereClause := "WHERE sweep_id = ? AND severity_rank >= ?"
	args := []any{query.SweepID, int(query.MinSeverity)}
	if query.Fixture != "" {
		whereClause += " AND fixture = ?"
		args = append(args, query.Fixture)
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diff_records "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("store: count records: %w", err)
	}

	page, perPage, totalPages, offset := paginate(query.Page, query.PerPage, defaultRecordsPerPage, totalCount)

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, sweep_id, result_id, fixture, turn, path, severity, expected, actual, explanation
		FROM diff_records `+whereClause+`
		ORDER BY severity_rank DESC, fixture, turn, id
		LIMIT ? OFFSET ?`, append(args, perPage, offset)...)
	if err != nil {
		return nil, fmt.Errorf("store: query records: %w", err)
	}
	defer rows.Close()

	records := []RecordRow{}
	for rows.Next() {
		var (
			rec         RecordRow
			turn        int64
			severity    string
			explanation sql.NullString
		)
		err := rows.Scan(
			&rec.ID, &rec.SweepID, &rec.ResultID, &rec.Fixture, &turn, &rec.Path, &severity,
			&rec.Expected, &rec.Actual, &explanation,
		)
		if err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		rec.Turn = uint64(turn)
		if rec.Severity, err = diff.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("store: record %d: %w", rec.ID, err)
		}
		rec.Explanation = explanation.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate records: %w", err)
	}

	return &RecordsPage{
		Records:    records,
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// DeleteSweep removes a sweep and everything stored under it.
func (s *SQLiteDB) DeleteSweep(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sweeps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete sweep %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: sweep %s", ErrNotFound, id)
	}
	return nil
}

func paginate(page, perPage, def, total int) (int, int, int, int) {
	if perPage <= 0 {
		perPage = def
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (total + perPage - 1) / perPage
	return page, perPage, totalPages, (page - 1) * perPage
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
