package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"TickerScope/internal/model"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets report readers query while a scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			mode        TEXT,
			source      TEXT,
			requested   INTEGER,
			scored      INTEGER,
			excluded    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_results (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL REFERENCES scan_runs(run_id) ON DELETE CASCADE,
			position       INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			price          REAL,
			score          INTEGER,
			trend          TEXT,
			ma20_slope     REAL,
			ma10_slope     REAL,
			macd           TEXT,
			kd             TEXT,
			estimated_pct  REAL,
			high_300d      REAL,
			low_300d       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON scan_results(run_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_results_symbol ON scan_results(symbol)`,

		`CREATE TABLE IF NOT EXISTS scan_exclusions (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL REFERENCES scan_runs(run_id) ON DELETE CASCADE,
			code    TEXT NOT NULL,
			symbol  TEXT,
			reason  TEXT NOT NULL,
			detail  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exclusions_run ON scan_exclusions(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run with its ranked results and exclusions in one transaction.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, rep *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO scan_runs
		(run_id, started_at, duration_ms, mode, source, requested, scored, excluded)
		VALUES (?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.StartedAt.Unix(), rep.Duration.Milliseconds(), rep.Mode, rep.Source,
		len(rep.Requested), len(rep.Results), len(rep.Excluded),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, res := range rep.Results {
		if _, err := tx.ExecContext(ctx, `INSERT INTO scan_results
			(run_id, position, symbol, price, score, trend, ma20_slope, ma10_slope, macd, kd,
			 estimated_pct, high_300d, low_300d)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			rep.RunID, i+1, res.ID, res.Price, res.Score, res.Trend,
			res.Technical.MA20Slope, res.Technical.MA10Slope, res.Technical.MACD, res.Technical.KD,
			res.Display.EstimatedMove, res.History.High, res.History.Low,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", res.ID, err)
		}
	}

	for _, ex := range rep.Excluded {
		if _, err := tx.ExecContext(ctx, `INSERT INTO scan_exclusions
			(run_id, code, symbol, reason, detail) VALUES (?,?,?,?,?)`,
			rep.RunID, ex.Code, ex.Symbol, ex.Reason, ex.Detail,
		); err != nil {
			return fmt.Errorf("insert exclusion %s: %w", ex.Code, err)
		}
	}
	return tx.Commit()
}

// RecentRuns lists the newest runs first with their top-ranked symbol.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
			r.run_id, r.started_at, r.duration_ms, r.mode, r.requested, r.scored, r.excluded,
			COALESCE(t.symbol, ''), COALESCE(t.score, 0)
		FROM scan_runs r
		LEFT JOIN scan_results t ON t.run_id = r.run_id AND t.position = 1
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var (
			s          model.RunSummary
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&s.RunID, &startedAt, &durationMs, &s.Mode,
			&s.Requested, &s.Scored, &s.Excluded, &s.TopSymbol, &s.TopScore); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt = time.Unix(startedAt, 0)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

// SymbolHistory returns a symbol's recorded scores, newest first.
func (r *SQLiteRecorder) SymbolHistory(ctx context.Context, symbol string, limit int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT s.score FROM scan_results s
		JOIN scan_runs r ON r.run_id = s.run_id
		WHERE s.symbol = ? ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
