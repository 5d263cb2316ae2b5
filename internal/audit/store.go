// Package audit persists completed review runs so flagged measures can be
// re-examined later. Storage is SQLite with write-through semantics.
package audit

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"fairreview/internal/review"
)

var ErrNotFound = errors.New("audit record not found")

// Record is one archived run.
type Record struct {
	ID             string    `db:"record_id" json:"record_id"`
	CreatedAt      time.Time `db:"-" json:"created_at"`
	RiskTier       string    `db:"risk_tier" json:"risk_tier"`
	TotalIssues    int       `db:"total_issues" json:"total_issues"`
	Confidence     float64   `db:"confidence" json:"confidence"`
	Degraded       bool      `db:"-" json:"degraded"`
	ReportMarkdown string    `db:"report_markdown" json:"report_markdown"`
	ResultJSON     string    `db:"result_json" json:"result_json"`
}

const schema = `
CREATE TABLE IF NOT EXISTS review_runs (
	record_id       TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	risk_tier       TEXT NOT NULL DEFAULT 'none',
	total_issues    INTEGER NOT NULL DEFAULT 0,
	confidence      REAL NOT NULL DEFAULT 0,
	degraded        INTEGER NOT NULL DEFAULT 0,
	report_markdown TEXT NOT NULL DEFAULT '',
	result_json     TEXT NOT NULL DEFAULT '{}'
);
`

type Store struct {
	db *sqlx.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save archives one run and returns the stored record.
func (s *Store) Save(result review.RunResult, reportMarkdown string) (Record, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return Record{}, fmt.Errorf("marshal result: %w", err)
	}
	rec := Record{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		RiskTier:       string(result.Analysis.RiskTier),
		TotalIssues:    result.Analysis.TotalIssues,
		Confidence:     result.Analysis.Confidence,
		Degraded:       result.Metadata.Degraded,
		ReportMarkdown: reportMarkdown,
		ResultJSON:     string(resultJSON),
	}
	_, err = s.db.Exec(`INSERT INTO review_runs (record_id, created_at, risk_tier, total_issues, confidence, degraded, report_markdown, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.RiskTier,
		rec.TotalIssues,
		rec.Confidence,
		boolToInt(rec.Degraded),
		rec.ReportMarkdown,
		rec.ResultJSON,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

func (s *Store) Get(id string) (Record, error) {
	row := s.db.QueryRow(`SELECT record_id, created_at, risk_tier, total_issues, confidence, degraded, report_markdown, result_json
		FROM review_runs WHERE record_id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT record_id, created_at, risk_tier, total_issues, confidence, degraded, report_markdown, result_json
		FROM review_runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (Record, error) {
	var rec Record
	var createdAt string
	var degraded int
	if err := r.Scan(&rec.ID, &createdAt, &rec.RiskTier, &rec.TotalIssues, &rec.Confidence, &degraded, &rec.ReportMarkdown, &rec.ResultJSON); err != nil {
		return Record{}, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.Degraded = degraded != 0
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
