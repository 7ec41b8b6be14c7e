// Package sqlite persists processed cases in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
)

// caseStore implements store.CaseStore using SQLite.
type caseStore struct {
	db *sql.DB
}

// Open opens a SQLite case database with WAL mode enabled, creating the
// schema if needed.
func Open(ctx context.Context, path string) (store.CaseStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL gives concurrent readers during writes
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &caseStore{db: db}, nil
}

// Close closes the database connection.
func (s *caseStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS cases (
	case_id TEXT PRIMARY KEY,
	facts TEXT NOT NULL,
	rules_applied TEXT NOT NULL,
	actions_taken TEXT NOT NULL,
	outcome TEXT NOT NULL,
	feedback TEXT,
	similarity_features TEXT NOT NULL,
	stored_at TEXT NOT NULL,
	expert_validation INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cases_stored_at ON cases(stored_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Append stores a case, replacing any existing case with the same ID.
func (s *caseStore) Append(ctx context.Context, c store.Case) error {
	if c.ID == "" {
		return fmt.Errorf("case id empty: %w", internalerr.ErrInvalidInput)
	}

	facts, err := json.Marshal(c.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	rules, err := json.Marshal(c.RulesApplied)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	actions, err := json.Marshal(c.ActionsTaken)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	features, err := json.Marshal(c.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	const stmt = `
INSERT INTO cases (case_id, facts, rules_applied, actions_taken, outcome, feedback, similarity_features, stored_at, expert_validation)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(case_id) DO UPDATE SET
	facts=excluded.facts,
	rules_applied=excluded.rules_applied,
	actions_taken=excluded.actions_taken,
	outcome=excluded.outcome,
	similarity_features=excluded.similarity_features,
	stored_at=excluded.stored_at;
`
	_, err = s.db.ExecContext(ctx, stmt,
		c.ID, string(facts), string(rules), string(actions), c.Outcome,
		c.Feedback, string(features), c.StoredAt.UTC().Format(time.RFC3339Nano),
		boolToInt(c.ExpertValidation))
	return err
}

// Get returns a case by ID.
func (s *caseStore) Get(ctx context.Context, id string) (store.Case, bool, error) {
	const stmt = `
SELECT case_id, facts, rules_applied, actions_taken, outcome, feedback, similarity_features, stored_at, expert_validation
FROM cases WHERE case_id = ?;
`
	row := s.db.QueryRowContext(ctx, stmt, id)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return store.Case{}, false, nil
	}
	if err != nil {
		return store.Case{}, false, err
	}
	return c, true, nil
}

// All returns every stored case, most recent first.
func (s *caseStore) All(ctx context.Context) ([]store.Case, error) {
	const stmt = `
SELECT case_id, facts, rules_applied, actions_taken, outcome, feedback, similarity_features, stored_at, expert_validation
FROM cases ORDER BY stored_at DESC;
`
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateFeedback attaches reviewer feedback to an existing case.
func (s *caseStore) UpdateFeedback(ctx context.Context, id, feedback string, expertValidation bool) error {
	const stmt = `UPDATE cases SET feedback = ?, expert_validation = ? WHERE case_id = ?;`
	res, err := s.db.ExecContext(ctx, stmt, feedback, boolToInt(expertValidation), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("case %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// Count returns the number of stored cases.
func (s *caseStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases;`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (store.Case, error) {
	var (
		c            store.Case
		facts        string
		rules        string
		actions      string
		features     string
		feedback     sql.NullString
		storedAt     string
		expertValInt int
	)
	err := row.Scan(&c.ID, &facts, &rules, &actions, &c.Outcome, &feedback, &features, &storedAt, &expertValInt)
	if err != nil {
		return store.Case{}, err
	}

	if err := json.Unmarshal([]byte(facts), &c.Facts); err != nil {
		return store.Case{}, fmt.Errorf("unmarshal facts: %w", err)
	}
	if err := json.Unmarshal([]byte(rules), &c.RulesApplied); err != nil {
		return store.Case{}, fmt.Errorf("unmarshal rules: %w", err)
	}
	if err := json.Unmarshal([]byte(actions), &c.ActionsTaken); err != nil {
		return store.Case{}, fmt.Errorf("unmarshal actions: %w", err)
	}
	if err := json.Unmarshal([]byte(features), &c.Features); err != nil {
		return store.Case{}, fmt.Errorf("unmarshal features: %w", err)
	}

	c.Feedback = feedback.String
	c.ExpertValidation = expertValInt != 0
	if ts, err := time.Parse(time.RFC3339Nano, storedAt); err == nil {
		c.StoredAt = ts
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
