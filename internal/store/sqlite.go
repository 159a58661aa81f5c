package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/leadercheck/internal/model"

	_ "modernc.org/sqlite"
)

// SQLite is the default Store backed by a single database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at dbPath.
// ":memory:" gives a private in-memory database.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		identifier TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		is_privileged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		user_identifier TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('PRE', 'POST')),
		responses TEXT NOT NULL,
		taken_at DATETIME NOT NULL,
		FOREIGN KEY (user_identifier) REFERENCES users(identifier)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS assessments_user_kind
		ON assessments (user_identifier, kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ListAssessments returns the user's assessments, oldest first.
func (s *SQLite) ListAssessments(ctx context.Context, identifier string) ([]model.Assessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, responses, taken_at FROM assessments
		 WHERE user_identifier = ? ORDER BY taken_at, id`, identifier,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Assessment
	for rows.Next() {
		a, _, err := scanAssessment(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AppendAssessment stores a new assessment. It fails with ErrUserNotFound
// for an unknown user and ErrAssessmentExists for a repeated kind.
func (s *SQLite) AppendAssessment(ctx context.Context, identifier string, a model.Assessment) error {
	a, err := prepareAssessment(a)
	if err != nil {
		return err
	}
	data, err := encodeResponses(a.Responses)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var users int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE identifier = ?`, identifier,
	).Scan(&users); err != nil {
		return err
	}
	if users == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, identifier)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assessments WHERE user_identifier = ? AND kind = ?`, identifier, string(a.Kind),
	).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return fmt.Errorf("%w: %s %s", ErrAssessmentExists, identifier, a.Kind)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO assessments (id, user_identifier, kind, responses, taken_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, identifier, string(a.Kind), string(data), a.TakenAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", ErrAssessmentExists, identifier, a.Kind)
		}
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAssessment reads id, [user_identifier,] kind, responses, taken_at.
func scanAssessment(r rowScanner, withUser bool) (model.Assessment, string, error) {
	var (
		a       model.Assessment
		user    string
		kind    string
		data    string
		takenAt time.Time
		err     error
	)
	if withUser {
		err = r.Scan(&a.ID, &user, &kind, &data, &takenAt)
	} else {
		err = r.Scan(&a.ID, &kind, &data, &takenAt)
	}
	if err != nil {
		return a, "", err
	}
	a.Kind = model.Kind(kind)
	a.TakenAt = takenAt
	a.Responses, err = decodeResponses([]byte(data))
	if err != nil {
		return a, "", fmt.Errorf("assessment %s: %w", a.ID, err)
	}
	return a, user, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
