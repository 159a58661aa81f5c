package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pavelanni/leadercheck/internal/model"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Postgres stores users and assessments in PostgreSQL, responses as jsonb.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and creates the schema if needed.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	s := &Postgres{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables and indexes.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
	identifier text primary key,
	display_name text not null,
	is_privileged boolean not null default false,
	created_at timestamptz not null default now()
);

CREATE TABLE IF NOT EXISTS assessments (
	id text primary key,
	user_identifier text not null references users(identifier) on delete cascade,
	kind text not null check (kind in ('PRE', 'POST')),
	responses jsonb not null,
	taken_at timestamptz not null
);

CREATE UNIQUE INDEX IF NOT EXISTS assessments_user_kind_idx ON assessments(user_identifier, kind);
`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *Postgres) FindUser(ctx context.Context, identifier string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT identifier, display_name, is_privileged, created_at FROM users WHERE identifier=$1`, identifier).
		Scan(&u.Identifier, &u.DisplayName, &u.IsPrivileged, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (identifier, display_name, is_privileged, created_at)
VALUES ($1, $2, $3, COALESCE($4, now()))
ON CONFLICT (identifier) DO UPDATE SET display_name=EXCLUDED.display_name, is_privileged=EXCLUDED.is_privileged;`,
		u.Identifier, u.DisplayName, u.IsPrivileged, nullTime(u))
	return err
}

func (s *Postgres) ListAssessments(ctx context.Context, identifier string) ([]model.Assessment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, responses, taken_at FROM assessments WHERE user_identifier=$1 ORDER BY taken_at, id`, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Assessment
	for rows.Next() {
		var (
			a    model.Assessment
			kind string
			data []byte
		)
		if err := rows.Scan(&a.ID, &kind, &data, &a.TakenAt); err != nil {
			return nil, err
		}
		a.Kind = model.Kind(kind)
		if a.Responses, err = decodeResponses(data); err != nil {
			return nil, fmt.Errorf("assessment %s: %w", a.ID, err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (s *Postgres) AppendAssessment(ctx context.Context, identifier string, a model.Assessment) error {
	a, err := prepareAssessment(a)
	if err != nil {
		return err
	}
	data, err := encodeResponses(a.Responses)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE identifier=$1)`, identifier).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrUserNotFound, identifier)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO assessments (id, user_identifier, kind, responses, taken_at) VALUES ($1,$2,$3,$4,$5)`,
		a.ID, identifier, string(a.Kind), data, a.TakenAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s %s", ErrAssessmentExists, identifier, a.Kind)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) ListUsersWithAssessments(ctx context.Context) ([]model.UserRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT identifier, display_name, is_privileged, created_at FROM users ORDER BY created_at desc, identifier`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Identifier, &u.DisplayName, &u.IsPrivileged, &u.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT id, user_identifier, kind, responses, taken_at FROM assessments ORDER BY taken_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()
	byUser := make(map[string][]model.Assessment)
	for rows.Next() {
		var (
			a    model.Assessment
			user string
			kind string
			data []byte
		)
		if err := rows.Scan(&a.ID, &user, &kind, &data, &a.TakenAt); err != nil {
			return nil, err
		}
		a.Kind = model.Kind(kind)
		if a.Responses, err = decodeResponses(data); err != nil {
			return nil, fmt.Errorf("assessment %s: %w", a.ID, err)
		}
		byUser[user] = append(byUser[user], a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attach(users, byUser), nil
}

func nullTime(u model.User) any {
	if u.CreatedAt.IsZero() {
		return nil
	}
	return u.CreatedAt
}
