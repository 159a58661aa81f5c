package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pavelanni/leadercheck/internal/model"
)

// UpsertUser inserts a user or updates the display name and privilege of an
// existing one. CreatedAt is kept from the first insert.
func (s *SQLite) UpsertUser(ctx context.Context, u model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (identifier, display_name, is_privileged, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(identifier) DO UPDATE SET display_name = excluded.display_name, is_privileged = excluded.is_privileged`,
		u.Identifier, u.DisplayName, u.IsPrivileged, u.CreatedAt.UTC(),
	)
	if err != nil {
		slog.Error("failed to upsert user", "identifier", u.Identifier, "error", err)
		return err
	}
	slog.Debug("upserted user", "identifier", u.Identifier, "privileged", u.IsPrivileged)
	return nil
}

// FindUser returns a user by identifier, or nil if there is none.
func (s *SQLite) FindUser(ctx context.Context, identifier string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT identifier, display_name, is_privileged, created_at
		 FROM users WHERE identifier = ?`, identifier,
	).Scan(&u.Identifier, &u.DisplayName, &u.IsPrivileged, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLite) listUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, display_name, is_privileged, created_at
		 FROM users ORDER BY created_at DESC, identifier`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Identifier, &u.DisplayName, &u.IsPrivileged, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
