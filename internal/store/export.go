package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/leadercheck/internal/model"
)

// ListUsersWithAssessments returns every user with their assessments attached,
// newest account first. It runs two queries regardless of the number of users.
func (s *SQLite) ListUsersWithAssessments(ctx context.Context) ([]model.UserRecord, error) {
	users, err := s.listUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_identifier, kind, responses, taken_at FROM assessments ORDER BY taken_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	byUser := make(map[string][]model.Assessment)
	for rows.Next() {
		a, user, err := scanAssessment(rows, true)
		if err != nil {
			return nil, err
		}
		byUser[user] = append(byUser[user], a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attach(users, byUser), nil
}

// attach pairs users with their assessments, preserving user order.
func attach(users []model.User, byUser map[string][]model.Assessment) []model.UserRecord {
	records := make([]model.UserRecord, 0, len(users))
	for _, u := range users {
		records = append(records, model.UserRecord{User: u, Assessments: byUser[u.Identifier]})
	}
	return records
}
