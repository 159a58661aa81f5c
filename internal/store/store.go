// Package store persists users and their PRE/POST assessments.
//
// Three interchangeable backends implement Store: SQLite (default), Postgres
// and Badger. Open picks one from configuration once at startup.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/leadercheck/internal/config"
	"github.com/pavelanni/leadercheck/internal/model"
)

var (
	// ErrNotConfigured means the selected backend is missing its settings.
	ErrNotConfigured = errors.New("store not configured")
	// ErrAssessmentExists is returned when a user already has an assessment of that kind.
	ErrAssessmentExists = errors.New("assessment already submitted")
	// ErrUserNotFound is returned when appending for an unknown user.
	ErrUserNotFound = errors.New("user not found")
)

// Store is the persistence contract used by the application.
//
// AppendAssessment never overwrites: a second assessment of the same kind
// for the same user fails with ErrAssessmentExists. Reads reflect earlier writes.
type Store interface {
	// FindUser returns nil, nil when no user has the identifier.
	FindUser(ctx context.Context, identifier string) (*model.User, error)
	UpsertUser(ctx context.Context, u model.User) error
	// ListAssessments returns the user's assessments ordered by TakenAt.
	ListAssessments(ctx context.Context, identifier string) ([]model.Assessment, error)
	AppendAssessment(ctx context.Context, identifier string, a model.Assessment) error
	// ListUsersWithAssessments returns every user, newest account first.
	ListUsersWithAssessments(ctx context.Context) ([]model.UserRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch backend := cfg.Resolve(); backend {
	case config.BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("%w: sqlite path is empty", ErrNotConfigured)
		}
		return NewSQLite(cfg.SQLitePath)
	case config.BackendPostgres:
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("%w: postgres URL is empty", ErrNotConfigured)
		}
		return NewPostgres(ctx, cfg.PostgresURL)
	case config.BackendBadger:
		if cfg.BadgerDir == "" {
			return nil, fmt.Errorf("%w: badger directory is empty", ErrNotConfigured)
		}
		return NewBadger(cfg.BadgerDir)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrNotConfigured, backend)
	}
}

// prepareAssessment fills in the ID and timestamp and checks the kind.
func prepareAssessment(a model.Assessment) (model.Assessment, error) {
	if !a.Kind.Valid() {
		return a, fmt.Errorf("invalid assessment kind %q", a.Kind)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.TakenAt.IsZero() {
		a.TakenAt = time.Now().UTC()
	}
	if a.Responses == nil {
		a.Responses = model.ResponseSet{}
	}
	return a, nil
}

func encodeResponses(rs model.ResponseSet) ([]byte, error) {
	data, err := json.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("marshal responses: %w", err)
	}
	return data, nil
}

func decodeResponses(data []byte) (model.ResponseSet, error) {
	rs := make(model.ResponseSet)
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("unmarshal responses: %w", err)
	}
	return rs, nil
}
