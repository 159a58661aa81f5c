package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/pavelanni/leadercheck/internal/config"
	"github.com/pavelanni/leadercheck/internal/model"
)

// backends returns a fresh instance of every backend available in this run.
// Postgres runs only when LEADERCHECK_TEST_POSTGRES_URL points at a scratch database.
func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	m := map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLite(":memory:")
			if err != nil {
				t.Fatalf("NewSQLite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
		"badger": func(t *testing.T) Store {
			s, err := NewBadger(":memory:")
			if err != nil {
				t.Fatalf("NewBadger: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
	if url := os.Getenv("LEADERCHECK_TEST_POSTGRES_URL"); url != "" {
		m["postgres"] = func(t *testing.T) Store {
			ctx := context.Background()
			s, err := NewPostgres(ctx, url)
			if err != nil {
				t.Fatalf("NewPostgres: %v", err)
			}
			if _, err := s.pool.Exec(ctx, `TRUNCATE assessments, users`); err != nil {
				t.Fatalf("truncate: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}
	}
	return m
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func fullSet(score int) model.ResponseSet {
	rs := model.ResponseSet{}
	for id := 1; id <= 9; id++ {
		rs[id] = score
	}
	return rs
}

func TestUserRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		u, err := s.FindUser(ctx, "1001")
		if err != nil {
			t.Fatalf("FindUser: %v", err)
		}
		if u != nil {
			t.Fatalf("expected nil user, got %+v", u)
		}

		created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
		if err := s.UpsertUser(ctx, model.User{Identifier: "1001", DisplayName: "Kim", CreatedAt: created}); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if err := s.UpsertUser(ctx, model.User{Identifier: "1001", DisplayName: "Kim Minji", IsPrivileged: true}); err != nil {
			t.Fatalf("UpsertUser update: %v", err)
		}

		u, err = s.FindUser(ctx, "1001")
		if err != nil {
			t.Fatalf("FindUser: %v", err)
		}
		if u == nil {
			t.Fatal("expected user")
		}
		if u.DisplayName != "Kim Minji" || !u.IsPrivileged {
			t.Errorf("update not applied: %+v", u)
		}
		if !u.CreatedAt.Equal(created) {
			t.Errorf("created_at changed: %v", u.CreatedAt)
		}
	})
}

func TestAppendAssessment(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.UpsertUser(ctx, model.User{Identifier: "42", DisplayName: "Lee"}); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}

		t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		if err := s.AppendAssessment(ctx, "42", model.Assessment{Kind: model.KindPost, Responses: fullSet(4), TakenAt: t0.Add(time.Hour)}); err != nil {
			t.Fatalf("append post: %v", err)
		}
		if err := s.AppendAssessment(ctx, "42", model.Assessment{Kind: model.KindPre, Responses: fullSet(3), TakenAt: t0}); err != nil {
			t.Fatalf("append pre: %v", err)
		}

		as, err := s.ListAssessments(ctx, "42")
		if err != nil {
			t.Fatalf("ListAssessments: %v", err)
		}
		if len(as) != 2 {
			t.Fatalf("expected 2 assessments, got %d", len(as))
		}
		if as[0].Kind != model.KindPre || as[1].Kind != model.KindPost {
			t.Errorf("expected oldest first, got %s, %s", as[0].Kind, as[1].Kind)
		}
		if as[0].ID == "" {
			t.Error("expected generated ID")
		}
		if as[0].Responses[5] != 3 || len(as[0].Responses) != 9 {
			t.Errorf("responses not preserved: %v", as[0].Responses)
		}
		if !as[0].TakenAt.Equal(t0) {
			t.Errorf("taken_at = %v, want %v", as[0].TakenAt, t0)
		}
	})
}

func TestAssessmentsIsolatedByIdentifier(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, id := range []string{"1", "1/x", "1%2Fx"} {
			if err := s.UpsertUser(ctx, model.User{Identifier: id, DisplayName: "User " + id}); err != nil {
				t.Fatalf("UpsertUser(%q): %v", id, err)
			}
		}
		a := model.Assessment{Kind: model.KindPre, Responses: fullSet(2), TakenAt: time.Now().UTC()}
		if err := s.AppendAssessment(ctx, "1/x", a); err != nil {
			t.Fatalf("append for 1/x: %v", err)
		}

		tests := []struct {
			id   string
			want int
		}{
			{"1", 0},
			{"1/x", 1},
			{"1%2Fx", 0},
		}
		for _, tt := range tests {
			as, err := s.ListAssessments(ctx, tt.id)
			if err != nil {
				t.Fatalf("ListAssessments(%q): %v", tt.id, err)
			}
			if len(as) != tt.want {
				t.Errorf("ListAssessments(%q) = %d assessments, want %d", tt.id, len(as), tt.want)
			}
		}

		u, err := s.FindUser(ctx, "1/x")
		if err != nil || u == nil || u.DisplayName != "User 1/x" {
			t.Errorf("FindUser(1/x) = %+v, %v", u, err)
		}
	})
}

func TestAppendAssessmentErrors(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		err := s.AppendAssessment(ctx, "nobody", model.Assessment{Kind: model.KindPre, Responses: fullSet(3)})
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}

		if err := s.UpsertUser(ctx, model.User{Identifier: "7", DisplayName: "Park"}); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if err := s.AppendAssessment(ctx, "7", model.Assessment{Kind: model.KindPre, Responses: fullSet(2)}); err != nil {
			t.Fatalf("first append: %v", err)
		}
		err = s.AppendAssessment(ctx, "7", model.Assessment{Kind: model.KindPre, Responses: fullSet(5)})
		if !errors.Is(err, ErrAssessmentExists) {
			t.Errorf("expected ErrAssessmentExists, got %v", err)
		}

		err = s.AppendAssessment(ctx, "7", model.Assessment{Kind: "MID", Responses: fullSet(5)})
		if err == nil {
			t.Error("expected error for invalid kind")
		}

		as, err := s.ListAssessments(ctx, "7")
		if err != nil {
			t.Fatalf("ListAssessments: %v", err)
		}
		if len(as) != 1 || as[0].Responses[1] != 2 {
			t.Errorf("first assessment must be kept, got %+v", as)
		}
	})
}

func TestListUsersWithAssessments(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		records, err := s.ListUsersWithAssessments(ctx)
		if err != nil {
			t.Fatalf("ListUsersWithAssessments: %v", err)
		}
		if len(records) != 0 {
			t.Fatalf("expected no records, got %d", len(records))
		}

		base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
		users := []model.User{
			{Identifier: "1", DisplayName: "Oldest", CreatedAt: base},
			{Identifier: "2", DisplayName: "Newest", CreatedAt: base.Add(48 * time.Hour)},
			{Identifier: "3", DisplayName: "Middle", CreatedAt: base.Add(24 * time.Hour)},
		}
		for _, u := range users {
			if err := s.UpsertUser(ctx, u); err != nil {
				t.Fatalf("UpsertUser %s: %v", u.Identifier, err)
			}
		}
		if err := s.AppendAssessment(ctx, "3", model.Assessment{Kind: model.KindPre, Responses: fullSet(1)}); err != nil {
			t.Fatalf("append: %v", err)
		}

		records, err = s.ListUsersWithAssessments(ctx)
		if err != nil {
			t.Fatalf("ListUsersWithAssessments: %v", err)
		}
		var order []string
		for _, r := range records {
			order = append(order, r.User.Identifier)
		}
		if len(order) != 3 || order[0] != "2" || order[1] != "3" || order[2] != "1" {
			t.Fatalf("expected newest first [2 3 1], got %v", order)
		}
		if len(records[1].Assessments) != 1 || records[1].Assessments[0].Kind != model.KindPre {
			t.Errorf("expected one PRE for user 3, got %+v", records[1].Assessments)
		}
		if len(records[0].Assessments) != 0 {
			t.Errorf("expected no assessments for user 2, got %d", len(records[0].Assessments))
		}
	})
}

func TestPing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr error
	}{
		{"sqlite without path", config.StoreConfig{Backend: config.BackendSQLite}, ErrNotConfigured},
		{"postgres without url", config.StoreConfig{Backend: config.BackendPostgres}, ErrNotConfigured},
		{"badger without dir", config.StoreConfig{Backend: config.BackendBadger}, ErrNotConfigured},
		{"unknown backend", config.StoreConfig{Backend: "mongo"}, ErrNotConfigured},
		{"sqlite memory", config.StoreConfig{SQLitePath: ":memory:"}, nil},
		{"badger dir", config.StoreConfig{Backend: config.BackendBadger, BadgerDir: t.TempDir()}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			s.Close()
		})
	}
}
