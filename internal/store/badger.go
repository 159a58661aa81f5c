package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pavelanni/leadercheck/internal/model"
)

const (
	userPrefix       = "user/"
	assessmentPrefix = "assessment/"
)

// Badger is an embedded key-value Store. Users live under user/<identifier>
// and assessments under assessment/<identifier>/<kind>, both as JSON, with
// the identifier path-escaped.
type Badger struct {
	db *badger.DB
}

// NewBadger opens a database in dir. ":memory:" keeps everything in memory.
func NewBadger(dir string) (*Badger, error) {
	var opts badger.Options
	if dir == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

func (s *Badger) Close() error {
	return s.db.Close()
}

func (s *Badger) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return ctx.Err()
}

// keySegment escapes identifier so it is always a single key segment;
// "1/x" must never fall under the prefix of "1".
func keySegment(identifier string) string {
	return url.PathEscape(identifier)
}

func userKey(identifier string) []byte {
	return []byte(userPrefix + keySegment(identifier))
}

func assessmentUserPrefix(identifier string) []byte {
	return []byte(assessmentPrefix + keySegment(identifier) + "/")
}

func assessmentKey(identifier string, kind model.Kind) []byte {
	return append(assessmentUserPrefix(identifier), string(kind)...)
}

func (s *Badger) FindUser(_ context.Context, identifier string) (*model.User, error) {
	var u *model.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(identifier))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			u = new(model.User)
			return json.Unmarshal(val, u)
		})
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Badger) UpsertUser(_ context.Context, u model.User) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := userKey(u.Identifier)
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var prev model.User
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
				return err
			}
			u.CreatedAt = prev.CreatedAt
		case errors.Is(err, badger.ErrKeyNotFound):
			if u.CreatedAt.IsZero() {
				u.CreatedAt = time.Now().UTC()
			}
		default:
			return err
		}
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set(key, data)
	})
}

func (s *Badger) ListAssessments(_ context.Context, identifier string) ([]model.Assessment, error) {
	var out []model.Assessment
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = scanAssessments(txn, identifier)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Badger) AppendAssessment(_ context.Context, identifier string, a model.Assessment) error {
	a, err := prepareAssessment(a)
	if err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(identifier)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, identifier)
		} else if err != nil {
			return err
		}
		key := assessmentKey(identifier, a.Kind)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %s %s", ErrAssessmentExists, identifier, a.Kind)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *Badger) ListUsersWithAssessments(_ context.Context) ([]model.UserRecord, error) {
	var records []model.UserRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var users []model.User
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(userPrefix)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			var u model.User
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &u) }); err != nil {
				it.Close()
				return fmt.Errorf("decode user %s: %w", it.Item().Key(), err)
			}
			users = append(users, u)
		}
		it.Close()

		sort.SliceStable(users, func(i, j int) bool {
			if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
				return users[i].CreatedAt.After(users[j].CreatedAt)
			}
			return users[i].Identifier < users[j].Identifier
		})

		byUser := make(map[string][]model.Assessment, len(users))
		for _, u := range users {
			as, err := scanAssessments(txn, u.Identifier)
			if err != nil {
				return err
			}
			byUser[u.Identifier] = as
		}
		records = attach(users, byUser)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// scanAssessments reads one user's assessments ordered by TakenAt.
func scanAssessments(txn *badger.Txn, identifier string) ([]model.Assessment, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = assessmentUserPrefix(identifier)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []model.Assessment
	for it.Rewind(); it.Valid(); it.Next() {
		var a model.Assessment
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &a) }); err != nil {
			return nil, fmt.Errorf("decode assessment %s: %w", it.Item().Key(), err)
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}
