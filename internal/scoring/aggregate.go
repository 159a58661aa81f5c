package scoring

import (
	"fmt"
	"time"

	"github.com/pavelanni/leadercheck/internal/catalog"
	"github.com/pavelanni/leadercheck/internal/model"
)

// CompletionState is a user's progress through the PRE/POST pair.
type CompletionState int

const (
	StateNotStarted CompletionState = iota
	StateInProgress
	StateComplete
)

func (s CompletionState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	}
	return fmt.Sprintf("CompletionState(%d)", int(s))
}

// Pair holds a user's PRE and POST assessments; either may be nil.
type Pair struct {
	Pre  *model.Assessment
	Post *model.Assessment
}

// PairAssessments picks the earliest assessment of each kind.
func PairAssessments(as []model.Assessment) Pair {
	var p Pair
	for i := range as {
		a := &as[i]
		switch a.Kind {
		case model.KindPre:
			if p.Pre == nil || a.TakenAt.Before(p.Pre.TakenAt) {
				p.Pre = a
			}
		case model.KindPost:
			if p.Post == nil || a.TakenAt.Before(p.Post.TakenAt) {
				p.Post = a
			}
		}
	}
	return p
}

// AdminRow is one line of the administrator summary.
type AdminRow struct {
	Identifier  string
	DisplayName string
	PreTakenAt  *time.Time
	PostTakenAt *time.Time
	Pre         *ScoreSet
	Post        *ScoreSet
}

// State derives the completion state from which assessments are present.
// A POST without a PRE counts as not started.
func (r AdminRow) State() CompletionState {
	switch {
	case r.PreTakenAt != nil && r.PostTakenAt != nil:
		return StateComplete
	case r.PreTakenAt != nil:
		return StateInProgress
	}
	return StateNotStarted
}

// Summarize builds one row per user, in input order. Users missing from byUser
// get a row with both sides absent. Scores are rounded to SummaryPrecision.
func Summarize(users []model.User, byUser map[string]Pair, cat *catalog.Catalog) []AdminRow {
	rows := make([]AdminRow, 0, len(users))
	for _, u := range users {
		row := AdminRow{Identifier: u.Identifier, DisplayName: u.DisplayName}
		pair := byUser[u.Identifier]
		if pair.Pre != nil {
			t := pair.Pre.TakenAt
			s := Score(pair.Pre.Responses, cat).Round(SummaryPrecision)
			row.PreTakenAt, row.Pre = &t, &s
		}
		if pair.Post != nil {
			t := pair.Post.TakenAt
			s := Score(pair.Post.Responses, cat).Round(SummaryPrecision)
			row.PostTakenAt, row.Post = &t, &s
		}
		rows = append(rows, row)
	}
	return rows
}

// SummarizeRecords adapts the store's bulk read to Summarize.
func SummarizeRecords(records []model.UserRecord, cat *catalog.Catalog) []AdminRow {
	users := make([]model.User, 0, len(records))
	byUser := make(map[string]Pair, len(records))
	for _, r := range records {
		users = append(users, r.User)
		byUser[r.User.Identifier] = PairAssessments(r.Assessments)
	}
	return Summarize(users, byUser, cat)
}
