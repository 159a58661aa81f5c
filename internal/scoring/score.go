// Package scoring turns Likert responses into Plan-Do-See category averages,
// compares PRE and POST results, and builds the administrator summary.
//
// All functions are pure and safe for concurrent use.
package scoring

import (
	"math"

	"github.com/pavelanni/leadercheck/internal/catalog"
	"github.com/pavelanni/leadercheck/internal/model"
)

// Rounding precisions. Single-user reports show two decimals, the admin
// summary, exports and feedback prompts show one.
const (
	DetailPrecision  = 2
	SummaryPrecision = 1
)

// CategoryScore is the average of the answered questions of one category.
type CategoryScore struct {
	Category model.Category
	Average  float64
	Answered int
}

// Defined reports whether at least one question of the category was answered.
// An undefined score has Average 0.
func (s CategoryScore) Defined() bool {
	return s.Answered > 0
}

// ScoreSet holds one CategoryScore per category, indexed by model.Category.
type ScoreSet [model.NumCategories]CategoryScore

// Get returns the score of category c.
func (s ScoreSet) Get(c model.Category) CategoryScore {
	return s[c]
}

// Round returns a copy with every average rounded to precision decimals.
func (s ScoreSet) Round(precision int) ScoreSet {
	out := s
	for i := range out {
		out[i].Average = Round(out[i].Average, precision)
	}
	return out
}

// Averages returns the averages keyed by category name.
func (s ScoreSet) Averages() map[string]float64 {
	m := make(map[string]float64, len(s))
	for _, cs := range s {
		m[cs.Category.String()] = cs.Average
	}
	return m
}

// Score computes per-category averages of rs.
//
// Each category average divides by the number of answers present for that
// category, not by the catalog size. Question IDs unknown to cat are skipped.
// A category without answers is left undefined (Average 0, Answered 0).
func Score(rs model.ResponseSet, cat *catalog.Catalog) ScoreSet {
	var totals [model.NumCategories]int
	var set ScoreSet
	for _, c := range model.Categories() {
		set[c].Category = c
	}
	for id, v := range rs {
		q, ok := cat.ByID(id)
		if !ok {
			continue
		}
		totals[q.Category] += v
		set[q.Category].Answered++
	}
	for _, c := range model.Categories() {
		if set[c].Answered > 0 {
			set[c].Average = float64(totals[c]) / float64(set[c].Answered)
		}
	}
	return set
}

// Round rounds v to precision decimal digits, halves away from zero.
func Round(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
