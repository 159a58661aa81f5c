package scoring

import (
	"fmt"

	"github.com/pavelanni/leadercheck/internal/model"
)

// AxisMax is the outer value of the radar chart axis.
const AxisMax = 5.0

// Trend classifies the change of one category between PRE and POST.
type Trend int

const (
	// TrendNone means there is no POST result to compare with.
	TrendNone Trend = iota
	// TrendImproved covers both improvement and no change (delta >= 0).
	TrendImproved
	// TrendDeclined means delta < 0.
	TrendDeclined
)

func (t Trend) String() string {
	switch t {
	case TrendNone:
		return "none"
	case TrendImproved:
		return "improved"
	case TrendDeclined:
		return "declined"
	}
	return fmt.Sprintf("Trend(%d)", int(t))
}

// CategoryComparison is one category row of a report.
type CategoryComparison struct {
	Category model.Category
	Pre      float64
	Post     *float64
	Delta    *float64
	Trend    Trend
}

// SignedDelta formats the delta with an explicit sign, e.g. "+1.00" or "-0.50".
// It returns "" when there is no POST result.
func (c CategoryComparison) SignedDelta() string {
	if c.Delta == nil {
		return ""
	}
	return fmt.Sprintf("%+.*f", DetailPrecision, *c.Delta)
}

// Current is the most recent value: POST when present, PRE otherwise.
func (c CategoryComparison) Current() float64 {
	if c.Post != nil {
		return *c.Post
	}
	return c.Pre
}

// Comparison is the single-user report consumed by the dashboard and the chart.
type Comparison struct {
	Rows    [model.NumCategories]CategoryComparison
	HasPost bool
}

// Compare builds the report for one user. post may be nil.
// Values and deltas are rounded to DetailPrecision.
func Compare(pre ScoreSet, post *ScoreSet) Comparison {
	var out Comparison
	pre = pre.Round(DetailPrecision)
	var rounded ScoreSet
	if post != nil {
		rounded = post.Round(DetailPrecision)
		out.HasPost = true
	}
	for _, c := range model.Categories() {
		row := CategoryComparison{Category: c, Pre: pre[c].Average, Trend: TrendNone}
		if post != nil {
			p := rounded[c].Average
			d := Round(p-row.Pre, DetailPrecision)
			if d == 0 {
				d = 0 // drop negative zero
			}
			row.Post = &p
			row.Delta = &d
			if d >= 0 {
				row.Trend = TrendImproved
			} else {
				row.Trend = TrendDeclined
			}
		}
		out.Rows[c] = row
	}
	return out
}

// Fractions scales the PRE and POST values onto [0,1] of the radar axis.
// post is nil when there is no POST result.
func (c Comparison) Fractions() (pre [model.NumCategories]float64, post *[model.NumCategories]float64) {
	var p [model.NumCategories]float64
	for i, row := range c.Rows {
		pre[i] = clampUnit(row.Pre / AxisMax)
		if row.Post != nil {
			p[i] = clampUnit(*row.Post / AxisMax)
		}
	}
	if c.HasPost {
		post = &p
	}
	return pre, post
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FeedbackScores is what the feedback generator receives: category averages
// formatted to one decimal digit.
type FeedbackScores struct {
	Pre  map[string]string
	Post map[string]string
}

// HasPost reports whether POST scores are included.
func (f FeedbackScores) HasPost() bool {
	return f.Post != nil
}

// FeedbackInput formats pre and post (which may be nil) for the feedback generator.
func FeedbackInput(pre ScoreSet, post *ScoreSet) FeedbackScores {
	out := FeedbackScores{Pre: formatSet(pre)}
	if post != nil {
		out.Post = formatSet(*post)
	}
	return out
}

func formatSet(s ScoreSet) map[string]string {
	m := make(map[string]string, len(s))
	for _, cs := range s {
		m[cs.Category.String()] = fmt.Sprintf("%.*f", SummaryPrecision, Round(cs.Average, SummaryPrecision))
	}
	return m
}
