package scoring

import (
	"testing"

	"github.com/pavelanni/leadercheck/internal/model"
)

func setOf(plan, do, see float64) ScoreSet {
	return ScoreSet{
		{Category: model.CategoryPlan, Average: plan, Answered: 3},
		{Category: model.CategoryDo, Average: do, Answered: 3},
		{Category: model.CategorySee, Average: see, Answered: 3},
	}
}

func TestCompareWithoutPost(t *testing.T) {
	cmp := Compare(setOf(3, 4, 5), nil)
	if cmp.HasPost {
		t.Error("HasPost should be false")
	}
	for _, row := range cmp.Rows {
		if row.Delta != nil || row.Post != nil {
			t.Errorf("%s: expected absent post and delta", row.Category)
		}
		if row.Trend != TrendNone {
			t.Errorf("%s: trend = %s, want none", row.Category, row.Trend)
		}
		if row.SignedDelta() != "" {
			t.Errorf("%s: SignedDelta = %q, want empty", row.Category, row.SignedDelta())
		}
		if row.Current() != row.Pre {
			t.Errorf("%s: Current should fall back to Pre", row.Category)
		}
	}
}

func TestCompareIdentical(t *testing.T) {
	s := setOf(3.67, 2, 4.33)
	cmp := Compare(s, &s)
	for _, row := range cmp.Rows {
		if row.Delta == nil || *row.Delta != 0 {
			t.Fatalf("%s: expected zero delta, got %v", row.Category, row.Delta)
		}
		if row.Trend != TrendImproved {
			t.Errorf("%s: trend = %s, want improved", row.Category, row.Trend)
		}
	}
}

func TestCompareConcreteScenario(t *testing.T) {
	pre := setOf(3.0, 3.0, 3.0)
	post := setOf(4.0, 2.5, 3.0)
	cmp := Compare(pre, &post)

	tests := []struct {
		c      model.Category
		delta  float64
		trend  Trend
		signed string
	}{
		{model.CategoryPlan, 1.0, TrendImproved, "+1.00"},
		{model.CategoryDo, -0.5, TrendDeclined, "-0.50"},
		{model.CategorySee, 0.0, TrendImproved, "+0.00"},
	}
	for _, tt := range tests {
		row := cmp.Rows[tt.c]
		if row.Delta == nil || *row.Delta != tt.delta {
			t.Errorf("%s: delta = %v, want %v", tt.c, row.Delta, tt.delta)
		}
		if row.Trend != tt.trend {
			t.Errorf("%s: trend = %s, want %s", tt.c, row.Trend, tt.trend)
		}
		if got := row.SignedDelta(); got != tt.signed {
			t.Errorf("%s: SignedDelta = %q, want %q", tt.c, got, tt.signed)
		}
		if row.Current() != *row.Post {
			t.Errorf("%s: Current should be Post", tt.c)
		}
	}
}

func TestCompareRoundsBeforeDelta(t *testing.T) {
	// 11/3 and 10/3 round to 3.67 and 3.33; the delta must be exactly 0.34.
	pre := setOf(10.0/3, 3, 3)
	post := setOf(11.0/3, 3, 3)
	cmp := Compare(pre, &post)
	row := cmp.Rows[model.CategoryPlan]
	if row.Pre != 3.33 || *row.Post != 3.67 {
		t.Errorf("unexpected rounding pre=%v post=%v", row.Pre, *row.Post)
	}
	if *row.Delta != 0.34 {
		t.Errorf("delta = %v, want 0.34", *row.Delta)
	}
}

func TestFractions(t *testing.T) {
	pre := setOf(5, 2.5, 0)
	pf, postF := Compare(pre, nil).Fractions()
	if postF != nil {
		t.Error("expected nil post fractions")
	}
	want := [3]float64{1, 0.5, 0}
	if pf != want {
		t.Errorf("pre fractions = %v, want %v", pf, want)
	}

	post := setOf(1, 5, 2.5)
	_, postF = Compare(pre, &post).Fractions()
	if postF == nil || *postF != [3]float64{0.2, 1, 0.5} {
		t.Errorf("post fractions = %v", postF)
	}
}

func TestFeedbackInput(t *testing.T) {
	pre := setOf(11.0/3, 2, 13.0/3)
	in := FeedbackInput(pre, nil)
	if in.HasPost() {
		t.Error("HasPost should be false")
	}
	if in.Pre["Plan"] != "3.7" || in.Pre["Do"] != "2.0" || in.Pre["See"] != "4.3" {
		t.Errorf("unexpected pre formatting %v", in.Pre)
	}

	post := setOf(4, 4, 4)
	in = FeedbackInput(pre, &post)
	if !in.HasPost() || in.Post["Do"] != "4.0" {
		t.Errorf("unexpected post formatting %v", in.Post)
	}
}
