// Package catalog holds the fixed Plan-Do-See questionnaire.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pavelanni/leadercheck/internal/model"
)

// QuestionsPerCategory is the number of questions each category must have.
const QuestionsPerCategory = 3

var (
	ErrInvalidCatalog  = errors.New("invalid catalog")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrScoreOutOfRange = errors.New("score out of range")
	ErrIncomplete      = errors.New("incomplete response set")
)

// Catalog is an immutable set of questions. It is safe for concurrent use.
type Catalog struct {
	questions []model.Question
	byID      map[int]model.Question
}

var defaultQuestions = []model.Question{
	{ID: 1, Category: model.CategoryPlan, Text: "I can explain my team's goals and priorities with clear criteria and reasons."},
	{ID: 2, Category: model.CategoryPlan, Text: "When setting team goals, I consider both the organization's direction and my members' actual workload."},
	{ID: 3, Category: model.CategoryPlan, Text: "I plan not only for short-term results but also for how the team can grow over the mid to long term."},
	{ID: 4, Category: model.CategoryDo, Text: "When assigning work, I explain why it is needed and what result is expected."},
	{ID: 5, Category: model.CategoryDo, Text: "I distribute work according to each member's abilities and situation, and provide the support they need."},
	{ID: 6, Category: model.CategoryDo, Text: "When things do not go as planned, I look for solutions together instead of assigning blame."},
	{ID: 7, Category: model.CategorySee, Text: "I review not only the results but also the difficulties and improvement points along the way."},
	{ID: 8, Category: model.CategorySee, Text: "When giving feedback, I try to focus on growth rather than judgement."},
	{ID: 9, Category: model.CategorySee, Text: "I use the team's results and problems to reflect on and adjust my own leadership style."},
}

var std = mustNew(defaultQuestions)

// Default returns the standard nine-question catalog.
func Default() *Catalog {
	return std
}

func mustNew(questions []model.Question) *Catalog {
	c, err := New(questions)
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a catalog. Every question needs a unique ID and a valid category,
// and each category must have exactly QuestionsPerCategory questions.
func New(questions []model.Question) (*Catalog, error) {
	c := &Catalog{
		questions: make([]model.Question, 0, len(questions)),
		byID:      make(map[int]model.Question, len(questions)),
	}
	var perCategory [model.NumCategories]int
	for _, q := range questions {
		if !q.Category.Valid() {
			return nil, fmt.Errorf("%w: question %d has invalid category %d", ErrInvalidCatalog, q.ID, q.Category)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %d", ErrInvalidCatalog, q.ID)
		}
		c.byID[q.ID] = q
		c.questions = append(c.questions, q)
		perCategory[q.Category]++
	}
	for _, cat := range model.Categories() {
		if perCategory[cat] != QuestionsPerCategory {
			return nil, fmt.Errorf("%w: category %s has %d questions, want %d",
				ErrInvalidCatalog, cat, perCategory[cat], QuestionsPerCategory)
		}
	}
	sort.Slice(c.questions, func(i, j int) bool { return c.questions[i].ID < c.questions[j].ID })
	return c, nil
}

// ByID looks up a question.
func (c *Catalog) ByID(id int) (model.Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Questions returns a copy of all questions ordered by ID.
func (c *Catalog) Questions() []model.Question {
	out := make([]model.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// ByCategory returns the questions of one category ordered by ID.
func (c *Catalog) ByCategory(cat model.Category) []model.Question {
	var out []model.Question
	for _, q := range c.questions {
		if q.Category == cat {
			out = append(out, q)
		}
	}
	return out
}

// Len returns the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Validate checks that rs answers every question exactly with an in-range score
// and references no unknown question. The scoring engine itself tolerates all
// of these; callers that persist responses use Validate first.
func (c *Catalog) Validate(rs model.ResponseSet) error {
	var errs []error

	ids := make([]int, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownQuestion, id))
			continue
		}
		if v := rs[id]; v < model.MinScore || v > model.MaxScore {
			errs = append(errs, fmt.Errorf("%w: question %d has %d", ErrScoreOutOfRange, id, v))
		}
	}

	var missing []int
	for _, q := range c.questions {
		if _, ok := rs[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: missing questions %v", ErrIncomplete, missing))
	}

	return errors.Join(errs...)
}
