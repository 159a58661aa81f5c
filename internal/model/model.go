package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Category is one of the three Plan-Do-See competency areas.
type Category uint8

const (
	// CategoryPlan covers goal setting and planning.
	CategoryPlan Category = iota
	// CategoryDo covers delegation and execution.
	CategoryDo
	// CategorySee covers review and reflection.
	CategorySee

	// NumCategories is the number of categories.
	NumCategories = 3
)

// Categories returns all categories in display order.
func Categories() [NumCategories]Category {
	return [NumCategories]Category{CategoryPlan, CategoryDo, CategorySee}
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	return c < NumCategories
}

func (c Category) String() string {
	switch c {
	case CategoryPlan:
		return "Plan"
	case CategoryDo:
		return "Do"
	case CategorySee:
		return "See"
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// ParseCategory converts "Plan", "Do" or "See" into a Category.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "Plan":
		return CategoryPlan, nil
	case "Do":
		return CategoryDo, nil
	case "See":
		return CategorySee, nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Likert scale bounds.
const (
	MinScore = 1
	MaxScore = 5
)

// Question is one item of the fixed questionnaire.
type Question struct {
	ID       int      `json:"id"`
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// ResponseSet maps question ID to a Likert score.
type ResponseSet map[int]int

// Kind tells whether an assessment was taken before or after the training.
type Kind string

const (
	KindPre  Kind = "PRE"
	KindPost Kind = "POST"
)

// Valid reports whether k is PRE or POST.
func (k Kind) Valid() bool {
	return k == KindPre || k == KindPost
}

// ParseKind accepts "pre"/"post" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRE":
		return KindPre, nil
	case "POST":
		return KindPost, nil
	}
	return "", fmt.Errorf("unknown assessment kind %q", s)
}

// Assessment is one submitted questionnaire. It is never edited after submission.
type Assessment struct {
	ID        string      `json:"id"`
	Kind      Kind        `json:"kind"`
	Responses ResponseSet `json:"responses"`
	TakenAt   time.Time   `json:"taken_at"`
}

// User is a participant. Identifier is the immutable business key.
type User struct {
	Identifier   string    `json:"identifier"`
	DisplayName  string    `json:"display_name"`
	IsPrivileged bool      `json:"is_privileged"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRecord pairs a user with all of their assessments.
type UserRecord struct {
	User        User
	Assessments []Assessment
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
