package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pavelanni/leadercheck/internal/config"
	appI18n "github.com/pavelanni/leadercheck/internal/i18n"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

var preOnly = scoring.FeedbackScores{
	Pre: map[string]string{"Plan": "3.7", "Do": "4.3", "See": "1.7"},
}

var withPost = scoring.FeedbackScores{
	Pre:  map[string]string{"Plan": "3.0", "Do": "3.0", "See": "3.0"},
	Post: map[string]string{"Plan": "4.0", "Do": "2.5", "See": "3.0"},
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name    string
		lang    string
		scores  scoring.FeedbackScores
		want    []string
		notWant []string
	}{
		{"en pre", "en", preOnly, []string{"Plan: 3.7", "Do: 4.3", "See: 1.7", "two points"}, []string{"After training"}},
		{"en compare", "en", withPost, []string{"Plan: 3.0, Do: 3.0", "Plan: 4.0, Do: 2.5, See: 3.0", "After training"}, nil},
		{"ko pre", "ko", preOnly, []string{"Plan (계획): 3.7점", "See (점검): 1.7점"}, []string{"사후 진단"}},
		{"ko compare", "ko", withPost, []string{"사후 진단", "Plan: 4.0, Do: 2.5"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPrompt(tt.lang, tt.scores)
			if err != nil {
				t.Fatalf("BuildPrompt: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("prompt should contain %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("prompt should not contain %q", w)
				}
			}
		})
	}
}

func TestBuildPromptErrors(t *testing.T) {
	if _, err := BuildPrompt("fr", preOnly); err == nil {
		t.Error("expected error for unknown language")
	}
	if _, err := BuildPrompt("en", scoring.FeedbackScores{}); err == nil {
		t.Error("expected error for missing PRE scores")
	}
}

func TestNewNotConfigured(t *testing.T) {
	_, err := New(config.LLMConfig{}, "en")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	text, err := Unavailable{}.Generate(context.Background(), preOnly)
	if !errors.Is(err, ErrUnavailable) || text != "" {
		t.Errorf("got %q, %v", text, err)
	}
}

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(context.Context, scoring.FeedbackScores) (string, error) {
	g.calls++
	return "ok", nil
}

func TestLimited(t *testing.T) {
	next := &countingGenerator{}
	l := NewLimited(next, 0.001, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.GenerateFor(ctx, "u1", preOnly); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := l.GenerateFor(ctx, "u1", preOnly); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if _, err := l.GenerateFor(ctx, "u2", preOnly); err != nil {
		t.Errorf("other user should not be limited: %v", err)
	}
	if next.calls != 3 {
		t.Errorf("expected 3 calls through, got %d", next.calls)
	}
}

func TestLimitedDisabled(t *testing.T) {
	l := NewLimited(&countingGenerator{}, 0, 0)
	for i := 0; i < 50; i++ {
		if !l.Allow("u") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
}

// promptLog records the prompts a fake endpoint received.
type promptLog struct {
	mu      sync.Mutex
	prompts []string
}

func (l *promptLog) add(p string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, p)
}

func (l *promptLog) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return ""
	}
	return l.prompts[len(l.prompts)-1]
}

func TestLimitedEvictsIdleKeys(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewLimited(&countingGenerator{}, 1, 1)
	l.now = func() time.Time { return clock }

	if !l.Allow("u1") {
		t.Fatal("first request should be allowed")
	}
	clock = clock.Add(500 * time.Millisecond)
	if l.Allow("u1") {
		t.Fatal("second request within the refill period should be limited")
	}

	clock = clock.Add(2 * time.Minute)
	if !l.Allow("u2") {
		t.Fatal("new key should be allowed")
	}
	if n := l.Len(); n != 1 {
		t.Errorf("tracked keys after sweep = %d, want 1", n)
	}
	if !l.Allow("u1") {
		t.Error("evicted key should start with a full bucket")
	}
	if n := l.Len(); n != 2 {
		t.Errorf("tracked keys = %d, want 2", n)
	}
}

func TestRefillTime(t *testing.T) {
	tests := []struct {
		name  string
		limit rate.Limit
		burst int
		want  time.Duration
	}{
		{"fast rate uses minimum", 10, 5, minIdle},
		{"slow rate", 0.25, 50, 200 * time.Second},
		{"very slow rate is capped", 0.000001, 1, maxIdle},
		{"unlimited", rate.Inf, 1, minIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := refillTime(tt.limit, tt.burst); got != tt.want {
				t.Errorf("refillTime(%v, %d) = %v, want %v", tt.limit, tt.burst, got, tt.want)
			}
		})
	}
}

func TestLimitedDisabledTracksNothing(t *testing.T) {
	l := NewLimited(&countingGenerator{}, 0, 0)
	for _, key := range []string{"a", "b", "c"} {
		l.Allow(key)
	}
	if n := l.Len(); n != 0 {
		t.Errorf("tracked keys = %d, want 0", n)
	}
}

func fakeEndpoint(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return recordingEndpoint(t, content, &promptLog{})
}

func recordingEndpoint(t *testing.T, content string, log *promptLog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var req struct {
				Model    string `json:"model"`
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "Plan") {
				http.Error(w, "unexpected prompt", http.StatusBadRequest)
				return
			}
			log.add(req.Messages[0].Content)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  req.Model,
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": content},
				}},
			})
		case strings.HasSuffix(r.URL.Path, "/models"):
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGenerate(t *testing.T) {
	srv := fakeEndpoint(t, "  Strong planning, keep reviewing.  ")
	c, err := New(config.LLMConfig{BaseURL: srv.URL + "/v1", APIKey: "test", Timeout: 5 * time.Second}, "en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Generate(context.Background(), withPost)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Strong planning, keep reviewing." {
		t.Errorf("unexpected text %q", got)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestClientEmptyResponse(t *testing.T) {
	srv := fakeEndpoint(t, "   ")
	c, err := New(config.LLMConfig{BaseURL: srv.URL + "/v1", APIKey: "test"}, "ko")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Generate(context.Background(), preOnly); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientPromptLanguage(t *testing.T) {
	log := &promptLog{}
	srv := recordingEndpoint(t, "ok", log)
	c, err := New(config.LLMConfig{BaseURL: srv.URL + "/v1", APIKey: "test"}, "en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"no language falls back to default", context.Background(), "expert leadership coach"},
		{"korean request", appI18n.WithLang(context.Background(), "ko"), "리더십 전문 코치"},
		{"english request", appI18n.WithLang(context.Background(), "en"), "expert leadership coach"},
		{"unsupported language falls back", appI18n.WithLang(context.Background(), "fr"), "expert leadership coach"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Generate(tt.ctx, preOnly); err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got := log.last(); !strings.Contains(got, tt.want) {
				t.Errorf("prompt %q does not contain %q", got, tt.want)
			}
		})
	}
}
