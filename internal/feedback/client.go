package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/leadercheck/internal/config"
	appI18n "github.com/pavelanni/leadercheck/internal/i18n"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

const defaultModel = openai.GPT4oMini

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	lang    string
	timeout time.Duration
}

// New creates a client for cfg. lang ("en" or "ko") is used when the
// request context carries no supported language.
func New(cfg config.LLMConfig, lang string) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if err := loadTemplates(); err != nil {
		return nil, err
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}
	return &Client{
		api:     openai.NewClientWithConfig(c),
		model:   modelName,
		lang:    lang,
		timeout: cfg.Timeout,
	}, nil
}

// Generate asks the model for a coaching narrative in the language of ctx.
// An empty answer is reported as ErrUnavailable.
func (c *Client) Generate(ctx context.Context, scores scoring.FeedbackScores) (string, error) {
	prompt, err := BuildPrompt(c.promptLang(ctx), scores)
	if err != nil {
		return "", err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: LLM returned no choices", ErrUnavailable)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM response", "chars", len(text), "model", c.model)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return text, nil
}

func (c *Client) promptLang(ctx context.Context) string {
	if lang, ok := appI18n.LangFromContext(ctx); ok && HasLanguage(lang) {
		return lang
	}
	return c.lang
}

// Ping checks that the endpoint answers by listing models.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
