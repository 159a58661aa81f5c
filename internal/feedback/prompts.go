package feedback

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"slices"
	"sync"
	"text/template"

	"github.com/pavelanni/leadercheck/internal/scoring"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Mode selects the prompt shape.
type Mode string

const (
	// ModePre asks for a diagnosis of a single PRE result.
	ModePre Mode = "pre"
	// ModeCompare asks for an analysis of the change from PRE to POST.
	ModeCompare Mode = "compare"
)

var languages = []string{"en", "ko"}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

// CategoryValues holds one formatted average per category.
type CategoryValues struct {
	Plan string
	Do   string
	See  string
}

// PromptData is passed to the prompt templates.
type PromptData struct {
	Pre  CategoryValues
	Post CategoryValues
}

// HasLanguage reports whether prompts exist for lang.
func HasLanguage(lang string) bool {
	return slices.Contains(languages, lang)
}

func templateKey(lang string, mode Mode) string {
	return lang + "_" + string(mode)
}

func loadTemplates() error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		for _, lang := range languages {
			for _, mode := range []Mode{ModePre, ModeCompare} {
				key := templateKey(lang, mode)
				file := "templates/" + key + ".tmpl"
				tmpl, err := template.ParseFS(templateFS, file)
				if err != nil {
					loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
					return
				}
				templates[key] = tmpl
			}
		}
	})
	return loadErr
}

// BuildPrompt renders the prompt for lang. The mode follows from whether
// scores include POST values.
func BuildPrompt(lang string, scores scoring.FeedbackScores) (string, error) {
	if err := loadTemplates(); err != nil {
		return "", err
	}
	if scores.Pre == nil {
		return "", errors.New("missing PRE scores")
	}
	mode := ModePre
	if scores.HasPost() {
		mode = ModeCompare
	}
	tmpl, ok := templates[templateKey(lang, mode)]
	if !ok {
		return "", fmt.Errorf("no prompt for language %q", lang)
	}

	data := PromptData{Pre: values(scores.Pre)}
	if scores.HasPost() {
		data.Post = values(scores.Post)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func values(m map[string]string) CategoryValues {
	return CategoryValues{Plan: m["Plan"], Do: m["Do"], See: m["See"]}
}
