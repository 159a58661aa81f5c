package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/pavelanni/leadercheck/internal/catalog"
	appI18n "github.com/pavelanni/leadercheck/internal/i18n"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
	"github.com/pavelanni/leadercheck/internal/store"
)

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take an assessment in the terminal",
		RunE:  runTake,
	}
	f := cmd.Flags()
	f.String("name", "", "Participant name (required)")
	f.String("id", "", "Participant identifier (required)")
	f.String("kind", "pre", "Assessment kind (pre, post)")
	f.StringP("lang", "l", "en", "Language of the questions (en, ko)")
	addStoreFlags(cmd)
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// validateParticipant applies the same rules as the web login form.
func validateParticipant(name, id string) (model.Participant, error) {
	p := model.NewParticipant(name, id)
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(p); err != nil {
		return p, fmt.Errorf("invalid participant: %w", err)
	}
	return p, nil
}

func runTake(cmd *cobra.Command, _ []string) error {
	v, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kind, err := model.ParseKind(v.GetString("kind"))
	if err != nil {
		return err
	}
	p, err := validateParticipant(v.GetString("name"), v.GetString("id"))
	if err != nil {
		return err
	}
	name, id := p.Name, p.Identifier

	if err := appI18n.Init(cfg.Server.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLang(cmd.Context(), cfg.Server.Lang)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	user := model.User{Identifier: id, DisplayName: name}
	existing, err := st.FindUser(ctx, id)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	var pair scoring.Pair
	if existing != nil {
		user.IsPrivileged = existing.IsPrivileged
		user.CreatedAt = existing.CreatedAt
		as, err := st.ListAssessments(ctx, id)
		if err != nil {
			return fmt.Errorf("list assessments: %w", err)
		}
		pair = scoring.PairAssessments(as)
	}
	switch {
	case kind == model.KindPre && pair.Pre != nil, kind == model.KindPost && pair.Post != nil:
		return fmt.Errorf("%s: %w", kind, store.ErrAssessmentExists)
	case kind == model.KindPost && pair.Pre == nil:
		return errors.New(appI18n.T(ctx, "SurveyNeedsPre"))
	}

	cat := catalog.Default()
	rs, err := askResponses(ctx, cat, kind)
	if err != nil {
		return err
	}
	if err := cat.Validate(rs); err != nil {
		return err
	}

	if err := st.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	a := model.Assessment{Kind: kind, Responses: rs}
	if err := st.AppendAssessment(ctx, id, a); err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	slog.Info("assessment submitted", "identifier", id, "kind", kind)

	if kind == model.KindPre {
		pair.Pre = &a
	} else {
		pair.Post = &a
	}
	fmt.Println(renderComparison(ctx, user, comparePair(pair, cat)))
	return nil
}

// askResponses shows one form page per category with a Likert select per question.
func askResponses(ctx context.Context, cat *catalog.Catalog, kind model.Kind) (model.ResponseSet, error) {
	values := make(map[int]*int, cat.Len())
	options := make([]huh.Option[int], 0, model.MaxScore)
	for v := model.MinScore; v <= model.MaxScore; v++ {
		label := fmt.Sprintf("%d  %s", v, appI18n.T(ctx, fmt.Sprintf("Likert%d", v)))
		options = append(options, huh.NewOption(label, v))
	}

	title := appI18n.T(ctx, "PreAssessment")
	if kind == model.KindPost {
		title = appI18n.T(ctx, "PostAssessment")
	}

	var groups []*huh.Group
	for _, c := range model.Categories() {
		var fields []huh.Field
		for _, q := range cat.ByCategory(c) {
			v := new(int)
			values[q.ID] = v
			fields = append(fields, huh.NewSelect[int]().
				Title(fmt.Sprintf("%d. %s", q.ID, appI18n.T(ctx, fmt.Sprintf("Question%d", q.ID)))).
				Options(options...).
				Value(v))
		}
		group := huh.NewGroup(fields...).
			Title(fmt.Sprintf("%s - %s", title, appI18n.T(ctx, "Category"+c.String()))).
			Description(appI18n.T(ctx, "SurveyIntro"))
		groups = append(groups, group)
	}

	if err := huh.NewForm(groups...).RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("questionnaire: %w", err)
	}

	rs := make(model.ResponseSet, len(values))
	for id, v := range values {
		rs[id] = *v
	}
	return rs, nil
}
