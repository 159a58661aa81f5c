package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pavelanni/leadercheck/internal/catalog"
	"github.com/pavelanni/leadercheck/internal/handler/views"
	appI18n "github.com/pavelanni/leadercheck/internal/i18n"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
	"github.com/pavelanni/leadercheck/internal/store"
)

var (
	colorAccent   = lipgloss.Color("#20B9B4")
	colorImproved = lipgloss.Color("#2E8B57")
	colorDeclined = lipgloss.Color("#E74C3C")
	colorMuted    = lipgloss.Color("#6C7A89")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print one participant's comparison, or every participant without --id",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("id", "", "Participant identifier; empty prints the summary of all participants")
	f.StringP("lang", "l", "en", "Report language (en, ko)")
	addStoreFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	v, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := appI18n.Init(cfg.Server.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLang(cmd.Context(), cfg.Server.Lang)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cat := catalog.Default()
	id := strings.TrimSpace(v.GetString("id"))
	if id == "" {
		records, err := st.ListUsersWithAssessments(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		fmt.Println(renderSummary(ctx, scoring.SummarizeRecords(records, cat)))
		return nil
	}

	user, err := st.FindUser(ctx, id)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%s: %w", id, store.ErrUserNotFound)
	}
	as, err := st.ListAssessments(ctx, id)
	if err != nil {
		return fmt.Errorf("list assessments: %w", err)
	}
	pair := scoring.PairAssessments(as)
	if pair.Pre == nil {
		fmt.Println(mutedStyle.Render(appI18n.T(ctx, "NoResults")))
		return nil
	}
	fmt.Println(renderComparison(ctx, *user, comparePair(pair, cat)))
	return nil
}

// comparePair scores a pair that has at least a PRE assessment.
func comparePair(p scoring.Pair, cat *catalog.Catalog) scoring.Comparison {
	pre := scoring.Score(p.Pre.Responses, cat)
	var post *scoring.ScoreSet
	if p.Post != nil {
		s := scoring.Score(p.Post.Responses, cat)
		post = &s
	}
	return scoring.Compare(pre, post)
}

func renderComparison(ctx context.Context, user model.User, cmp scoring.Comparison) string {
	headers := []string{"", appI18n.T(ctx, "Before")}
	if cmp.HasPost {
		headers = append(headers, appI18n.T(ctx, "After"), appI18n.T(ctx, "Change"))
	}

	rows := make([][]string, 0, len(cmp.Rows))
	for _, r := range cmp.Rows {
		row := []string{
			appI18n.T(ctx, "Category"+r.Category.String()),
			fmt.Sprintf("%.*f", scoring.DetailPrecision, r.Pre),
		}
		if cmp.HasPost {
			row = append(row, fmt.Sprintf("%.*f", scoring.DetailPrecision, r.Current()), r.SignedDelta())
		}
		rows = append(rows, row)
	}

	changeCol := len(headers) - 1
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorAccent)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if cmp.HasPost && col == changeCol && row >= 0 && row < len(cmp.Rows) {
				switch cmp.Rows[row].Trend {
				case scoring.TrendImproved:
					return cellStyle.Foreground(colorImproved)
				case scoring.TrendDeclined:
					return cellStyle.Foreground(colorDeclined)
				}
			}
			return cellStyle
		})

	title := appI18n.T(ctx, "ResultTitle")
	if cmp.HasPost {
		title = appI18n.T(ctx, "CompareTitle")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s (%s)", title, user.DisplayName, user.Identifier)))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(appI18n.T(ctx, "ResultScale")))
	return b.String()
}

func renderSummary(ctx context.Context, rows []scoring.AdminRow) string {
	date := func(r *scoring.AdminRow, post bool) string {
		t := r.PreTakenAt
		if post {
			t = r.PostTakenAt
		}
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	}

	data := make([][]string, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		data = append(data, []string{
			fmt.Sprintf("%s (%s)", r.DisplayName, r.Identifier),
			date(r, false),
			views.Triple(r.Pre),
			date(r, true),
			views.Triple(r.Post),
			appI18n.T(ctx, views.StateMessage(r.State())),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(
			appI18n.T(ctx, "ColName"),
			appI18n.T(ctx, "ColPreDate"),
			appI18n.T(ctx, "ColPreScores"),
			appI18n.T(ctx, "ColPostDate"),
			appI18n.T(ctx, "ColPostScores"),
			appI18n.T(ctx, "ColState"),
		).
		Rows(data...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var b strings.Builder
	b.WriteString(titleStyle.Render(appI18n.T(ctx, "AdminTitle")))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(appI18n.Tp(ctx, "ParticipantsCount", len(rows))))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(appI18n.T(ctx, "NoData"))
		return b.String()
	}
	b.WriteString(t.String())
	return b.String()
}
