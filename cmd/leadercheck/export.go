package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/leadercheck/internal/catalog"
	"github.com/pavelanni/leadercheck/internal/export"
	"github.com/pavelanni/leadercheck/internal/scoring"
	"github.com/pavelanni/leadercheck/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the participant summary as CSV, JSON or PDF",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.StringP("format", "f", "csv", "Output format (csv, json, pdf)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.Bool("bom", true, "Prefix CSV output with a UTF-8 byte order mark")
	f.String("pdf-font", "", "UTF-8 TrueType font for PDF output")
	addStoreFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	records, err := st.ListUsersWithAssessments(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	rows := scoring.SummarizeRecords(records, catalog.Default())

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	opts := export.Options{BOM: v.GetBool("bom"), FontPath: cfg.Export.PDFFont}
	if err := export.Write(w, format, rows, opts); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	slog.Info("exported summary", "format", format, "rows", len(rows), "output", outPath)
	return nil
}
