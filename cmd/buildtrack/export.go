package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"buildtrack/internal/charts"
	"buildtrack/internal/config"
	"buildtrack/internal/financials"
	"buildtrack/internal/infrastructure"
	"buildtrack/internal/photos"
	"buildtrack/internal/services"
	"buildtrack/pkg/contracts/domain"
)

type exportCmd struct {
	input     string
	projects  string
	format    string
	out       string
	projectID string
	timeRange string
	logLevel  string
}

func newExportCmd() *cobra.Command {
	ec := &exportCmd{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build a spreadsheet, PDF or CSV export from a JSON snapshot",
		Long: `Reads a JSON snapshot of reports (and optionally projects, cost entries
and photos) and writes the export file. Spreadsheet charts are also written as
PNG files next to the output.`,
		RunE: ec.run,
	}

	cmd.Flags().StringVar(&ec.input, "input", "", "Path to the snapshot JSON file")
	cmd.Flags().StringVar(&ec.projects, "projects", "", "Path to a JSON array of projects merged into the snapshot")
	cmd.Flags().StringVar(&ec.format, "format", string(services.FormatXLSX), "Export format: xlsx, pdf or csv")
	cmd.Flags().StringVar(&ec.out, "out", "", "Output file (default is the generated file name in the current directory)")
	cmd.Flags().StringVar(&ec.projectID, "project-id", "", "Only export reports of this project")
	cmd.Flags().StringVar(&ec.timeRange, "range", string(financials.RangeAll), "Time range: all, 7d, 30d or 90d")
	cmd.Flags().StringVar(&ec.logLevel, "log-level", "warn", "Log level")

	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (ec *exportCmd) run(cmd *cobra.Command, _ []string) error {
	format, err := services.ParseFormat(ec.format)
	if err != nil {
		return err
	}
	rng, err := financials.ParseRange(ec.timeRange)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Logging.Level = ec.logLevel
	cfg.Logging.Format = "text"
	logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	ctx := infrastructure.EnsureTraceID(cmd.Context())

	snap, err := ec.loadSnapshot()
	if err != nil {
		return err
	}

	svc := services.NewExportService(nil,
		charts.NewNativeRenderer(cfg.Export.ChartScale),
		photos.NewHTTPFetcher(cfg.Storage.FetchTimeout, cfg.Storage.MaxPhotoBytes),
		nil, nil, cfg.Export, logger)

	art, err := svc.Build(ctx, services.ExportRequest{
		Format: format,
		Filter: financials.Filter{ProjectID: ec.projectID, Range: rng},
	}, snap)
	if err != nil {
		return fmt.Errorf("failed to build export: %w", err)
	}

	out := ec.out
	if out == "" {
		out = art.FileName
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, art.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	if format == services.FormatXLSX {
		base := strings.TrimSuffix(out, filepath.Ext(out))
		for _, img := range art.Charts {
			path := fmt.Sprintf("%s_%s.png", base, img.ID)
			if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
				return fmt.Errorf("failed to write chart %s: %w", img.ID, err)
			}
		}
	}

	logger.InfoContext(ctx, "export written",
		slog.String("file", out),
		slog.Int("rows", art.Rows),
		slog.Int("flagged", art.Flagged),
		slog.Int("charts_skipped", art.ChartsSkipped),
		slog.Int("photos_skipped", art.PhotosSkipped))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows, %d flagged)\n", out, art.Rows, art.Flagged)
	return nil
}

func (ec *exportCmd) loadSnapshot() (services.Snapshot, error) {
	var snap services.Snapshot
	if err := readJSON(ec.input, &snap); err != nil {
		return snap, err
	}
	if ec.projects != "" {
		var projects []domain.Project
		if err := readJSON(ec.projects, &projects); err != nil {
			return snap, err
		}
		snap.Projects = append(snap.Projects, projects...)
	}
	return snap, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
