package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Paths contains the resolved application directories.
type Paths struct {
	BaseDir    string
	DataDir    string
	LogsDir    string
	ExportsDir string
	SeedFile   string
}

// ResolvePaths anchors relative entries of pc at pc.BaseDir, or at the
// executable directory when BaseDir is empty.
func ResolvePaths(pc PathsConfig) (*Paths, error) {
	base := pc.BaseDir
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		if exe, err = filepath.EvalSymlinks(exe); err != nil {
			return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
		}
		base = filepath.Dir(exe)
	}

	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    anchor(pc.DataDir),
		LogsDir:    anchor(pc.LogsDir),
		ExportsDir: anchor(pc.ExportsDir),
		SeedFile:   anchor(pc.SeedFile),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir, p.ExportsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExportPath returns a dated file name inside ExportsDir, e.g.
// DPR_Report_2024-03-02.xlsx.
func (p *Paths) ExportPath(ext string, date time.Time) string {
	return filepath.Join(p.ExportsDir, fmt.Sprintf("DPR_Report_%s.%s", date.Format("2006-01-02"), ext))
}

// LogPathResolution logs the resolved directories.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("logs", p.LogsDir),
			slog.String("exports", p.ExportsDir),
		),
		slog.String("seed_file", p.SeedFile),
	)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
