package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Cache artifact names inside the cache directory.
const (
	SnapshotFileName  = "baac_all_years_full.gob.gz"
	SignatureFileName = "baac_all_years_full.sig"
)

// Paths contains the resolved application paths
type Paths struct {
	DataDir   string
	CacheDir  string
	ExportDir string
	LogsDir   string
}

// ResolvePaths makes every configured directory absolute against base. An
// empty base means the working directory.
func (c *Config) ResolvePaths(base string) (*Paths, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		DataDir:   abs(c.Paths.DataDir),
		CacheDir:  abs(c.Paths.CacheDir),
		ExportDir: abs(c.Paths.ExportDir),
		LogsDir:   abs(c.Paths.LogsDir),
	}, nil
}

// EnsureDirectories creates the writable directories. The data directory is
// input only and is left alone.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.CacheDir, p.ExportDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}
	return nil
}

// GetCachePath returns a file path inside the cache directory
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetExportPath returns a file path inside the export directory
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportDir, filename)
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("data", p.DataDir),
			slog.String("cache", p.CacheDir),
			slog.String("exports", p.ExportDir),
			slog.String("logs", p.LogsDir),
		))
}
