package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	apperrors "baaccli/internal/errors"
)

var yearDirPattern = regexp.MustCompile(`^\d{4}$`)

// DirectoryValidator checks the working directories before a run starts.
type DirectoryValidator struct {
	logger *slog.Logger
}

// NewDirectoryValidator creates a validator
func NewDirectoryValidator(logger *slog.Logger) *DirectoryValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryValidator{logger: logger}
}

// ValidateDataDirectory checks that dir exists and holds at least one
// four-digit year directory. It returns the number of year directories.
func (v *DirectoryValidator) ValidateDataDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("data directory %s does not exist", dir))
	}
	if err != nil {
		return 0, apperrors.NewStorageError("stat data directory", err)
	}
	if !info.IsDir() {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, apperrors.NewStorageError("read data directory", err)
	}
	years := 0
	for _, e := range entries {
		if e.IsDir() && yearDirPattern.MatchString(e.Name()) {
			years++
		}
	}
	if years == 0 {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("no year directories found in %s", dir))
	}

	v.logger.Debug("data directory validated",
		slog.String("directory", dir),
		slog.Int("year_directories", years))
	return years, nil
}

// ValidateOutputDirectory creates dir when missing and checks it is writable.
func (v *DirectoryValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("create output directory", err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// ValidateAll runs ValidateDataDirectory on dataDir and
// ValidateOutputDirectory on every non-empty output directory.
func (v *DirectoryValidator) ValidateAll(dataDir string, outputs ...string) error {
	if _, err := v.ValidateDataDirectory(dataDir); err != nil {
		return err
	}
	for _, dir := range outputs {
		if dir == "" {
			continue
		}
		if err := v.ValidateOutputDirectory(filepath.Clean(dir)); err != nil {
			return err
		}
	}
	return nil
}
