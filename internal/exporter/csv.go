package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"baaccli/internal/config"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter places export files under the export directory
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a writer. A nil paths keeps file paths as given.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// write creates the parent directory and the file, then hands it to fn.
func (w *CSVWriter) write(fullPath string, bom bool, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	if err := fn(file); err != nil {
		return err
	}
	return file.Close()
}

// resolvePath resolves relative paths against the export directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetExportPath(filePath)
}
