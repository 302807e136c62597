package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager provides file management operations rooted at a base directory
type Manager struct {
	basePath string
	logger   *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(basePath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{basePath: basePath, logger: logger}
}

// Path resolves name against the base directory
func (m *Manager) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.basePath, name)
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// EnsureDirectory creates the base directory if it doesn't exist
func (m *Manager) EnsureDirectory() error {
	m.logger.Debug("Ensuring directory exists",
		slog.String("path", m.basePath))

	return os.MkdirAll(m.basePath, 0755)
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(m.Path(name))
}

// Open opens a file for reading
func (m *Manager) Open(name string) (*os.File, error) {
	return os.Open(m.Path(name))
}

// WriteFileAtomic writes through fn into a temp file in the same directory
// and renames it over name. Readers never observe a partial file.
func (m *Manager) WriteFileAtomic(name string, fn func(w io.Writer) error) error {
	fullPath := m.Path(name)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", fullPath, err)
	}

	m.logger.Debug("Wrote file",
		slog.String("path", fullPath))
	return nil
}

// WriteFile writes data atomically
func (m *Manager) WriteFile(name string, data []byte) error {
	return m.WriteFileAtomic(name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// DeleteFile deletes a file, ignoring a missing one
func (m *Manager) DeleteFile(name string) error {
	if err := os.Remove(m.Path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
