package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "baaccli/internal/errors"
)

func TestValidateDataDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, root string) string
		wantYears int
		wantType  apperrors.ErrorType
	}{
		{
			name: "year directories",
			setup: func(t *testing.T, root string) string {
				for _, d := range []string{"2019", "2021", "notes"} {
					require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755))
				}
				require.NoError(t, os.WriteFile(filepath.Join(root, "2020"), []byte("x"), 0644))
				return root
			},
			wantYears: 2,
		},
		{
			name:     "missing",
			setup:    func(t *testing.T, root string) string { return filepath.Join(root, "absent") },
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name: "file instead of directory",
			setup: func(t *testing.T, root string) string {
				p := filepath.Join(root, "raw")
				require.NoError(t, os.WriteFile(p, nil, 0644))
				return p
			},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "no years",
			setup:    func(t *testing.T, root string) string { return root },
			wantType: apperrors.ErrTypeValidation,
		},
	}

	v := NewDirectoryValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t, t.TempDir())
			years, err := v.ValidateDataDirectory(dir)
			if tt.wantType != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantYears, years)
		})
	}
}

func TestValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "nested")
	require.NoError(t, NewDirectoryValidator(nil).ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")
}

func TestValidateAll(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "raw", "2021"), 0755))

	v := NewDirectoryValidator(nil)
	assert.NoError(t, v.ValidateAll(filepath.Join(root, "raw"), filepath.Join(root, "cache"), ""))
	assert.DirExists(t, filepath.Join(root, "cache"))
	assert.Error(t, v.ValidateAll(filepath.Join(root, "missing")))
}
