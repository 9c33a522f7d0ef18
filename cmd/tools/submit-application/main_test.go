package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loan-intake/internal/common/errors"
)

func parseForm(t *testing.T, args ...string) (*formFlags, *flag.FlagSet) {
	t.Helper()
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	form := registerFormFlags(fs)
	require.NoError(t, fs.Parse(args))
	return form, fs
}

func TestPreview_UsesConfiguredBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scoring:
  base_url: http://scoring.local:8000
validation:
  bounds:
    age_max: 65
`), 0o600))

	args := []string{
		"-age", "70", "-income", "50000", "-employment-length", "5",
		"-loan-amount", "10000", "-loan-intent", "personal",
	}

	tests := []struct {
		name    string
		config  []string
		valid   bool
		message string
	}{
		{name: "built-in bounds", valid: true},
		{name: "config bounds", config: []string{"-config", path}, valid: false, message: "Age must be at most 65."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, fs := parseForm(t, append(tt.config, args...)...)

			v, _, err := form.loadSettings()
			require.NoError(t, err)
			raw, err := form.input(fs)
			require.NoError(t, err)

			result, ok := preview(v, raw)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.valid, result["valid"])
			if !tt.valid {
				assert.Equal(t, apperrors.ErrCodeOutOfRange, result["code"])
				assert.Equal(t, tt.message, result["message"])
			}
		})
	}
}

func TestLoadSettings_ConfigSuppliesScoringURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  base_url: http://scoring.local:8000\n"), 0o600))

	form, _ := parseForm(t, "-config", path)
	_, cfg, err := form.loadSettings()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "http://scoring.local:8000", cfg.Scoring.BaseURL)
}

func TestLoadSettings_MissingConfigFile(t *testing.T) {
	form, _ := parseForm(t, "-config", filepath.Join(t.TempDir(), "missing.yaml"))
	_, _, err := form.loadSettings()
	assert.Error(t, err)
}
