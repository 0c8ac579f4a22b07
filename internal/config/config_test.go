package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "extract: ilp\nilp_timeout_seconds: 30\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ExtractILP, cfg.Extract)
	assert.Equal(t, 30*time.Second, cfg.ILPTimeout())
	assert.Equal(t, "default", cfg.RuleSet)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadRejectsUnknownExtractMode(t *testing.T) {
	path := writeConfig(t, "extract: bogus\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown extract mode")
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	path := writeConfig(t, "ilp_timeout_seconds: 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ilp_timeout_seconds")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
