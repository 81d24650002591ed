package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tada.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, cfg.RemovalDelay)
	assert.Equal(t, "classic", cfg.Theme)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.NoColor)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := writeConfig(t, "removal_delay: 1s\ntheme: neon\nlog_level: debug\n")
	t.Setenv("TADA_THEME", "mono")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Bool("no-color", false, "")
	require.NoError(t, flags.Parse([]string{"--log-level", "error"}))

	cfg, err := Load(dir, flags)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.RemovalDelay)
	assert.Equal(t, "mono", cfg.Theme, "env beats file")
	assert.Equal(t, "error", cfg.LogLevel, "flag beats file")
	assert.False(t, cfg.NoColor)
}

func TestLoadRejectsNonPositiveDelay(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := writeConfig(t, "removal_delay: 0s\n")

	_, err := Load(dir, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDelay))
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := writeConfig(t, "theme: [unterminated\n")

	_, err := Load(dir, nil)
	assert.Error(t, err)
}
