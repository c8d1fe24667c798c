package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/srs"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Storage.Driver)
	assert.Equal(t, "flashdeck.db", cfg.Storage.Path)
	assert.Equal(t, "flashdeck.json", cfg.Storage.File)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 30, cfg.SRS.HistoryLimit)
	assert.Equal(t, "repos", cfg.Sources.ReposDir)
	assert.Equal(t, srs.DefaultParams(), cfg.SRS.Params())
	assert.Equal(t, time.Local, cfg.Location())
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	yamlContent := `
storage:
  driver: sqlite
  path: from-file.db
log:
  level: debug
srs:
  intervals: [0, 2, 4, 8]
  due_soon_days: 2
sources:
  paths:
    - ./words
    - https://github.com/example/vocab.git
timezone: Europe/Berlin
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))
	t.Setenv("FLASHDECK_LOG__FORMAT", "json")
	t.Setenv("FLASHDECK_STORAGE__PATH", "from-env.db")

	cfg, err := Load(newFlags(t, "--config", path, "--storage.path", "from-flag.db"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "from-flag.db", cfg.Storage.Path, "flags win over env and file")
	assert.Equal(t, "json", cfg.Log.Format, "env wins over defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []int{0, 2, 4, 8}, cfg.SRS.Intervals)
	assert.Equal(t, 2, cfg.SRS.DueSoonDays)
	assert.Equal(t, 7, cfg.SRS.LongOverdueDays)
	assert.Equal(t, []string{"./words", "https://github.com/example/vocab.git"}, cfg.Sources.Paths)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load(newFlags(t, "--config", "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{name: "unknown driver", yaml: "storage:\n  driver: indexeddb\n"},
		{name: "bad log level", yaml: "log:\n  level: loud\n"},
		{name: "decreasing schedule", yaml: "srs:\n  intervals: [0, 7, 3]\n"},
		{name: "zero penalty step", yaml: "srs:\n  penalty_step_days: 0\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := chdirTemp(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, defaultFile), []byte(tc.yaml), 0o644))

			_, err := Load(newFlags(t))
			assert.Error(t, err)
		})
	}
}

func TestLocationFallsBack(t *testing.T) {
	cfg := Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.Local, cfg.Location())
}
