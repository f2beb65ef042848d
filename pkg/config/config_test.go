package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 24*time.Hour, cfg.JobTTL())
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
}

func TestMissingFileIsFine(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "offers.json5"), env(nil))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
}

func TestFileLocalOverrideAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "offers.json5")

	require.NoError(t, os.WriteFile(file, []byte(`{
		// shared settings
		port: "8080",
		data_dir: "/var/lib/offers",
		workers: 4,
		scrape_schedule: "@daily",
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "offers.local.json5"), []byte(`{
		workers: 8,
		log_format: 'text',
	}`), 0644))

	cfg, err := load(file, env(map[string]string{
		"PORT":            "7070",
		"JOB_TTL_MINUTES": "not-a-number",
		"TRIGGER_RPS":     "0.5",
		"DEBUG_DIR":       "./debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port, "env beats file")
	assert.Equal(t, "/var/lib/offers", cfg.DataDir)
	assert.Equal(t, 8, cfg.Workers, "local file beats shared file")
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "@daily", cfg.ScrapeSchedule)
	assert.Equal(t, 1440, cfg.JobTTLMinutes, "invalid env keeps previous value")
	assert.Equal(t, 0.5, cfg.TriggerRPS)
	assert.Equal(t, "./debug", cfg.DebugDir)
	assert.Equal(t, "json", Defaults().LogFormat)
	assert.Equal(t, []string{file, filepath.Join(dir, "offers.local.json5")}, cfg.Sources)
}

func TestScheduleCanBeDisabled(t *testing.T) {
	for _, v := range []string{"", "off", "OFF"} {
		cfg, err := load("", env(map[string]string{"SCRAPE_SCHEDULE": v}))
		require.NoError(t, err)
		assert.Empty(t, cfg.ScrapeSchedule, v)
	}
}

func TestValidation(t *testing.T) {
	_, err := load("", env(map[string]string{"FETCH_MODE": "curl"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch_mode")

	_, err = load("", env(map[string]string{"PORT": " "}))
	assert.Error(t, err)

	_, err = load("", env(map[string]string{"NATS_URL": "nats://localhost:4222", "NATS_SUBJECT": ""}))
	assert.Error(t, err)
}

func TestBrokenFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "offers.json5")
	require.NoError(t, os.WriteFile(file, []byte(`{port: `), 0644))

	_, err := load(file, env(nil))
	assert.Error(t, err)
}
