package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  path: "+filepath.Join(t.TempDir(), "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 22, cfg.Attendance.RolloverHour)
	assert.Equal(t, "1103", cfg.Attendance.AdminPIN)
	assert.Equal(t, "Asia/Tokyo", cfg.Attendance.Timezone)
	assert.Equal(t, 30, cfg.Janitor.IntervalMinutes)
	assert.Equal(t, 24, cfg.Janitor.StaleAfterHours)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CREW_TEST_PIN", "4821")
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
attendance:
  admin_pin: "${CREW_TEST_PIN}"
  rollover_hour: 23
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "4821", cfg.Attendance.AdminPIN)
	assert.Equal(t, 23, cfg.Attendance.RolloverHour)
}

func TestLoad_RolloverDisabled(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
attendance:
  rollover_hour: -1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Attendance.RolloverHour)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	cfg.Attendance.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}
