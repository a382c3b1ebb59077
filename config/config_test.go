package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockroom_config.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	old := Path()
	SetPath(path)
	t.Cleanup(func() { SetPath(old) })
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	withConfigPath(t, "")

	got, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
	assert.Equal(t, got, GetConfig())
}

func TestLoadConfig_FillsDefaults(t *testing.T) {
	withConfigPath(t, `{"listenAddr": ":9090", "locale": "ja-JP"}`)

	got, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", got.ListenAddr)
	assert.Equal(t, "ja-JP", got.Locale)
	assert.Equal(t, DefaultItemsPerPage, got.ItemsPerPage)
	assert.Equal(t, DefaultDBDSN, got.DBDSN)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	withConfigPath(t, `{"dbDriver": "sqlite3"}`)
	t.Setenv("STOCKROOM_DB_DRIVER", "pgx")
	t.Setenv("STOCKROOM_DB_DSN", "postgres://localhost/stockroom")

	got, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "pgx", got.DBDriver)
	assert.Equal(t, "postgres://localhost/stockroom", got.DBDSN)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	withConfigPath(t, `{ invalid`)
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_PgxWithoutDSN(t *testing.T) {
	withConfigPath(t, `{"dbDriver": "pgx"}`)
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	bad := c
	bad.DBDriver = "mysql"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownDriver)

	bad = c
	bad.ItemsPerPage = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPageSize)

	bad = c
	bad.LogLevel = "loud"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownLogLevel)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := withConfigPath(t, "")

	c := Default()
	c.ItemsPerPage = 12
	c.Locale = "ja-JP"
	require.NoError(t, SaveConfig(c))
	assert.FileExists(t, path)
	assert.Equal(t, 12, GetConfig().ItemsPerPage)

	got, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	path := withConfigPath(t, "")

	c := Default()
	c.DBDriver = "oracle"
	assert.Error(t, SaveConfig(c))
	assert.NoFileExists(t, path)
}
