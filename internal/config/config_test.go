package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "nodeversion.db", cfg.Database)
	assert.Equal(t, "_nodeversion", cfg.ShadowSuffix)
	assert.Equal(t, 2000, cfg.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestMerge(t *testing.T) {
	base := Default()
	merged := base.Merge(Config{
		Database:  " other.db ",
		BatchSize: 10,
		Log:       LogConfig{Level: "DEBUG", Pretty: true},
	})

	assert.Equal(t, "other.db", merged.Database)
	assert.Equal(t, 10, merged.BatchSize)
	assert.Equal(t, "debug", merged.Log.Level)
	assert.True(t, merged.Log.Pretty)
	assert.Equal(t, base.ShadowSuffix, merged.ShadowSuffix, "zero fields keep base value")

	assert.Equal(t, base, base.Merge(Config{}))
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "nodeversion.yaml", `
database: data/app.db
schema: tables.yaml
batch_size: 500
log:
  level: warn
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Database:  "data/app.db",
		Schema:    "tables.yaml",
		BatchSize: 500,
		Log:       LogConfig{Level: "warn"},
	}, cfg)
}

func TestLoadFile_RejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "nodeversion.yaml", "database: a.db\nbatchsize: 3\n")
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batchsize")
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		EnvDatabase:  "env.db",
		EnvBatchSize: "64",
		EnvLogPretty: "true",
	}
	cfg, err := FromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.True(t, cfg.Log.Pretty)

	env[EnvBatchSize] = "many"
	_, err = FromEnv(func(k string) string { return env[k] })
	assert.ErrorContains(t, err, EnvBatchSize)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "nodeversion.yaml", "database: file.db\nbatch_size: 100\n")
	t.Setenv(EnvDatabase, "env.db")
	t.Setenv(EnvSchema, "")
	t.Setenv(EnvShadowSuffix, "")
	t.Setenv(EnvBatchSize, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogPretty, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database, "environment beats file")
	assert.Equal(t, 100, cfg.BatchSize, "file beats default")
}

func TestValidate(t *testing.T) {
	assert.ErrorContains(t, Config{BatchSize: 10}.Validate(), "database")
	assert.ErrorContains(t, Config{Database: "a.db"}.Validate(), "batch size")
	assert.NoError(t, Config{Database: "a.db", BatchSize: 1}.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	t.Setenv("NODEVERSION_DOTENV_TEST", "")
	os.Unsetenv("NODEVERSION_DOTENV_TEST")
	path := writeFile(t, ".env", "NODEVERSION_DOTENV_TEST=loaded\n")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("NODEVERSION_DOTENV_TEST"))
}
