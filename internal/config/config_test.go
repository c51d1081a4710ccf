package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 350, c.ExpectedTreatments)
	assert.Equal(t, []string{"csv"}, c.OutputFormats)
	assert.Equal(t, "public", c.PGSchema)
	assert.Equal(t, 3, c.RetryMaxAttempts)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".trialclean", "runs"), c.RunsDir)
}

func TestSaveThenLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	c.ExpectedTreatments = 280
	c.OutDir = "/tmp/out"
	require.NoError(t, Save(c, path))

	t.Setenv("TRIALCLEAN_LOG_LEVEL", "debug")
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 280, got.ExpectedTreatments)
	assert.Equal(t, "/tmp/out", got.OutDir)
	assert.Equal(t, "debug", got.LogLevel)
}

func TestGetSet(t *testing.T) {
	c := &Global{}
	require.NoError(t, c.Set("output_formats", "CSV, parquet"))
	assert.Equal(t, []string{"csv", "parquet"}, c.OutputFormats)
	require.NoError(t, c.Set("expected_treatments", "280"))
	require.NoError(t, c.Set("log_format", "JSON"))

	v, err := c.Get("expected_treatments")
	require.NoError(t, err)
	assert.Equal(t, "280", v)
	v, err = c.Get("output_formats")
	require.NoError(t, err)
	assert.Equal(t, "csv,parquet", v)
	assert.Equal(t, "json", c.LogFormat)

	assert.Error(t, c.Set("retry_max_attempts", "0"))
	assert.Error(t, c.Set("log_level", "loud"))
	assert.Error(t, c.Set("api_key", "x"))
	_, err = c.Get("api_key")
	assert.Error(t, err)

	for _, k := range Keys {
		_, err := c.Get(k)
		assert.NoError(t, err, k)
	}
}
