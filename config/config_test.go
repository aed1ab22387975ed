package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should apply defaults without a .env file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, "fern", cfg.AppName)
		assert.Equal(t, "data/raw", cfg.RawDir)
		assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
		assert.False(t, cfg.DatabaseEnabled)
	})

	t.Run("should read overrides from the environment", func(t *testing.T) {
		t.Setenv("PETRINEX_MONTH", "2024-02")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, "2024-02", cfg.ProductionMonth(time.Now()))
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
	})

	t.Run("should read a .env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("FERN_TEST_ONLY_DIR=from-file\n"), 0o644))
		t.Cleanup(func() { os.Unsetenv("FERN_TEST_ONLY_DIR") })

		_, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", os.Getenv("FERN_TEST_ONLY_DIR"))
	})

	t.Run("should reject invalid values", func(t *testing.T) {
		t.Setenv("PETRINEX_MONTH", "March")

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})

	t.Run("should require a bucket when uploads are enabled", func(t *testing.T) {
		t.Setenv("GCS_ENABLED", "true")

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}

func TestProductionMonth(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "2023-12", cfg.ProductionMonth(time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-02", cfg.ProductionMonth(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}
