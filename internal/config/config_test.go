package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NUTRITION_DB_DRIVER", "")
	t.Setenv("GENERATION_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MAX_NUTRITION_RECORDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.NutritionDriver)
	assert.Equal(t, DefaultGenerationTimeout, cfg.GenerationTimeout)
	assert.Equal(t, DefaultMaxNutritionRecords, cfg.MaxNutritionRecords)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.ReportUnmatchedFoods)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GENERATION_TIMEOUT", "12")
	t.Setenv("MAX_POLICY_EXCERPTS", "2")
	t.Setenv("REPORT_UNMATCHED_FOODS", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:9999/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 12*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 2, cfg.MaxPolicyExcerpts)
	assert.True(t, cfg.ReportUnmatchedFoods)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "http://localhost:9999", cfg.GeminiBaseURL)
}

func TestLoad_PostgresNeedsURL(t *testing.T) {
	t.Setenv("NUTRITION_DB_DRIVER", "postgres")
	t.Setenv("NUTRITION_DB_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "NUTRITION_DB_URL")
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("NUTRITION_DB_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}

func TestDurationEnv(t *testing.T) {
	t.Setenv("X_TIMEOUT", "1m30s")
	assert.Equal(t, 90*time.Second, durationEnv("X_TIMEOUT", time.Second))

	t.Setenv("X_TIMEOUT", "garbage")
	assert.Equal(t, time.Second, durationEnv("X_TIMEOUT", time.Second))
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.TrustedProxies, 2)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
	assert.Equal(t, "127.0.0.1/32", cfg.TrustedProxies[1].String())

	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	_, err = Load()
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
}
