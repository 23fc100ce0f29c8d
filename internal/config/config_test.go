package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarbhavani/workflow-builder/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"DATABASE_URL":        "postgres://localhost/test",
		"RUNTIME_HOST":        "localhost:7233",
		"RUNTIME_NAMESPACE":   "default",
		"RUNTIME_TASK_QUEUE":  "workflows",
		"ACTION_SERVICE_URL":  "http://localhost:9000",
		"SECRET_KEY":          "shh",
		"LLM_API_KEY":         "sk-test",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_SucceedsWithAllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, 24, cfg.AccessTokenExpireHours, "default applies when unset")
}

func TestLoad_MissingRequiredVarsReportedTogether(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RUNTIME_HOST", "")

	_, err := config.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "RUNTIME_HOST")
}

func TestLoad_ParsesAccessTokenExpireHoursAndCORSOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRE_HOURS", "12")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 12, cfg.AccessTokenExpireHours)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoad_InvalidAccessTokenExpireHoursIsReportedAsMissing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRE_HOURS", "not-a-number")

	_, err := config.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_EXPIRE_HOURS")
}
