package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("GEMINI_API_KEY", "k")
	cfg := FromViper(NewViper())

	assert.Equal(t, ":8081", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "k", cfg.LLM.APIKey)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 45, cfg.Engine.QuotaCeiling)
	assert.Equal(t, 4, cfg.Engine.Rounds)
	assert.Equal(t, 2, cfg.Engine.FeedbackRounds)
	assert.Equal(t, 10, cfg.Credits.Initial)
	assert.Equal(t, 2, cfg.Credits.IdeaCost)
	assert.Equal(t, 1, cfg.Credits.FeedbackCost)
	assert.False(t, cfg.Artifact.CanUseS3())
}

func TestFromViperEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_TIMEOUT", "15")
	t.Setenv("QUOTA_CEILING", "0")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "s3.example.com")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "a")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "s")
	t.Setenv("ARTIFACT_S3_USE_SSL", "false")
	cfg := FromViper(NewViper())

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 0, cfg.Engine.QuotaCeiling)
	require.True(t, cfg.Artifact.CanUseS3())
	assert.False(t, cfg.Artifact.UseSSL)
	assert.Equal(t, "focalai-documents", cfg.Artifact.Bucket)
}

func TestLocalFallsBackToFakeModel(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("ARTIFACT_MINIO_ENDPOINT", "minio:9000")
	cfg := FromViper(NewViper())

	assert.Equal(t, "fake", cfg.LLM.Provider)
	assert.True(t, cfg.Artifact.CanUseS3())
	assert.Equal(t, "focalai", cfg.Artifact.AccessKey)
}
