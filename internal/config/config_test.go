package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, 1000, cfg.MessageMaxChars)
	assert.Equal(t, []string{"openai", "sealion", "bedrock"}, cfg.AIProviderOrder)
	assert.False(t, cfg.EventsEnabled())
	assert.Equal(t, 45*time.Second, cfg.AICallTimeout)
}

func Test_Load_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("AI_PROVIDER_ORDER", "stub")
	t.Setenv("MESSAGE_MAX_CHARS", "250")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.True(t, cfg.EventsEnabled())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"stub"}, cfg.AIProviderOrder)
	assert.Equal(t, 250, cfg.MessageMaxChars)
}

func Test_Load_Errors(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func Test_Load_RejectsBadBudgets(t *testing.T) {
	t.Setenv("HISTORY_MAX_TOKENS", "0")
	_, err := Load()
	require.Error(t, err)
}

func Test_GetAIBackoffConfig(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := Load()
	require.NoError(t, err)
	maxElapsed, initial, _, mult := cfg.GetAIBackoffConfig()
	assert.Equal(t, 2*time.Second, maxElapsed)
	assert.Equal(t, 10*time.Millisecond, initial)
	assert.Equal(t, 2.0, mult)

	cfg.AppEnv = "prod"
	maxElapsed, _, _, _ = cfg.GetAIBackoffConfig()
	assert.Equal(t, cfg.AIBackoffMaxElapsedTime, maxElapsed)
}

func Test_LoadCatalog_Embedded(t *testing.T) {
	t.Parallel()
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Kickoff)
	for _, s := range domain.InterviewStages {
		sc, ok := c.Stage(s)
		require.True(t, ok, s)
		assert.NotEmpty(t, sc.Persona.Name)
		assert.NotEmpty(t, c.Voice(s), s)
	}
}

func Test_LoadCatalog_FileOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("kickoff: hi\nstages: {}\n"), 0o600))
	_, err := LoadCatalog(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, defaultCatalog, 0o600))
	c, err := LoadCatalog(good)
	require.NoError(t, err)
	assert.Equal(t, "Marcus Chen", c.Stages[domain.InterviewHiringManager].Persona.Name)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func Test_ParseCatalog_Malformed(t *testing.T) {
	t.Parallel()
	_, err := ParseCatalog([]byte("kickoff: [unclosed"))
	require.Error(t, err)
}

func Test_Load_StorageBackend(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UseMemoryStorage())

	t.Setenv("STORAGE_BACKEND", "memory")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.UseMemoryStorage())

	t.Setenv("STORAGE_BACKEND", "sqlite")
	_, err = Load()
	require.Error(t, err)
}
