package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GIGACHAT_AUTH_KEY", "c2VjcmV0")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("ARK_API_KEY", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("PORT", "")
	t.Setenv("HISTORY_WINDOW", "")
	t.Setenv("STORE_RETENTION", "")
}

func TestLoadDefaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gigachat", cfg.Dialog.DefaultModel)
	assert.Equal(t, "neutral", cfg.Dialog.DefaultPersona)
	assert.Equal(t, 10, cfg.Dialog.WindowSize)
	assert.Equal(t, "neyra.db", cfg.Store.Path)
	assert.Equal(t, 0, cfg.Store.Retention)
	assert.Equal(t, 10, cfg.RateLimit.GlobalPerSecond)
	assert.Equal(t, 60, cfg.RateLimit.UserPerMinute)
	assert.True(t, cfg.GigaChat.Enabled())
	assert.False(t, cfg.DeepSeek.Enabled())
}

func TestLoadNoBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("GIGACHAT_AUTH_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backend configured")
}

func TestDefaultModelRequiresCredentials(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("DEFAULT_MODEL", "deepseek")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEEPSEEK_API_KEY")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("GIGACHAT_AUTH_KEY", "")
	t.Setenv("DEFAULT_MODEL", "bogus")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, 2, strings.Count(err.Error(), "\n  - "),
		"both problems should be reported at once")
}

func TestInvalidPort(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("PORT", "80 80")

	_, err := Load()
	assert.Error(t, err)
}

func TestPortForms(t *testing.T) {
	setMinimalEnv(t)

	t.Setenv("PORT", "9000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)

	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestWindowValidation(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("HISTORY_WINDOW", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestRetentionValidation(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("STORE_RETENTION", "-1")

	_, err := Load()
	assert.Error(t, err)
}
