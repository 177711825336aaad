package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var angeloEnvVars = []string{
	"ANGELO_LLM_PROVIDER",
	"ANGELO_LLM_API_KEY",
	"ANGELO_LLM_BASE_URL",
	"ANGELO_LLM_MODEL",
	"ANGELO_LLM_TIMEOUT_SECONDS",
	"ANGELO_LLM_RPS",
	"ANGELO_AGENT_MODE",
	"ANGELO_SPEECH_ENABLED",
	"ANGELO_SPEECH_API_KEY",
	"ANGELO_SPEECH_BASE_URL",
	"ANGELO_TURN_LATENCY",
	"ANGELO_SESSION_TTL",
	"ANGELO_TELEGRAM_BOT_TOKEN",
}

// clearEnv blanks every ANGELO_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range angeloEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "openai", p.LLMProvider)
	assert.Equal(t, "https://api.openai.com/v1", p.LLMBaseURL)
	assert.Equal(t, "gpt-4o-mini", p.LLMModel)
	assert.Equal(t, 30, p.LLMTimeout)
	assert.False(t, p.IsLLMEnabled())
	assert.False(t, p.IsSpeechEnabled())
	assert.False(t, p.AgentMode)
	assert.Equal(t, 5, p.AgentMaxIterations)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANGELO_LLM_PROVIDER", "deepseek")
	t.Setenv("ANGELO_LLM_API_KEY", "sk-test")
	t.Setenv("ANGELO_AGENT_MODE", "true")
	t.Setenv("ANGELO_TURN_LATENCY", "250")
	t.Setenv("ANGELO_SESSION_TTL", "2h")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "https://api.deepseek.com", p.LLMBaseURL)
	assert.Equal(t, "deepseek-chat", p.LLMModel)
	assert.True(t, p.IsLLMEnabled())
	assert.True(t, p.AgentMode)
	assert.Equal(t, 250*time.Millisecond, p.TurnLatency)
	assert.Equal(t, 2*time.Hour, p.SessionTTL)
	// Speech falls back to the LLM key only for the openai provider.
	assert.False(t, p.IsSpeechEnabled())
}

func TestFromEnv_SpeechReusesOpenAIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANGELO_LLM_API_KEY", "sk-openai")

	p := &Profile{}
	p.FromEnv()

	assert.True(t, p.IsSpeechEnabled())
	assert.Equal(t, "sk-openai", p.SpeechAPIKey)
}

func TestFromEnv_KeepsFlagValues(t *testing.T) {
	clearEnv(t)

	p := &Profile{TurnLatency: 600 * time.Millisecond, SessionCapacity: 42}
	p.FromEnv()

	assert.Equal(t, 600*time.Millisecond, p.TurnLatency)
	assert.Equal(t, 42, p.SessionCapacity)
}

func TestValidate(t *testing.T) {
	t.Run("normalizes mode and fills defaults", func(t *testing.T) {
		p := &Profile{Mode: "weird"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
		assert.Equal(t, "memory", p.Driver)
		assert.Equal(t, 1000, p.SessionCapacity)
		assert.Equal(t, 30*time.Minute, p.SessionTTL)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql"}
		assert.Error(t, p.Validate())
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres"}
		assert.Error(t, p.Validate())

		p.DSN = "postgres://angelo@localhost/angelo?sslmode=disable"
		require.NoError(t, p.Validate())
	})

	t.Run("sqlite builds dsn under data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}
		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(dir, "angelo_dev.db"), p.DSN)
	})

	t.Run("sqlite with missing data dir fails", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: filepath.Join(t.TempDir(), "missing")}
		assert.Error(t, p.Validate())
	})
}
