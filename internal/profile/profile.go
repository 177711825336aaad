package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is configuration to start the assistant server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol, plus gemini).
	// An empty API key disables the tool bridge; the rule router still answers.
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string // may point at a same-origin proxy
	LLMModel    string
	LLMTimeout  int     // seconds
	LLMRPS      float64 // outbound LLM requests per second, 0 = unlimited
	LLMBurst    int

	// Agent mode runs a bounded multi-step tool loop instead of a single call.
	AgentMode          bool
	AgentMaxIterations int

	// Speech I/O (OpenAI-compatible audio endpoints, same key as LLM unless overridden).
	SpeechEnabled bool
	SpeechAPIKey  string
	SpeechBaseURL string
	STTModel      string
	TTSModel      string
	TTSVoice      string

	TelegramBotToken string

	// FamilyFile is a YAML family directory; empty means the built-in demo family.
	FamilyFile string

	// Conversation timing.
	TurnLatency     time.Duration
	NavigationDelay time.Duration

	// Session manager.
	SessionCapacity int
	SessionTTL      time.Duration

	Mode     string
	Addr     string
	Port     int
	Data     string
	Driver   string
	DSN      string
	Version  string
	LogLevel string
}

// Provider default configurations for LLM.
// Used when ANGELO_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "openai/gpt-4o-mini",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
	"gemini": {
		BaseURL: "",
		Model:   "gemini-2.5-flash",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if an LLM API key is configured.
// Ollama runs locally and needs no key.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// IsSpeechEnabled returns true if speech is switched on and a key is available.
func (p *Profile) IsSpeechEnabled() bool {
	return p.SpeechEnabled && p.SpeechAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvOrDefaultDuration accepts Go durations ("600ms") or bare milliseconds ("600").
func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Values already set (e.g. from flags) are kept for the timing and session fields.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("ANGELO_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("ANGELO_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("ANGELO_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("ANGELO_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("ANGELO_LLM_TIMEOUT_SECONDS", 30)
	p.LLMRPS = getEnvOrDefaultFloat("ANGELO_LLM_RPS", 2)
	p.LLMBurst = getEnvOrDefaultInt("ANGELO_LLM_BURST", 4)

	p.AgentMode = getEnvOrDefaultBool("ANGELO_AGENT_MODE", false)
	p.AgentMaxIterations = getEnvOrDefaultInt("ANGELO_AGENT_MAX_ITERATIONS", 5)

	// Validate and apply provider defaults if not explicitly set
	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("Unknown LLM provider, treating as generic OpenAI-compatible", "provider", p.LLMProvider)
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.SpeechEnabled = getEnvOrDefaultBool("ANGELO_SPEECH_ENABLED", true)
	p.SpeechAPIKey = getEnvOrDefault("ANGELO_SPEECH_API_KEY", "")
	p.SpeechBaseURL = getEnvOrDefault("ANGELO_SPEECH_BASE_URL", "")
	if p.SpeechAPIKey == "" && p.LLMProvider == "openai" {
		p.SpeechAPIKey = p.LLMAPIKey
		if p.SpeechBaseURL == "" {
			p.SpeechBaseURL = p.LLMBaseURL
		}
	}
	p.STTModel = getEnvOrDefault("ANGELO_STT_MODEL", "whisper-1")
	p.TTSModel = getEnvOrDefault("ANGELO_TTS_MODEL", "tts-1")
	p.TTSVoice = getEnvOrDefault("ANGELO_TTS_VOICE", "nova")

	p.TelegramBotToken = getEnvOrDefault("ANGELO_TELEGRAM_BOT_TOKEN", p.TelegramBotToken)
	p.FamilyFile = getEnvOrDefault("ANGELO_FAMILY_FILE", p.FamilyFile)

	p.TurnLatency = getEnvOrDefaultDuration("ANGELO_TURN_LATENCY", p.TurnLatency)
	p.NavigationDelay = getEnvOrDefaultDuration("ANGELO_NAVIGATION_DELAY", p.NavigationDelay)
	p.SessionCapacity = getEnvOrDefaultInt("ANGELO_SESSION_CAPACITY", p.SessionCapacity)
	p.SessionTTL = getEnvOrDefaultDuration("ANGELO_SESSION_TTL", p.SessionTTL)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and fills defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "memory"
	}
	switch p.Driver {
	case "memory", "sqlite":
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires a dsn")
		}
	default:
		return errors.Errorf("unsupported driver %q, want memory, sqlite or postgres", p.Driver)
	}
	if p.Port < 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.TurnLatency < 0 {
		p.TurnLatency = 0
	}
	if p.NavigationDelay < 0 {
		p.NavigationDelay = 0
	}
	if p.SessionCapacity <= 0 {
		p.SessionCapacity = 1000
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = 30 * time.Minute
	}
	if p.AgentMaxIterations <= 0 {
		p.AgentMaxIterations = 5
	}
	if p.LLMTimeout <= 0 {
		p.LLMTimeout = 30
	}

	if p.Driver != "sqlite" {
		return nil
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir
	if p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("angelo_%s.db", p.Mode))
	}
	return nil
}
