package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
	ProviderGemini LLMProvider = "gemini"
)

type Config struct {
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	// Logging
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"LOG_ENCODING" envDefault:"console"`

	// LLM settings
	LLMProvider    LLMProvider   `env:"LLM_PROVIDER" envDefault:"ollama"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"llama3"`
	LLMBaseURL     string        `env:"LLM_BASE_URL"`
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"45s"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMTopP        float32       `env:"LLM_TOP_P" envDefault:"0.9"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`

	// Routing
	ClassifierFloor float64 `env:"CLASSIFIER_FLOOR" envDefault:"0.35"`
	RouterThreshold float64 `env:"ROUTER_THRESHOLD" envDefault:"0.45"`
	KeywordsPath    string  `env:"KEYWORDS_PATH"`

	// Memory
	MemoryMaxContext int `env:"MEMORY_MAX_CONTEXT" envDefault:"12"`

	// Commands
	OpenWeatherAPIKey  string `env:"OPENWEATHER_API_KEY"`
	WeatherDefaultCity string `env:"WEATHER_DEFAULT_CITY" envDefault:"Lucknow"`
	Timezone           string `env:"TIMEZONE" envDefault:"Asia/Kolkata"`
	FilesBaseDir       string `env:"FILES_BASE_DIR" envDefault:"."`

	// Chat plugin
	ChatPluginEnabled bool   `env:"CHAT_PLUGIN_ENABLED" envDefault:"false"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	ChatPluginModel   string `env:"CHAT_PLUGIN_MODEL" envDefault:"gpt-3.5-turbo"`

	// Console loop
	WakePhrase        string        `env:"WAKE_PHRASE"`
	StandbyPhrases    []string      `env:"STANDBY_PHRASES" envSeparator:"," envDefault:"stop,ruk jao,standby"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"300ms"`
	ReminderCheckSpec string        `env:"REMINDER_CHECK_SPEC" envDefault:"@every 60s"`

	// Transports
	TelegramBotToken     string  `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAllowedUsers []int64 `env:"TELEGRAM_ALLOWED_USERS" envSeparator:":"`
	TelegramNotifyChat   int64   `env:"TELEGRAM_NOTIFY_CHAT"`
	HTTPAddr             string  `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	HTTPToken            string  `env:"HTTP_TOKEN"`
}

// New parses the environment into a Config and validates it.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ClassifierFloor < 0 || c.RouterThreshold > 1 {
		return fmt.Errorf("confidence values must be within [0,1]")
	}
	if c.ClassifierFloor > c.RouterThreshold {
		return fmt.Errorf("classifier floor %.2f exceeds router threshold %.2f", c.ClassifierFloor, c.RouterThreshold)
	}
	if c.MemoryMaxContext <= 0 {
		return fmt.Errorf("MEMORY_MAX_CONTEXT must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI, ProviderYandex, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	return nil
}

func (c *Config) SecurityPath() string { return filepath.Join(c.DataDir, "security.json") }
func (c *Config) MemoryPath() string { return filepath.Join(c.DataDir, "memory.json") }
func (c *Config) RemindersPath() string { return filepath.Join(c.DataDir, "reminders.json") }
func (c *Config) NotesPath() string { return filepath.Join(c.DataDir, "notes.db") }
func (c *Config) TranscriptPath() string { return filepath.Join(c.DataDir, "transcript.jsonl") }
