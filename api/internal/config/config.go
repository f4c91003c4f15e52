package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"truckbrick/api/internal/brick"
)

type Config struct {
	Port      string `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIModel      string `mapstructure:"openai_model"`
	OpenAIImageModel string `mapstructure:"openai_image_model"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	GeminiModel      string `mapstructure:"gemini_model"`
	DefaultEngine    string `mapstructure:"default_engine"`

	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	WebhookURL       string `mapstructure:"webhook_url"`
	DatabaseURL      string `mapstructure:"database_url"`
	// GuideRetention is how long archived guides are kept; 0 keeps them forever.
	GuideRetention time.Duration `mapstructure:"guide_retention"`

	DescribeTimeout      time.Duration `mapstructure:"describe_timeout"`
	InstructionTimeout   time.Duration `mapstructure:"instruction_timeout"`
	RenderTimeout        time.Duration `mapstructure:"render_timeout"`
	DescribeMaxTokens    int           `mapstructure:"describe_max_tokens"`
	InstructionMaxTokens int           `mapstructure:"instruction_max_tokens"`
	RenderSize           string        `mapstructure:"render_size"`
	RenderEnabled        bool          `mapstructure:"render_enabled"`
}

var defaults = map[string]any{
	"port":       "8000",
	"log_level":  "info",
	"log_format": "json",

	"openai_api_key":     "",
	"openai_model":       "gpt-4o",
	"openai_image_model": "dall-e-3",
	"openai_base_url":    "",
	"gemini_api_key":     "",
	"gemini_model":       "gemini-2.5-flash",
	"default_engine":     "gpt",

	"telegram_bot_token": "",
	"webhook_url":        "",
	"database_url":       "",
	"guide_retention":    "2160h",

	"describe_timeout":       "60s",
	"instruction_timeout":    "120s",
	"render_timeout":         "90s",
	"describe_max_tokens":    500,
	"instruction_max_tokens": 1800,
	"render_size":            "1024x1024",
	"render_enabled":         true,
}

// Load reads .env, an optional truckbrick.yaml and the environment, in rising
// order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("truckbrick")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.trim()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) trim() {
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	c.TelegramBotToken = strings.TrimSpace(c.TelegramBotToken)
	c.DefaultEngine = strings.ToLower(strings.TrimSpace(c.DefaultEngine))
	c.Port = strings.TrimSpace(c.Port)
	c.RenderSize = strings.ToLower(strings.TrimSpace(c.RenderSize))
}

// Validate checks the settings every binary needs.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" && c.GeminiAPIKey == "" {
		return brick.NewConfigurationError("missing API credential: set OPENAI_API_KEY or GEMINI_API_KEY")
	}
	switch c.DefaultEngine {
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return brick.NewConfigurationError("DEFAULT_ENGINE=" + c.DefaultEngine + " needs OPENAI_API_KEY")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return brick.NewConfigurationError("DEFAULT_ENGINE=gemini needs GEMINI_API_KEY")
		}
	default:
		return brick.NewConfigurationError(fmt.Sprintf("unknown DEFAULT_ENGINE %q: use gpt or gemini", c.DefaultEngine))
	}
	if c.DescribeTimeout <= 0 || c.InstructionTimeout <= 0 || c.RenderTimeout <= 0 {
		return brick.NewConfigurationError("timeouts must be positive")
	}
	if c.DescribeMaxTokens <= 0 || c.InstructionMaxTokens <= 0 {
		return brick.NewConfigurationError("token limits must be positive")
	}
	if !squareSize(c.RenderSize) {
		return brick.NewConfigurationError(fmt.Sprintf("RENDER_SIZE %q must be square, like 1024x1024", c.RenderSize))
	}
	if c.GuideRetention < 0 {
		return brick.NewConfigurationError("GUIDE_RETENTION must not be negative")
	}
	return nil
}

// squareSize accepts "NxN" with a positive N.
func squareSize(s string) bool {
	w, h, ok := strings.Cut(s, "x")
	if !ok || w != h {
		return false
	}
	n, err := strconv.Atoi(w)
	return err == nil && n > 0
}

// ValidateBot additionally requires the Telegram token.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return brick.NewConfigurationError("missing required env TELEGRAM_BOT_TOKEN")
	}
	return nil
}
