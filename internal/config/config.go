package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
)

// DefaultAPIURL is the backend address used when PULSAI_API_URL is unset.
const DefaultAPIURL = "http://localhost:8000"

// Config holds all configuration from environment variables.
type Config struct {
	// Client side
	APIURL string `envconfig:"PULSAI_API_URL" default:"http://localhost:8000"`

	// Backend server
	Port           string   `envconfig:"PORT" default:"8000"`
	DatabaseURL    string   `envconfig:"DATABASE_URL" default:""`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000,https://*.vercel.app"`

	// LLM settings
	LLMAPIKey      string  `envconfig:"LLM_API_KEY"`
	LLMBaseURL     string  `envconfig:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1"`
	LLMModel       string  `envconfig:"LLM_MODEL" default:"llama-3.3-70b-versatile"`
	LLMMaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"1024"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	HistoryWindow  int     `envconfig:"HISTORY_WINDOW" default:"10"` // Prior turns sent to the model
	HistoryLimit   int     `envconfig:"HISTORY_LIMIT" default:"50"`  // Default page size of the history endpoint

	// Telegram channel bot
	Token      string `envconfig:"TELEGRAM_API_TOKEN"`
	BotChannel string `envconfig:"BOT_CHANNEL" default:"telegram"`

	// Path to config.toml file
	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.toml"`

	// Prompts loaded from config.toml
	Prompts Prompts
}

// Prompts holds assistant prompts loaded from config.toml.
type Prompts struct {
	System   string            `toml:"system"`
	Channels map[string]string `toml:"channels"`
}

// FileConfig represents the structure of config.toml.
type FileConfig struct {
	Prompts Prompts `toml:"prompts"`
}

// DefaultPrompts provides fallback prompts if config.toml is not found.
var DefaultPrompts = Prompts{
	System: `You are PulsAI, a smart and empathetic sales assistant for a CRM platform.
Guide the customer through these 6 stages up to payment:
1. greeting: warm welcome, understand the need
2. qualification: identify profile, budget, urgency
3. presentation: propose the right solution with pricing
4. objection: answer questions, reassure
5. payment: offer the payment link, close the sale
6. completed: thank the customer, confirm the order

ALWAYS answer with valid JSON only, no text before or after:
{"text": "your answer", "stage": "greeting|qualification|presentation|objection|payment|completed", "payment_url": null, "actions": []}`,
	Channels: map[string]string{
		"web":       "Use a professional but approachable tone.",
		"whatsapp":  "Use a relaxed tone, short messages and fitting emojis.",
		"email":     "Use a formal tone with complete, structured sentences.",
		"messenger": "Use a friendly, lively tone with short messages.",
		"instagram": "Use a modern, inspiring tone with emojis.",
		"telegram":  "Use a friendly, direct tone with short messages.",
	},
}

// LoadEnv loads the configuration from environment variables.
func (c Config) LoadEnv() (Config, error) {
	cfg := c

	if err := envconfig.Process("", &cfg); err != nil {
		return c, err
	}

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}

	return cfg, nil
}

// LoadFile loads prompts from config.toml file.
func (c *Config) LoadFile() error {
	configPath := c.ConfigFile
	if !filepath.IsAbs(configPath) {
		// Try current directory first
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			// Try executable directory
			execPath, err := os.Executable()
			if err == nil {
				configPath = filepath.Join(filepath.Dir(execPath), c.ConfigFile)
			}
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		c.Prompts = DefaultPrompts
		return nil
	}

	var fileConfig FileConfig
	if _, err := toml.DecodeFile(configPath, &fileConfig); err != nil {
		return err
	}

	c.Prompts = fileConfig.Prompts

	// Use defaults for empty prompts
	if c.Prompts.System == "" {
		c.Prompts.System = DefaultPrompts.System
	}
	if c.Prompts.Channels == nil {
		c.Prompts.Channels = make(map[string]string, len(DefaultPrompts.Channels))
	}
	for channel, tone := range DefaultPrompts.Channels {
		if c.Prompts.Channels[channel] == "" {
			c.Prompts.Channels[channel] = tone
		}
	}

	return nil
}

// Tone returns the tone instruction for a channel, falling back to web.
func (p Prompts) Tone(channel string) string {
	if tone, ok := p.Channels[channel]; ok && tone != "" {
		return tone
	}
	return p.Channels["web"]
}

// ErrMissing is returned by the Require* helpers when a value a component
// depends on is not configured.
var ErrMissing = errors.New("missing required configuration")

// RequireLLM reports whether the settings the assistant needs are present.
func (c *Config) RequireLLM() error {
	if c.LLMAPIKey == "" {
		return errors.Join(ErrMissing, errors.New("LLM_API_KEY is not set"))
	}
	return nil
}

// RequireBot reports whether the settings the telegram bot needs are present.
func (c *Config) RequireBot() error {
	if c.Token == "" {
		return errors.Join(ErrMissing, errors.New("TELEGRAM_API_TOKEN is not set"))
	}
	return nil
}

func NewConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	loadedCfg, err := cfg.LoadEnv()
	if err != nil {
		return nil, err
	}

	// Load prompts from config.toml
	if err := loadedCfg.LoadFile(); err != nil {
		return nil, err
	}

	return &loadedCfg, nil
}

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(
			NewConfig,
		),
	)
}
