package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sc2summariser/internal/replay"
	"sc2summariser/internal/session"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Build-time override for the analysis service URL - set via -ldflags
// Example: go build -ldflags "-X 'sc2summariser/internal/config.APIURL=https://api.example.com'"
var APIURL string

// Config holds the client configuration
type Config struct {
	// Analysis service
	APIURL          string        `envconfig:"API_URL" default:"http://localhost:2500"`
	AnalysisTimeout time.Duration `envconfig:"ANALYSIS_TIMEOUT" default:"60s"`

	// Client-side validation and UI timings
	MaxFileSize     int64         `envconfig:"MAX_FILE_SIZE" default:"1048576"`
	ReplayExtension string        `envconfig:"REPLAY_EXTENSION" default:".SC2Replay"`
	SlowAfter       time.Duration `envconfig:"SLOW_AFTER" default:"5s"`
	NoticeTTL       time.Duration `envconfig:"NOTICE_TTL" default:"3s"`

	// Logging
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console"`
	LogOutput   string `envconfig:"LOG_OUTPUT" default:""`

	// Optional: feedback from an OpenAI-compatible model
	CoachAPIKey  string `envconfig:"COACH_API_KEY"`
	CoachBaseURL string `envconfig:"COACH_BASE_URL" default:"https://openrouter.ai/api/v1"`
	CoachModel   string `envconfig:"COACH_MODEL" default:"deepseek/deepseek-chat"`

	// Optional: share summaries to a Discord channel
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	// Browser bridge
	WebAddr string `envconfig:"WEB_ADDR" default:":8080"`
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if APIURL != "" {
		cfg.APIURL = APIURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("API_URL must not be empty")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}
	if c.ReplayExtension == "" {
		return errors.New("REPLAY_EXTENSION must not be empty")
	}
	return nil
}

// Session returns the orchestrator settings
func (c *Config) Session() session.Config {
	return session.Config{
		Rules: replay.Rules{
			MaxSize:   c.MaxFileSize,
			Extension: c.ReplayExtension,
		},
		SlowAfter: c.SlowAfter,
		NoticeTTL: c.NoticeTTL,
	}
}

// CoachEnabled reports whether a model API key is configured
func (c *Config) CoachEnabled() bool {
	return c.CoachAPIKey != ""
}

// DiscordEnabled reports whether a webhook is configured
func (c *Config) DiscordEnabled() bool {
	return c.DiscordWebhookURL != ""
}
