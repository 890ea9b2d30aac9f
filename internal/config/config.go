package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Session    SessionConfig    `mapstructure:"session"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Warehouse  WarehouseConfig  `mapstructure:"warehouse"`
	DocsDir    string           `mapstructure:"docs_dir"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type SlackConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	SigningSecret string `mapstructure:"signing_secret"`
}

type SessionConfig struct {
	TimeoutMinutes       int `mapstructure:"timeout_minutes"`
	HistoryWindow        int `mapstructure:"history_window"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

type ClassifierConfig struct {
	RetryOnTimeout bool `mapstructure:"retry_on_timeout"`
}

type LLMConfig struct {
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

type WarehouseConfig struct {
	QueryTimeoutSeconds int `mapstructure:"query_timeout_seconds"`
}

// Timeout returns the session inactivity timeout as a duration.
func (c SessionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// SweepInterval returns how often the expiry sweep runs.
func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// RequestTimeout returns the per-call deadline for text generation.
func (c LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// QueryTimeout returns the per-statement deadline for warehouse queries.
func (c WarehouseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("DATABOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "databot")
	viper.SetDefault("database.database", "dwh")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.password", "")
	viper.SetDefault("openai.model", "gpt-4o")
	// Secrets default to empty so the keys are registered and an
	// env-only setup can reach them through Unmarshal; validate()
	// rejects them when still unset.
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("slack.bot_token", "")
	viper.SetDefault("slack.signing_secret", "")
	viper.SetDefault("session.timeout_minutes", 30)
	viper.SetDefault("session.history_window", 6)
	viper.SetDefault("session.sweep_interval_minutes", 5)
	viper.SetDefault("classifier.retry_on_timeout", false)
	viper.SetDefault("llm.request_timeout_seconds", 60)
	viper.SetDefault("warehouse.query_timeout_seconds", 120)
	viper.SetDefault("docs_dir", "./docs")

	// Read config file if present; env vars alone are a valid setup
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (DATABOT_OPENAI_API_KEY)")
	}
	if c.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required (DATABOT_SLACK_BOT_TOKEN)")
	}
	if c.Slack.SigningSecret == "" {
		return fmt.Errorf("slack.signing_secret is required (DATABOT_SLACK_SIGNING_SECRET)")
	}
	if c.Session.HistoryWindow <= 0 {
		return fmt.Errorf("session.history_window must be positive")
	}
	return nil
}
