// Package config provides YAML-based configuration loading for Errsight.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Errsight configuration, loaded from errsight.yaml.
type Config struct {
	Server Server `yaml:"server"`
	DB     DB     `yaml:"db"`

	// EncryptionKey is the hex-encoded 32-byte key for credential sealing.
	// Usually supplied via ERRSIGHT_ENCRYPTION_KEY instead of the file.
	EncryptionKey string `yaml:"encryption_key"`

	// AdminToken guards the project-management API. Empty leaves the admin
	// surface open (first-run setups behind a firewall).
	AdminToken string `yaml:"admin_token"`

	SMTP   SMTP   `yaml:"smtp"`
	Notify Notify `yaml:"notify"`
	Digest Digest `yaml:"digest"`
}

// Server holds HTTP listener settings.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DB holds connection settings for the MySQL server.
type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SMTP holds the outbound mail relay. Credentials are per-project; only
// the relay host/port are deployment-level.
type SMTP struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Notify holds deployment-level notification channels. All are optional.
type Notify struct {
	Slack   SlackChannel   `yaml:"slack"`
	Discord DiscordChannel `yaml:"discord"`
	GitHub  GitHubChannel  `yaml:"github"`
}

// SlackChannel posts reports to a Slack channel via the Web API.
type SlackChannel struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordChannel posts reports to a Discord channel via the REST API.
type DiscordChannel struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// GitHubChannel opens one issue per ingested error.
type GitHubChannel struct {
	Token  string   `yaml:"token"`
	Owner  string   `yaml:"owner"`
	Repo   string   `yaml:"repo"`
	Labels []string `yaml:"labels"`
}

// Digest schedules a periodic summary of recent error activity.
type Digest struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Environment
// variables override the secrets that should not live in a file.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides file values with environment variables where set.
func (c *Config) applyEnv() {
	if v := os.Getenv("ERRSIGHT_ENCRYPTION_KEY"); v != "" {
		c.EncryptionKey = v
	}
	if v := os.Getenv("ERRSIGHT_ADMIN_TOKEN"); v != "" {
		c.AdminToken = v
	}
	if v := os.Getenv("ERRSIGHT_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "errsight"
	}
	if c.SMTP.Host == "" {
		c.SMTP.Host = "smtp.gmail.com"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 8 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.EncryptionKey == "" {
		errs = append(errs, "encryption_key is required (or set ERRSIGHT_ENCRYPTION_KEY)")
	} else if len(c.EncryptionKey) != 64 {
		errs = append(errs, fmt.Sprintf("encryption_key must be 64 hex chars, got %d", len(c.EncryptionKey)))
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.ChannelID == "" {
		errs = append(errs, "notify.slack.channel_id is required when bot_token is set")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.ChannelID == "" {
		errs = append(errs, "notify.discord.channel_id is required when bot_token is set")
	}
	if c.Notify.GitHub.Token != "" && (c.Notify.GitHub.Owner == "" || c.Notify.GitHub.Repo == "") {
		errs = append(errs, "notify.github.owner and notify.github.repo are required when token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
