package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord" toml:"discord" yaml:"discord"`
	Webhook  WebhookConfig  `json:"webhook" toml:"webhook" yaml:"webhook"`
	Gateway  GatewayConfig  `json:"gateway" toml:"gateway" yaml:"gateway"`
	Logging  LoggingConfig  `json:"logging" toml:"logging" yaml:"logging"`
	Sentinel SentinelConfig `json:"sentinel" toml:"sentinel" yaml:"sentinel"`
	mu       sync.RWMutex
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled" yaml:"enabled" env:"N8NCORD_DISCORD_ENABLED"`
	Token   string `json:"token" toml:"token" yaml:"token" env:"BOT_TOKEN"`
	GuildID string `json:"guild_id" toml:"guild_id" yaml:"guild_id" env:"GUILD_ID"`
	// CommandName is the slash command that opens a session.
	CommandName              string   `json:"command_name" toml:"command_name" yaml:"command_name" env:"N8NCORD_DISCORD_COMMAND_NAME"`
	ThreadAutoArchiveMinutes int      `json:"thread_auto_archive_minutes" toml:"thread_auto_archive_minutes" yaml:"thread_auto_archive_minutes" env:"N8NCORD_DISCORD_THREAD_AUTO_ARCHIVE_MINUTES"`
	AllowFrom                []string `json:"allow_from" toml:"allow_from" yaml:"allow_from" env:"N8NCORD_DISCORD_ALLOW_FROM"`
}

type WebhookConfig struct {
	URL                  string `json:"url" toml:"url" yaml:"url" env:"N8N_WEBHOOK_URL"`
	Secret               string `json:"secret" toml:"secret" yaml:"secret" env:"N8NCORD_WEBHOOK_SECRET"`
	TimeoutSec           int    `json:"timeout_sec" toml:"timeout_sec" yaml:"timeout_sec" env:"N8NCORD_WEBHOOK_TIMEOUT_SEC"`
	AttachmentTimeoutSec int    `json:"attachment_timeout_sec" toml:"attachment_timeout_sec" yaml:"attachment_timeout_sec" env:"N8NCORD_WEBHOOK_ATTACHMENT_TIMEOUT_SEC"`
}

type GatewayConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled" yaml:"enabled" env:"N8NCORD_GATEWAY_ENABLED"`
	Host    string `json:"host" toml:"host" yaml:"host" env:"N8NCORD_GATEWAY_HOST"`
	Port    int    `json:"port" toml:"port" yaml:"port" env:"N8NCORD_GATEWAY_PORT"`
}

type LoggingConfig struct {
	Level         string `json:"level" toml:"level" yaml:"level" env:"N8NCORD_LOGGING_LEVEL"`
	Enabled       bool   `json:"enabled" toml:"enabled" yaml:"enabled" env:"N8NCORD_LOGGING_ENABLED"`
	Dir           string `json:"dir" toml:"dir" yaml:"dir" env:"N8NCORD_LOGGING_DIR"`
	Filename      string `json:"filename" toml:"filename" yaml:"filename" env:"N8NCORD_LOGGING_FILENAME"`
	MaxSizeMB     int    `json:"max_size_mb" toml:"max_size_mb" yaml:"max_size_mb" env:"N8NCORD_LOGGING_MAX_SIZE_MB"`
	RetentionDays int    `json:"retention_days" toml:"retention_days" yaml:"retention_days" env:"N8NCORD_LOGGING_RETENTION_DAYS"`
}

type SentinelConfig struct {
	Enabled          bool   `json:"enabled" toml:"enabled" yaml:"enabled" env:"N8NCORD_SENTINEL_ENABLED"`
	Schedule         string `json:"schedule" toml:"schedule" yaml:"schedule" env:"N8NCORD_SENTINEL_SCHEDULE"`
	AlertCooldownSec int    `json:"alert_cooldown_sec" toml:"alert_cooldown_sec" yaml:"alert_cooldown_sec" env:"N8NCORD_SENTINEL_ALERT_COOLDOWN_SEC"`
	NotifyChannelID  string `json:"notify_channel_id" toml:"notify_channel_id" yaml:"notify_channel_id" env:"N8NCORD_SENTINEL_NOTIFY_CHANNEL_ID"`
	// AutoHeal restarts channels that fail their health check.
	AutoHeal bool `json:"auto_heal" toml:"auto_heal" yaml:"auto_heal" env:"N8NCORD_SENTINEL_AUTO_HEAL"`
}

var (
	isDebug bool
	muDebug sync.RWMutex
)

func SetDebugMode(debug bool) {
	muDebug.Lock()
	defer muDebug.Unlock()
	isDebug = debug
}

func IsDebugMode() bool {
	muDebug.RLock()
	defer muDebug.RUnlock()
	return isDebug
}

func GetConfigDir() string {
	if IsDebugMode() {
		return ".n8ncord"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".n8ncord")
}

func DefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.json")
}

func DefaultConfig() *Config {
	configDir := GetConfigDir()
	return &Config{
		Discord: DiscordConfig{
			Enabled:                  true,
			CommandName:              "chat",
			ThreadAutoArchiveMinutes: 1440,
			AllowFrom:                []string{},
		},
		Webhook: WebhookConfig{
			TimeoutSec:           30,
			AttachmentTimeoutSec: 60,
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    18791,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Enabled:       true,
			Dir:           filepath.Join(configDir, "logs"),
			Filename:      "n8ncord.log",
			MaxSizeMB:     20,
			RetentionDays: 3,
		},
		Sentinel: SentinelConfig{
			Enabled:          true,
			Schedule:         "@every 1m",
			AlertCooldownSec: 300,
			AutoHeal:         true,
		},
	}
}

// LoadConfig layers defaults, the file at path (if any) and the environment.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := decodeStrict(FormatOf(path), data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := Encode(FormatOf(path), cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) TextTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Webhook.TimeoutSec) * time.Second
}

func (c *Config) AttachmentTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Webhook.AttachmentTimeoutSec) * time.Second
}

func (c *Config) AlertCooldown() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Sentinel.AlertCooldownSec) * time.Second
}

func (c *Config) GatewayAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("%s:%d", c.Gateway.Host, c.Gateway.Port)
}

func (c *Config) LogFilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := expandHome(c.Logging.Dir)
	filename := c.Logging.Filename
	if filename == "" {
		filename = "n8ncord.log"
	}
	return filepath.Join(dir, filename)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
