package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
)

var commandNamePattern = regexp.MustCompile(`^[-_\p{Ll}\p{N}]{1,32}$`)

// Validate returns configuration problems found in cfg.
// It does not mutate cfg.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	if cfg.Discord.Enabled {
		if strings.TrimSpace(cfg.Discord.Token) == "" {
			errs = append(errs, fmt.Errorf("discord.token is required (BOT_TOKEN)"))
		}
		if strings.TrimSpace(cfg.Discord.GuildID) == "" {
			errs = append(errs, fmt.Errorf("discord.guild_id is required (GUILD_ID)"))
		}
	}
	if !commandNamePattern.MatchString(cfg.Discord.CommandName) {
		errs = append(errs, fmt.Errorf("discord.command_name must be 1-32 lowercase letters, digits, '-' or '_'"))
	}
	switch cfg.Discord.ThreadAutoArchiveMinutes {
	case 60, 1440, 4320, 10080:
	default:
		errs = append(errs, fmt.Errorf("discord.thread_auto_archive_minutes must be one of: 60, 1440, 4320, 10080"))
	}
	errs = append(errs, validateNonEmptyStringList("discord.allow_from", cfg.Discord.AllowFrom)...)

	errs = append(errs, validateWebhookURL(cfg.Webhook.URL)...)
	if cfg.Webhook.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("webhook.timeout_sec must be > 0"))
	}
	if cfg.Webhook.AttachmentTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("webhook.attachment_timeout_sec must be > 0"))
	}

	if cfg.Gateway.Enabled && (cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535) {
		errs = append(errs, fmt.Errorf("gateway.port must be in 1..65535"))
	}

	if cfg.Logging.Level != "" {
		if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	if cfg.Logging.Enabled {
		if cfg.Logging.Dir == "" {
			errs = append(errs, fmt.Errorf("logging.dir is required when logging.enabled=true"))
		}
		if cfg.Logging.Filename == "" {
			errs = append(errs, fmt.Errorf("logging.filename is required when logging.enabled=true"))
		}
		if cfg.Logging.MaxSizeMB <= 0 {
			errs = append(errs, fmt.Errorf("logging.max_size_mb must be > 0"))
		}
		if cfg.Logging.RetentionDays <= 0 {
			errs = append(errs, fmt.Errorf("logging.retention_days must be > 0"))
		}
	}

	if cfg.Sentinel.Enabled {
		if _, err := cron.ParseStandard(cfg.Sentinel.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("sentinel.schedule is invalid: %w", err))
		}
		if cfg.Sentinel.AlertCooldownSec < 0 {
			errs = append(errs, fmt.Errorf("sentinel.alert_cooldown_sec must be >= 0"))
		}
	}

	return errs
}

func validateWebhookURL(raw string) []error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []error{fmt.Errorf("webhook.url is required (N8N_WEBHOOK_URL)")}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("webhook.url is invalid: %w", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("webhook.url must use http or https")}
	}
	if u.Host == "" {
		return []error{fmt.Errorf("webhook.url must include a host")}
	}
	return nil
}

func validateNonEmptyStringList(path string, values []string) []error {
	if len(values) == 0 {
		return nil
	}
	var errs []error
	for i, value := range values {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s[%d] must not be empty", path, i))
		}
	}
	return errs
}
