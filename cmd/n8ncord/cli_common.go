package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	warnMark = color.New(color.FgYellow).Sprint("⚠")
)

func normalizeCLIArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := []string{args[0]}
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--debug" || arg == "-d" {
			continue
		}
		if arg == "--config" {
			if i+1 < len(args) {
				i++
			}
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			continue
		}
		normalized = append(normalized, arg)
	}
	return normalized
}

func detectConfigPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" && i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimSpace(strings.TrimPrefix(arg, "--config="))
		}
	}
	return ""
}

func printHelp() {
	fmt.Printf("%s n8ncord - Discord to n8n workflow relay v%s\n\n", logo, version)
	fmt.Println("Usage: n8ncord <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run         Run the relay in the foreground")
	fmt.Println("  onboard     Create a config file interactively")
	fmt.Println("  status      Show configuration and relay status")
	fmt.Println("  config      Get/set/check config values")
	fmt.Println("  channel     Send a test message through Discord")
	fmt.Println("  service     Register/manage the systemd service")
	fmt.Println("  version     Show version information")
	fmt.Println()
	fmt.Println("Global options:")
	fmt.Println("  --config <path>         Use custom config file (.json, .toml, .yaml)")
	fmt.Println("  --debug, -d             Enable debug logging")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  BOT_TOKEN, GUILD_ID, N8N_WEBHOOK_URL override the config file")
	fmt.Println()
	fmt.Println("Service:")
	fmt.Println("  n8ncord service                 # register service")
	fmt.Println("  n8ncord service start|stop|restart|status")
	fmt.Println("  n8ncord service uninstall")
}

func getConfigPath() string {
	if strings.TrimSpace(globalConfigPathOverride) != "" {
		return globalConfigPathOverride
	}
	if fromEnv := strings.TrimSpace(os.Getenv(envConfigPath)); fromEnv != "" {
		return fromEnv
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, err
	}
	configureLogging(cfg)
	return cfg, nil
}

func configureLogging(cfg *config.Config) {
	if !config.IsDebugMode() {
		if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
	}

	if !cfg.Logging.Enabled {
		logger.DisableFileLogging()
		return
	}

	logFile := cfg.LogFilePath()
	if err := logger.EnableFileLoggingWithRotation(logFile, cfg.Logging.MaxSizeMB, cfg.Logging.RetentionDays); err != nil {
		fmt.Printf("%s failed to enable file logging: %v\n", warnMark, err)
	}
}

// collectValueArgs joins the remaining CLI words, skipping global flags that
// normalizeCLIArgs already consumed from os.Args.
func collectValueArgs(args []string) string {
	parts := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		part := args[i]
		if part == "--debug" || part == "-d" {
			continue
		}
		if part == "--config" {
			i++
			continue
		}
		if strings.HasPrefix(part, "--config=") {
			continue
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
