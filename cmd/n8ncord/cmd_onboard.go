package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
)

var errOnboardAborted = errors.New("onboarding aborted")

func onboard() {
	configPath := getConfigPath()

	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error starting prompt: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	if _, err := os.Stat(configPath); err == nil {
		answer, err := promptLine(rl, fmt.Sprintf("Config already exists at %s\nOverwrite? (y/n): ", configPath), "n")
		if err != nil || strings.ToLower(answer) != "y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg, err := promptConfig(rl, config.DefaultConfig())
	if err != nil {
		fmt.Println("Aborted.")
		return
	}

	if err := config.SaveConfig(configPath, cfg); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%s n8ncord is configured: %s\n", logo, configPath)
	if errs := config.Validate(cfg); len(errs) > 0 {
		fmt.Printf("%s The config is not complete yet:\n", warnMark)
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		fmt.Println("  Values can also come from BOT_TOKEN, GUILD_ID and N8N_WEBHOOK_URL.")
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Invite the bot with the applications.commands and bot scopes")
	fmt.Println("     and enable the Message Content intent in the developer portal")
	fmt.Println("  2. Run in the foreground:   n8ncord run")
	fmt.Println("  3. Or install the service:  n8ncord service && n8ncord service start")
}

// promptConfig asks for the required settings, keeping the value in
// defaults when the answer is empty.
func promptConfig(rl *readline.Instance, defaults *config.Config) (*config.Config, error) {
	cfg := defaults

	token, err := promptSecret(rl, "Discord bot token: ")
	if err != nil {
		return nil, err
	}
	if token != "" {
		cfg.Discord.Token = token
	}

	if cfg.Discord.GuildID, err = promptLine(rl, "Discord guild (server) ID: ", cfg.Discord.GuildID); err != nil {
		return nil, err
	}
	if cfg.Discord.CommandName, err = promptLine(rl, fmt.Sprintf("Slash command name [%s]: ", cfg.Discord.CommandName), cfg.Discord.CommandName); err != nil {
		return nil, err
	}
	if cfg.Webhook.URL, err = promptLine(rl, "n8n webhook URL: ", cfg.Webhook.URL); err != nil {
		return nil, err
	}

	secret, err := promptSecret(rl, "Webhook bearer secret (optional): ")
	if err != nil {
		return nil, err
	}
	if secret != "" {
		cfg.Webhook.Secret = secret
	}
	return cfg, nil
}

func promptLine(rl *readline.Instance, prompt, fallback string) (string, error) {
	rl.SetPrompt(prompt)
	line, err := rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", errOnboardAborted
		}
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return fallback, nil
	}
	return line, nil
}

func promptSecret(rl *readline.Instance, prompt string) (string, error) {
	data, err := rl.ReadPassword(prompt)
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", errOnboardAborted
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
