package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/configops"
)

func configCmd() {
	if len(os.Args) < 3 {
		configHelp()
		return
	}

	switch os.Args[2] {
	case "set":
		configSetCmd()
	case "get":
		configGetCmd()
	case "check":
		configCheckCmd()
	case "reload":
		configReloadCmd()
	default:
		fmt.Printf("Unknown config command: %s\n", os.Args[2])
		configHelp()
	}
}

func configHelp() {
	fmt.Println("\nConfig commands:")
	fmt.Println("  set <path> <value>     Set config value and trigger hot reload")
	fmt.Println("  get <path>             Get config value")
	fmt.Println("  check                  Validate current config (file + environment)")
	fmt.Println("  reload                 Trigger relay hot reload")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  n8ncord config set webhook.timeout_sec 45")
	fmt.Println("  n8ncord config set discord.allow_from 123456789,987654321")
	fmt.Println("  n8ncord config get webhook.url")
	fmt.Println("  n8ncord config check")
}

func configSetCmd() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: n8ncord config set <path> <value>")
		return
	}

	configPath := getConfigPath()
	cfgMap, err := configops.LoadConfigAsMap(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	path := configops.NormalizeConfigPath(os.Args[3])
	raw := collectValueArgs(os.Args[4:])
	if raw == "" {
		fmt.Println("Error: value is required")
		return
	}
	value, err := configops.ResolveConfigValue(path, raw)
	if err != nil {
		fmt.Printf("%s %v\n", failMark, err)
		return
	}
	if err := configops.SetMapValueByPath(cfgMap, path, value); err != nil {
		fmt.Printf("Error setting value: %v\n", err)
		return
	}

	data, err := configops.MarshalConfigMap(configPath, cfgMap)
	if err != nil {
		fmt.Printf("Error serializing config: %v\n", err)
		return
	}
	backupPath, err := configops.WriteConfigAtomicWithBackup(configPath, data)
	if err != nil {
		fmt.Printf("Error writing config: %v\n", err)
		return
	}

	// A value that no longer decodes must not stay on disk.
	if _, err := config.LoadConfig(configPath); err != nil {
		if rbErr := configops.RollbackConfigFromBackup(configPath, backupPath); rbErr != nil {
			fmt.Printf("%s Invalid value and rollback failed: %v\n", failMark, rbErr)
		} else {
			fmt.Printf("%s Invalid value, config rolled back: %v\n", failMark, err)
		}
		return
	}

	fmt.Printf("%s Updated %s = %v\n", okMark, path, value)
	running, err := triggerRelayReload()
	if err != nil {
		if running {
			if rbErr := configops.RollbackConfigFromBackup(configPath, backupPath); rbErr != nil {
				fmt.Printf("Hot reload failed and rollback failed: %v\n", rbErr)
			} else {
				fmt.Printf("Hot reload failed, config rolled back: %v\n", err)
			}
			return
		}
		fmt.Printf("Updated config file. Hot reload not applied: %v\n", err)
	} else {
		fmt.Printf("%s Relay hot reload signal sent\n", okMark)
	}
}

func configGetCmd() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: n8ncord config get <path>")
		return
	}

	cfgMap, err := configops.LoadConfigAsMap(getConfigPath())
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	path := configops.NormalizeConfigPath(os.Args[3])
	value, ok := configops.GetMapValueByPath(cfgMap, path)
	if !ok {
		fmt.Printf("Path not found: %s\n", path)
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		fmt.Printf("%v\n", value)
		return
	}
	fmt.Println(string(data))
}

func configReloadCmd() {
	if _, err := triggerRelayReload(); err != nil {
		fmt.Printf("Hot reload not applied: %v\n", err)
		return
	}
	fmt.Printf("%s Relay hot reload signal sent\n", okMark)
}

func configCheckCmd() {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("%s Config load failed: %v\n", failMark, err)
		os.Exit(1)
	}
	validationErrors := config.Validate(cfg)
	if len(validationErrors) == 0 {
		fmt.Printf("%s Config validation passed\n", okMark)
		return
	}

	fmt.Printf("%s Config validation failed:\n", failMark)
	for _, ve := range validationErrors {
		fmt.Printf("  - %v\n", ve)
	}
	os.Exit(1)
}

func triggerRelayReload() (bool, error) {
	return configops.TriggerReload(getConfigPath(), errRelayNotRunning)
}
