// n8ncord - Discord to n8n workflow relay
// License: MIT
//
// Copyright (c) 2026 n8ncord contributors

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
)

const version = "0.1.0"
const logo = "🔗"
const relayServiceName = "n8ncord.service"
const envConfigPath = "N8NCORD_CONFIG"
const envServiceScope = "N8NCORD_SERVICE_SCOPE"

var globalConfigPathOverride string

var errRelayNotRunning = errors.New("relay not running")

func main() {
	globalConfigPathOverride = detectConfigPathFromArgs(os.Args)

	for _, arg := range os.Args {
		if arg == "--debug" || arg == "-d" {
			config.SetDebugMode(true)
			logger.SetLevel(logger.DEBUG)
			break
		}
	}

	os.Args = normalizeCLIArgs(os.Args)

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCmd()
	case "onboard":
		onboard()
	case "status":
		statusCmd()
	case "config":
		configCmd()
	case "channel":
		channelCmd()
	case "service":
		serviceCmd()
	case "version", "--version", "-v":
		fmt.Printf("%s n8ncord v%s\n", logo, version)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}
