package main

import (
	"context"
	"fmt"
	"os"

	"github.com/EricMoy7/n8n-discord-bot/pkg/session"
)

func channelCmd() {
	if len(os.Args) < 3 {
		channelHelp()
		return
	}

	subcommand := os.Args[2]

	switch subcommand {
	case "test":
		channelTestCmd()
	default:
		fmt.Printf("Unknown channel command: %s\n", subcommand)
		channelHelp()
	}
}

func channelHelp() {
	fmt.Println("\nChannel commands:")
	fmt.Println("  test              Send a test message to a Discord channel")
	fmt.Println()
	fmt.Println("Test options:")
	fmt.Println("  --to             Discord channel ID (defaults to sentinel.notify_channel_id)")
	fmt.Println("  -m, --message    Message to send")
}

func channelTestCmd() {
	to := ""
	message := "This is a test message from n8ncord " + logo

	args := os.Args[3:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--to":
			if i+1 < len(args) {
				to = args[i+1]
				i++
			}
		case "-m", "--message":
			if i+1 < len(args) {
				message = args[i+1]
				i++
			}
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if to == "" {
		to = cfg.Sentinel.NotifyChannelID
	}
	if to == "" {
		fmt.Println("Error: --to is required when sentinel.notify_channel_id is not set")
		return
	}

	rt, err := buildRelayRuntime(cfg, session.NewStore())
	if err != nil {
		fmt.Printf("Error creating channel manager: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := rt.manager.StartAll(ctx); err != nil {
		fmt.Printf("Error starting channels: %v\n", err)
		os.Exit(1)
	}
	defer rt.manager.StopAll(ctx)

	fmt.Printf("Sending test message to discord (%s)...\n", to)
	if err := rt.manager.SendToChannel(ctx, "discord", to, message); err != nil {
		fmt.Printf("%s Failed to send message: %v\n", failMark, err)
		return
	}

	fmt.Printf("%s Test message sent successfully!\n", okMark)
}
