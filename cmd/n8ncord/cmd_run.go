// n8ncord - Discord to n8n workflow relay
// License: MIT
//
// Copyright (c) 2026 n8ncord contributors

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EricMoy7/n8n-discord-bot/pkg/channels"
	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/configops"
	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
	"github.com/EricMoy7/n8n-discord-bot/pkg/relay"
	"github.com/EricMoy7/n8n-discord-bot/pkg/sentinel"
	"github.com/EricMoy7/n8n-discord-bot/pkg/server"
	"github.com/EricMoy7/n8n-discord-bot/pkg/session"
	"github.com/EricMoy7/n8n-discord-bot/pkg/webhook"
)

const shutdownTimeout = 10 * time.Second

// relayRuntime is everything rebuilt on a config reload. The session store
// is owned by runCmd and outlives every runtime.
type relayRuntime struct {
	cfg        *config.Config
	manager    *channels.Manager
	controller *relay.Controller
	server     *server.Server
	sentinel   *sentinel.Service
}

func runCmd() {
	if len(os.Args) > 2 {
		fmt.Printf("Unknown run argument: %s\n", os.Args[2])
		fmt.Println("Usage: n8ncord run [--config <path>] [--debug]")
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("%s Error loading config: %v\n", failMark, err)
		os.Exit(1)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		fmt.Printf("%s Invalid configuration:\n", failMark)
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		logger.FatalCF("relay", "Startup configuration invalid", map[string]interface{}{
			"errors": len(errs),
		})
	}

	store := session.NewStore()
	rt, err := buildRelayRuntime(cfg, store)
	if err != nil {
		fmt.Printf("%s Error initializing relay: %v\n", failMark, err)
		os.Exit(1)
	}

	pidFile := filepath.Join(filepath.Dir(getConfigPath()), configops.PIDFileName)
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err == nil {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
			fmt.Printf("%s failed to write PID file: %v\n", warnMark, err)
		} else {
			defer os.Remove(pidFile)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.start(ctx); err != nil {
		fmt.Printf("%s Error starting relay: %v\n", failMark, err)
		rt.stop()
		os.Exit(1)
	}

	fmt.Printf("%s Relay started (v%s)\n", okMark, version)
	fmt.Printf("  Channels: %v\n", rt.manager.GetEnabledChannels())
	if cfg.Gateway.Enabled {
		fmt.Printf("  Health:   http://%s/health\n", cfg.GatewayAddr())
	}
	fmt.Println("Press Ctrl+C to stop. Send SIGHUP to hot-reload config.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGHUP:
			fmt.Println("\n↻ Reloading config...")
			next, err := reloadRelayRuntime(ctx, rt, store)
			switch {
			case err != nil:
				fmt.Printf("%s Reload failed: %v\n", failMark, err)
			case next == rt:
				fmt.Printf("%s Runtime config unchanged, logging settings applied\n", okMark)
			default:
				fmt.Printf("%s Config hot-reload applied (%d active sessions kept)\n", okMark, store.Len())
			}
			if next != nil {
				rt = next
			}
		default:
			fmt.Println("\nShutting down...")
			cancel()
			rt.stop()
			fmt.Printf("%s Relay stopped\n", okMark)
			return
		}
	}
}

func buildRelayRuntime(cfg *config.Config, store *session.Store) (*relayRuntime, error) {
	manager, err := channels.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	discord, ok := manager.Discord()
	if !ok {
		return nil, fmt.Errorf("discord channel is not enabled")
	}

	client := webhook.NewClient(webhook.Options{
		Secret:    cfg.Webhook.Secret,
		UserAgent: "n8ncord/" + version,
	})
	controller := relay.NewController(discord, client, store, relay.Options{
		WebhookURL:        cfg.Webhook.URL,
		TextTimeout:       cfg.TextTimeout(),
		AttachmentTimeout: cfg.AttachmentTimeout(),
	})
	discord.SetHandler(controller)

	rt := &relayRuntime{
		cfg:        cfg,
		manager:    manager,
		controller: controller,
	}
	if cfg.Gateway.Enabled {
		rt.server = server.NewServer(cfg.GatewayAddr(), version, manager, store)
	}
	if cfg.Sentinel.Enabled {
		opts := sentinel.Options{
			ConfigPath: getConfigPath(),
			Schedule:   cfg.Sentinel.Schedule,
			Cooldown:   cfg.AlertCooldown(),
			Channels:   manager,
			OnAlert:    sentinelNotifier(manager, cfg.Sentinel.NotifyChannelID),
		}
		if cfg.Sentinel.AutoHeal {
			opts.Healer = manager
		}
		rt.sentinel = sentinel.NewService(opts)
	}
	return rt, nil
}

// sentinelNotifier posts alerts into a Discord channel when one is configured.
func sentinelNotifier(manager *channels.Manager, channelID string) sentinel.AlertFunc {
	return func(message string) {
		if channelID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.SendToChannel(ctx, "discord", channelID, "[Sentinel] "+message); err != nil {
			logger.WarnCF("sentinel", "Failed to deliver alert", map[string]interface{}{
				logger.FieldChannelID: channelID,
				logger.FieldError:     err.Error(),
			})
		}
	}
}

func (rt *relayRuntime) start(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return rt.manager.StartAll(ctx)
	})
	if rt.server != nil {
		g.Go(rt.server.Start)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if rt.sentinel != nil {
		if err := rt.sentinel.Start(); err != nil {
			return err
		}
	}

	logger.InfoCF("relay", "Relay started", map[string]interface{}{
		"webhook_host":             webhookHost(rt.cfg.Webhook.URL),
		logger.FieldGuildID:        rt.cfg.Discord.GuildID,
		logger.FieldActiveSessions: rt.controller.Store().Len(),
	})
	return nil
}

func (rt *relayRuntime) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if rt.sentinel != nil {
		rt.sentinel.Stop()
	}

	var g errgroup.Group
	if rt.server != nil {
		g.Go(func() error {
			return rt.server.Stop(ctx)
		})
	}
	g.Go(func() error {
		return rt.manager.StopAll(ctx)
	})
	if err := g.Wait(); err != nil {
		logger.WarnCF("relay", "Shutdown finished with errors", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
}

// reloadRelayRuntime re-reads the config file. It returns rt itself when
// nothing changed and a freshly started runtime otherwise. A nil runtime
// with an error means rt was left untouched; a non-nil one with an error is
// the previous config restarted after the new one failed to start.
func reloadRelayRuntime(ctx context.Context, rt *relayRuntime, store *session.Store) (*relayRuntime, error) {
	newCfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if errs := config.Validate(newCfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %v", errs[0])
	}
	configureLogging(newCfg)

	if sameRuntimeConfig(rt.cfg, newCfg) {
		return rt, nil
	}

	next, err := buildRelayRuntime(newCfg, store)
	if err != nil {
		return nil, fmt.Errorf("init runtime: %w", err)
	}

	// The gateway connection and listen address are exclusive, so the old
	// runtime must stop before the new one starts.
	rt.stop()
	if err := next.start(ctx); err != nil {
		next.stop()
		logger.ErrorCF("relay", "Reload failed, restoring previous runtime", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		restored, rbErr := buildRelayRuntime(rt.cfg, store)
		if rbErr == nil {
			rbErr = restored.start(ctx)
		}
		if rbErr != nil {
			logger.FatalCF("relay", "Failed to restore previous runtime", map[string]interface{}{
				logger.FieldError: rbErr.Error(),
			})
		}
		return restored, fmt.Errorf("start runtime: %w", err)
	}
	return next, nil
}

func webhookHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func sameRuntimeConfig(a, b *config.Config) bool {
	return reflect.DeepEqual(a.Discord, b.Discord) &&
		reflect.DeepEqual(a.Webhook, b.Webhook) &&
		reflect.DeepEqual(a.Gateway, b.Gateway) &&
		reflect.DeepEqual(a.Sentinel, b.Sentinel)
}
