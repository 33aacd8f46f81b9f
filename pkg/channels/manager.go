// n8ncord - Discord to n8n workflow relay
// License: MIT
//
// Copyright (c) 2026 n8ncord contributors

package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
)

type Manager struct {
	channels map[string]Channel
	config   *config.Config
	// baseCtx outlives individual restarts.
	baseCtx context.Context
	mu      sync.RWMutex
}

func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		config:   cfg,
		baseCtx:  context.Background(),
	}

	if err := m.initChannels(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) initChannels() error {
	logger.InfoC("channels", "Initializing channel manager")

	if m.config.Discord.Enabled {
		if m.config.Discord.Token == "" {
			logger.WarnC("channels", "Discord token is empty, skipping")
		} else {
			discord, err := NewDiscordChannel(m.config.Discord)
			if err != nil {
				return fmt.Errorf("failed to initialize Discord channel: %w", err)
			}
			m.channels["discord"] = discord
			logger.InfoC("channels", "Discord channel enabled successfully")
		}
	}

	logger.InfoCF("channels", "Channel initialization completed", map[string]interface{}{
		"enabled_channels": len(m.channels),
	})

	return nil
}

// Discord returns the Discord channel when it is enabled.
func (m *Manager) Discord() (*DiscordChannel, bool) {
	ch, ok := m.GetChannel("discord")
	if !ok {
		return nil, false
	}
	discord, ok := ch.(*DiscordChannel)
	return discord, ok
}

// StartAll starts every channel. A channel that fails to start is returned
// as an error; channels already started keep running.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.channels) == 0 {
		logger.WarnC("channels", "No channels enabled")
		return nil
	}

	logger.InfoC("channels", "Starting all channels")
	m.baseCtx = ctx

	for _, name := range m.sortedNamesLocked() {
		logger.InfoCF("channels", "Starting channel", map[string]interface{}{
			logger.FieldChannel: name,
		})
		if err := m.channels[name].Start(ctx); err != nil {
			logger.ErrorCF("channels", "Failed to start channel", map[string]interface{}{
				logger.FieldChannel: name,
				logger.FieldError:   err.Error(),
			})
			return fmt.Errorf("start channel %s: %w", name, err)
		}
	}

	logger.InfoC("channels", "All channels started")
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.InfoC("channels", "Stopping all channels")

	for _, name := range m.sortedNamesLocked() {
		logger.InfoCF("channels", "Stopping channel", map[string]interface{}{
			logger.FieldChannel: name,
		})
		if err := m.channels[name].Stop(ctx); err != nil {
			logger.ErrorCF("channels", "Error stopping channel", map[string]interface{}{
				logger.FieldChannel: name,
				logger.FieldError:   err.Error(),
			})
		}
	}

	logger.InfoC("channels", "All channels stopped")
	return nil
}

func (m *Manager) CheckHealth(ctx context.Context) map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]error)
	for name, channel := range m.channels {
		results[name] = channel.HealthCheck(ctx)
	}
	return results
}

// RestartChannel stops and starts a channel under the context StartAll was
// given, so the restarted channel outlives ctx.
func (m *Manager) RestartChannel(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	channel, ok := m.channels[name]
	if !ok {
		return fmt.Errorf("channel %s not found", name)
	}

	logger.InfoCF("channels", "Restarting channel", map[string]interface{}{logger.FieldChannel: name})
	_ = channel.Stop(ctx)
	return channel.Start(m.baseCtx)
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, ok := m.channels[name]
	return channel, ok
}

func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedNamesLocked()
}

func (m *Manager) RegisterChannel(name string, channel Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[name] = channel
}

func (m *Manager) SendToChannel(ctx context.Context, channelName, channelID, content string) error {
	m.mu.RLock()
	channel, exists := m.channels[channelName]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("channel %s not found", channelName)
	}

	return channel.Send(ctx, OutboundMessage{
		ChannelID: channelID,
		Content:   content,
	})
}

func (m *Manager) sortedNamesLocked() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
