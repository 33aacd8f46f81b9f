package channels

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

var errNotRunning = errors.New("channel not running")

// OutboundMessage is a plain text post addressed to a channel or thread.
type OutboundMessage struct {
	ChannelID string
	Content   string
}

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	IsRunning() bool
	HealthCheck(ctx context.Context) error
}

type BaseChannel struct {
	name      string
	allowList []string
	running   atomic.Bool
}

func NewBaseChannel(name string, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) setRunning(running bool) {
	c.running.Store(running)
}

// IsAllowed reports whether senderID may use the channel. An empty
// allowlist admits everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}
	for _, allowed := range c.allowList {
		if strings.TrimSpace(allowed) == senderID {
			return true
		}
	}
	return false
}

func (c *BaseChannel) HealthCheck(ctx context.Context) error {
	if !c.IsRunning() {
		return errNotRunning
	}
	return nil
}
