// n8ncord - Discord to n8n workflow relay
// License: MIT
//
// Copyright (c) 2026 n8ncord contributors

package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
	"github.com/EricMoy7/n8n-discord-bot/pkg/session"
)

const (
	DefaultTextTimeout       = 30 * time.Second
	DefaultAttachmentTimeout = 60 * time.Second
)

type Options struct {
	WebhookURL        string
	TextTimeout       time.Duration
	AttachmentTimeout time.Duration
	Observer          Observer
	// Now overrides the clock used for event timestamps.
	Now func() time.Time
}

// Controller turns chat events into webhook calls and posts the workflow's
// replies back into the session thread. Work for one thread is serialized;
// different threads proceed independently.
type Controller struct {
	platform Platform
	poster   Poster
	store    *session.Store
	locks    *session.ThreadLocks
	opts     Options
}

func NewController(platform Platform, poster Poster, store *session.Store, opts Options) *Controller {
	if opts.TextTimeout <= 0 {
		opts.TextTimeout = DefaultTextTimeout
	}
	if opts.AttachmentTimeout <= 0 {
		opts.AttachmentTimeout = DefaultAttachmentTimeout
	}
	if opts.Observer == nil {
		opts.Observer = LogObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if store == nil {
		store = session.NewStore()
	}
	return &Controller{
		platform: platform,
		poster:   poster,
		store:    store,
		locks:    session.NewThreadLocks(),
		opts:     opts,
	}
}

func (c *Controller) Store() *session.Store {
	return c.store
}

// Tracks reports whether threadID belongs to an active session.
func (c *Controller) Tracks(threadID string) bool {
	_, ok := c.store.Get(threadID)
	return ok
}

// HandleCommand starts a session: it opens a thread off the invoking
// channel, acknowledges privately, and announces the session to the workflow.
func (c *Controller) HandleCommand(ctx context.Context, evt CommandEvent) {
	if !evt.CanCreateThread {
		c.respond(ctx, evt, textThreadUnsupported)
		return
	}

	threadID, err := c.platform.CreateThread(ctx, ThreadSpec{
		ParentChannelID: evt.ChannelID,
		Name:            threadName(evt.User),
		Reason:          threadReason,
	})
	if err != nil {
		logger.ErrorCF("relay", "Failed to create session thread", map[string]interface{}{
			logger.FieldChannelID: evt.ChannelID,
			logger.FieldUserID:    evt.User.ID,
			logger.FieldError:     err.Error(),
		})
		c.respond(ctx, evt, textThreadFailed)
		return
	}

	unlock, err := c.locks.Lock(ctx, threadID)
	if err != nil {
		logger.WarnCF("relay", "Gave up waiting for thread", map[string]interface{}{
			logger.FieldThreadID: threadID,
			logger.FieldError:    err.Error(),
		})
		// ctx is already done here; the deferred reply still needs an answer.
		c.respond(context.WithoutCancel(ctx), evt, textThreadFailed)
		return
	}
	defer unlock()

	sess := session.New(threadID, evt.User.ID, evt.User.Name(), c.opts.Now())
	c.store.Put(threadID, sess)
	c.opts.Observer.SessionStarted(sess)

	c.respond(ctx, evt, fmt.Sprintf(textSessionStarted, threadID))

	indicatorID := c.send(ctx, threadID, textStarting)
	event := newSessionStartEvent(sess, evt.User, evt.Message, c.opts.Now())
	reply, err := c.poster.Post(ctx, c.opts.WebhookURL, event, c.opts.TextTimeout)
	c.clearIndicator(ctx, threadID, indicatorID)
	if err != nil {
		c.opts.Observer.WebhookFailed(sess, event.Type, err)
		c.send(ctx, threadID, FailureNotice(err))
		return
	}
	c.send(ctx, threadID, replyText(reply, textConnected))
}

// HandleMessage relays a message posted in a session thread. Messages from
// bots or from untracked channels are ignored.
func (c *Controller) HandleMessage(ctx context.Context, evt MessageEvent) {
	if evt.Author.Bot || !evt.IsThread {
		return
	}
	if !c.Tracks(evt.ChannelID) {
		return
	}

	unlock, err := c.locks.Lock(ctx, evt.ChannelID)
	if err != nil {
		logger.WarnCF("relay", "Gave up waiting for thread", map[string]interface{}{
			logger.FieldThreadID:  evt.ChannelID,
			logger.FieldMessageID: evt.MessageID,
			logger.FieldError:     err.Error(),
		})
		return
	}
	defer unlock()

	// The thread may have been deleted while we waited.
	sess, ok := c.store.Get(evt.ChannelID)
	if !ok {
		return
	}

	event := newMessageEvent(sess, evt, c.opts.Now())
	timeout := c.opts.TextTimeout
	if len(event.Attachments) > 0 {
		timeout = c.opts.AttachmentTimeout
	}

	logger.DebugCF("relay", "Relaying thread message", map[string]interface{}{
		logger.FieldThreadID:        sess.ThreadID,
		logger.FieldMessageID:       evt.MessageID,
		logger.FieldEventType:       string(event.Type),
		logger.FieldAttachmentCount: len(event.Attachments),
		logger.FieldPreview:         truncate(evt.Content, 50),
	})

	indicatorID := c.send(ctx, sess.ThreadID, textProcessing)
	if event.Type == EventVoiceMessage && indicatorID != "" {
		if err := c.platform.EditMessage(ctx, sess.ThreadID, indicatorID, textProcessingVoice); err != nil {
			c.logDeliveryError("edit", sess.ThreadID, err)
		}
	}

	reply, err := c.poster.Post(ctx, c.opts.WebhookURL, event, timeout)
	c.clearIndicator(ctx, sess.ThreadID, indicatorID)
	if err != nil {
		c.opts.Observer.WebhookFailed(sess, event.Type, err)
		c.send(ctx, sess.ThreadID, FailureNotice(err))
		return
	}
	c.send(ctx, sess.ThreadID, replyText(reply, textSent))
}

// HandleThreadDelete forgets the session bound to a deleted thread.
func (c *Controller) HandleThreadDelete(ctx context.Context, evt ThreadDeleteEvent) {
	sess, ok := c.store.Get(evt.ThreadID)
	if !ok || !c.store.Remove(evt.ThreadID) {
		return
	}
	c.opts.Observer.SessionRemoved(sess)
}

func (c *Controller) respond(ctx context.Context, evt CommandEvent, content string) {
	if evt.Responder == nil {
		return
	}
	if err := evt.Responder.Respond(ctx, content); err != nil {
		logger.WarnCF("relay", "Failed to answer command", map[string]interface{}{
			logger.FieldChannelID: evt.ChannelID,
			logger.FieldUserID:    evt.User.ID,
			logger.FieldError:     err.Error(),
		})
	}
}

// send posts content and returns the new message id, or "" on failure.
func (c *Controller) send(ctx context.Context, channelID, content string) string {
	id, err := c.platform.SendMessage(ctx, channelID, content)
	if err != nil {
		c.logDeliveryError("send", channelID, err)
		return ""
	}
	return id
}

func (c *Controller) clearIndicator(ctx context.Context, channelID, messageID string) {
	if messageID == "" {
		return
	}
	if err := c.platform.DeleteMessage(ctx, channelID, messageID); err != nil {
		c.logDeliveryError("delete", channelID, err)
	}
}

func (c *Controller) logDeliveryError(op, channelID string, err error) {
	logger.WarnCF("relay", "Chat delivery failed", map[string]interface{}{
		"op":                  op,
		logger.FieldChannelID: channelID,
		logger.FieldError:     err.Error(),
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
