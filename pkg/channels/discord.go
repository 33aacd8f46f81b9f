// n8ncord - Discord to n8n workflow relay
// License: MIT
//
// Copyright (c) 2026 n8ncord contributors

package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
	"github.com/EricMoy7/n8n-discord-bot/pkg/relay"
)

const (
	discordMaxMessageLen          = 2000
	discordAPICallTimeout         = 15 * time.Second
	discordStopWaitHandlersPeriod = 5 * time.Second
	discordCommandOptionMessage   = "message"
	discordCommandDescription     = "Start a chat session with the n8n workflow"
	discordOptionDescription      = "Your first message to the workflow"

	textNotAllowed = "⛔ You are not allowed to start sessions with this bot."
)

var errGatewayNotReady = errors.New("discord gateway not ready")

// RelayHandler receives the chat events the Discord channel accepts.
type RelayHandler interface {
	HandleCommand(ctx context.Context, evt relay.CommandEvent)
	HandleMessage(ctx context.Context, evt relay.MessageEvent)
	HandleThreadDelete(ctx context.Context, evt relay.ThreadDeleteEvent)
	Tracks(threadID string) bool
}

type DiscordChannel struct {
	*BaseChannel
	session   *discordgo.Session
	config    config.DiscordConfig
	handler   RelayHandler
	runCancel cancelGuard
	handleWG  sync.WaitGroup

	mu             sync.RWMutex
	runCtx         context.Context
	removeHandlers []func()
}

func NewDiscordChannel(cfg config.DiscordConfig) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent
	if logger.GetLevel() == logger.DEBUG {
		session.LogLevel = discordgo.LogInformational
	}

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", cfg.AllowFrom),
		session:     session,
		config:      cfg,
	}, nil
}

// SetHandler must be called before Start.
func (c *DiscordChannel) SetHandler(handler RelayHandler) {
	c.handler = handler
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	if c.IsRunning() {
		return nil
	}
	if c.handler == nil {
		return fmt.Errorf("discord channel has no relay handler")
	}
	logger.InfoC("discord", "Starting Discord bot (gateway mode)")

	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel.set(cancel)

	c.mu.Lock()
	c.runCtx = runCtx
	c.removeHandlers = []func(){
		c.session.AddHandler(c.onReady),
		c.session.AddHandler(c.onInteractionCreate),
		c.session.AddHandler(c.onMessageCreate),
		c.session.AddHandler(c.onThreadDelete),
	}
	c.mu.Unlock()

	if err := c.session.Open(); err != nil {
		c.runCancel.cancelAndClear()
		c.detachHandlers()
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	c.setRunning(true)
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	if !c.IsRunning() {
		return nil
	}
	logger.InfoC("discord", "Stopping Discord bot")
	c.setRunning(false)
	c.runCancel.cancelAndClear()

	done := make(chan struct{})
	go func() {
		c.handleWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.WarnC("discord", "Stop context ended before discord handlers finished")
	case <-time.After(discordStopWaitHandlersPeriod):
		logger.WarnC("discord", "Timeout waiting for discord handlers to stop")
	}

	c.detachHandlers()
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord gateway: %w", err)
	}
	return nil
}

func (c *DiscordChannel) detachHandlers() {
	c.mu.Lock()
	removers := c.removeHandlers
	c.removeHandlers = nil
	c.mu.Unlock()
	for _, remove := range removers {
		remove()
	}
}

func (c *DiscordChannel) HealthCheck(ctx context.Context) error {
	if err := c.BaseChannel.HealthCheck(ctx); err != nil {
		return err
	}
	c.session.RLock()
	ready := c.session.DataReady
	c.session.RUnlock()
	if !ready {
		return errGatewayNotReady
	}
	return nil
}

func (c *DiscordChannel) Send(ctx context.Context, msg OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	_, err := c.SendMessage(ctx, msg.ChannelID, msg.Content)
	return err
}

func (c *DiscordChannel) eventContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.runCtx == nil {
		return context.Background()
	}
	return c.runCtx
}

func (c *DiscordChannel) inGuild(guildID string) bool {
	return c.config.GuildID == "" || guildID == c.config.GuildID
}

// dispatch runs an event handler with panic recovery and tracks it for Stop.
// discordgo already calls each handler on its own goroutine.
func (c *DiscordChannel) dispatch(event string, fn func(ctx context.Context)) {
	if !c.IsRunning() {
		return
	}
	c.handleWG.Add(1)
	defer c.handleWG.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("discord", "Recovered panic in discord event handler", map[string]interface{}{
				logger.FieldEventType: event,
				"panic":               fmt.Sprintf("%v", r),
			})
		}
	}()
	fn(c.eventContext())
}

func (c *DiscordChannel) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	logger.InfoCF("discord", "Discord bot connected", map[string]interface{}{
		"username": r.User.Username,
		"guilds":   len(r.Guilds),
	})
	appID := r.User.ID
	runChannelTask("discord", "Command registration", func() error {
		return c.registerCommands(c.eventContext(), appID)
	}, nil)
}

// registerCommands overwrites the guild's command set, so repeated startups
// converge on the same single command.
func (c *DiscordChannel) registerCommands(ctx context.Context, appID string) error {
	ctx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
	defer cancel()

	cmds := []*discordgo.ApplicationCommand{chatCommand(c.config.CommandName)}
	if _, err := c.session.ApplicationCommandBulkOverwrite(appID, c.config.GuildID, cmds, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("register /%s in guild %s: %w", c.config.CommandName, c.config.GuildID, err)
	}
	logger.InfoCF("discord", "Slash command registered", map[string]interface{}{
		"command":           c.config.CommandName,
		logger.FieldGuildID: c.config.GuildID,
	})
	return nil
}

func chatCommand(name string) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: discordCommandDescription,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        discordCommandOptionMessage,
				Description: discordOptionDescription,
				Required:    true,
			},
		},
	}
}

func (c *DiscordChannel) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != c.config.CommandName || !c.inGuild(i.GuildID) {
		return
	}
	c.dispatch("command", func(ctx context.Context) {
		c.handleCommand(ctx, i.Interaction, data)
	})
}

func (c *DiscordChannel) handleCommand(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) {
	user := interactionUser(i)
	logger.InfoCF("discord", "Slash command received", map[string]interface{}{
		logger.FieldUserID:    user.ID,
		logger.FieldChannelID: i.ChannelID,
		logger.FieldGuildID:   i.GuildID,
	})

	apiCtx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
	err := c.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(apiCtx))
	cancel()
	if err != nil {
		logger.WarnCF("discord", "Failed to defer command reply", map[string]interface{}{
			logger.FieldUserID: user.ID,
			logger.FieldError:  err.Error(),
		})
		return
	}

	responder := &interactionResponder{session: c.session, interaction: i}
	if !c.IsAllowed(user.ID) {
		logger.WarnCF("discord", "Discord command rejected by allowlist", map[string]interface{}{
			logger.FieldUserID: user.ID,
		})
		_ = responder.Respond(ctx, textNotAllowed)
		return
	}

	c.handler.HandleCommand(ctx, relay.CommandEvent{
		GuildID:         i.GuildID,
		ChannelID:       i.ChannelID,
		User:            user,
		Message:         commandMessage(data),
		CanCreateThread: c.canHostThreads(ctx, i.ChannelID),
		Responder:       responder,
	})
}

func (c *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || m.Author.Bot || !c.inGuild(m.GuildID) {
		return
	}
	// Only session threads are of interest; skip channel lookups otherwise.
	if !c.handler.Tracks(m.ChannelID) {
		return
	}
	c.dispatch("message", func(ctx context.Context) {
		ch, err := c.channel(ctx, m.ChannelID)
		c.handler.HandleMessage(ctx, messageEvent(m.Message, trackedIsThread(ch, err, m.ChannelID)))
	})
}

// trackedIsThread decides whether a tracked channel is a thread. Session
// keys only come from created threads, so a failed lookup still counts.
func trackedIsThread(ch *discordgo.Channel, err error, channelID string) bool {
	if err != nil {
		logger.WarnCF("discord", "Failed to resolve message channel, assuming session thread", map[string]interface{}{
			logger.FieldChannelID: channelID,
			logger.FieldError:     err.Error(),
		})
		return true
	}
	return ch != nil && ch.IsThread()
}

func (c *DiscordChannel) onThreadDelete(s *discordgo.Session, t *discordgo.ThreadDelete) {
	if t.Channel == nil || !c.inGuild(t.GuildID) {
		return
	}
	c.dispatch("thread_delete", func(ctx context.Context) {
		c.handler.HandleThreadDelete(ctx, relay.ThreadDeleteEvent{ThreadID: t.ID, GuildID: t.GuildID})
	})
}

// channel resolves a channel from the state cache, falling back to REST.
func (c *DiscordChannel) channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if c.session.State != nil {
		if ch, err := c.session.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	apiCtx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
	defer cancel()
	return c.session.Channel(channelID, discordgo.WithContext(apiCtx))
}

func (c *DiscordChannel) canHostThreads(ctx context.Context, channelID string) bool {
	ch, err := c.channel(ctx, channelID)
	if err != nil {
		logger.WarnCF("discord", "Failed to resolve command channel", map[string]interface{}{
			logger.FieldChannelID: channelID,
			logger.FieldError:     err.Error(),
		})
		return false
	}
	return supportsThreads(ch)
}

func supportsThreads(ch *discordgo.Channel) bool {
	if ch == nil {
		return false
	}
	return ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews
}

func (c *DiscordChannel) CreateThread(ctx context.Context, spec relay.ThreadSpec) (string, error) {
	threadType := discordgo.ChannelTypeGuildPublicThread
	if parent, err := c.channel(ctx, spec.ParentChannelID); err == nil && parent.Type == discordgo.ChannelTypeGuildNews {
		threadType = discordgo.ChannelTypeGuildNewsThread
	}

	apiCtx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
	defer cancel()
	thread, err := c.session.ThreadStartComplex(spec.ParentChannelID, &discordgo.ThreadStart{
		Name:                spec.Name,
		AutoArchiveDuration: c.config.ThreadAutoArchiveMinutes,
		Type:                threadType,
	}, discordgo.WithContext(apiCtx), discordgo.WithAuditLogReason(spec.Reason))
	if err != nil {
		return "", err
	}
	logger.DebugCF("discord", "Thread created", map[string]interface{}{
		logger.FieldThreadID:  thread.ID,
		logger.FieldChannelID: spec.ParentChannelID,
	})
	return thread.ID, nil
}

// SendMessage posts content, split at the Discord length limit, and returns
// the id of the last message posted.
func (c *DiscordChannel) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	var lastID string
	for _, part := range splitMessage(content, discordMaxMessageLen) {
		apiCtx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
		msg, err := c.session.ChannelMessageSend(channelID, part, discordgo.WithContext(apiCtx))
		cancel()
		if err != nil {
			return lastID, err
		}
		lastID = msg.ID
	}
	return lastID, nil
}

func (c *DiscordChannel) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	apiCtx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
	defer cancel()
	_, err := c.session.ChannelMessageEdit(channelID, messageID, truncateString(content, discordMaxMessageLen), discordgo.WithContext(apiCtx))
	return err
}

func (c *DiscordChannel) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	apiCtx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
	defer cancel()
	return c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(apiCtx))
}

// interactionResponder edits the deferred ephemeral reply of a command.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *interactionResponder) Respond(ctx context.Context, content string) error {
	apiCtx, cancel := context.WithTimeout(ctx, discordAPICallTimeout)
	defer cancel()
	content = truncateString(content, discordMaxMessageLen)
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(apiCtx))
	return err
}

func interactionUser(i *discordgo.Interaction) relay.User {
	if i.Member != nil && i.Member.User != nil {
		return toRelayUser(i.Member.User, i.Member.Nick)
	}
	if i.User != nil {
		return toRelayUser(i.User, "")
	}
	return relay.User{}
}

func toRelayUser(u *discordgo.User, nick string) relay.User {
	display := nick
	if display == "" {
		display = u.GlobalName
	}
	if display == "" {
		display = u.Username
	}
	return relay.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: display,
		Bot:         u.Bot,
	}
}

func commandMessage(data discordgo.ApplicationCommandInteractionData) string {
	for _, opt := range data.Options {
		if opt.Name == discordCommandOptionMessage && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func messageEvent(m *discordgo.Message, isThread bool) relay.MessageEvent {
	nick := ""
	if m.Member != nil {
		nick = m.Member.Nick
	}
	evt := relay.MessageEvent{
		MessageID: m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		IsThread:  isThread,
		Author:    toRelayUser(m.Author, nick),
		Content:   m.Content,
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		evt.Attachments = append(evt.Attachments, relay.Attachment{
			ID:          a.ID,
			URL:         a.URL,
			Name:        a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return evt
}
