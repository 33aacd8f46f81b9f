package channels

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/relay"
)

func TestSplitMessagePrefersLineBreaks(t *testing.T) {
	content := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1000)
	parts := splitMessage(content, discordMaxMessageLen)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0] != strings.Repeat("a", 1500) || parts[1] != strings.Repeat("b", 1000) {
		t.Fatalf("unexpected split at newline")
	}
}

func TestSplitMessageHardCut(t *testing.T) {
	parts := splitMessage(strings.Repeat("x", 4500), discordMaxMessageLen)
	if len(parts) != 3 || len(parts[0]) != 2000 || len(parts[1]) != 2000 || len(parts[2]) != 500 {
		t.Fatalf("unexpected hard split lengths")
	}
}

func TestSplitMessageCountsRunes(t *testing.T) {
	content := strings.Repeat("é", 2000)
	if parts := splitMessage(content, discordMaxMessageLen); len(parts) != 1 {
		t.Fatalf("2000 runes should fit one message, got %d parts", len(parts))
	}
	if parts := splitMessage("short", discordMaxMessageLen); len(parts) != 1 || parts[0] != "short" {
		t.Fatalf("unexpected short split: %#v", parts)
	}
}

func TestTruncateStringIsRuneSafe(t *testing.T) {
	if got := truncateString("héllo", 2); got != "hé" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateString("abc", 0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestInteractionUserPrefersNick(t *testing.T) {
	i := &discordgo.Interaction{
		Member: &discordgo.Member{
			Nick: "Ali",
			User: &discordgo.User{ID: "1", Username: "alice", GlobalName: "Alice A."},
		},
	}
	u := interactionUser(i)
	if u.ID != "1" || u.Username != "alice" || u.DisplayName != "Ali" {
		t.Fatalf("unexpected user: %+v", u)
	}

	i.Member.Nick = ""
	if u := interactionUser(i); u.DisplayName != "Alice A." {
		t.Fatalf("expected global name, got %q", u.DisplayName)
	}

	dm := &discordgo.Interaction{User: &discordgo.User{ID: "2", Username: "bob"}}
	if u := interactionUser(dm); u.ID != "2" || u.DisplayName != "bob" {
		t.Fatalf("unexpected DM user: %+v", u)
	}
}

func TestCommandMessage(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "chat",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "other", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
			{Name: "message", Type: discordgo.ApplicationCommandOptionString, Value: "hello workflow"},
		},
	}
	if got := commandMessage(data); got != "hello workflow" {
		t.Fatalf("unexpected command message %q", got)
	}
	if got := commandMessage(discordgo.ApplicationCommandInteractionData{Name: "chat"}); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}

func TestMessageEventMapsAttachments(t *testing.T) {
	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "t1",
		GuildID:   "g1",
		Content:   "listen",
		Author:    &discordgo.User{ID: "u1", Username: "alice", Bot: false},
		Attachments: []*discordgo.MessageAttachment{
			{ID: "a1", URL: "https://cdn.discordapp.com/voice-message.ogg", Filename: "voice-message.ogg", ContentType: "audio/ogg", Size: 2048},
			nil,
		},
	}
	evt := messageEvent(m, true)
	if evt.MessageID != "m1" || evt.ChannelID != "t1" || evt.GuildID != "g1" || !evt.IsThread {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Author.ID != "u1" || evt.Author.Bot {
		t.Fatalf("unexpected author: %+v", evt.Author)
	}
	if len(evt.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(evt.Attachments))
	}
	a := evt.Attachments[0]
	if a.Name != "voice-message.ogg" || a.ContentType != "audio/ogg" || a.Size != 2048 || a.ID != "a1" {
		t.Fatalf("unexpected attachment: %+v", a)
	}
}

func TestSupportsThreads(t *testing.T) {
	cases := []struct {
		typ  discordgo.ChannelType
		want bool
	}{
		{discordgo.ChannelTypeGuildText, true},
		{discordgo.ChannelTypeGuildNews, true},
		{discordgo.ChannelTypeDM, false},
		{discordgo.ChannelTypeGuildVoice, false},
		{discordgo.ChannelTypeGuildPublicThread, false},
	}
	for _, tc := range cases {
		if got := supportsThreads(&discordgo.Channel{Type: tc.typ}); got != tc.want {
			t.Fatalf("supportsThreads(%v) = %v, want %v", tc.typ, got, tc.want)
		}
	}
	if supportsThreads(nil) {
		t.Fatalf("nil channel cannot host threads")
	}
}

func TestChatCommandShape(t *testing.T) {
	cmd := chatCommand("chat")
	if cmd.Name != "chat" || len(cmd.Options) != 1 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	opt := cmd.Options[0]
	if opt.Name != "message" || opt.Type != discordgo.ApplicationCommandOptionString || !opt.Required {
		t.Fatalf("unexpected option: %+v", opt)
	}
}

func TestDiscordChannelNotRunning(t *testing.T) {
	ch, err := NewDiscordChannel(config.DiscordConfig{Token: "test-token", GuildID: "g1", AllowFrom: []string{"u1"}})
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	if ch.Name() != "discord" || ch.IsRunning() {
		t.Fatalf("unexpected initial state")
	}
	if err := ch.HealthCheck(context.Background()); !errors.Is(err, errNotRunning) {
		t.Fatalf("expected not running, got %v", err)
	}
	if err := ch.Send(context.Background(), OutboundMessage{ChannelID: "c", Content: "x"}); err == nil {
		t.Fatalf("expected send error while stopped")
	}
	if err := ch.Start(context.Background()); err == nil {
		t.Fatalf("expected start to require a handler")
	}
	if !ch.IsAllowed("u1") || ch.IsAllowed("u2") {
		t.Fatalf("allowlist not applied")
	}
	if !ch.inGuild("g1") || ch.inGuild("g2") {
		t.Fatalf("guild filter not applied")
	}
}

func TestTrackedIsThread(t *testing.T) {
	if !trackedIsThread(nil, errors.New("unknown channel"), "t1") {
		t.Fatalf("a tracked channel that cannot be resolved is still a session thread")
	}
	if !trackedIsThread(&discordgo.Channel{Type: discordgo.ChannelTypeGuildPublicThread}, nil, "t1") {
		t.Fatalf("public thread should be a thread")
	}
	if trackedIsThread(&discordgo.Channel{Type: discordgo.ChannelTypeGuildText}, nil, "c1") {
		t.Fatalf("text channel is not a thread")
	}
}

type countingHandler struct {
	tracked  int
	messages int
}

func (h *countingHandler) HandleCommand(ctx context.Context, evt relay.CommandEvent) {}

func (h *countingHandler) HandleMessage(ctx context.Context, evt relay.MessageEvent) {
	h.messages++
}

func (h *countingHandler) HandleThreadDelete(ctx context.Context, evt relay.ThreadDeleteEvent) {}

func (h *countingHandler) Tracks(threadID string) bool {
	h.tracked++
	return true
}

func TestOnMessageCreateSkipsBotsBeforeLookup(t *testing.T) {
	ch, err := NewDiscordChannel(config.DiscordConfig{Token: "test-token", GuildID: "g1"})
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	h := &countingHandler{}
	ch.SetHandler(h)

	ch.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "t1",
		GuildID:   "g1",
		Author:    &discordgo.User{ID: "bot", Bot: true},
		Content:   "⏳ Processing your message...",
	}})
	ch.handleWG.Wait()

	if h.tracked != 0 || h.messages != 0 {
		t.Fatalf("bot messages must be dropped before the session check, tracked=%d messages=%d", h.tracked, h.messages)
	}
}
