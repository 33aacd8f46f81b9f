package relay

import (
	"context"
	"time"

	"github.com/EricMoy7/n8n-discord-bot/pkg/webhook"
)

type User struct {
	ID          string
	Username    string
	DisplayName string
	Bot         bool
}

// Name prefers the display name and falls back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

type Attachment struct {
	ID          string
	URL         string
	Name        string
	ContentType string
	Size        int
}

// Responder answers the invoker of a command on the surface it was used in.
type Responder interface {
	Respond(ctx context.Context, content string) error
}

type CommandEvent struct {
	GuildID   string
	ChannelID string
	User      User
	Message   string
	// CanCreateThread is false when the invoking channel cannot host threads
	// (DMs, threads, voice channels).
	CanCreateThread bool
	Responder       Responder
}

type MessageEvent struct {
	MessageID   string
	GuildID     string
	ChannelID   string
	IsThread    bool
	Author      User
	Content     string
	Attachments []Attachment
}

type ThreadDeleteEvent struct {
	ThreadID string
	GuildID  string
}

type ThreadSpec struct {
	ParentChannelID string
	Name            string
	Reason          string
}

// Platform is the chat surface the controller drives.
type Platform interface {
	CreateThread(ctx context.Context, spec ThreadSpec) (threadID string, err error)
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// Poster forwards an event to the workflow engine.
type Poster interface {
	Post(ctx context.Context, url string, body any, timeout time.Duration) (*webhook.Reply, error)
}
