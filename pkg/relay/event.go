package relay

import (
	"time"

	"github.com/EricMoy7/n8n-discord-bot/pkg/session"
	"github.com/EricMoy7/n8n-discord-bot/pkg/voice"
)

type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventMessage      EventType = "message"
	EventVoiceMessage EventType = "voice_message"
)

// timestampLayout matches JavaScript's Date.toISOString output.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// OutboundEvent is the JSON body posted to the workflow webhook.
type OutboundEvent struct {
	SessionID   string           `json:"sessionId"`
	ThreadID    string           `json:"threadId"`
	UserID      string           `json:"userId"`
	Username    string           `json:"username"`
	Message     string           `json:"message"`
	Timestamp   string           `json:"timestamp"`
	Type        EventType        `json:"type"`
	Attachments []AttachmentInfo `json:"attachments,omitempty"`
	HasVoice    *bool            `json:"hasVoice,omitempty"`
}

type AttachmentInfo struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Size        int    `json:"size"`
	ContentType string `json:"contentType"`
	ID          string `json:"id"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func newSessionStartEvent(sess session.Session, user User, message string, now time.Time) OutboundEvent {
	return OutboundEvent{
		SessionID: sess.ID,
		ThreadID:  sess.ThreadID,
		UserID:    user.ID,
		Username:  user.Username,
		Message:   message,
		Timestamp: formatTimestamp(now),
		Type:      EventSessionStart,
	}
}

// newMessageEvent builds the payload for a thread message. Voice attachments
// switch the event type to voice_message.
func newMessageEvent(sess session.Session, msg MessageEvent, now time.Time) OutboundEvent {
	evt := OutboundEvent{
		SessionID: sess.ID,
		ThreadID:  sess.ThreadID,
		UserID:    msg.Author.ID,
		Username:  msg.Author.Username,
		Message:   msg.Content,
		Timestamp: formatTimestamp(now),
		Type:      EventMessage,
	}
	if len(msg.Attachments) == 0 {
		return evt
	}

	hasVoice := false
	evt.Attachments = make([]AttachmentInfo, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		evt.Attachments = append(evt.Attachments, AttachmentInfo{
			URL:         a.URL,
			Name:        a.Name,
			Size:        a.Size,
			ContentType: a.ContentType,
			ID:          a.ID,
		})
		if voice.IsVoice(a.ContentType, a.Name) {
			hasVoice = true
		}
	}
	evt.HasVoice = &hasVoice
	if hasVoice {
		evt.Type = EventVoiceMessage
	}
	return evt
}
