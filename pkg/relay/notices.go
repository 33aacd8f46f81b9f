package relay

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/EricMoy7/n8n-discord-bot/pkg/webhook"
)

const (
	textSessionStarted    = "✅ Session started in <#%s>"
	textThreadFailed      = "❌ Could not create a session thread. Please try again."
	textThreadUnsupported = "❌ Sessions can only be started from a server text channel."
	textStarting          = "🔄 Connecting to the workflow..."
	textConnected         = "✅ Connected to the workflow. Waiting for a response..."
	textProcessing        = "⏳ Processing your message..."
	textProcessingVoice   = "🎤 Processing voice message..."
	textSent              = "✅ Message sent to the workflow."

	textEndpointDown = "❌ Webhook endpoint not accessible. Make sure the workflow is active."
	textHTTPStatus   = "❌ Webhook returned an error: %d %s"
	textNoResponse   = "❌ No response received from the workflow."
	textOtherFailure = "❌ Failed to reach the workflow: %s"

	threadReason     = "n8n chat session"
	maxThreadNameLen = 100
)

// FailureNotice renders the thread notice for a failed webhook call.
func FailureNotice(err error) string {
	var werr *webhook.Error
	if !errors.As(err, &werr) {
		return fmt.Sprintf(textOtherFailure, err.Error())
	}
	switch werr.Kind {
	case webhook.KindConnectionRefused:
		return textEndpointDown
	case webhook.KindHTTPStatus:
		return fmt.Sprintf(textHTTPStatus, werr.StatusCode, werr.Status)
	case webhook.KindNoResponse:
		return textNoResponse
	case webhook.KindOther:
		return fmt.Sprintf(textOtherFailure, werr.Message())
	}
	return fmt.Sprintf(textOtherFailure, werr.Error())
}

func threadName(u User) string {
	name := "Chat with " + strings.TrimSpace(u.Name())
	if utf8.RuneCountInString(name) <= maxThreadNameLen {
		return name
	}
	return string([]rune(name)[:maxThreadNameLen])
}

// replyText picks the workflow's reply, or fallback when it had none.
func replyText(reply *webhook.Reply, fallback string) string {
	if reply == nil || reply.Message == nil || strings.TrimSpace(*reply.Message) == "" {
		return fallback
	}
	return *reply.Message
}
