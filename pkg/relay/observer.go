package relay

import (
	"time"

	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
	"github.com/EricMoy7/n8n-discord-bot/pkg/session"
	"github.com/EricMoy7/n8n-discord-bot/pkg/webhook"
)

// Observer is notified of session lifecycle changes and webhook failures.
type Observer interface {
	SessionStarted(sess session.Session)
	SessionRemoved(sess session.Session)
	WebhookFailed(sess session.Session, eventType EventType, err error)
}

// LogObserver reports lifecycle changes through the component logger.
type LogObserver struct{}

func (LogObserver) SessionStarted(sess session.Session) {
	logger.InfoCF("relay", "Session started", map[string]interface{}{
		logger.FieldSessionID: sess.ID,
		logger.FieldThreadID:  sess.ThreadID,
		logger.FieldUserID:    sess.OwnerID,
	})
}

func (LogObserver) SessionRemoved(sess session.Session) {
	logger.InfoCF("relay", "Session removed", map[string]interface{}{
		logger.FieldSessionID: sess.ID,
		logger.FieldThreadID:  sess.ThreadID,
		"age":                 time.Since(sess.StartedAt).Round(time.Second).String(),
	})
}

func (LogObserver) WebhookFailed(sess session.Session, eventType EventType, err error) {
	fields := map[string]interface{}{
		logger.FieldSessionID: sess.ID,
		logger.FieldThreadID:  sess.ThreadID,
		logger.FieldEventType: string(eventType),
		logger.FieldError:     err.Error(),
	}
	if werr, ok := err.(*webhook.Error); ok {
		fields[logger.FieldErrorKind] = werr.Kind.String()
		if werr.StatusCode != 0 {
			fields[logger.FieldStatusCode] = werr.StatusCode
		}
	}
	logger.WarnCF("relay", "Webhook call failed", fields)
}
