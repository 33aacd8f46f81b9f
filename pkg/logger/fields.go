package logger

const (
	FieldChannel   = "channel"
	FieldChannelID = "channel_id"
	FieldGuildID   = "guild_id"
	FieldThreadID  = "thread_id"
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"
	FieldMessageID = "message_id"
	FieldEventType = "event_type"
	FieldPreview   = "preview"
	FieldError     = "error"

	FieldErrorKind        = "error_kind"
	FieldStatusCode       = "status_code"
	FieldAttachmentCount  = "attachment_count"
	FieldDurationMS       = "duration_ms"
	FieldReplyLength      = "reply_length"
	FieldMessageLength    = "message_content_length"
	FieldActiveSessions   = "active_sessions"
	FieldWebhookTimeoutMS = "webhook_timeout_ms"
)
