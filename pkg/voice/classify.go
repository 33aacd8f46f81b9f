// Package voice decides whether a chat attachment is a voice memo that the
// workflow should transcribe rather than treat as a generic file.
package voice

import (
	"path/filepath"
	"strings"
)

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".wav":  {},
	".ogg":  {},
	".webm": {},
	".opus": {},
}

// IsVoice reports whether an attachment with the given declared content type
// and filename should be handled as voice. An empty contentType means the
// platform did not declare one.
func IsVoice(contentType, filename string) bool {
	if ct := mediaType(contentType); ct != "" {
		if strings.HasPrefix(ct, "audio/") || ct == "video/mp4" {
			return true
		}
	}
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// mediaType strips parameters such as "; codecs=opus" and normalizes case.
func mediaType(contentType string) string {
	ct := contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
