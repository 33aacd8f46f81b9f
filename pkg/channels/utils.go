package channels

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
)

func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

// splitMessage cuts content into chunks of at most limit runes, preferring
// line breaks and then spaces in the second half of each chunk.
func splitMessage(content string, limit int) []string {
	runes := []rune(content)
	if limit <= 0 || len(runes) <= limit {
		return []string{content}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		if i := lastIndexRune(runes[:limit], '\n'); i >= limit/2 {
			cut = i + 1
		} else if i := lastIndexRune(runes[:limit], ' '); i >= limit/2 {
			cut = i + 1
		}
		if part := strings.TrimRight(string(runes[:cut]), " \n"); part != "" {
			parts = append(parts, part)
		}
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

type cancelGuard struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (g *cancelGuard) set(cancel context.CancelFunc) {
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
}

func (g *cancelGuard) cancelAndClear() {
	g.mu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func runChannelTask(name, taskName string, task func() error, onFailure func(error)) {
	go func() {
		if err := task(); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.InfoCF(name, taskName+" stopped", map[string]interface{}{
					"reason": "context canceled",
				})
				return
			}
			logger.ErrorCF(name, taskName+" failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			if onFailure != nil {
				onFailure(err)
			}
		}
	}()
}
