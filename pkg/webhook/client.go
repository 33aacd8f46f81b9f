// n8ncord - Discord to n8n workflow relay
// License: MIT
//
// Copyright (c) 2026 n8ncord contributors

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
)

const maxResponseBytes = 1 << 20

// Reply is the parsed body of a successful webhook call. A nil Message
// means the workflow answered without anything to post.
type Reply struct {
	Message *string
}

type Options struct {
	// Secret, when set, is sent as "Authorization: Bearer <secret>".
	Secret    string
	UserAgent string
	// Transport overrides the base round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client performs single-attempt JSON POSTs against a workflow webhook.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := base
	if secret := strings.TrimSpace(opts.Secret); secret != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secret, TokenType: "Bearer"}),
			Base:   base,
		}
	}
	return &Client{
		// Per-call deadlines come from the context passed to Post.
		httpClient: &http.Client{Transport: transport},
		userAgent:  opts.UserAgent,
	}
}

// Post sends body as JSON to url and waits up to timeout for the answer.
// Any failure is returned as *Error.
func (c *Client) Post(ctx context.Context, url string, body any, timeout time.Duration) (*Reply, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindOther, Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindOther, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		werr := classifyTransportError(err)
		logger.DebugCF("webhook", "Webhook request failed", map[string]interface{}{
			logger.FieldErrorKind:  werr.Kind.String(),
			logger.FieldError:      err.Error(),
			logger.FieldDurationMS: time.Since(started).Milliseconds(),
		})
		return nil, werr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &Error{
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	logger.DebugCF("webhook", "Webhook responded", map[string]interface{}{
		logger.FieldStatusCode: resp.StatusCode,
		logger.FieldDurationMS: time.Since(started).Milliseconds(),
		"body_bytes":           len(data),
	})
	return parseReply(data), nil
}

func parseReply(data []byte) *Reply {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Reply{}
	}
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		logger.DebugCF("webhook", "Webhook body is not a JSON object, ignoring", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		return &Reply{}
	}
	var msg string
	if len(body.Message) == 0 || bytes.Equal(body.Message, []byte("null")) || json.Unmarshal(body.Message, &msg) != nil {
		return &Reply{}
	}
	return &Reply{Message: &msg}
}
