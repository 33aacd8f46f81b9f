package sentinel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeChannels map[string]error

func (f fakeChannels) CheckHealth(ctx context.Context) map[string]error {
	return f
}

type fakeHealer struct {
	mu        sync.Mutex
	restarted []string
	err       error
}

func (h *fakeHealer) RestartChannel(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restarted = append(h.restarted, name)
	return h.err
}

type alertSink struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alertSink) add(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

func (a *alertSink) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.msgs)
}

func writeSentinelConfig(t *testing.T, webhookURL string) string {
	t.Helper()
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := fmt.Sprintf(`{
  "discord": {"token": "t", "guild_id": "g"},
  "webhook": {"url": %q},
  "logging": {"dir": %q}
}`, webhookURL, logDir)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestRunOnceHealthy(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer hook.Close()

	sink := &alertSink{}
	svc := NewService(Options{
		ConfigPath: writeSentinelConfig(t, hook.URL+"/webhook/chat"),
		Cooldown:   time.Hour,
		Channels:   fakeChannels{"discord": nil},
		OnAlert:    sink.add,
	})

	if issues := svc.RunOnce(context.Background()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if sink.count() != 0 {
		t.Fatalf("expected no alerts, got %v", sink.msgs)
	}
}

func TestRunOnceReportsAndDeduplicates(t *testing.T) {
	sink := &alertSink{}
	svc := NewService(Options{
		ConfigPath: writeSentinelConfig(t, "http://"+closedAddr(t)+"/webhook/chat"),
		Cooldown:   time.Hour,
		Channels:   fakeChannels{"discord": errors.New("gateway not connected")},
		OnAlert:    sink.add,
	})

	issues := svc.RunOnce(context.Background())
	if len(issues) != 2 {
		t.Fatalf("expected channel and webhook issues, got %v", issues)
	}
	joined := strings.Join(issues, "\n")
	if !strings.Contains(joined, "channel discord unhealthy") || !strings.Contains(joined, "unreachable") {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if sink.count() != 2 {
		t.Fatalf("expected 2 alerts, got %d", sink.count())
	}

	svc.RunOnce(context.Background())
	if sink.count() != 2 {
		t.Fatalf("repeated issues must be suppressed during cooldown, got %d alerts", sink.count())
	}
}

func TestRunOnceRestartsUnhealthyChannels(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer hook.Close()

	healer := &fakeHealer{}
	svc := NewService(Options{
		ConfigPath: writeSentinelConfig(t, hook.URL+"/webhook/chat"),
		Channels:   fakeChannels{"discord": errors.New("gateway not ready"), "other": nil},
		Healer:     healer,
	})

	issues := svc.RunOnce(context.Background())
	if len(healer.restarted) != 1 || healer.restarted[0] != "discord" {
		t.Fatalf("expected only discord to be restarted, got %v", healer.restarted)
	}
	if len(issues) != 1 || !strings.Contains(issues[0], "auto-healed") {
		t.Fatalf("unexpected issues: %v", issues)
	}

	healer.err = errors.New("token revoked")
	issues = svc.RunOnce(context.Background())
	if len(issues) != 1 || !strings.Contains(issues[0], "restart failed: token revoked") {
		t.Fatalf("unexpected issues after failed restart: %v", issues)
	}
}

func TestZeroCooldownAlertsEveryTime(t *testing.T) {
	sink := &alertSink{}
	svc := NewService(Options{OnAlert: sink.add})
	svc.alert("sentinel: test")
	svc.alert("sentinel: test")
	if sink.count() != 2 {
		t.Fatalf("expected 2 alerts, got %d", sink.count())
	}
}

func TestRunOnceReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"webhook":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	svc := NewService(Options{ConfigPath: path})
	issues := svc.RunOnce(context.Background())
	if len(issues) != 1 || !strings.Contains(issues[0], "config parse failed") {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := NewService(Options{Schedule: "sometimes"})
	if err := svc.Start(); err == nil {
		svc.Stop()
		t.Fatalf("expected schedule error")
	}
}

func TestWebhookAddr(t *testing.T) {
	cases := map[string]string{
		"https://n8n.example.com/webhook/x": "n8n.example.com:443",
		"http://localhost:5678/webhook/x":   "localhost:5678",
		"http://[::1]/webhook":              "[::1]:80",
	}
	for raw, want := range cases {
		got, err := webhookAddr(raw)
		if err != nil || got != want {
			t.Fatalf("webhookAddr(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := webhookAddr("ftp://host/x"); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}
