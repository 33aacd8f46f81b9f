package main

import (
	"strings"
	"testing"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
)

func TestNormalizeCLIArgsStripsGlobalFlags(t *testing.T) {
	args := []string{"n8ncord", "--debug", "config", "--config", "/tmp/c.toml", "get", "--config=/x", "webhook.url", "-d"}
	got := normalizeCLIArgs(args)
	want := []string{"n8ncord", "config", "get", "webhook.url"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestDetectConfigPathFromArgs(t *testing.T) {
	if got := detectConfigPathFromArgs([]string{"n8ncord", "run", "--config", " /etc/n8ncord.yaml "}); got != "/etc/n8ncord.yaml" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := detectConfigPathFromArgs([]string{"n8ncord", "--config=/a.json", "status"}); got != "/a.json" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := detectConfigPathFromArgs([]string{"n8ncord", "status"}); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}

func TestGetConfigPathPrefersOverrideThenEnv(t *testing.T) {
	old := globalConfigPathOverride
	defer func() { globalConfigPathOverride = old }()

	t.Setenv(envConfigPath, "/env/config.toml")
	globalConfigPathOverride = ""
	if got := getConfigPath(); got != "/env/config.toml" {
		t.Fatalf("expected env path, got %q", got)
	}
	globalConfigPathOverride = "/flag/config.json"
	if got := getConfigPath(); got != "/flag/config.json" {
		t.Fatalf("expected flag path, got %q", got)
	}
}

func TestCollectValueArgs(t *testing.T) {
	got := collectValueArgs([]string{"hello", "--config", "x.json", "world", "-d"})
	if got != "hello world" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestBuildServiceUnitContent(t *testing.T) {
	unit := buildServiceUnitContent("system", "/usr/local/bin/n8ncord", "/etc/n8ncord/config.json", "/usr/local/bin")
	for _, want := range []string{
		`ExecStart="/usr/local/bin/n8ncord" run --config "/etc/n8ncord/config.json"`,
		"Environment=N8NCORD_CONFIG=/etc/n8ncord/config.json",
		"ExecReload=/bin/kill -HUP $MAINPID",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(unit, want) {
			t.Fatalf("unit missing %q:\n%s", want, unit)
		}
	}
	if user := buildServiceUnitContent("user", "/bin/n8ncord", "/c.json", "/bin"); !strings.Contains(user, "WantedBy=default.target") {
		t.Fatalf("user unit should target default.target")
	}
}

func TestSameRuntimeConfigIgnoresLogging(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	b.Logging.Level = "debug"
	if !sameRuntimeConfig(a, b) {
		t.Fatalf("logging changes should not rebuild the runtime")
	}
	b.Webhook.TimeoutSec = 5
	if sameRuntimeConfig(a, b) {
		t.Fatalf("webhook changes should rebuild the runtime")
	}
}

func TestWebhookHost(t *testing.T) {
	if got := webhookHost("https://n8n.example.com:5678/webhook/abc"); got != "n8n.example.com:5678" {
		t.Fatalf("unexpected host %q", got)
	}
	if got := webhookHost("::bad"); got != "" {
		t.Fatalf("expected empty host, got %q", got)
	}
}
