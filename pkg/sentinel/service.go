package sentinel

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
)

const (
	defaultSchedule = "@every 1m"
	checkTimeout    = 10 * time.Second
	dialTimeout     = 5 * time.Second
)

type AlertFunc func(msg string)

// HealthReporter reports per-channel health; a nil error means healthy.
type HealthReporter interface {
	CheckHealth(ctx context.Context) map[string]error
}

// ChannelRestarter restarts a channel by name.
type ChannelRestarter interface {
	RestartChannel(ctx context.Context, name string) error
}

type Options struct {
	ConfigPath string
	Schedule   string
	// Cooldown is the minimum gap between two identical alerts.
	Cooldown time.Duration
	Channels HealthReporter
	// Healer, when set, restarts unhealthy channels.
	Healer  ChannelRestarter
	OnAlert AlertFunc
}

type Service struct {
	opts     Options
	cron     *cron.Cron
	mu       sync.Mutex
	limiters map[string]*rate.Sometimes
	dialer   net.Dialer
}

func NewService(opts Options) *Service {
	if opts.Schedule == "" {
		opts.Schedule = defaultSchedule
	}
	return &Service{
		opts:     opts,
		limiters: map[string]*rate.Sometimes{},
		dialer:   net.Dialer{Timeout: dialTimeout},
	}
}

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.opts.Schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid sentinel schedule %q: %w", s.opts.Schedule, err)
	}
	c.Start()
	s.cron = c

	logger.InfoCF("sentinel", "Sentinel started", map[string]interface{}{
		"schedule": s.opts.Schedule,
		"cooldown": s.opts.Cooldown.String(),
	})
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	logger.InfoC("sentinel", "Sentinel stopped")
}

func (s *Service) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	s.RunOnce(ctx)
}

// RunOnce runs every check and raises alerts for the issues found. It
// returns all issues, including those suppressed by the cooldown.
func (s *Service) RunOnce(ctx context.Context) []string {
	cfg, issues := s.checkConfig()
	issues = append(issues, s.checkChannels(ctx)...)
	if cfg != nil {
		issues = append(issues, s.checkWebhook(ctx, cfg)...)
		issues = append(issues, s.checkLogs(cfg)...)
	}

	for _, issue := range issues {
		s.alert(issue)
	}
	return issues
}

func (s *Service) checkConfig() (*config.Config, []string) {
	cfg, err := config.LoadConfig(s.opts.ConfigPath)
	if err != nil {
		return nil, []string{fmt.Sprintf("sentinel: config parse failed: %v", err)}
	}

	verrs := config.Validate(cfg)
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, fmt.Sprintf("sentinel: config validation issue: %v", e))
	}
	return cfg, out
}

func (s *Service) checkChannels(ctx context.Context) []string {
	if s.opts.Channels == nil {
		return nil
	}
	results := s.opts.Channels.CheckHealth(ctx)
	names := make([]string, 0, len(results))
	for name, err := range results {
		if err != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		if s.opts.Healer == nil {
			out = append(out, fmt.Sprintf("sentinel: channel %s unhealthy: %v", name, results[name]))
			continue
		}
		if err := s.opts.Healer.RestartChannel(ctx, name); err != nil {
			out = append(out, fmt.Sprintf("sentinel: channel %s unhealthy: %v (restart failed: %v)", name, results[name], err))
			continue
		}
		out = append(out, fmt.Sprintf("sentinel: channel %s unhealthy: %v, auto-healed", name, results[name]))
	}
	return out
}

// checkWebhook only verifies that the webhook host accepts TCP connections;
// posting a probe event would start a workflow run.
func (s *Service) checkWebhook(ctx context.Context, cfg *config.Config) []string {
	addr, err := webhookAddr(cfg.Webhook.URL)
	if err != nil {
		return nil
	}
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return []string{fmt.Sprintf("sentinel: webhook host %s unreachable: %v", addr, err)}
	}
	_ = conn.Close()
	return nil
}

func (s *Service) checkLogs(cfg *config.Config) []string {
	if !cfg.Logging.Enabled {
		return nil
	}
	logDir := filepath.Clean(filepath.Dir(cfg.LogFilePath()))
	if _, err := os.Stat(logDir); err != nil {
		if mkErr := os.MkdirAll(logDir, 0755); mkErr == nil {
			return []string{"sentinel: log dir missing, auto-healed"}
		}
		return []string{fmt.Sprintf("sentinel: log dir missing: %s", logDir)}
	}
	return nil
}

func (s *Service) alert(msg string) {
	s.mu.Lock()
	limiter, ok := s.limiters[msg]
	if !ok {
		limiter = &rate.Sometimes{Interval: s.opts.Cooldown}
		if s.opts.Cooldown <= 0 {
			limiter = &rate.Sometimes{Every: 1}
		}
		s.limiters[msg] = limiter
	}
	s.mu.Unlock()

	limiter.Do(func() {
		logger.WarnCF("sentinel", msg, nil)
		if s.opts.OnAlert != nil {
			s.opts.OnAlert(msg)
		}
	})
}

func webhookAddr(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("webhook url has no host")
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		default:
			return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
