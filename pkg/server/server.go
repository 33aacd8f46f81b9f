package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/EricMoy7/n8n-discord-bot/pkg/logger"
	"github.com/EricMoy7/n8n-discord-bot/pkg/session"
)

// HealthReporter reports per-channel health; a nil error means healthy.
type HealthReporter interface {
	CheckHealth(ctx context.Context) map[string]error
}

// SessionLister exposes the active relay sessions.
type SessionLister interface {
	List() []session.Session
}

type Server struct {
	addr     string
	server   *http.Server
	channels HealthReporter
	sessions SessionLister
	version  string
	started  time.Time
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Uptime   string            `json:"uptime"`
	Sessions int               `json:"sessions"`
	Channels map[string]string `json:"channels"`

	// Active lists sessions oldest first.
	Active []SessionInfo `json:"active_sessions,omitempty"`
}

type SessionInfo struct {
	ThreadID string `json:"thread_id"`
	OwnerID  string `json:"owner_id"`
	Owner    string `json:"owner"`
	Age      string `json:"age"`
}

func NewServer(addr, version string, channels HealthReporter, sessions SessionLister) *Server {
	return &Server{
		addr:     addr,
		channels: channels,
		sessions: sessions,
		version:  version,
		started:  time.Now(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.InfoCF("server", "Starting health server", map[string]interface{}{
		"addr": ln.Addr().String(),
	})

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("server", "Health server failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		logger.InfoC("server", "Stopping health server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Health collects the current status.
func (s *Server) Health(ctx context.Context) HealthResponse {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Channels: map[string]string{},
	}
	if s.sessions != nil {
		now := time.Now()
		for _, sess := range s.sessions.List() {
			resp.Active = append(resp.Active, SessionInfo{
				ThreadID: sess.ThreadID,
				OwnerID:  sess.OwnerID,
				Owner:    sess.OwnerDisplayName,
				Age:      now.Sub(sess.StartedAt).Round(time.Second).String(),
			})
		}
		resp.Sessions = len(resp.Active)
	}
	if s.channels == nil {
		return resp
	}

	results := s.channels.CheckHealth(ctx)
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := results[name]; err != nil {
			resp.Channels[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Channels[name] = "ok"
	}
	if len(results) == 0 {
		resp.Status = "degraded"
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := s.Health(ctx)
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "n8ncord relay running\nTime: %s", time.Now().Format(time.RFC3339))
}
