package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/bus"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
)

const (
	defaultHealthHost   = "0.0.0.0"
	defaultHealthPort   = 18790
	healthCheckInterval = 30 * time.Second
	lifecycleBuffer     = 64
)

// HealthChecker reports whether the Chat REST client is usable.
type HealthChecker interface {
	Health(context.Context) error
}

// Drainer waits for outbound calls still in flight.
type Drainer interface {
	Wait()
}

// Options are the collaborators a Service runs. Chat, Drainer and Events may be nil.
type Options struct {
	Adapter  channel.Adapter
	Pipeline *Pipeline
	Chat     HealthChecker
	Drainer  Drainer
	Events   *bus.MessageBus
}

type Service struct {
	cfg  *config.Config
	log  *slog.Logger
	opts Options

	mu           sync.RWMutex
	startedAt    time.Time
	chatLastOKAt time.Time
	chatLastErr  string
	channelState channelState
}

type channelState struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	ChatLastOKAt  string       `json:"chat_last_ok_at,omitempty"`
	ChatLastErr   string       `json:"chat_last_error,omitempty"`
	Channel       channelState `json:"channel"`
}

func NewService(cfg *config.Config, opts Options, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if opts.Adapter == nil {
		return nil, errors.New("a channel adapter is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New("a pipeline is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:          cfg,
		log:          log.With("component", "gateway.service"),
		opts:         opts,
		channelState: channelState{Name: opts.Adapter.Name()},
	}, nil
}

// Run serves the configured transport and the status endpoints until ctx is
// canceled or either of them fails. Pending REST calls are drained before it returns.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkChatHealth(ctx); err != nil {
		s.log.Warn("Chat client unavailable, replies over REST will fail", "error", err)
	}

	defer s.drain()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopLifecycle := s.logLifecycle(ctx)
	defer stopLifecycle()

	serverErrors := make(chan error, 1)
	go s.runHealthServer(ctx, serverErrors)

	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.checkChatHealth(ctx)
			}
		}
	}()

	adapter := s.opts.Adapter
	errCh := make(chan error, 1)
	s.setChannelState(true, nil)
	go func() {
		err := adapter.Run(ctx, s.opts.Pipeline.Handle)
		s.setChannelState(false, err)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			return
		}
		errCh <- nil
	}()

	// The transport may still be finishing events that reply over REST, so it
	// must return before the router is drained.
	select {
	case <-ctx.Done():
		<-errCh
		return nil
	case err := <-serverErrors:
		cancel()
		<-errCh
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Service) drain() {
	if s.opts.Drainer != nil {
		s.opts.Drainer.Wait()
	}
}

// logLifecycle mirrors bus events into the debug log until ctx ends.
func (s *Service) logLifecycle(ctx context.Context) func() {
	if s.opts.Events == nil {
		return func() {}
	}

	events, unsubscribe := s.opts.Events.Subscribe(ctx, lifecycleBuffer)
	go func() {
		for ev := range events {
			s.log.Debug("Lifecycle event",
				"event", string(ev.Type),
				"request_id", ev.RequestID,
				"chat_event", ev.ChatEvent,
				"kind", ev.Kind,
				"space", ev.Space,
			)
		}
	}()

	return unsubscribe
}

// Routes exposes the status endpoints.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	return r
}

func (s *Service) runHealthServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultHealthPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	chatLastOK := ""
	if !s.chatLastOKAt.IsZero() {
		chatLastOK = s.chatLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		ChatLastOKAt:  chatLastOK,
		ChatLastErr:   s.chatLastErr,
		Channel:       s.channelState,
	}
}

// isReady requires a running channel and a Chat client that passed its last check.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.channelState.Running {
		return false
	}
	if s.chatLastOKAt.IsZero() || s.chatLastErr != "" {
		return false
	}

	return true
}

func (s *Service) checkChatHealth(ctx context.Context) error {
	if s.opts.Chat == nil {
		s.mu.Lock()
		s.chatLastErr = "no chat client configured"
		s.mu.Unlock()
		return errors.New("no chat client configured")
	}

	if err := s.opts.Chat.Health(ctx); err != nil {
		s.mu.Lock()
		s.chatLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("chat health check failed: %w", err)
	}

	s.mu.Lock()
	s.chatLastErr = ""
	s.chatLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setChannelState(running bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelState.Running = running
	s.channelState.Error = errorString(err)
}

func errorString(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}

	return err.Error()
}
