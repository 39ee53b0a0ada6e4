package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
)

const (
	channelName  = "http"
	maxBodyBytes = 1 << 20
)

// Adapter receives Chat events as HTTP POSTs and can answer them in the response body.
type Adapter struct {
	cfg config.HTTPConfig
	log *slog.Logger
}

// NewAdapter validates the listener settings.
func NewAdapter(cfg config.HTTPConfig, log *slog.Logger) (*Adapter, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("http.port %d is out of range", cfg.Port)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg: cfg,
		log: log.With("component", "channel.webhook"),
	}, nil
}

func (a *Adapter) Name() string {
	return channelName
}

// Addr is the listen address built from host and port.
func (a *Adapter) Addr() string {
	host := strings.TrimSpace(a.cfg.Host)
	return net.JoinHostPort(host, strconv.Itoa(a.cfg.Port))
}

// Run serves the webhook until ctx is canceled.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	server := &http.Server{
		Addr:              a.Addr(),
		Handler:           a.Routes(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	a.log.Info("Webhook listener started", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start webhook listener: %w", err)
	}

	return nil
}

// Routes mounts the event endpoint. One POST carries one event.
func (a *Adapter) Routes(handler channel.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/", a.serveEvent(handler))
	return r
}

func (a *Adapter) serveEvent(handler channel.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			a.log.Warn("Failed to read request body", "error", err)
			http.Error(w, "could not read body", http.StatusBadRequest)
			return
		}

		ev, err := event.Decode(body)
		if err != nil {
			a.log.Warn("Rejecting malformed event", "error", err, "error_category", failure.MalformedPayload, "payload", channel.Preview(string(body)))
			http.Error(w, "malformed event", http.StatusBadRequest)
			return
		}

		handle := &responseHandle{w: w}
		if err := handler(r.Context(), ev, handle); err != nil {
			a.log.Error("Failed to process event", "type", ev.Type, "error", err, "error_category", failure.CategoryOf(err))
		}

		handle.finish()
	}
}

// responseHandle answers one webhook request at most once. After finish, any
// late Respond call reports false so the caller falls back to the REST API.
type responseHandle struct {
	w http.ResponseWriter

	mu   sync.Mutex
	used bool
}

func (h *responseHandle) Respond(body []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.used {
		return false
	}
	h.used = true

	h.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	h.w.WriteHeader(http.StatusOK)
	_, _ = h.w.Write(body)
	return true
}

// finish waits for a Respond in progress, then closes the handle.
func (h *responseHandle) finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.used {
		h.used = true
		h.w.WriteHeader(http.StatusOK)
	}
}
