package googlechat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	chat "google.golang.org/api/chat/v1"
	"google.golang.org/api/option"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/outbound"
)

// ScopeBot is the OAuth scope a Chat app authenticates with.
const ScopeBot = "https://www.googleapis.com/auth/chat.bot"

var (
	ErrAuthentication  = failure.New(failure.AuthenticationFailure, "could not obtain chat credentials")
	ErrMessageCreation = failure.New(failure.MessageCreationFailure, "chat message creation failed")
)

// Client posts messages through the Chat REST API. The underlying service is
// built on first use, so a process that only answers over HTTP never needs
// credentials.
type Client struct {
	log     *slog.Logger
	service func() (*chat.Service, error)
}

// New returns a client configured from cfg.
func New(ctx context.Context, cfg config.ChatConfig, log *slog.Logger) *Client {
	return newClient(log, func() (*chat.Service, error) {
		opts, err := clientOptions(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return chat.NewService(ctx, opts...)
	})
}

// NewWithOptions skips credential discovery and hands opts to the service as is.
func NewWithOptions(ctx context.Context, log *slog.Logger, opts ...option.ClientOption) *Client {
	return newClient(log, func() (*chat.Service, error) {
		return chat.NewService(ctx, opts...)
	})
}

func newClient(log *slog.Logger, build func() (*chat.Service, error)) *Client {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "googlechat.client")

	return &Client{
		log: log,
		service: sync.OnceValues(func() (*chat.Service, error) {
			svc, err := build()
			if err != nil {
				log.Error("Chat client initialization failed", "error", err, "error_category", failure.AuthenticationFailure)
				return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
			}
			log.Debug("Chat client initialized")
			return svc, nil
		}),
	}
}

func clientOptions(ctx context.Context, cfg config.ChatConfig) ([]option.ClientOption, error) {
	var creds *google.Credentials
	var err error

	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		creds, err = google.CredentialsFromJSON(ctx, []byte(raw), ScopeBot)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, ScopeBot)
	}
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithCredentials(creds)}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	return opts, nil
}

// Health reports whether the client could be built with the configured credentials.
func (c *Client) Health(context.Context) error {
	_, err := c.service()
	return err
}

// CreateMessage implements outbound.Creator.
func (c *Client) CreateMessage(ctx context.Context, parent string, payload outbound.Payload) error {
	svc, err := c.service()
	if err != nil {
		return err
	}

	msg, err := toChatMessage(payload)
	if err != nil {
		return err
	}

	created, err := svc.Spaces.Messages.Create(parent, msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMessageCreation, err)
	}

	c.log.Debug("Created chat message", "space", parent, "message", created.Name)
	return nil
}

func toChatMessage(payload outbound.Payload) (*chat.Message, error) {
	msg := &chat.Message{Text: payload.Text}
	if payload.Space != nil {
		msg.Space = &chat.Space{Name: payload.Space.Name}
	}
	if payload.Thread != nil {
		msg.Thread = &chat.Thread{Name: payload.Thread.Name}
	}

	for _, raw := range payload.Cards {
		card := &chat.Card{}
		if err := json.Unmarshal(raw, card); err != nil {
			return nil, fmt.Errorf("%w: %v", outbound.ErrInvalidCards, err)
		}
		msg.Cards = append(msg.Cards, card)
	}

	return msg, nil
}
