package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
)

const channelName = "pubsub"

// Adapter pulls Chat events from a Cloud Pub/Sub subscription.
type Adapter struct {
	cfg  config.PubSubConfig
	opts []option.ClientOption
	log  *slog.Logger
}

// NewAdapter validates the subscription settings. credentialsJSON may be empty,
// in which case application default credentials are used.
func NewAdapter(cfg config.PubSubConfig, credentialsJSON string, log *slog.Logger, opts ...option.ClientOption) (*Adapter, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub.project_id is required")
	}
	if strings.TrimSpace(cfg.SubscriptionID) == "" {
		return nil, errors.New("pubsub.subscription_id is required")
	}
	if log == nil {
		log = slog.Default()
	}

	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if raw := strings.TrimSpace(credentialsJSON); raw != "" {
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(raw)))
	}
	clientOpts = append(clientOpts, opts...)

	return &Adapter{
		cfg:  cfg,
		opts: clientOpts,
		log:  log.With("component", "channel.pubsub", "subscription", subscriptionName(cfg)),
	}, nil
}

func (a *Adapter) Name() string {
	return channelName
}

// Run receives messages until ctx is canceled. Every message is acknowledged
// once handled, including ones that could not be decoded.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	client, err := pubsub.NewClient(ctx, a.cfg.ProjectID, a.opts...)
	if err != nil {
		return fmt.Errorf("initialize pubsub client: %w", err)
	}
	defer client.Close()

	sub := client.Subscription(a.cfg.SubscriptionID)
	sub.ReceiveSettings.MaxOutstandingMessages = a.cfg.MaxOutstanding

	a.log.Info("Pub/Sub channel started")
	err = sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		_ = channel.Deliver(ctx, a.log, handler, m.ID, m.Data)
		m.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive from %s: %w", subscriptionName(a.cfg), err)
	}

	return nil
}

func subscriptionName(cfg config.PubSubConfig) string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", cfg.ProjectID, cfg.SubscriptionID)
}
