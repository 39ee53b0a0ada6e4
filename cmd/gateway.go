package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/bus"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel/pubsub"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel/redisstream"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel/webhook"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/gateway"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/googlechat"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the Chat adapter",
	Long:  "Receives Chat events on the configured transport and serves health and readiness endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, log, err := loadConfig("cmd.gateway")
		if err != nil {
			return err
		}

		runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runGateway(runCtx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Gateway runtime failed", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	adapter, err := enabledAdapter(cfg, log)
	if err != nil {
		return fmt.Errorf("configure transport: %w", err)
	}

	chat := googlechat.New(ctx, cfg.Chat, log)
	// Queue transports can only answer over REST.
	if requiresREST(cfg.Transport) {
		if err := chat.Health(ctx); err != nil {
			return fmt.Errorf("%s transport needs a working chat client: %w", cfg.Transport, err)
		}
	}

	events := bus.NewMessageBus()
	defer events.Close()

	rt, err := newRuntime(cfg, chat, events, log)
	if err != nil {
		return err
	}

	svc, err := gateway.NewService(cfg, gateway.Options{
		Adapter:  adapter,
		Pipeline: rt.pipeline,
		Chat:     chat,
		Drainer:  rt.router,
		Events:   events,
	}, log)
	if err != nil {
		return fmt.Errorf("initialize gateway service: %w", err)
	}

	log.Info("Gateway started", "transport", adapter.Name(), "bot", cfg.Bot.Name)
	return svc.Run(ctx)
}

// enabledAdapter picks the one inbound transport for this process.
func enabledAdapter(cfg *config.Config, log *slog.Logger) (channel.Adapter, error) {
	switch cfg.Transport {
	case config.TransportHTTP:
		return webhook.NewAdapter(cfg.HTTP, log)
	case config.TransportPubSub:
		return pubsub.NewAdapter(cfg.PubSub, cfg.Chat.CredentialsJSON, log)
	case config.TransportRedis:
		return redisstream.NewAdapter(cfg.Redis, log)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func requiresREST(transport string) bool {
	return transport != config.TransportHTTP
}
