package cmd

import (
	"fmt"
	"log/slog"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/bus"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/gateway"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/logger"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/outbound"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/robot"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/scripts"
)

// runtime is the robot wired to an outbound router and an inbound pipeline.
type runtime struct {
	router   *outbound.Router
	bot      *robot.Robot
	pipeline *gateway.Pipeline
}

func newRuntime(cfg *config.Config, creator outbound.Creator, events *bus.MessageBus, log *slog.Logger) (*runtime, error) {
	router := outbound.NewRouter(creator, events, log)
	bot := robot.New(cfg.Bot.Name, cfg.Bot.Alias, router, log)
	if err := scripts.Load(bot); err != nil {
		return nil, fmt.Errorf("load scripts: %w", err)
	}

	return &runtime{
		router:   router,
		bot:      bot,
		pipeline: gateway.NewPipeline(bot, events, log),
	}, nil
}

// loadConfig reads and validates configuration and installs the process logger.
func loadConfig(component string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	return cfg, slog.Default().With("component", component), nil
}
