package redisstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/channel"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
)

const (
	channelName = "redis"

	// FieldData carries the event JSON (raw or base64) in each stream entry.
	FieldData = "data"

	blockTimeout = 5 * time.Second
	minBackoff   = 100 * time.Millisecond
	maxBackoff   = 5 * time.Second
)

// Adapter consumes Chat events relayed into a Redis stream by a consumer group.
type Adapter struct {
	cfg    config.RedisConfig
	client *redis.Client
	log    *slog.Logger
}

// NewAdapter validates cfg and builds the Redis client. No connection is made yet.
func NewAdapter(cfg config.RedisConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis.addr is required")
	}
	if strings.TrimSpace(cfg.Stream) == "" {
		return nil, errors.New("redis.stream is required")
	}
	if strings.TrimSpace(cfg.Group) == "" {
		return nil, errors.New("redis.group is required")
	}
	if strings.TrimSpace(cfg.Consumer) == "" {
		cfg.Consumer = "hubot"
	}
	if log == nil {
		log = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})

	return &Adapter{
		cfg:    cfg,
		client: client,
		log:    log.With("component", "channel.redisstream", "stream", cfg.Stream, "group", cfg.Group),
	}, nil
}

func (a *Adapter) Name() string {
	return channelName
}

// Run reads new entries for the consumer group until ctx is canceled. Each
// entry is acknowledged after it was handled, malformed or not.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	defer a.client.Close()

	if err := a.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis %s: %w", a.cfg.Addr, err)
	}
	if err := ensureGroup(ctx, a.client, a.cfg.Stream, a.cfg.Group); err != nil {
		return err
	}

	a.log.Info("Redis stream channel started", "consumer", a.cfg.Consumer)

	args := &redis.XReadGroupArgs{
		Group:    a.cfg.Group,
		Consumer: a.cfg.Consumer,
		Streams:  []string{a.cfg.Stream, ">"},
		Count:    1,
		Block:    blockTimeout,
	}

	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := a.client.XReadGroup(ctx, args).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				backoff = minBackoff
				continue
			}

			a.log.Warn("Stream read failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = minBackoff

		for _, stream := range res {
			for _, msg := range stream.Messages {
				_ = channel.Deliver(ctx, a.log, handler, msg.ID, payloadFromValues(msg.Values))
				if err := a.client.XAck(context.WithoutCancel(ctx), a.cfg.Stream, a.cfg.Group, msg.ID).Err(); err != nil {
					a.log.Error("Failed to acknowledge entry", "message_id", msg.ID, "error", err)
				}
			}
		}
	}
}

// ensureGroup creates the consumer group (and stream) when missing.
func ensureGroup(ctx context.Context, client *redis.Client, stream string, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group %s on %s: %w", group, stream, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// payloadFromValues extracts the event bytes from a stream entry.
func payloadFromValues(values map[string]any) []byte {
	switch v := values[FieldData].(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}
