package channel

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
)

const messagePreviewLimit = 240

// Handler processes one decoded Chat event. handle is nil for queue transports,
// which have no synchronous response.
type Handler func(ctx context.Context, ev event.Event, handle message.Handle) error

// Adapter bridges one inbound transport (webhook, Pub/Sub, Redis stream) into the robot.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}

// Deliver decodes a queued payload and hands it to handler.
//
// Malformed payloads are logged and dropped; the returned error is only
// non-nil when handler itself failed. Queue transports acknowledge either way.
func Deliver(ctx context.Context, log *slog.Logger, handler Handler, id string, data []byte) error {
	ev, err := event.Decode(data)
	if err != nil {
		log.Warn("Dropping malformed event", "message_id", id, "error", err, "error_category", failure.MalformedPayload, "payload", Preview(string(data)))
		return nil
	}

	log.Debug("Received event", "message_id", id, "type", ev.Type)
	if err := handler(ctx, ev, nil); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("Failed to process event", "message_id", id, "type", ev.Type, "error", err, "error_category", failure.CategoryOf(err))
		}
		return err
	}

	return nil
}

// Preview returns a bounded log-safe preview of text.
func Preview(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	cut := messagePreviewLimit
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut] + "..."
}
