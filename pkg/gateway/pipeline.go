package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/bus"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
)

// Receiver dispatches a mapped message to listeners. *robot.Robot implements it.
type Receiver interface {
	Receive(ctx context.Context, msg *message.Message) int
}

// Pipeline maps raw events and hands them to the robot. Its Handle method is
// the channel.Handler every transport calls.
type Pipeline struct {
	receiver Receiver
	events   *bus.MessageBus
	log      *slog.Logger
}

func NewPipeline(receiver Receiver, events *bus.MessageBus, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		receiver: receiver,
		events:   events,
		log:      log.With("component", "gateway.pipeline"),
	}
}

// Handle processes one event. Unrecognized event types are logged and dropped
// without an error so transports still acknowledge them.
func (p *Pipeline) Handle(ctx context.Context, ev event.Event, handle message.Handle) error {
	requestID := uuid.NewString()
	space := ""
	if ev.Space != nil {
		space = ev.Space.Name
	}

	p.publish(ctx, bus.Event{Type: bus.EventReceived, RequestID: requestID, ChatEvent: ev.Type, Space: space})

	msg, err := message.FromEvent(ev, handle)
	if err != nil {
		if errors.Is(err, message.ErrUnrecognizedEventType) {
			p.log.Error("Ignoring unrecognized event type", "request_id", requestID, "type", ev.Type, "error", err, "error_category", failure.UnrecognizedEventType)
			p.publish(ctx, bus.Event{Type: bus.EventIgnored, RequestID: requestID, ChatEvent: ev.Type, Space: space, Error: err.Error()})
			return nil
		}
		return err
	}
	msg.RequestID = requestID

	p.publish(ctx, bus.Event{Type: bus.EventMapped, RequestID: requestID, ChatEvent: ev.Type, Kind: msg.Kind.String(), Space: space})
	p.log.Info("Received event", "request_id", requestID, "type", ev.Type, "space", space, "user", msg.User.Name)

	p.publish(ctx, bus.Event{Type: bus.EventDispatched, RequestID: requestID, ChatEvent: ev.Type, Kind: msg.Kind.String(), Space: space})
	matched := p.receiver.Receive(ctx, msg)

	if msg.Kind == message.KindRemovedFromSpace {
		p.publish(ctx, bus.Event{
			Type:      bus.EventIgnored,
			RequestID: requestID,
			ChatEvent: ev.Type,
			Kind:      msg.Kind.String(),
			Space:     space,
			Payload:   map[string]string{"reason": "removed_from_space"},
		})
	}

	p.log.Debug("Event dispatched", "request_id", requestID, "listeners", matched, "handled", msg.Handled())
	return nil
}

func (p *Pipeline) publish(ctx context.Context, ev bus.Event) {
	p.events.Publish(ctx, ev)
}
