package outbound

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/bus"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
)

const (
	deliveryHTTP = "http"
	deliveryREST = "rest"
)

// Creator posts a message into a space through the Chat REST API.
type Creator interface {
	CreateMessage(ctx context.Context, parent string, payload Payload) error
}

// Router turns robot Send/Reply calls into a synchronous HTTP response or an
// asynchronous create-message call.
type Router struct {
	creator Creator
	events  *bus.MessageBus
	log     *slog.Logger

	inflight sync.WaitGroup
}

// NewRouter builds a router. events may be nil.
func NewRouter(creator Creator, events *bus.MessageBus, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		creator: creator,
		events:  events,
		log:     log.With("component", "outbound.router"),
	}
}

// Send posts into the envelope's space. A room message starts a new thread.
func (r *Router) Send(ctx context.Context, env Envelope, text string, cardJSON string) error {
	space, err := SpaceName(env)
	if err != nil {
		return err
	}

	payload, err := BuildPayload(space, nil, text, cardJSON)
	if err != nil {
		return err
	}

	if removed(env.Message) {
		r.log.Warn("Dropping message for a space the bot was removed from", "space", space)
		return nil
	}

	r.createAsync(ctx, env.Message, space, payload)
	return nil
}

// Reply answers env.Message in its thread. The first reply to a webhook event
// is written to the HTTP response; any later reply goes through the REST API.
func (r *Router) Reply(ctx context.Context, env Envelope, text string, cardJSON string) error {
	if env.Message == nil {
		return ErrMissingDestination
	}

	space, err := SpaceName(env)
	if err != nil {
		return err
	}

	payload, err := BuildPayload(space, env.Message.Thread, text, cardJSON)
	if err != nil {
		return err
	}

	if removed(env.Message) {
		r.log.Warn("Dropping reply to a space the bot was removed from", "space", space)
		return nil
	}

	if r.respondHTTP(ctx, env.Message, payload) {
		return nil
	}

	r.createAsync(ctx, env.Message, space, payload)
	return nil
}

// Wait blocks until every pending create-message call has finished.
func (r *Router) Wait() {
	r.inflight.Wait()
}

func (r *Router) respondHTTP(ctx context.Context, msg *message.Message, payload Payload) bool {
	handle := msg.Handle()
	if handle == nil {
		return false
	}

	payload.Space = nil
	body, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("Failed to encode HTTP reply", "error", err)
		return false
	}
	if !handle.Respond(body) {
		return false
	}

	msg.SetHandled()
	r.log.Info("Replied over HTTP", "space", msg.Space.Name, "request_id", msg.RequestID)
	r.publishReplied(ctx, msg, msg.Space.Name, deliveryHTTP)
	return true
}

// createAsync issues the REST call in the background. Failures are logged only.
func (r *Router) createAsync(ctx context.Context, msg *message.Message, space string, payload Payload) {
	if msg != nil {
		msg.SetHandled()
	}

	requestID := ""
	if msg != nil {
		requestID = msg.RequestID
	}

	// The inbound request may finish before the REST call does.
	callCtx := context.WithoutCancel(ctx)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		r.log.Info("Sending a message to space", "space", space, "request_id", requestID)
		if r.creator == nil {
			r.log.Error("Message creation failed", "space", space, "error", "no chat client configured", "error_category", failure.MessageCreationFailure)
			return
		}
		if err := r.creator.CreateMessage(callCtx, space, payload); err != nil {
			r.log.Error("Message creation failed", "space", space, "request_id", requestID, "error", err, "error_category", failure.CategoryOf(err))
			return
		}

		r.publishReplied(callCtx, msg, space, deliveryREST)
	}()
}

func (r *Router) publishReplied(ctx context.Context, msg *message.Message, space string, delivery string) {
	event := bus.Event{
		Type:    bus.EventReplied,
		Space:   space,
		Payload: map[string]string{"delivery": delivery},
	}
	if msg != nil {
		event.RequestID = msg.RequestID
		event.Kind = msg.Kind.String()
	}

	r.events.Publish(ctx, event)
}

func removed(msg *message.Message) bool {
	return msg != nil && msg.Kind == message.KindRemovedFromSpace
}
