package outbound

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
)

var (
	ErrMissingDestination = failure.New(failure.MissingDestination, "the envelope must have either a message or a room")
	ErrEmptyMessage       = failure.New(failure.EmptyMessage, "you cannot send an empty message")
	ErrInvalidCards       = failure.New(failure.InvalidCards, "card JSON must be an array of card objects")
)

// Envelope addresses an outbound message. Message wins over Room when both are set.
type Envelope struct {
	Message *message.Message
	Room    string
}

// SpaceRef names the destination space in REST request bodies.
type SpaceRef struct {
	Name string `json:"name"`
}

// Payload is the Chat message body. Space is omitted in synchronous HTTP replies.
type Payload struct {
	Space  *SpaceRef         `json:"space,omitempty"`
	Text   string            `json:"text"`
	Cards  []json.RawMessage `json:"cards"`
	Thread *event.Thread     `json:"thread,omitempty"`
}

// SpaceName resolves the destination space of env.
func SpaceName(env Envelope) (string, error) {
	if env.Message != nil {
		return env.Message.Space.Name, nil
	}
	if env.Room != "" {
		return env.Room, nil
	}

	return "", ErrMissingDestination
}

// BuildPayload validates text and card JSON and assembles the message body.
//
// An empty cardJSON counts as "[]"; a single card object is wrapped into a
// one-element array. The message is rejected only when both text and cards are empty.
func BuildPayload(space string, thread *event.Thread, text string, cardJSON string) (Payload, error) {
	cards, err := parseCards(cardJSON)
	if err != nil {
		return Payload{}, err
	}
	if text == "" && len(cards) == 0 {
		return Payload{}, ErrEmptyMessage
	}

	return Payload{
		Space:  &SpaceRef{Name: space},
		Text:   text,
		Cards:  cards,
		Thread: thread,
	}, nil
}

func parseCards(cardJSON string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace([]byte(cardJSON))
	if len(trimmed) == 0 {
		return []json.RawMessage{}, nil
	}

	if trimmed[0] == '{' {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("%w: invalid card object", ErrInvalidCards)
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	}

	var cards []json.RawMessage
	if err := json.Unmarshal(trimmed, &cards); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCards, err)
	}
	if cards == nil {
		cards = []json.RawMessage{}
	}

	return cards, nil
}
