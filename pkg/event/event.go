// Package event holds the Google Chat event payload as delivered by the
// webhook and the queue transports.
package event

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
)

const (
	TypeMessage          = "MESSAGE"
	TypeAddedToSpace     = "ADDED_TO_SPACE"
	TypeRemovedFromSpace = "REMOVED_FROM_SPACE"
	TypeCardClicked      = "CARD_CLICKED"
)

// ErrMalformedPayload marks queue payloads that are neither JSON nor base64 JSON.
var ErrMalformedPayload = failure.New(failure.MalformedPayload, "event payload is not valid JSON")

// Event is one inbound Chat event.
type Event struct {
	Type      string    `json:"type"`
	EventTime time.Time `json:"eventTime"`
	Token     string    `json:"token,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	User      *User     `json:"user,omitempty"`
	Space     *Space    `json:"space,omitempty"`
	Action    *Action   `json:"action,omitempty"`
}

type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Email       string `json:"email,omitempty"`
	Type        string `json:"type,omitempty"`
}

type Space struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type Thread struct {
	Name string `json:"name"`
}

type Message struct {
	Name         string  `json:"name"`
	Text         string  `json:"text,omitempty"`
	ArgumentText string  `json:"argumentText,omitempty"`
	Sender       *User   `json:"sender,omitempty"`
	Thread       *Thread `json:"thread,omitempty"`
	Space        *Space  `json:"space,omitempty"`
}

// Action describes the button a user clicked on an interactive card.
type Action struct {
	ActionMethodName string            `json:"actionMethodName"`
	Parameters       []ActionParameter `json:"parameters,omitempty"`
}

type ActionParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Decode parses a queued event payload. The payload is either the event JSON
// itself or its base64 encoding.
func Decode(data []byte) (Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Event{}, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	if trimmed[0] != '{' {
		decoded, err := base64.StdEncoding.DecodeString(string(trimmed))
		if err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		trimmed = bytes.TrimSpace(decoded)
	}

	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return ev, nil
}
