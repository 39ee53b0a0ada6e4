package message

import (
	"time"

	"go.uber.org/atomic"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
)

// Kind discriminates the message variants produced from Chat events.
type Kind int

const (
	KindText Kind = iota + 1
	KindAddedToSpaceText
	KindAddedToSpace
	KindRemovedFromSpace
	KindCardClicked
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAddedToSpaceText:
		return "added_to_space_text"
	case KindAddedToSpace:
		return "added_to_space"
	case KindRemovedFromSpace:
		return "removed_from_space"
	case KindCardClicked:
		return "card_clicked"
	default:
		return "unknown"
	}
}

// HasText reports whether the variant carries user text that text listeners match against.
func (k Kind) HasText() bool {
	switch k {
	case KindText, KindAddedToSpaceText:
		return true
	default:
		return false
	}
}

// Handle answers the originating webhook request synchronously.
//
// Respond writes body as the HTTP response and reports whether it did; a
// handle accepts at most one response.
type Handle interface {
	Respond(body []byte) bool
}

// Message is one inbound Chat event normalized for dispatch.
type Message struct {
	Kind      Kind
	ID        string
	Text      string
	User      event.User
	Space     event.Space
	Thread    *event.Thread
	EventTime time.Time

	// Room is the space name; room-keyed listeners filter on it.
	Room string

	// Set for KindCardClicked only.
	ActionMethodName string
	Parameters       []event.ActionParameter

	// RequestID correlates lifecycle events and logs for one inbound event.
	RequestID string

	handle  Handle
	handled atomic.Bool
}

// Handle returns the synchronous response handle, or nil for queue deliveries.
func (m *Message) Handle() Handle {
	return m.handle
}

// SetHandled marks that a reply path was taken for this message.
func (m *Message) SetHandled() {
	m.handled.Store(true)
}

func (m *Message) Handled() bool {
	return m.handled.Load()
}
