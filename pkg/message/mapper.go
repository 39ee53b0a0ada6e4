package message

import (
	"fmt"
	"slices"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
)

// ErrUnrecognizedEventType is returned for event types without a message variant.
var ErrUnrecognizedEventType = failure.New(failure.UnrecognizedEventType, "unrecognized event type")

// FromEvent maps one Chat event to its message variant. handle may be nil.
func FromEvent(ev event.Event, handle Handle) (*Message, error) {
	msg := &Message{
		EventTime: ev.EventTime,
		handle:    handle,
	}
	if ev.User != nil {
		msg.User = *ev.User
	}
	if ev.Space != nil {
		msg.Space = *ev.Space
	}
	msg.Room = msg.Space.Name

	switch ev.Type {
	case event.TypeMessage:
		msg.Kind = KindText
		copyText(msg, ev.Message)
	case event.TypeAddedToSpace:
		if ev.Message == nil {
			msg.Kind = KindAddedToSpace
			break
		}
		msg.Kind = KindAddedToSpaceText
		copyText(msg, ev.Message)
	case event.TypeRemovedFromSpace:
		msg.Kind = KindRemovedFromSpace
	case event.TypeCardClicked:
		msg.Kind = KindCardClicked
		if ev.Message != nil {
			msg.Thread = ev.Message.Thread
		}
		if ev.Action != nil {
			msg.ActionMethodName = ev.Action.ActionMethodName
			msg.Parameters = slices.Clone(ev.Action.Parameters)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedEventType, ev.Type)
	}

	return msg, nil
}

// copyText fills the text-message fields. Text is empty for a bare @mention.
func copyText(msg *Message, src *event.Message) {
	if src == nil {
		return
	}

	msg.ID = src.Name
	msg.Text = src.Text
	msg.Thread = src.Thread
}
