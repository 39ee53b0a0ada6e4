package event

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
)

const messageJSON = `{
  "type": "MESSAGE",
  "eventTime": "2017-03-02T19:02:59.910959Z",
  "space": {"name": "spaces/AAAAAAAAAAA", "displayName": "Chuck Norris Discussion Room", "type": "ROOM"},
  "message": {
    "name": "spaces/AAAAAAAAAAA/messages/CCCCCCCCCCC",
    "text": "@hubot help",
    "thread": {"name": "spaces/AAAAAAAAAAA/threads/BBBBBBBBBBB"}
  },
  "user": {"name": "users/12345678901234567890", "displayName": "Chuck Norris", "type": "HUMAN"}
}`

func TestDecodeRawJSON(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(messageJSON))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if ev.Type != TypeMessage {
		t.Fatalf("type = %q, want %q", ev.Type, TypeMessage)
	}
	if ev.Message == nil || ev.Message.Text != "@hubot help" {
		t.Fatalf("message = %+v, want text @hubot help", ev.Message)
	}
	if ev.Space == nil || ev.Space.Name != "spaces/AAAAAAAAAAA" {
		t.Fatalf("space = %+v", ev.Space)
	}
	if ev.EventTime.IsZero() {
		t.Fatal("expected event time")
	}
}

func TestDecodeBase64JSON(t *testing.T) {
	t.Parallel()

	encoded := base64.StdEncoding.EncodeToString([]byte(messageJSON))
	ev, err := Decode([]byte(encoded))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if ev.User == nil || ev.User.DisplayName != "Chuck Norris" {
		t.Fatalf("user = %+v", ev.User)
	}
	if ev.Message.Thread == nil || ev.Message.Thread.Name != "spaces/AAAAAAAAAAA/threads/BBBBBBBBBBB" {
		t.Fatalf("thread = %+v", ev.Message.Thread)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{
		nil,
		[]byte("   "),
		[]byte("not base64 !!"),
		[]byte("{not json"),
		[]byte(base64.StdEncoding.EncodeToString([]byte("plain text"))),
	}

	for _, input := range inputs {
		_, err := Decode(input)
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("Decode(%q) error = %v, want ErrMalformedPayload", input, err)
		}
		if got := failure.CategoryOf(err); got != failure.MalformedPayload {
			t.Fatalf("Decode(%q) category = %q", input, got)
		}
	}
}
