package channel

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/logger"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
)

const addedEvent = `{"type":"ADDED_TO_SPACE","space":{"name":"spaces/AAA","type":"ROOM"},"user":{"name":"users/1"}}`

func TestDeliverDecodesRawAndBase64(t *testing.T) {
	t.Parallel()

	for name, data := range map[string][]byte{
		"raw":    []byte(addedEvent),
		"base64": []byte(base64.StdEncoding.EncodeToString([]byte(addedEvent))),
	} {
		t.Run(name, func(t *testing.T) {
			var got event.Event
			var gotHandle message.Handle = &nopHandle{}

			err := Deliver(context.Background(), logger.Discard(), func(_ context.Context, ev event.Event, handle message.Handle) error {
				got = ev
				gotHandle = handle
				return nil
			}, "m-1", data)
			require.NoError(t, err)
			require.Equal(t, event.TypeAddedToSpace, got.Type)
			require.Equal(t, "spaces/AAA", got.Space.Name)
			require.Nil(t, gotHandle)
		})
	}
}

func TestDeliverDropsMalformedPayload(t *testing.T) {
	t.Parallel()

	called := false
	err := Deliver(context.Background(), logger.Discard(), func(context.Context, event.Event, message.Handle) error {
		called = true
		return nil
	}, "m-2", []byte("{not json"))

	require.NoError(t, err)
	require.False(t, called)
}

func TestDeliverReturnsHandlerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := Deliver(context.Background(), logger.Discard(), func(context.Context, event.Event, message.Handle) error {
		return boom
	}, "m-3", []byte(addedEvent))

	require.ErrorIs(t, err, boom)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hi", Preview("  hi \n"))

	long := strings.Repeat("a", messagePreviewLimit+10)
	got := Preview(long)
	require.Len(t, got, messagePreviewLimit+3)
	require.True(t, strings.HasSuffix(got, "..."))

	accented := Preview("a" + strings.Repeat("é", messagePreviewLimit))
	require.True(t, utf8.ValidString(accented))
	require.LessOrEqual(t, len(accented), messagePreviewLimit+3)
	require.True(t, strings.HasSuffix(accented, "é..."))
}

type nopHandle struct{}

func (nopHandle) Respond([]byte) bool { return false }
