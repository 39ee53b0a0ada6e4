package googlechat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/logger"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/outbound"
)

type capturedRequest struct {
	method string
	path   string
	body   map[string]any
}

func newChatServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		requests = append(requests, capturedRequest{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"name":"spaces/AAA/messages/NEW"}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewWithOptions(context.Background(), logger.Discard(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
}

func TestCreateMessagePostsToSpace(t *testing.T) {
	t.Parallel()

	srv, requests := newChatServer(t, http.StatusOK)
	client := testClient(t, srv)

	payload, err := outbound.BuildPayload("spaces/AAA", &event.Thread{Name: "spaces/AAA/threads/BBB"}, "hello",
		`[{"header":{"title":"title"},"sections":[{"widgets":[{"textParagraph":{"text":"body"}}]}]}]`)
	require.NoError(t, err)

	require.NoError(t, client.CreateMessage(context.Background(), "spaces/AAA", payload))

	got := requests()
	require.Len(t, got, 1)
	require.Equal(t, http.MethodPost, got[0].method)
	require.Equal(t, "/v1/spaces/AAA/messages", got[0].path)
	require.Equal(t, "hello", got[0].body["text"])
	require.Equal(t, map[string]any{"name": "spaces/AAA/threads/BBB"}, got[0].body["thread"])
	require.Equal(t, map[string]any{"name": "spaces/AAA"}, got[0].body["space"])

	cards, ok := got[0].body["cards"].([]any)
	require.True(t, ok)
	require.Len(t, cards, 1)
	header := cards[0].(map[string]any)["header"].(map[string]any)
	require.Equal(t, "title", header["title"])
}

func TestCreateMessageFailureIsCategorized(t *testing.T) {
	t.Parallel()

	srv, _ := newChatServer(t, http.StatusForbidden)
	client := testClient(t, srv)

	payload, err := outbound.BuildPayload("spaces/AAA", nil, "hello", "")
	require.NoError(t, err)

	err = client.CreateMessage(context.Background(), "spaces/AAA", payload)
	require.ErrorIs(t, err, ErrMessageCreation)
	require.Equal(t, failure.MessageCreationFailure, failure.CategoryOf(err))
}

func TestBadCredentialsFailOnFirstUse(t *testing.T) {
	t.Parallel()

	client := New(context.Background(), config.ChatConfig{CredentialsJSON: "not json"}, logger.Discard())

	err := client.Health(context.Background())
	require.ErrorIs(t, err, ErrAuthentication)
	require.Equal(t, failure.AuthenticationFailure, failure.CategoryOf(err))

	payload, err := outbound.BuildPayload("spaces/AAA", nil, "hello", "")
	require.NoError(t, err)
	require.ErrorIs(t, client.CreateMessage(context.Background(), "spaces/AAA", payload), ErrAuthentication)
}

func TestHealthWithWorkingService(t *testing.T) {
	t.Parallel()

	srv, requests := newChatServer(t, http.StatusOK)
	client := testClient(t, srv)

	require.NoError(t, client.Health(context.Background()))
	require.Empty(t, requests())
}

func TestToChatMessageRejectsMalformedCard(t *testing.T) {
	t.Parallel()

	_, err := toChatMessage(outbound.Payload{Text: "x", Cards: []json.RawMessage{json.RawMessage(`"card"`)}})
	require.ErrorIs(t, err, outbound.ErrInvalidCards)
}
