package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/clippilot-backend/internal/chat"
)

// backend is a fake assistant server that answers with scripted events.
type backend struct {
	mu       sync.Mutex
	requests []chat.Request
	resets   []string
	events   []string
	status   int
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.URL.Path == "/api/chat/stream":
		var req chat.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.requests = append(b.requests, req)
		if b.status != 0 {
			w.WriteHeader(b.status)
			return
		}
		id := req.ConversationID
		if id == "" {
			id = "conv-1"
		}
		w.Header().Set(chat.ConversationHeader, id)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range b.events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
	case strings.HasPrefix(r.URL.Path, "/api/chat/reset/"):
		b.resets = append(b.resets, strings.TrimPrefix(r.URL.Path, "/api/chat/reset/"))
		_, _ = w.Write([]byte(`{"message":"Conversation reset successfully"}`))
	default:
		http.NotFound(w, r)
	}
}

func (b *backend) seen() ([]chat.Request, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chat.Request(nil), b.requests...), append([]string(nil), b.resets...)
}

func newBackend(t *testing.T, events ...string) (*backend, *chat.Client) {
	t.Helper()
	b := &backend{events: events}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, chat.NewClient(srv.URL+"/", srv.Client(), nil)
}

func TestClient_StreamAppendsChunksUntilDone(t *testing.T) {
	_, client := newBackend(t,
		`{"content":"Hel","conversation_id":"conv-1"}`,
		`not json`,
		`{"content":"lo"}`,
		`[DONE]`,
		`{"content":"ignored"}`,
	)

	var chunks []string
	id, err := client.Stream(context.Background(), chat.Request{Message: "hi"}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, "conv-1", id)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestClient_StreamErrorEvent(t *testing.T) {
	_, client := newBackend(t, `{"content":"par"}`, `{"error":"model overloaded"}`)

	_, err := client.Stream(context.Background(), chat.Request{Message: "hi"}, func(string) {})
	assert.ErrorIs(t, err, chat.ErrStream)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestClient_StreamBadStatus(t *testing.T) {
	b, client := newBackend(t)
	b.mu.Lock()
	b.status = http.StatusBadGateway
	b.mu.Unlock()

	_, err := client.Stream(context.Background(), chat.Request{Message: "hi"}, func(string) {})
	assert.ErrorContains(t, err, "status 502")
}

func TestSession_ReusesConversationAndResets(t *testing.T) {
	b, client := newBackend(t, `{"content":"Sure."}`, `[DONE]`)
	s := chat.NewSession(client, "Be brief.", nil)
	ctx := context.Background()

	reply, err := s.Send(ctx, "draft a post", nil)
	require.NoError(t, err)
	assert.Equal(t, chat.Message{Role: chat.RoleAssistant, Content: "Sure."}, reply)
	assert.Equal(t, "conv-1", s.ConversationID())

	_, err = s.Send(ctx, "shorter", nil)
	require.NoError(t, err)
	requests, _ := b.seen()
	require.Len(t, requests, 2)
	assert.Empty(t, requests[0].ConversationID)
	assert.Equal(t, "conv-1", requests[1].ConversationID)
	assert.Equal(t, "Be brief.", requests[1].SystemPrompt)
	assert.Len(t, s.Messages(), 4)

	require.NoError(t, s.Reset(ctx))
	_, resets := b.seen()
	assert.Equal(t, []string{"conv-1"}, resets)
	assert.Empty(t, s.Messages())
	assert.Empty(t, s.ConversationID())
}

func TestSession_FailureSubstitutesMessage(t *testing.T) {
	_, client := newBackend(t, `{"content":"half an answ"}`, `{"error":"boom"}`)
	s := chat.NewSession(client, "", nil)

	reply, err := s.Send(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Equal(t, chat.FailureMessage, reply.Content)
	assert.True(t, reply.Failed)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "hello"}, msgs[0])
	assert.Equal(t, chat.FailureMessage, msgs[1].Content)
}

func TestSession_ResetDuringStreamDetachesTurn(t *testing.T) {
	b, client := newBackend(t, `{"content":"one"}`, `{"content":"two"}`, `[DONE]`)
	s := chat.NewSession(client, "", nil)
	ctx := context.Background()

	_, err := s.Send(ctx, "first", nil)
	require.NoError(t, err)

	reset := false
	reply, err := s.Send(ctx, "second", func(string) {
		if !reset {
			reset = true
			require.NoError(t, s.Reset(ctx))
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "onetwo", reply.Content)
	assert.Empty(t, s.Messages())
	assert.Empty(t, s.ConversationID())

	_, resets := b.seen()
	assert.Equal(t, []string{"conv-1"}, resets)
}
