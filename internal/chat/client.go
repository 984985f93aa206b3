// Package chat talks to the assistant backend that streams replies as
// server-sent events.
package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ConversationHeader carries the conversation id assigned by the backend.
const ConversationHeader = "X-Conversation-ID"

// ErrStream is returned when the backend reports an error inside the stream.
var ErrStream = errors.New("chat stream error")

type Request struct {
	Message        string `json:"message"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// event is one "data: " payload.
type event struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient uses http.DefaultClient when hc is nil. Streams can run long so
// no overall timeout is set; cancel through the context instead.
func NewClient(baseURL string, hc *http.Client, logger *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, logger: logger}
}

// Stream sends one message and calls onChunk for every content fragment in
// arrival order. It returns the conversation id reported by the backend,
// falling back to the one in req.
func (c *Client) Stream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	conversationID := resp.Header.Get(ConversationHeader)
	if conversationID == "" {
		conversationID = req.ConversationID
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return conversationID, nil
		}

		var ev event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			c.logger.Debug("skipping malformed chat event", zap.String("data", data))
			continue
		}
		if ev.Error != "" {
			return conversationID, fmt.Errorf("%w: %s", ErrStream, ev.Error)
		}
		if conversationID == "" {
			conversationID = ev.ConversationID
		}
		if ev.Content != "" {
			onChunk(ev.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return conversationID, fmt.Errorf("read chat stream: %w", err)
	}
	return conversationID, nil
}

// Reset clears the backend history of a conversation.
func (c *Client) Reset(ctx context.Context, conversationID string) error {
	endpoint := c.baseURL + "/api/chat/reset/" + url.PathEscape(conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build reset request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reset failed with status %d", resp.StatusCode)
	}
	return nil
}
