package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// FailureMessage replaces an assistant reply whose stream failed.
const FailureMessage = "Sorry, something went wrong. Please try again."

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Failed  bool   `json:"failed,omitempty"`
}

// Session is one conversation: the local transcript plus the backend
// conversation id.
type Session struct {
	Client       *Client
	SystemPrompt string
	Logger       *zap.Logger

	mu             sync.Mutex
	conversationID string
	messages       []Message
	// generation changes on Reset so that a turn still streaming cannot
	// write into the cleared transcript.
	generation int
}

func NewSession(client *Client, systemPrompt string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{Client: client, SystemPrompt: systemPrompt, Logger: logger}
}

// Send appends the user message and an assistant message that grows as chunks
// arrive. onChunk, when set, sees each fragment too. On failure the assistant
// message becomes FailureMessage and the error is returned. A Reset during the
// stream detaches the turn: the reply is still returned but not recorded.
func (s *Session) Send(ctx context.Context, text string, onChunk func(string)) (Message, error) {
	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text}, Message{Role: RoleAssistant})
	idx := len(s.messages) - 1
	gen := s.generation
	req := Request{Message: text, SystemPrompt: s.SystemPrompt, ConversationID: s.conversationID}
	s.mu.Unlock()

	var reply strings.Builder
	id, err := s.Client.Stream(ctx, req, func(chunk string) {
		reply.WriteString(chunk)
		s.mu.Lock()
		if s.generation == gen {
			s.messages[idx].Content = reply.String()
		}
		s.mu.Unlock()
		if onChunk != nil {
			onChunk(chunk)
		}
	})

	msg := Message{Role: RoleAssistant, Content: reply.String()}
	if err != nil {
		s.Logger.Warn("chat stream failed", zap.Error(err))
		msg = Message{Role: RoleAssistant, Content: FailureMessage, Failed: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return msg, err
	}
	if id != "" {
		s.conversationID = id
	}
	s.messages[idx] = msg
	return msg, err
}

// Reset clears the backend conversation, then the local transcript. The
// local state is kept when the backend call fails.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	id := s.conversationID
	s.mu.Unlock()

	if id != "" {
		if err := s.Client.Reset(ctx, id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = ""
	s.messages = nil
	s.generation++
	return nil
}

func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}
