package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dwaltig/agentdeck/internal/client"
	"github.com/dwaltig/agentdeck/internal/metrics"
	"github.com/dwaltig/agentdeck/internal/types"
	"github.com/rs/zerolog"
)

// DefaultTranscriptLimit caps the in-memory chat transcript.
const DefaultTranscriptLimit = 500

// Controller owns the chat transcript and the send path. Sends are
// serialized so the transcript order matches the order messages were
// submitted in.
type Controller struct {
	backend client.Backend
	logger  zerolog.Logger
	limit   int
	now     func() time.Time

	sendMu sync.Mutex

	mu       sync.Mutex
	messages []types.ChatMessage
}

// NewController creates a chat controller over the given backend.
func NewController(backend client.Backend, logger zerolog.Logger) *Controller {
	return &Controller{
		backend: backend,
		logger:  logger.With().Str("component", "chat").Logger(),
		limit:   DefaultTranscriptLimit,
		now:     time.Now,
	}
}

// LoadHistory replaces the transcript with the server-side history.
func (c *Controller) LoadHistory(ctx context.Context) error {
	history, err := c.backend.ChatHistory(ctx)
	if err != nil {
		return err
	}
	c.ReplaceHistory(history)
	return nil
}

// ReplaceHistory swaps the transcript for an already-fetched history,
// trimming the oldest entries past the cap.
func (c *Controller) ReplaceHistory(history []types.ChatMessage) {
	if len(history) > c.limit {
		history = history[len(history)-c.limit:]
	}

	c.mu.Lock()
	c.messages = append([]types.ChatMessage(nil), history...)
	c.mu.Unlock()
}

// Send submits one user message. The user's entry appears in the
// transcript immediately; the agent reply (or a system-authored error
// entry) is appended when the request resolves. Concurrent sends are
// serialized in call order.
func (c *Controller) Send(ctx context.Context, message string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.append(types.ChatMessage{
		SenderType: "user",
		SenderName: "You",
		Content:    message,
		Timestamp:  c.now().Format("15:04:05"),
	})

	resp, err := c.backend.SendChatMessage(ctx, message)
	metrics.Get().RecordChatMessage(err != nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("chat send failed")
		c.append(types.ChatMessage{
			SenderType: "system",
			SenderName: "System",
			Content:    fmt.Sprintf("message failed: %v", err),
			Timestamp:  c.now().Format("15:04:05"),
		})
		return err
	}

	c.append(types.ChatMessage{
		SenderType: "agent",
		SenderName: resp.AgentName,
		Content:    resp.Response,
		Timestamp:  c.now().Format("15:04:05"),
		AgentType:  resp.AgentType,
	})
	return nil
}

// Transcript returns a copy of the transcript in order.
func (c *Controller) Transcript() []types.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Size returns the number of transcript entries.
func (c *Controller) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *Controller) append(m types.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, m)
	if len(c.messages) > c.limit {
		c.messages = c.messages[len(c.messages)-c.limit:]
	}
}
