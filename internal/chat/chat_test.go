package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dwaltig/agentdeck/internal/types"
	"github.com/rs/zerolog"
)

type fakeBackend struct {
	historyFn func(ctx context.Context) ([]types.ChatMessage, error)
	sendFn    func(ctx context.Context, message string) (*types.ChatResponse, error)
}

func (f *fakeBackend) ChatHistory(ctx context.Context) ([]types.ChatMessage, error) {
	if f.historyFn != nil {
		return f.historyFn(ctx)
	}
	return nil, nil
}

func (f *fakeBackend) SendChatMessage(ctx context.Context, message string) (*types.ChatResponse, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, message)
	}
	return &types.ChatResponse{}, nil
}

func (f *fakeBackend) DashboardMetrics(ctx context.Context) (*types.DashboardMetrics, error) {
	return nil, nil
}
func (f *fakeBackend) Conversations(ctx context.Context) ([]types.ConversationEntry, error) {
	return nil, nil
}
func (f *fakeBackend) ActiveCases(ctx context.Context) ([]types.CaseSummary, error) {
	return nil, nil
}
func (f *fakeBackend) CaseDetails(ctx context.Context, caseID string) (*types.CaseDetail, error) {
	return nil, nil
}
func (f *fakeBackend) LearningMetrics(ctx context.Context) (*types.LearningMetrics, error) {
	return nil, nil
}

func TestSendAppendsUserAndAgent(t *testing.T) {
	fb := &fakeBackend{
		sendFn: func(ctx context.Context, message string) (*types.ChatResponse, error) {
			return &types.ChatResponse{
				AgentName: "Intelligence Agent",
				AgentType: "intelligence",
				Response:  "12 open cases",
			}, nil
		},
	}
	c := NewController(fb, zerolog.Nop())
	c.now = func() time.Time { return time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC) }

	if err := c.Send(context.Background(), "how many open cases?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := c.Transcript()
	if len(msgs) != 2 {
		t.Fatalf("expected user + agent entries, got %d", len(msgs))
	}
	if msgs[0].SenderType != "user" || msgs[0].SenderName != "You" || msgs[0].Content != "how many open cases?" {
		t.Errorf("unexpected user entry: %+v", msgs[0])
	}
	if msgs[0].Timestamp != "14:30:05" {
		t.Errorf("unexpected timestamp: %s", msgs[0].Timestamp)
	}
	if msgs[1].SenderType != "agent" || msgs[1].SenderName != "Intelligence Agent" || msgs[1].Content != "12 open cases" {
		t.Errorf("unexpected agent entry: %+v", msgs[1])
	}
}

func TestSendFailureAppendsSystemEntry(t *testing.T) {
	fb := &fakeBackend{
		sendFn: func(ctx context.Context, message string) (*types.ChatResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	c := NewController(fb, zerolog.Nop())

	if err := c.Send(context.Background(), "hello?"); err == nil {
		t.Fatal("expected send error to propagate")
	}

	msgs := c.Transcript()
	if len(msgs) != 2 {
		t.Fatalf("expected user + system entries, got %d", len(msgs))
	}
	if msgs[0].SenderType != "user" {
		t.Errorf("user entry must stay in the transcript: %+v", msgs[0])
	}
	if msgs[1].SenderType != "system" || msgs[1].SenderName != "System" {
		t.Errorf("expected system-authored failure entry: %+v", msgs[1])
	}
}

func TestLoadHistoryReplacesTranscript(t *testing.T) {
	fb := &fakeBackend{
		historyFn: func(ctx context.Context) ([]types.ChatMessage, error) {
			return []types.ChatMessage{
				{SenderType: "user", Content: "old question"},
				{SenderType: "agent", Content: "old answer"},
			}, nil
		},
	}
	c := NewController(fb, zerolog.Nop())
	c.append(types.ChatMessage{SenderType: "system", Content: "stale"})

	if err := c.LoadHistory(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := c.Transcript()
	if len(msgs) != 2 {
		t.Fatalf("expected history to replace transcript, got %d entries", len(msgs))
	}
	if msgs[0].Content != "old question" || msgs[1].Content != "old answer" {
		t.Errorf("history out of order: %+v", msgs)
	}
}

func TestReplaceHistoryTrimsToCap(t *testing.T) {
	c := NewController(&fakeBackend{}, zerolog.Nop())
	c.limit = 3

	history := make([]types.ChatMessage, 6)
	for i := range history {
		history[i] = types.ChatMessage{Content: fmt.Sprintf("msg-%d", i)}
	}
	c.ReplaceHistory(history)

	msgs := c.Transcript()
	if len(msgs) != 3 {
		t.Fatalf("expected transcript capped at 3, got %d", len(msgs))
	}
	if msgs[0].Content != "msg-3" {
		t.Errorf("expected trim from the front, got first %s", msgs[0].Content)
	}
}

func TestTranscriptCapped(t *testing.T) {
	c := NewController(&fakeBackend{}, zerolog.Nop())
	c.limit = 5

	for i := 0; i < 8; i++ {
		c.append(types.ChatMessage{Content: fmt.Sprintf("msg-%d", i)})
	}

	msgs := c.Transcript()
	if len(msgs) != 5 {
		t.Fatalf("expected transcript capped at 5, got %d", len(msgs))
	}
	if msgs[0].Content != "msg-3" {
		t.Errorf("expected oldest entries evicted, got first %s", msgs[0].Content)
	}
	if c.Size() != 5 {
		t.Errorf("expected size 5, got %d", c.Size())
	}
}
