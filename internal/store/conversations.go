package store

import (
	"sync"

	"github.com/dwaltig/agentdeck/internal/types"
)

// DefaultConversationLimit bounds the conversation log so a long-running
// console does not grow without limit.
const DefaultConversationLimit = 500

// ConversationLog is the append-only log of agent conversation entries.
// Oldest entries are discarded once the limit is reached.
type ConversationLog struct {
	entries []types.ConversationEntry
	limit   int
	mu      sync.RWMutex
}

// NewConversationLog creates a log bounded to limit entries. A limit of
// zero or less falls back to the default.
func NewConversationLog(limit int) *ConversationLog {
	if limit <= 0 {
		limit = DefaultConversationLimit
	}
	return &ConversationLog{
		entries: make([]types.ConversationEntry, 0, limit),
		limit:   limit,
	}
}

// Append adds an entry, evicting the oldest once the limit is reached.
func (l *ConversationLog) Append(entry types.ConversationEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= l.limit {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
}

// Replace swaps the full contents, used after a full-state fetch. Entries
// beyond the limit are trimmed from the front (oldest first).
func (l *ConversationLog) Replace(entries []types.ConversationEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(entries) > l.limit {
		entries = entries[len(entries)-l.limit:]
	}
	l.entries = make([]types.ConversationEntry, len(entries))
	copy(l.entries, entries)
}

// Entries returns a copy of the current log in append order.
func (l *ConversationLog) Entries() []types.ConversationEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.ConversationEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Size returns the current number of entries.
func (l *ConversationLog) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
