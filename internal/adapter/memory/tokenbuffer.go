package memory

import (
	"sync"
	"time"

	"fincrew/internal/domain"
)

// TokenBuffer is a bounded rolling conversation transcript. When the total
// token cost of retained messages exceeds the budget, the oldest messages
// are evicted first. The most recent message is never evicted, even when it
// alone exceeds the budget.
type TokenBuffer struct {
	mu        sync.Mutex
	messages  []domain.Message
	counter   domain.TokenCounter
	maxTokens int
}

// NewTokenBuffer creates a buffer with the given token budget.
func NewTokenBuffer(counter domain.TokenCounter, maxTokens int) *TokenBuffer {
	return &TokenBuffer{
		counter:   counter,
		maxTokens: maxTokens,
	}
}

// Add implements domain.Memory. The new message is always retained; older
// messages are evicted front-first until the transcript fits the budget.
func (b *TokenBuffer) Add(role, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = append(b.messages, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})

	total := 0
	for _, m := range b.messages {
		total += b.counter.Count(m.Content)
	}
	for len(b.messages) > 1 && total > b.maxTokens {
		total -= b.counter.Count(b.messages[0].Content)
		b.messages = b.messages[1:]
	}
}

// History implements domain.Memory. It returns a copy; callers may not
// mutate the retained transcript.
func (b *TokenBuffer) History() []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Clear implements domain.Memory.
func (b *TokenBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}

var _ domain.Memory = (*TokenBuffer)(nil)
