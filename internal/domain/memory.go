package domain

// Memory is a bounded rolling conversation transcript shared across requests.
type Memory interface {
	// Add appends a message and evicts from the front as needed to stay
	// within the memory's token budget.
	Add(role, content string)
	// History returns the retained messages in causal order.
	History() []Message
	// Clear resets the memory to empty.
	Clear()
}

// TokenCounter estimates the token cost of a text. Implementations must be
// deterministic for a given text and must count 0 (never panic) when the
// underlying tokenizer fails.
type TokenCounter interface {
	Count(text string) int
}
