package memory

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"fincrew/internal/domain"
)

// TiktokenCounter counts tokens with a tiktoken BPE encoding. When the
// encoding cannot be loaded (for example, no network to fetch the BPE
// ranks), every count is 0 and eviction effectively disables itself rather
// than dropping history on bad estimates.
type TiktokenCounter struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding (e.g. "cl100k_base").
func NewTiktokenCounter(encoding string, logger *slog.Logger) *TiktokenCounter {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn("token encoding unavailable, counting disabled",
			"encoding", encoding,
			"error", err,
		)
		return &TiktokenCounter{}
	}
	return &TiktokenCounter{encoder: enc}
}

// Count implements domain.TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	if c.encoder == nil {
		return 0
	}
	return len(c.encoder.Encode(text, nil, nil))
}

var _ domain.TokenCounter = (*TiktokenCounter)(nil)
