package services

import (
	"unicode/utf8"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// DefaultBaseContext is the context window granularity.
const DefaultBaseContext = 8192

// messageOverhead is the token allowance for a message's role framing.
const messageOverhead = 4

// contextSafetyFactor pads the estimate before rounding.
const contextSafetyFactor = 1.2

// EstimateTokens approximates the token count of text: one per ASCII
// character and two per other character.
func EstimateTokens(text string) int {
	n := 0
	for _, r := range text {
		if r < utf8.RuneSelf {
			n++
		} else {
			n += 2
		}
	}
	return n
}

// EstimateMessagesTokens sums EstimateTokens over message contents plus a
// fixed per-message overhead.
func EstimateMessagesTokens(messages []domain.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content) + messageOverhead
	}
	return total
}

// DynamicContextSize returns the context window to request for messages:
// the padded estimate rounded to the granularity base. Estimates within one
// base window get base; larger ones get the next multiple above
// (total/base + 1) * base.
func DynamicContextSize(messages []domain.ChatMessage, base int) int {
	if base <= 0 {
		base = DefaultBaseContext
	}
	total := int(float64(EstimateMessagesTokens(messages)) * contextSafetyFactor)
	if total <= base {
		return base
	}
	return (total/base + 1) * base
}
