package assemble

import (
	"context"
	"time"
	"unicode/utf8"
)

// StopReason records why selection ended. It is reported in logs only.
type StopReason string

const (
	StopExhausted   StopReason = "exhausted"
	StopCharBudget  StopReason = "char_budget"
	StopTokenBudget StopReason = "token_budget"
	StopDeadline    StopReason = "deadline"
	StopCancelled   StopReason = "cancelled"
)

// estimateTokens approximates tokens as a quarter of the character count,
// rounded up.
func estimateTokens(chars int) int {
	return (chars + 3) / 4
}

// selector greedily accepts ranked blocks under character and token
// budgets, a wall-clock deadline, and cancellation.
type selector struct {
	maxChars    int
	maxTokens   int
	minTruncate int

	start    time.Time
	deadline time.Duration
	now      func() time.Time
}

func (s selector) expired() bool {
	return s.deadline > 0 && s.now().Sub(s.start) > s.deadline
}

func (s selector) run(ctx context.Context, blocks []annotatedChunk) ([]ContextItem, StopReason) {
	items := make([]ContextItem, 0, len(blocks))
	usedChars, usedTokens := 0, 0

	for _, b := range blocks {
		if ctx.Err() != nil {
			return items, StopCancelled
		}
		if s.expired() {
			return items, StopDeadline
		}

		n := utf8.RuneCountInString(b.Content)
		if usedChars+n > s.maxChars {
			remaining := s.maxChars - usedChars
			if s.maxTokens > 0 {
				remaining = min(remaining, 4*(s.maxTokens-usedTokens))
			}
			if remaining > s.minTruncate {
				items = append(items, truncate(b, remaining))
			}
			return items, StopCharBudget
		}

		t := estimateTokens(n)
		if s.maxTokens > 0 && usedTokens+t > s.maxTokens {
			return items, StopTokenBudget
		}

		items = append(items, b.item())
		usedChars += n
		usedTokens += t
	}
	return items, StopExhausted
}

// truncate keeps the first n characters of b. The end line is a coarse
// estimate of 50 characters per line, not a real line count.
func truncate(b annotatedChunk, n int) ContextItem {
	it := b.item()
	it.Snippet = prefixRunes(b.Content, n)
	it.EndLine = b.StartLine + n/50
	it.Reason = b.Reason + TruncatedSuffix
	return it
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
