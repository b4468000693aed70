// Package chunk splits long text into token-bounded pieces for a generation
// service with a limited input context. Boundaries always fall between words:
// clinical units and terms must never be cut mid-token.
package chunk

import "strings"

// TokenCounter reports how many tokens a single word costs.
type TokenCounter func(word string) int

// EstimateTokens approximates subword tokenization at roughly four
// characters per token, never less than one token per word.
func EstimateTokens(word string) int {
	n := (len(word) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Split breaks text into chunks of at most maxTokens tokens each.
// Words are kept whole and their order preserved: joining the chunks with
// single spaces reproduces the original word sequence exactly.
func Split(text string, maxTokens int, count TokenCounter) []string {
	if count == nil {
		count = EstimateTokens
	}
	if maxTokens <= 0 {
		maxTokens = 4500
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	tokens := 0
	for _, w := range words {
		wt := count(w)
		if tokens+wt > maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			tokens = 0
		}
		current = append(current, w)
		tokens += wt
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
