// Package budget provides token budget estimation and context trimming for
// prompt assembly. Because the service supports multiple LLM backends with
// different tokenizers, it uses a conservative character-based heuristic:
// 1 token ≈ 4 characters (English prose). This deliberately under-estimates
// token counts to leave headroom for model-specific overhead.
package budget

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateAll returns the estimated total token count for parts, including
// a small per-part overhead comparable to the per-message overhead most
// chat APIs charge.
func EstimateAll(parts []string) int {
	total := 0
	for _, p := range parts {
		total += 4
		total += Estimate(p)
	}
	return total
}

// Trim removes the oldest entries from parts until fixed + parts fits
// within maxTokens. fixed is the prompt content that must not be trimmed
// (instructions, retrieved context, current question); parts holds prior
// dialogue turns that may be dropped oldest-first.
//
// Returns the trimmed slice. If even an empty parts slice exceeds the
// budget, the empty slice is returned. Fixed content is never dropped
// here; callers should warn separately when fixed alone blows the budget.
func Trim(fixed string, parts []string, maxTokens int) []string {
	if len(parts) == 0 {
		return parts
	}

	fixedTokens := Estimate(fixed)

	// parts is typically ≤20 entries; a linear scan dropping the oldest
	// is clear and correct.
	for len(parts) > 0 {
		if fixedTokens+EstimateAll(parts) <= maxTokens {
			break
		}
		parts = parts[1:]
	}
	return parts
}
