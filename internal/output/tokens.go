package output

import (
	"fmt"
	"unicode/utf8"
)

// TokenBudget caps the approximate size of output handed to an LLM.
type TokenBudget int

// DefaultBudget leaves room in a typical context window for the agent's
// own work.
const DefaultBudget TokenBudget = 32000

// EstimateTokens approximates the token count of text at four runes per
// token, rounded to nearest.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 2) / 4
}

// Fits reports whether text is within the budget.
func (b TokenBudget) Fits(text string) bool {
	return EstimateTokens(text) <= int(b)
}

func (b TokenBudget) String() string {
	if b < 1000 {
		return fmt.Sprintf("%d", int(b))
	}
	return fmt.Sprintf("%.1fk", float64(b)/1000)
}
