package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 3, EstimateTokens("Hello, world!"))
	assert.Equal(t, 250, EstimateTokens(strings.Repeat("a", 1000)))
	assert.Equal(t, 2, EstimateTokens(strings.Repeat("é", 8)), "counts runes, not bytes")
}

func TestTokenBudget(t *testing.T) {
	b := TokenBudget(3)
	assert.True(t, b.Fits("Hello, world!"))
	assert.False(t, b.Fits("Hello, world! Hello"))

	assert.Equal(t, "999", TokenBudget(999).String())
	assert.Equal(t, "1.5k", TokenBudget(1540).String())
	assert.Equal(t, "32.0k", DefaultBudget.String())
}
