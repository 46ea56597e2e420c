package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(10, 1000)
	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Allow(100))
	}
}

func TestRateLimiterRejectsRequestBurst(t *testing.T) {
	rl := NewRateLimiter(3, 100000)
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Allow(1))
	}
	err := rl.Allow(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "лимит запросов")
}

func TestRateLimiterRejectsTokenOverdraft(t *testing.T) {
	rl := NewRateLimiter(100, 500)
	require.NoError(t, rl.Allow(400))

	err := rl.Allow(400)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "лимит токенов")
}

func TestRateLimiterConsumeDrainsBudget(t *testing.T) {
	rl := NewRateLimiter(100, 1000)
	require.NoError(t, rl.Allow(100))

	// Фактический расход оказался больше оценки.
	rl.Consume(900)

	err := rl.Allow(100)
	assert.Error(t, err)
}

func TestRateLimiterZeroConfigUsesDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, 60, rl.requestsPerMinute)
	assert.Equal(t, 90000, rl.tokensPerHour)
}
