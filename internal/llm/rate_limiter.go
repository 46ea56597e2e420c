package llm

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter ограничивает частоту запросов (RPM) и расход токенов (TPH)
// по алгоритму token bucket. Оба ведра пополняются пропорционально
// прошедшему времени.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestBudget     float64
	tokensPerHour     int
	tokenBudget       float64
	lastRefill        time.Time
}

func NewRateLimiter(requestsPerMinute, tokensPerHour int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60 // дефолт: 60 запросов в минуту
	}
	if tokensPerHour <= 0 {
		tokensPerHour = 90000 // дефолт: 90k токенов в час
	}

	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestBudget:     float64(requestsPerMinute),
		tokensPerHour:     tokensPerHour,
		tokenBudget:       float64(tokensPerHour),
		lastRefill:        time.Now(),
	}
}

func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	rl.requestBudget += elapsed.Minutes() * float64(rl.requestsPerMinute)
	if rl.requestBudget > float64(rl.requestsPerMinute) {
		rl.requestBudget = float64(rl.requestsPerMinute)
	}

	rl.tokenBudget += elapsed.Hours() * float64(rl.tokensPerHour)
	if rl.tokenBudget > float64(rl.tokensPerHour) {
		rl.tokenBudget = float64(rl.tokensPerHour)
	}
}

// Allow проверяет, что бюджет позволяет выполнить запрос с оценкой
// estimatedTokens токенов, и резервирует их.
func (rl *RateLimiter) Allow(estimatedTokens int) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.requestBudget < 1 {
		return fmt.Errorf("превышен лимит запросов (%d RPM)", rl.requestsPerMinute)
	}
	if rl.tokenBudget < float64(estimatedTokens) {
		return fmt.Errorf("превышен лимит токенов (%d TPH): требуется %d, доступно %d",
			rl.tokensPerHour, estimatedTokens, int(rl.tokenBudget))
	}

	rl.requestBudget--
	rl.tokenBudget -= float64(estimatedTokens)
	return nil
}

// Consume досписывает токены после запроса, когда известен точный расход.
func (rl *RateLimiter) Consume(tokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokenBudget -= float64(tokens)
	if rl.tokenBudget < 0 {
		rl.tokenBudget = 0
	}
}
