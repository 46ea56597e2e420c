package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"browserTasks/internal/logger"
	"browserTasks/internal/sanitizer"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client — OpenAI клиент для планирования действий. Все запросы проходят
// через rate limiter, промпты логируются только после маскирования.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	log         *logger.Zap
	sanitizer   *sanitizer.DataSanitizer
	rateLimiter *RateLimiter
}

func NewClient(apiKey, model string, maxTokens int, log *logger.Zap) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		log:         log,
		sanitizer:   sanitizer.New(),
		rateLimiter: NewRateLimiter(60, 90000),
	}
}

const plannerSystemMsg = `Ты - AI агент для автоматизации браузера. Анализируй состояние страницы и выбирай следующее действие для достижения цели пользователя.

Отвечай строго одним JSON объектом вида:
{"action": "navigate|click|type|extract|screenshot|complete", "url": "...", "selector": "...", "value": "...", "reasoning": "...", "summary": "..."}

Правила:
- navigate требует url, click/extract требуют selector, type требует selector и value
- action "complete" завершает задачу, итог пиши в summary
- никакого текста вне JSON`

// PlanNextAction запрашивает у модели следующее действие для цели с учетом
// контекста страницы и истории уже выполненных шагов.
func (c *Client) PlanNextAction(ctx context.Context, goal, pageContext string, history []StepPlan) (*StepPlan, error) {
	prompt := buildPlannerPrompt(goal, pageContext, history)

	// Грубая оценка: ~4 символа на токен, плюс бюджет ответа.
	estimatedTokens := (len(plannerSystemMsg)+len(prompt))/4 + c.maxTokens
	if err := c.rateLimiter.Allow(estimatedTokens); err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: plannerSystemMsg},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if c.log != nil {
			c.log.Error("Ошибка запроса к OpenAI",
				zap.String("model", c.model),
				zap.String("prompt", c.sanitizer.Sanitize(prompt)),
				zap.Error(err))
		}
		return nil, fmt.Errorf("ошибка запроса к OpenAI: %w", err)
	}

	if resp.Usage.TotalTokens > estimatedTokens {
		c.rateLimiter.Consume(resp.Usage.TotalTokens - estimatedTokens)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("пустой ответ от OpenAI")
	}

	plan, err := parsePlan(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	if c.log != nil {
		c.log.Debug("Модель предложила действие",
			zap.String("action", plan.Action),
			zap.String("reasoning", c.sanitizer.Sanitize(plan.Reasoning)))
	}
	return plan, nil
}

func buildPlannerPrompt(goal, pageContext string, history []StepPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Цель: %s\n\n", goal)

	if len(history) > 0 {
		b.WriteString("Уже выполнено:\n")
		for i, step := range history {
			fmt.Fprintf(&b, "%d. %s", i+1, step.Action)
			if step.Selector != "" {
				fmt.Fprintf(&b, " (%s)", step.Selector)
			}
			if step.URL != "" {
				fmt.Fprintf(&b, " (%s)", step.URL)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Состояние страницы:\n%s\n\nОпредели следующее действие.", pageContext)
	return b.String()
}

// parsePlan извлекает JSON план из ответа модели, терпимо относясь к
// обрамлению вида ```json ... ```.
func parsePlan(content string) (*StepPlan, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("ответ модели не содержит JSON плана")
	}

	var plan StepPlan
	if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
		return nil, fmt.Errorf("ошибка парсинга плана: %w", err)
	}
	if plan.Action == "" {
		return nil, fmt.Errorf("план без действия")
	}
	return &plan, nil
}
