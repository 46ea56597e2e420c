package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanPlainJSON(t *testing.T) {
	plan, err := parsePlan(`{"action": "click", "selector": "#go", "reasoning": "кнопка входа"}`)
	require.NoError(t, err)
	assert.Equal(t, "click", plan.Action)
	assert.Equal(t, "#go", plan.Selector)
	assert.Equal(t, "кнопка входа", plan.Reasoning)
}

func TestParsePlanCodeFence(t *testing.T) {
	content := "```json\n{\"action\": \"navigate\", \"url\": \"https://example.com\"}\n```"
	plan, err := parsePlan(content)
	require.NoError(t, err)
	assert.Equal(t, "navigate", plan.Action)
	assert.Equal(t, "https://example.com", plan.URL)
}

func TestParsePlanSurroundingText(t *testing.T) {
	content := `Следующее действие:
{"action": "complete", "summary": "расписание найдено"}
Готово.`
	plan, err := parsePlan(content)
	require.NoError(t, err)
	assert.True(t, plan.Done())
	assert.Equal(t, "расписание найдено", plan.Summary)
}

func TestParsePlanRejectsGarbage(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"нет JSON", "не могу определить действие"},
		{"битый JSON", `{"action": "click", "selector": }`},
		{"без action", `{"selector": "#go"}`},
		{"пустая строка", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parsePlan(tc.content)
			assert.Error(t, err)
		})
	}
}

func TestStepPlanDone(t *testing.T) {
	assert.True(t, (&StepPlan{Action: "complete"}).Done())
	assert.False(t, (&StepPlan{Action: "click"}).Done())
}

func TestBuildPlannerPromptIncludesHistory(t *testing.T) {
	history := []StepPlan{
		{Action: "navigate", URL: "https://example.com"},
		{Action: "click", Selector: "#login"},
	}
	prompt := buildPlannerPrompt("войти в кабинет", "URL: https://example.com", history)

	assert.Contains(t, prompt, "Цель: войти в кабинет")
	assert.Contains(t, prompt, "1. navigate (https://example.com)")
	assert.Contains(t, prompt, "2. click (#login)")
	assert.Contains(t, prompt, "Состояние страницы:")
}
