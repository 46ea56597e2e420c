// Package llm предоставляет интеграцию с OpenAI для автономного выполнения
// свободных целей. Включает rate limiting и маскирование чувствительных
// данных в логируемых промптах.
package llm

import "context"

// PlannerClient определяет интерфейс планирования следующего действия.
// Реализуется Client; в тестах подменяется фейком.
type PlannerClient interface {
	// PlanNextAction возвращает следующее действие для достижения цели с
	// учетом текущего состояния страницы и уже выполненных шагов.
	PlanNextAction(ctx context.Context, goal, pageContext string, history []StepPlan) (*StepPlan, error)
}

// StepPlan представляет одно действие, предложенное моделью.
type StepPlan struct {
	Action    string `json:"action"`              // Тип действия (navigate, click, type, extract, screenshot, complete)
	URL       string `json:"url,omitempty"`       // URL для navigate
	Selector  string `json:"selector,omitempty"`  // CSS селектор элемента
	Value     string `json:"value,omitempty"`     // Значение для ввода
	Reasoning string `json:"reasoning,omitempty"` // Обоснование действия
	Summary   string `json:"summary,omitempty"`   // Итог при action=complete
}

// Done сообщает, что модель считает цель достигнутой.
func (p *StepPlan) Done() bool {
	return p.Action == "complete"
}
