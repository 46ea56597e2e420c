// Package planner реализует автономное выполнение свободной цели: модель
// по шагам решает, какое действие выполнить следующим, пока не объявит цель
// достигнутой или не исчерпает бюджет шагов.
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"browserTasks/internal/llm"
	"browserTasks/internal/logger"
	"browserTasks/internal/runner"
	"browserTasks/internal/script"

	"go.uber.org/zap"
)

// Planner выполняет цикл "спланировать действие — выполнить — оценить".
// Для менеджера задач это один непрозрачный вызов: отмена проверяется
// только между шагами цикла.
type Planner struct {
	llm      llm.PlannerClient
	executor runner.ActionExecutor
	log      *logger.Zap
}

func New(client llm.PlannerClient, executor runner.ActionExecutor, log *logger.Zap) *Planner {
	return &Planner{
		llm:      client,
		executor: executor,
		log:      log,
	}
}

// Run выполняет цель с бюджетом maxSteps шагов. Возвращает результат с
// журналом всех выполненных действий; успех — только если модель объявила
// цель достигнутой до исчерпания бюджета.
func (p *Planner) Run(ctx context.Context, goal string, maxSteps int) (*runner.ExecutionResult, error) {
	if maxSteps <= 0 {
		maxSteps = 10
	}

	result := &runner.ExecutionResult{}
	var history []llm.StepPlan

	for stepNo := 1; stepNo <= maxSteps; stepNo++ {
		if err := ctx.Err(); err != nil {
			p.appendLog(result, "aborted", map[string]any{
				"goal_step": stepNo,
				"error":     err.Error(),
			})
			return result, err
		}

		pageContext := p.pageContext(ctx)

		plan, err := p.llm.PlanNextAction(ctx, goal, pageContext, history)
		if err != nil {
			p.appendLog(result, "plan_error", map[string]any{
				"goal_step": stepNo,
				"error":     err.Error(),
			})
			return result, fmt.Errorf("ошибка планирования шага %d: %w", stepNo, err)
		}

		if plan.Done() {
			result.Success = true
			p.appendLog(result, "complete", map[string]any{
				"goal_step": stepNo,
				"summary":   plan.Summary,
			})
			p.log.Info("Цель достигнута",
				zap.Int("steps", stepNo-1),
				zap.String("summary", plan.Summary))
			return result, nil
		}

		action, err := toBrowserAction(plan)
		if err != nil {
			p.appendLog(result, "invalid_plan", map[string]any{
				"goal_step": stepNo,
				"action":    plan.Action,
				"error":     err.Error(),
			})
			return result, fmt.Errorf("модель предложила невалидное действие на шаге %d: %w", stepNo, err)
		}

		stepResult := p.performStep(ctx, stepNo, action, plan, result)
		result.Steps = append(result.Steps, stepResult)
		if stepResult.ScreenshotRef != "" {
			result.Screenshots = append(result.Screenshots, stepResult.ScreenshotRef)
		}
		if stepResult.Status == runner.StepFailed {
			// Сбой действия не прерывает цикл: модель увидит его в истории
			// и сможет перестроить подход на следующем шаге.
			p.log.Warn("Действие планировщика не выполнено",
				zap.Int("goal_step", stepNo),
				zap.String("action", plan.Action))
		}

		history = append(history, *plan)
	}

	p.appendLog(result, "budget_exhausted", map[string]any{
		"max_steps": maxSteps,
	})
	return result, fmt.Errorf("бюджет шагов (%d) исчерпан, цель не достигнута", maxSteps)
}

func (p *Planner) performStep(ctx context.Context, stepNo int, action script.BrowserAction, plan *llm.StepPlan, result *runner.ExecutionResult) runner.StepResult {
	stepID := fmt.Sprintf("agent_step_%d", stepNo)

	actionResult, err := p.executor.Perform(ctx, action)

	outcome := runner.ActionOutcome{
		Action:  action.Type,
		Attempt: 1,
		Success: err == nil,
	}
	details := map[string]any{
		"goal_step": stepNo,
		"action":    string(action.Type),
		"reasoning": plan.Reasoning,
	}
	if action.Selector != "" {
		details["selector"] = action.Selector
	}
	if action.URL != "" {
		details["url"] = action.URL
	}

	stepResult := runner.StepResult{StepID: stepID, Status: runner.StepSuccess}
	if err != nil {
		outcome.Detail = err.Error()
		details["error"] = err.Error()
		stepResult.Status = runner.StepFailed
	} else if actionResult != nil {
		outcome.Detail = actionResult.Outcome
		if actionResult.Outcome != "" {
			details["outcome"] = actionResult.Outcome
		}
		stepResult.ScreenshotRef = actionResult.ScreenshotRef
	}

	stepResult.ActionOutcomes = []runner.ActionOutcome{outcome}
	p.appendLog(result, string(action.Type), details)
	return stepResult
}

// pageContext собирает текстовое описание страницы для промпта модели.
func (p *Planner) pageContext(ctx context.Context) string {
	snap, err := p.executor.Snapshot(ctx)
	if err != nil || snap == nil {
		return "страница недоступна"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", snap.URL)
	if snap.Title != "" {
		fmt.Fprintf(&b, "Заголовок: %s\n", snap.Title)
	}

	if len(snap.Elements) > 0 {
		b.WriteString("Элементы:\n")
		selectors := make([]string, 0, len(snap.Elements))
		for sel := range snap.Elements {
			selectors = append(selectors, sel)
		}
		sort.Strings(selectors)
		for _, sel := range selectors {
			text := snap.Elements[sel]
			if len(text) > 120 {
				text = text[:120] + "..."
			}
			fmt.Fprintf(&b, "- %s: %s\n", sel, text)
		}
	}
	return b.String()
}

func (p *Planner) appendLog(result *runner.ExecutionResult, action string, details map[string]any) {
	result.ExecutionLog = append(result.ExecutionLog, runner.LogEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   details,
	})
}

// toBrowserAction переводит план модели в типизированное действие с проверкой
// обязательных полей — невалидный план отклоняется до обращения к браузеру.
func toBrowserAction(plan *llm.StepPlan) (script.BrowserAction, error) {
	action := script.BrowserAction{
		Type:     script.ActionType(plan.Action),
		URL:      plan.URL,
		Selector: plan.Selector,
		Value:    plan.Value,
	}

	switch action.Type {
	case script.ActionNavigate:
		if action.URL == "" {
			return action, fmt.Errorf("navigate без url")
		}
	case script.ActionClick, script.ActionExtract:
		if action.Selector == "" {
			return action, fmt.Errorf("%s без selector", action.Type)
		}
	case script.ActionTypeText:
		if action.Selector == "" || action.Value == "" {
			return action, fmt.Errorf("type без selector или value")
		}
	case script.ActionScreenshot:
	default:
		return action, fmt.Errorf("неизвестное действие %q", plan.Action)
	}
	return action, nil
}
