package runner

import (
	"context"
	"strings"
	"time"

	"browserTasks/internal/sanitizer"
	"browserTasks/internal/script"

	"go.uber.org/zap"
)

// stepRun аккумулирует состояние выполнения одного шага: результат,
// записи журнала, снимок после последнего успешного действия и значения
// чувствительных переменных, которые нельзя показывать в журнале.
type stepRun struct {
	result       StepResult
	log          []LogEntry
	lastSnapshot *PageSnapshot
	secrets      []string
}

// runStep выполняет один шаг сценария: подстановка переменных, действия по
// порядку с повторами, затем проверка после шага. Каждая попытка действия
// оставляет запись в журнале.
func (r *Runner) runStep(ctx context.Context, step script.ScriptStep, vars map[string]string, opts Options) *stepRun {
	run := &stepRun{
		result:  StepResult{StepID: step.StepID, Status: StepSuccess},
		secrets: sanitizer.SensitiveValues(vars),
	}

	budget := step.MaxRetries
	if budget <= 0 {
		budget = opts.MaxRetries
	}
	if budget <= 0 {
		budget = 1
	}

	// Разрешаем переменные во всех действиях до выполнения первого из них:
	// неразрешенный плейсхолдер проваливает шаг целиком.
	resolved := make([]script.BrowserAction, 0, len(step.Actions))
	for _, action := range step.Actions {
		a, err := script.ResolveVariables(action, vars)
		if err != nil {
			run.result.Status = StepFailed
			run.appendLog("variable_resolution", map[string]any{
				"step_id": step.StepID,
				"error":   err.Error(),
			})
			return run
		}
		resolved = append(resolved, a)
	}

	// URL до первого действия нужен только для проверки url_changed.
	startURL := ""
	if step.Validation != nil && step.Validation.Type == script.ValidationURLChanged {
		startURL = r.currentURL(ctx)
	}

	for _, action := range resolved {
		if !r.performWithRetry(ctx, run, action, budget, opts.RetryDelay) {
			run.result.Status = StepFailed
			return run
		}
	}

	if step.Validation != nil {
		outcome := Validate(step.Validation, r.validationSnapshot(ctx, run), startURL)
		run.result.Validation = &ValidationOutcome{Passed: outcome.Passed, Detail: outcome.Detail}
		run.appendLog("validation", map[string]any{
			"step_id": step.StepID,
			"type":    string(step.Validation.Type),
			"passed":  outcome.Passed,
			"detail":  outcome.Detail,
		})
		if !outcome.Passed {
			// Действия прошли, но проверка провалилась — шаг все равно неуспешен.
			run.result.Status = StepFailed
		}
	}

	return run
}

// performWithRetry повторяет одно и то же действие до исчерпания бюджета.
// Возвращает true при успехе хотя бы одной попытки.
func (r *Runner) performWithRetry(ctx context.Context, run *stepRun, action script.BrowserAction, budget int, delay time.Duration) bool {
	var lastErr error

	for attempt := 1; attempt <= budget; attempt++ {
		if attempt > 1 && delay > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				r.recordAttempt(run, action, attempt, nil, lastErr)
				return false
			case <-time.After(delay):
			}
		}

		result, err := r.executor.Perform(ctx, action)
		r.recordAttempt(run, action, attempt, result, err)
		if err == nil {
			if result != nil {
				if result.Snapshot != nil {
					run.lastSnapshot = result.Snapshot
				}
				if result.ScreenshotRef != "" {
					run.result.ScreenshotRef = result.ScreenshotRef
				}
			}
			return true
		}

		lastErr = err
		actionErr := classifyError(action.Type, err)
		if actionErr.Type == ErrorTypeCritical {
			break
		}
	}

	if r.log != nil {
		r.log.Warn("Действие не выполнено после всех попыток",
			zap.String("action", string(action.Type)),
			zap.Int("budget", budget),
			zap.Error(lastErr))
	}
	return false
}

func (r *Runner) recordAttempt(run *stepRun, action script.BrowserAction, attempt int, result *ActionResult, err error) {
	outcome := ActionOutcome{
		Action:  action.Type,
		Attempt: attempt,
		Success: err == nil,
	}
	details := map[string]any{
		"action":  string(action.Type),
		"attempt": attempt,
		"success": err == nil,
	}
	if action.Selector != "" {
		details["selector"] = action.Selector
	}
	if action.URL != "" {
		details["url"] = action.URL
	}
	if action.Value != "" {
		details["value"] = r.mask(action.Value, run.secrets)
	}

	if err != nil {
		outcome.Detail = err.Error()
		details["error"] = r.mask(err.Error(), run.secrets)
	} else if result != nil && result.Outcome != "" {
		outcome.Detail = result.Outcome
		details["outcome"] = r.mask(result.Outcome, run.secrets)
	}

	run.result.ActionOutcomes = append(run.result.ActionOutcomes, outcome)
	run.appendLog(string(action.Type), details)
}

// validationSnapshot возвращает снимок для проверки: от последнего действия,
// либо отдельный запрос состояния, если действия снимка не вернули.
func (r *Runner) validationSnapshot(ctx context.Context, run *stepRun) *PageSnapshot {
	if run.lastSnapshot != nil {
		return run.lastSnapshot
	}
	snap, err := r.executor.Snapshot(ctx)
	if err != nil {
		return nil
	}
	return snap
}

func (r *Runner) currentURL(ctx context.Context) string {
	snap, err := r.executor.Snapshot(ctx)
	if err != nil || snap == nil {
		return ""
	}
	return snap.URL
}

// mask скрывает чувствительные данные: сначала подставленные значения
// секретных переменных, затем все, что ловят правила санитайзера.
func (r *Runner) mask(text string, secrets []string) string {
	for _, secret := range secrets {
		text = strings.ReplaceAll(text, secret, "[FILTERED]")
	}
	if r.sanitizer == nil {
		return text
	}
	return r.sanitizer.Sanitize(text)
}

func (run *stepRun) appendLog(action string, details map[string]any) {
	run.log = append(run.log, newLogEntry(action, details))
}
