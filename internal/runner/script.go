package runner

import (
	"context"

	"browserTasks/internal/logger"
	"browserTasks/internal/sanitizer"
	"browserTasks/internal/script"

	"go.uber.org/zap"
)

// Runner выполняет сценарии через ActionExecutor. Экземпляр безопасен для
// последовательного использования несколькими задачами; параллельные запуски
// против одного executor сериализует вызывающий.
type Runner struct {
	executor  ActionExecutor
	sanitizer *sanitizer.DataSanitizer
	log       *logger.Zap
}

func New(executor ActionExecutor, san *sanitizer.DataSanitizer, log *logger.Zap) *Runner {
	return &Runner{
		executor:  executor,
		sanitizer: san,
		log:       log,
	}
}

// Run выполняет шаги сценария строго в порядке объявления.
//
// Перед каждым шагом опрашивается флаг отмены: отмена действует только на
// границе шагов, начатый шаг доводится до конца. При StopOnError первый
// неуспешный шаг прерывает сценарий, иначе сбой фиксируется и выполнение
// продолжается. Записи журнала шага N всегда предшествуют записям шага N+1.
func (r *Runner) Run(ctx context.Context, scr *script.AutomationScript, vars map[string]string, opts Options) *ExecutionResult {
	result := &ExecutionResult{Success: true}

	for _, step := range scr.Steps {
		if opts.CancelRequested != nil && opts.CancelRequested() {
			result.Success = false
			result.ExecutionLog = append(result.ExecutionLog, newLogEntry("cancelled", map[string]any{
				"script":  scr.Name,
				"step_id": step.StepID,
				"reason":  "отмена запрошена до начала шага",
			}))
			if r.log != nil {
				r.log.Info("Выполнение сценария отменено",
					zap.String("script", scr.Name),
					zap.String("next_step", step.StepID))
			}
			return result
		}

		if err := ctx.Err(); err != nil {
			result.Success = false
			result.ExecutionLog = append(result.ExecutionLog, newLogEntry("aborted", map[string]any{
				"script":  scr.Name,
				"step_id": step.StepID,
				"error":   err.Error(),
			}))
			return result
		}

		run := r.runStep(ctx, step, vars, opts)
		result.Steps = append(result.Steps, run.result)
		result.ExecutionLog = append(result.ExecutionLog, run.log...)
		if run.result.ScreenshotRef != "" {
			result.Screenshots = append(result.Screenshots, run.result.ScreenshotRef)
		}

		if run.result.Status == StepFailed {
			result.Success = false
			if r.log != nil {
				r.log.Warn("Шаг завершился неуспешно",
					zap.String("script", scr.Name),
					zap.String("step_id", step.StepID))
			}
			if opts.StopOnError {
				return result
			}
		}
	}

	return result
}
