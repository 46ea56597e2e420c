// Package runner выполняет сценарии автоматизации: шаг за шагом, действие за
// действием, с повторами при сбоях и проверками состояния страницы после шага.
// Пакет не хранит состояние задач — результат выполнения возвращается вызывающему.
package runner

import (
	"context"
	"time"

	"browserTasks/internal/script"
)

// PageSnapshot представляет наблюдаемое состояние страницы после действия.
// Elements — карта селектор → текст для видимых элементов.
type PageSnapshot struct {
	URL      string
	Title    string
	Elements map[string]string
}

// ActionResult представляет исход одного действия: снимок страницы после него,
// текстовый результат (например, извлеченный текст) и ссылку на скриншот.
type ActionResult struct {
	Snapshot      *PageSnapshot
	Outcome       string
	ScreenshotRef string
}

// ActionExecutor выполняет одно действие против живой браузерной сессии.
// Реализуется пакетом browser; в тестах подменяется фейком.
type ActionExecutor interface {
	Perform(ctx context.Context, action script.BrowserAction) (*ActionResult, error)
	// Snapshot возвращает текущее состояние страницы без выполнения действия.
	Snapshot(ctx context.Context) (*PageSnapshot, error)
}

// StepStatus — статус выполнения шага.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// LogEntry — одна запись журнала выполнения.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
}

// ActionOutcome — исход одной попытки действия.
type ActionOutcome struct {
	Action  script.ActionType `json:"action"`
	Attempt int               `json:"attempt"`
	Success bool              `json:"success"`
	Detail  string            `json:"detail,omitempty"`
}

// ValidationOutcome — исход проверки после шага.
type ValidationOutcome struct {
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// StepResult — результат выполнения одного шага.
type StepResult struct {
	StepID         string             `json:"step_id"`
	Status         StepStatus         `json:"status"`
	ActionOutcomes []ActionOutcome    `json:"action_outcomes"`
	Validation     *ValidationOutcome `json:"validation_outcome,omitempty"`
	ScreenshotRef  string             `json:"screenshot_ref,omitempty"`
}

// ExecutionResult — итог выполнения сценария или автономной задачи.
// Имена JSON полей зафиксированы контрактом API.
type ExecutionResult struct {
	Success      bool         `json:"success"`
	Steps        []StepResult `json:"steps"`
	Screenshots  []string     `json:"screenshots"`
	VideoPath    string       `json:"video_path,omitempty"`
	ExecutionLog []LogEntry   `json:"execution_log"`
}

// Options управляют выполнением сценария.
type Options struct {
	// MaxRetries — бюджет попыток на действие, если шаг не задал свой.
	MaxRetries int
	// RetryDelay — фиксированная пауза между попытками действия.
	RetryDelay time.Duration
	// StopOnError прерывает сценарий после первого неуспешного шага.
	StopOnError bool
	// CancelRequested опрашивается перед каждым шагом; true останавливает
	// выполнение на границе шагов.
	CancelRequested func() bool
}

func newLogEntry(action string, details map[string]any) LogEntry {
	return LogEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   details,
	}
}
