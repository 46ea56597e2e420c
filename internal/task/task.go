// Package task владеет идентичностью и жизненным циклом задач: создание,
// диспетчеризация на выполнение сценария или автономного планировщика,
// запрос статуса, отмена и периодический перезапуск.
//
// Инвариант пакета: в каждый момент времени выполняется не более одного
// запуска задачи с данным id, в том числе при периодических перезапусках.
package task

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"browserTasks/internal/runner"
	"browserTasks/internal/script"
)

// Status — статус задачи. Значения зафиксированы контрактом API.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal сообщает, является ли статус конечным. Периодические задачи —
// исключение: из completed они возвращаются в pending по таймеру.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Kind — вид задачи: сценарий с фиксированными шагами или свободная цель
// для автономного планировщика.
type Kind string

const (
	KindScript   Kind = "script"
	KindFreeform Kind = "freeform"
)

var (
	ErrNotFound    = errors.New("задача не найдена")
	ErrInvalidSpec = errors.New("некорректная спецификация задачи")
	ErrTaskRunning = errors.New("задача уже выполняется")
	ErrClosed      = errors.New("менеджер задач остановлен")
)

// Spec — запрос на создание задачи. Ровно одно из полей Script/Goal
// должно быть заполнено.
type Spec struct {
	Script      *script.AutomationScript
	Goal        string
	Variables   map[string]string
	MaxRetries  int
	MaxSteps    int
	StopOnError bool
	Timeout     time.Duration
	Periodic    bool
	Period      time.Duration
}

// Kind возвращает вид задачи по заполненным полям спецификации.
func (s *Spec) Kind() Kind {
	if s.Script != nil {
		return KindScript
	}
	return KindFreeform
}

func (s *Spec) validate() error {
	hasScript := s.Script != nil
	hasGoal := s.Goal != ""

	if hasScript == hasGoal {
		return fmt.Errorf("%w: требуется ровно одно из script и goal", ErrInvalidSpec)
	}
	if hasScript {
		if err := s.Script.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
	}
	if s.Periodic && s.Period <= 0 {
		return fmt.Errorf("%w: периодическая задача требует period > 0", ErrInvalidSpec)
	}
	if !s.Periodic && s.Period != 0 {
		return fmt.Errorf("%w: period задан для непериодической задачи", ErrInvalidSpec)
	}
	if s.MaxRetries < 0 || s.MaxSteps < 0 || s.Timeout < 0 {
		return fmt.Errorf("%w: отрицательные лимиты", ErrInvalidSpec)
	}
	return nil
}

// Task — снимок состояния задачи, возвращаемый вызывающему. Никогда не
// разделяет изменяемое состояние с менеджером.
type Task struct {
	ID              string                  `json:"id"`
	Kind            Kind                    `json:"kind"`
	Status          Status                  `json:"status"`
	Periodic        bool                    `json:"periodic,omitempty"`
	Period          time.Duration           `json:"period,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	LastRunAt       *time.Time              `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time              `json:"next_run_at,omitempty"`
	Result          *runner.ExecutionResult `json:"result,omitempty"`
	Error           string                  `json:"error,omitempty"`
	CancelRequested bool                    `json:"cancel_requested,omitempty"`
}

// entry — внутреннее состояние задачи. Все поля защищены мьютексом менеджера,
// кроме cancelRequested: его читает выполняющийся сценарий на границах шагов.
type entry struct {
	id        string
	spec      Spec
	status    Status
	createdAt time.Time
	lastRunAt *time.Time
	nextRunAt *time.Time
	latest    *runner.ExecutionResult
	errMsg    string
	running   bool
	cancel    atomic.Bool
}

func (e *entry) snapshot() Task {
	t := Task{
		ID:              e.id,
		Kind:            e.spec.Kind(),
		Status:          e.status,
		Periodic:        e.spec.Periodic,
		Period:          e.spec.Period,
		CreatedAt:       e.createdAt,
		Result:          e.latest,
		Error:           e.errMsg,
		CancelRequested: e.cancel.Load(),
	}
	if e.lastRunAt != nil {
		at := *e.lastRunAt
		t.LastRunAt = &at
	}
	if e.nextRunAt != nil {
		at := *e.nextRunAt
		t.NextRunAt = &at
	}
	return t
}
