package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"browserTasks/internal/logger"
	"browserTasks/internal/runner"
	"browserTasks/internal/script"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScriptRunner выполняет сценарий и возвращает результат. Реализуется
// пакетом runner.
type ScriptRunner interface {
	Run(ctx context.Context, scr *script.AutomationScript, vars map[string]string, opts runner.Options) *runner.ExecutionResult
}

// GoalPlanner выполняет свободную цель с бюджетом шагов. Реализуется пакетом
// planner. Для менеджера это непрозрачный длительный вызов: отмена действует
// только до его начала и после возврата.
type GoalPlanner interface {
	Run(ctx context.Context, goal string, maxSteps int) (*runner.ExecutionResult, error)
}

// Store — слой персистентности для задач. Запись выполняется best-effort:
// источником истины остается реестр в памяти процесса.
type Store interface {
	SaveTask(t *Task) error
	SaveResult(id string, status Status, result *runner.ExecutionResult, errMsg string) error
}

// Defaults — дефолты выполнения, применяемые к спецификации, если она
// не задала свои значения.
type Defaults struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	MaxSteps   int
}

// Manager владеет таблицей задач и их переходами между статусами.
//
// Мьютекс защищает только метаданные: само выполнение сценария или
// планировщика идет вне блокировки, поэтому чтение статуса никогда не ждет
// завершения запуска.
type Manager struct {
	runner  ScriptRunner
	planner GoalPlanner
	store   Store
	log     *logger.Zap
	def     Defaults

	mu     sync.Mutex
	tasks  map[string]*entry
	queue  *scheduleQueue
	closed bool

	rootCtx context.Context
	stop    context.CancelFunc
	wake    chan struct{}
	wg      sync.WaitGroup
}

// NewManager создает менеджер и запускает цикл периодического планировщика.
// planner может быть nil — тогда freeform задачи отклоняются при создании.
func NewManager(r ScriptRunner, p GoalPlanner, store Store, log *logger.Zap, def Defaults) *Manager {
	if def.MaxRetries <= 0 {
		def.MaxRetries = 3
	}
	if def.Timeout <= 0 {
		def.Timeout = 5 * time.Minute
	}
	if def.MaxSteps <= 0 {
		def.MaxSteps = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		runner:  r,
		planner: p,
		store:   store,
		log:     log,
		def:     def,
		tasks:   make(map[string]*entry),
		queue:   newScheduleQueue(),
		rootCtx: ctx,
		stop:    cancel,
		wake:    make(chan struct{}, 1),
	}

	m.wg.Add(1)
	go m.schedulerLoop()

	return m
}

// Create валидирует спецификацию, регистрирует задачу со статусом pending и
// сразу отдает ее на выполнение. Периодическая задача получает next_run_at
// немедленно.
func (m *Manager) Create(spec Spec) (Task, error) {
	if err := spec.validate(); err != nil {
		return Task{}, err
	}
	if spec.Kind() == KindFreeform && m.planner == nil {
		return Task{}, fmt.Errorf("%w: планировщик не настроен", ErrInvalidSpec)
	}

	if spec.MaxRetries == 0 {
		spec.MaxRetries = m.def.MaxRetries
	}
	if spec.MaxSteps == 0 {
		spec.MaxSteps = m.def.MaxSteps
	}
	if spec.Timeout == 0 {
		spec.Timeout = m.def.Timeout
	}

	e := &entry{
		id:        uuid.NewString(),
		spec:      spec,
		status:    StatusPending,
		createdAt: time.Now().UTC(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Task{}, ErrClosed
	}
	m.tasks[e.id] = e
	now := time.Now().UTC()
	if spec.Periodic {
		e.nextRunAt = &now
	}
	// Первый запуск идет через очередь планировщика: задача наблюдаема в
	// статусе pending, диспетчеризация переводит ее в running.
	m.queue.push(e.id, now)
	snap := e.snapshot()
	m.mu.Unlock()
	m.wakeScheduler()

	m.persistTask(snap)
	m.log.Info("Задача создана",
		zap.String("task_id", snap.ID),
		zap.String("kind", string(snap.Kind)),
		zap.Bool("periodic", snap.Periodic))

	return snap, nil
}

// Dispatch переводит задачу pending -> running. Попытка диспетчеризации
// выполняющейся задачи отклоняется, а не ставится в очередь.
func (m *Manager) Dispatch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if e.running {
		return ErrTaskRunning
	}
	if e.status != StatusPending {
		return fmt.Errorf("%w: статус %s", ErrTaskRunning, e.status)
	}

	m.dispatchLocked(e)
	return nil
}

// dispatchLocked запускает выполнение задачи. Вызывается под мьютексом;
// повторный запуск выполняющейся задачи исключен флагом running.
func (m *Manager) dispatchLocked(e *entry) {
	if e.running || e.status != StatusPending || m.closed {
		return
	}
	e.running = true
	e.status = StatusRunning

	m.wg.Add(1)
	go m.execute(e)
}

// Get возвращает снимок задачи. Не блокируется выполняющимся запуском.
func (m *Manager) Get(id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return e.snapshot(), nil
}

// List возвращает снимки всех задач в порядке создания.
func (m *Manager) List() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]Task, 0, len(m.tasks))
	for _, e := range m.tasks {
		tasks = append(tasks, e.snapshot())
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// Cancel запрашивает отмену задачи.
//
// Из pending задача переходит в cancelled сразу. Выполняющаяся задача
// получает флаг отмены и переходит в cancelled, когда запуск его заметит и
// вернется — до этого статус остается running. Для периодической задачи
// отмена также снимает next_run_at, чтобы она больше не перезапускалась.
func (m *Manager) Cancel(id string) (Task, error) {
	m.mu.Lock()

	e, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return Task{}, ErrNotFound
	}

	cancelledNow := false
	switch e.status {
	case StatusPending:
		e.cancel.Store(true)
		e.status = StatusCancelled
		e.nextRunAt = nil
		cancelledNow = true
		m.log.Info("Задача отменена", zap.String("task_id", e.id))
	case StatusRunning:
		e.cancel.Store(true)
		e.nextRunAt = nil
		m.log.Info("Запрошена отмена выполняющейся задачи", zap.String("task_id", e.id))
	default:
		// Конечный статус не пересматривается, отмена идемпотентна.
	}

	snap := e.snapshot()
	m.mu.Unlock()

	if cancelledNow {
		m.persistResult(snap.ID, snap.Status, snap.Result, snap.Error)
	}
	return snap, nil
}

// ClearHistory удаляет из реестра задачи в конечных статусах. Выполняющиеся
// и ожидающие задачи остаются. Возвращает количество удаленных.
func (m *Manager) ClearHistory() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.tasks {
		if e.status.Terminal() && !e.running {
			delete(m.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("История задач очищена", zap.Int("removed", removed))
	}
	return removed
}

// Close останавливает цикл планировщика и дожидается завершения всех
// запущенных выполнений. Новые задачи после Close не принимаются.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.stop()
	m.wg.Wait()
	m.log.Info("Менеджер задач остановлен")
}

// execute выполняет один запуск задачи вне мьютекса менеджера.
// Любая паника внутри запуска переводит задачу в failed, а не роняет процесс.
func (m *Manager) execute(e *entry) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(m.rootCtx, e.spec.Timeout)
	defer cancel()

	var result *runner.ExecutionResult
	var runErr error

	func() {
		defer func() {
			if p := recover(); p != nil {
				runErr = fmt.Errorf("паника при выполнении задачи: %v", p)
				m.log.Error("Паника при выполнении задачи",
					zap.String("task_id", e.id),
					zap.Any("panic", p))
			}
		}()

		switch e.spec.Kind() {
		case KindScript:
			result = m.runner.Run(ctx, e.spec.Script, e.spec.Variables, runner.Options{
				MaxRetries:      e.spec.MaxRetries,
				RetryDelay:      m.def.RetryDelay,
				StopOnError:     e.spec.StopOnError,
				CancelRequested: e.cancel.Load,
			})
		case KindFreeform:
			result, runErr = m.planner.Run(ctx, e.spec.Goal, e.spec.MaxSteps)
		}
	}()

	m.finish(e, result, runErr, ctx.Err())
}

// finish фиксирует исход запуска: обновляет latest_result, переводит статус
// и планирует следующий запуск периодической задачи от времени завершения.
func (m *Manager) finish(e *entry, result *runner.ExecutionResult, runErr, ctxErr error) {
	m.mu.Lock()

	now := time.Now().UTC()
	e.running = false
	e.lastRunAt = &now
	if result != nil {
		e.latest = result
	}
	e.errMsg = ""

	switch {
	case e.cancel.Load():
		e.status = StatusCancelled
		e.nextRunAt = nil
		if runErr != nil {
			e.errMsg = runErr.Error()
		}

	case errors.Is(ctxErr, context.DeadlineExceeded):
		e.status = StatusFailed
		e.errMsg = fmt.Sprintf("превышен потолок времени выполнения %v", e.spec.Timeout)
		e.latest = appendLogEntry(result, "timeout", map[string]any{
			"task_id": e.id,
			"timeout": e.spec.Timeout.String(),
		})

	case runErr != nil:
		e.status = StatusFailed
		e.errMsg = runErr.Error()
		e.latest = appendLogEntry(result, "error", map[string]any{
			"task_id": e.id,
			"error":   runErr.Error(),
		})

	case result != nil && result.Success:
		e.status = StatusCompleted
		if e.spec.Periodic {
			next := now.Add(e.spec.Period)
			e.nextRunAt = &next
			m.queue.push(e.id, next)
			m.wakeScheduler()
		} else {
			e.nextRunAt = nil
		}

	default:
		e.status = StatusFailed
		e.nextRunAt = nil
	}

	status := e.status
	latest := e.latest
	errMsg := e.errMsg
	m.mu.Unlock()

	m.persistResult(e.id, status, latest, errMsg)
	m.log.Info("Запуск задачи завершен",
		zap.String("task_id", e.id),
		zap.String("status", string(status)))
}

// refire запускает задачу, когда подходит ее время в очереди: первый запуск
// из pending либо периодический перезапуск completed -> pending -> running.
func (m *Manager) refire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tasks[id]
	if !ok {
		return
	}
	if e.cancel.Load() || e.status == StatusCancelled {
		return
	}
	if e.running {
		// Предыдущий запуск еще не вернулся: цикл пропускается, следующий
		// будет запланирован от времени завершения.
		m.log.Warn("Пропуск запуска: задача еще выполняется",
			zap.String("task_id", e.id))
		return
	}

	switch e.status {
	case StatusPending:
		m.dispatchLocked(e)
	case StatusCompleted:
		if e.spec.Periodic {
			e.status = StatusPending
			m.dispatchLocked(e)
		}
	}
}

func (m *Manager) wakeScheduler() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) persistTask(t Task) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveTask(&t); err != nil {
		m.log.Warn("Не удалось сохранить задачу в БД",
			zap.String("task_id", t.ID),
			zap.Error(err))
	}
}

func (m *Manager) persistResult(id string, status Status, result *runner.ExecutionResult, errMsg string) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveResult(id, status, result, errMsg); err != nil {
		m.log.Warn("Не удалось сохранить результат в БД",
			zap.String("task_id", id),
			zap.Error(err))
	}
}

// appendLogEntry дописывает запись в журнал результата текущего запуска,
// создавая результат, если запуск не вернул его вовсе. Ни один сбой не
// остается без записи. Результат предыдущего запуска никогда не изменяется:
// его снимки уже могли разойтись по вызывающим.
func appendLogEntry(result *runner.ExecutionResult, action string, details map[string]any) *runner.ExecutionResult {
	if result == nil {
		result = &runner.ExecutionResult{}
	}
	result.Success = false
	result.ExecutionLog = append(result.ExecutionLog, runner.LogEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   details,
	})
	return result
}
