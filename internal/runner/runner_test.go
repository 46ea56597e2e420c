package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"browserTasks/internal/logger"
	"browserTasks/internal/script"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor — подменный ActionExecutor: исходы задаются очередью на
// каждую пару шаг/действие либо общим хуком.
type fakeExecutor struct {
	mu        sync.Mutex
	perform   func(action script.BrowserAction) (*ActionResult, error)
	snapshot  *PageSnapshot
	calls     []script.BrowserAction
	snapCalls int
}

func (f *fakeExecutor) Perform(ctx context.Context, action script.BrowserAction) (*ActionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, action)
	f.mu.Unlock()

	if f.perform != nil {
		return f.perform(action)
	}
	return &ActionResult{Snapshot: f.snapshot, Outcome: "ok"}, nil
}

func (f *fakeExecutor) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	f.mu.Lock()
	f.snapCalls++
	f.mu.Unlock()

	if f.snapshot == nil {
		return &PageSnapshot{URL: "about:blank", Elements: map[string]string{}}, nil
	}
	return f.snapshot, nil
}

func (f *fakeExecutor) snapshotCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapCalls
}

func newTestRunner(exec ActionExecutor) *Runner {
	return New(exec, nil, logger.Nop())
}

func singleStepScript(actions ...script.BrowserAction) *script.AutomationScript {
	return &script.AutomationScript{
		Name: "test",
		Steps: []script.ScriptStep{
			{StepID: "step_1", Actions: actions},
		},
	}
}

func TestRunNavigateClickSuccess(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(exec)

	scr := singleStepScript(
		script.BrowserAction{Type: script.ActionNavigate, URL: "https://example.com"},
		script.BrowserAction{Type: script.ActionClick, Selector: "#go"},
	)

	result := r.Run(context.Background(), scr, nil, Options{MaxRetries: 1})

	require.True(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepSuccess, result.Steps[0].Status)

	// Ровно две записи журнала, по одной на действие, в порядке выполнения.
	require.Len(t, result.ExecutionLog, 2)
	assert.Equal(t, "navigate", result.ExecutionLog[0].Action)
	assert.Equal(t, "click", result.ExecutionLog[1].Action)
}

func TestRunRetriesSameActionUntilSuccess(t *testing.T) {
	failures := 2
	exec := &fakeExecutor{}
	exec.perform = func(action script.BrowserAction) (*ActionResult, error) {
		if failures > 0 {
			failures--
			return nil, fmt.Errorf("элемент не найден")
		}
		return &ActionResult{Outcome: "ok"}, nil
	}
	r := newTestRunner(exec)

	scr := singleStepScript(script.BrowserAction{Type: script.ActionClick, Selector: "#btn"})
	result := r.Run(context.Background(), scr, nil, Options{MaxRetries: 3})

	require.True(t, result.Success)
	require.Len(t, result.Steps, 1)

	// Две неудачные попытки и одна успешная — все три в журнале.
	outcomes := result.Steps[0].ActionOutcomes
	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.True(t, outcomes[2].Success)
	assert.Len(t, result.ExecutionLog, 3)
}

func TestRunExhaustedRetriesFailStepAndSkipRemainingActions(t *testing.T) {
	exec := &fakeExecutor{}
	exec.perform = func(action script.BrowserAction) (*ActionResult, error) {
		if action.Type == script.ActionClick {
			return nil, fmt.Errorf("элемент не найден")
		}
		return &ActionResult{Outcome: "ok"}, nil
	}
	r := newTestRunner(exec)

	scr := singleStepScript(
		script.BrowserAction{Type: script.ActionClick, Selector: "#btn"},
		script.BrowserAction{Type: script.ActionExtract, Selector: "#result"},
	)
	result := r.Run(context.Background(), scr, nil, Options{MaxRetries: 2})

	require.False(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepFailed, result.Steps[0].Status)

	// Extract не выполнялся: после исчерпания бюджета оставшиеся действия
	// шага пропускаются.
	for _, call := range exec.calls {
		assert.NotEqual(t, script.ActionExtract, call.Type)
	}
}

func TestRunStopOnError(t *testing.T) {
	makeScript := func() *script.AutomationScript {
		return &script.AutomationScript{
			Name: "three-steps",
			Steps: []script.ScriptStep{
				{StepID: "s1", Actions: []script.BrowserAction{{Type: script.ActionNavigate, URL: "https://a"}}},
				{StepID: "s2", Actions: []script.BrowserAction{{Type: script.ActionClick, Selector: "#fail"}}},
				{StepID: "s3", Actions: []script.BrowserAction{{Type: script.ActionNavigate, URL: "https://b"}}},
			},
		}
	}
	perform := func(action script.BrowserAction) (*ActionResult, error) {
		if action.Selector == "#fail" {
			return nil, fmt.Errorf("элемент не найден")
		}
		return &ActionResult{Outcome: "ok"}, nil
	}

	t.Run("stop_on_error=true", func(t *testing.T) {
		exec := &fakeExecutor{perform: perform}
		result := newTestRunner(exec).Run(context.Background(), makeScript(), nil, Options{MaxRetries: 1, StopOnError: true})

		require.False(t, result.Success)
		require.Len(t, result.Steps, 2)
		assert.Equal(t, "s1", result.Steps[0].StepID)
		assert.Equal(t, "s2", result.Steps[1].StepID)
	})

	t.Run("stop_on_error=false", func(t *testing.T) {
		exec := &fakeExecutor{perform: perform}
		result := newTestRunner(exec).Run(context.Background(), makeScript(), nil, Options{MaxRetries: 1, StopOnError: false})

		require.False(t, result.Success)
		require.Len(t, result.Steps, 3)
		assert.Equal(t, StepSuccess, result.Steps[0].Status)
		assert.Equal(t, StepFailed, result.Steps[1].Status)
		assert.Equal(t, StepSuccess, result.Steps[2].Status)
	})
}

func TestRunValidationFailureFailsStepDespiteActionSuccess(t *testing.T) {
	exec := &fakeExecutor{
		snapshot: &PageSnapshot{
			URL:      "https://example.com",
			Elements: map[string]string{"#title": "Страница"},
		},
	}
	r := newTestRunner(exec)

	scr := &script.AutomationScript{
		Name: "validated",
		Steps: []script.ScriptStep{
			{
				StepID:  "s1",
				Actions: []script.BrowserAction{{Type: script.ActionClick, Selector: "#title"}},
				Validation: &script.Validation{
					Type:     script.ValidationElementExists,
					Selector: "#missing",
				},
			},
		},
	}

	result := r.Run(context.Background(), scr, nil, Options{MaxRetries: 1})

	require.False(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepFailed, result.Steps[0].Status)

	// Действие прошло, провалилась именно проверка.
	require.Len(t, result.Steps[0].ActionOutcomes, 1)
	assert.True(t, result.Steps[0].ActionOutcomes[0].Success)
	require.NotNil(t, result.Steps[0].Validation)
	assert.False(t, result.Steps[0].Validation.Passed)
}

func TestRunUnresolvedVariableFailsBeforeActions(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(exec)

	scr := singleStepScript(
		script.BrowserAction{Type: script.ActionTypeText, Selector: "#q", Value: "{{query}}"},
	)
	result := r.Run(context.Background(), scr, map[string]string{"other": "x"}, Options{MaxRetries: 1})

	require.False(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepFailed, result.Steps[0].Status)
	assert.Empty(t, exec.calls, "действия не должны выполняться при неразрешенной переменной")

	require.NotEmpty(t, result.ExecutionLog)
	assert.Equal(t, "variable_resolution", result.ExecutionLog[0].Action)
}

func TestRunVariableSubstitution(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(exec)

	scr := singleStepScript(
		script.BrowserAction{Type: script.ActionNavigate, URL: "https://{{host}}/search"},
		script.BrowserAction{Type: script.ActionTypeText, Selector: "#q", Value: "{{query}}"},
	)
	vars := map[string]string{"host": "example.com", "query": "золотые рыбки"}

	result := r.Run(context.Background(), scr, vars, Options{MaxRetries: 1})

	require.True(t, result.Success)
	require.Len(t, exec.calls, 2)
	assert.Equal(t, "https://example.com/search", exec.calls[0].URL)
	assert.Equal(t, "золотые рыбки", exec.calls[1].Value)
}

func TestRunMasksSensitiveVariableValuesInLog(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(exec)

	scr := singleStepScript(
		script.BrowserAction{Type: script.ActionTypeText, Selector: "#pass", Value: "{{password}}"},
	)
	vars := map[string]string{"password": "qwerty123"}

	result := r.Run(context.Background(), scr, vars, Options{MaxRetries: 1})

	require.True(t, result.Success)

	// Само действие получает настоящее значение.
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "qwerty123", exec.calls[0].Value)

	// В журнал значение чувствительной переменной не попадает.
	require.Len(t, result.ExecutionLog, 1)
	assert.Equal(t, "[FILTERED]", result.ExecutionLog[0].Details["value"])
}

func TestRunSkipsSnapshotWithoutValidation(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(exec)

	scr := singleStepScript(
		script.BrowserAction{Type: script.ActionNavigate, URL: "https://example.com"},
		script.BrowserAction{Type: script.ActionClick, Selector: "#go"},
	)
	result := r.Run(context.Background(), scr, nil, Options{MaxRetries: 1})

	require.True(t, result.Success)
	assert.Equal(t, 0, exec.snapshotCalls(), "без правила проверки состояние страницы не запрашивается")
}

func TestRunCancellationAtStepBoundary(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(exec)

	cancelled := false
	scr := &script.AutomationScript{
		Name: "cancellable",
		Steps: []script.ScriptStep{
			{StepID: "s1", Actions: []script.BrowserAction{{Type: script.ActionNavigate, URL: "https://a"}}},
			{StepID: "s2", Actions: []script.BrowserAction{{Type: script.ActionNavigate, URL: "https://b"}}},
		},
	}

	opts := Options{
		MaxRetries: 1,
		CancelRequested: func() bool {
			// Отмена приходит после первого шага.
			return cancelled
		},
	}
	exec.perform = func(action script.BrowserAction) (*ActionResult, error) {
		cancelled = true
		return &ActionResult{Outcome: "ok"}, nil
	}

	result := r.Run(context.Background(), scr, nil, opts)

	require.False(t, result.Success)
	require.Len(t, result.Steps, 1, "второй шаг не должен начинаться")

	last := result.ExecutionLog[len(result.ExecutionLog)-1]
	assert.Equal(t, "cancelled", last.Action)
}

func TestRunLogEntriesGroupedByStep(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(exec)

	scr := &script.AutomationScript{
		Name: "ordered",
		Steps: []script.ScriptStep{
			{StepID: "s1", Actions: []script.BrowserAction{
				{Type: script.ActionNavigate, URL: "https://a"},
				{Type: script.ActionClick, Selector: "#x"},
			}},
			{StepID: "s2", Actions: []script.BrowserAction{
				{Type: script.ActionExtract, Selector: "#y"},
			}},
		},
	}

	result := r.Run(context.Background(), scr, nil, Options{MaxRetries: 1})
	require.True(t, result.Success)
	require.Len(t, result.ExecutionLog, 3)

	// Записи первого шага строго предшествуют записям второго.
	assert.Equal(t, "navigate", result.ExecutionLog[0].Action)
	assert.Equal(t, "click", result.ExecutionLog[1].Action)
	assert.Equal(t, "extract", result.ExecutionLog[2].Action)
}

func TestRunScreenshotAggregation(t *testing.T) {
	exec := &fakeExecutor{}
	exec.perform = func(action script.BrowserAction) (*ActionResult, error) {
		if action.Type == script.ActionScreenshot {
			return &ActionResult{ScreenshotRef: "/tmp/shot.png", Outcome: "/tmp/shot.png"}, nil
		}
		return &ActionResult{Outcome: "ok"}, nil
	}
	r := newTestRunner(exec)

	scr := singleStepScript(
		script.BrowserAction{Type: script.ActionNavigate, URL: "https://a"},
		script.BrowserAction{Type: script.ActionScreenshot},
	)
	result := r.Run(context.Background(), scr, nil, Options{MaxRetries: 1})

	require.True(t, result.Success)
	assert.Equal(t, []string{"/tmp/shot.png"}, result.Screenshots)
	assert.Equal(t, "/tmp/shot.png", result.Steps[0].ScreenshotRef)
}
