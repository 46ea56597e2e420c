// Package script описывает декларативные сценарии автоматизации браузера:
// упорядоченные шаги, действия и правила проверки после шага.
// Сценарий неизменяем после создания, подстановка переменных выполняется
// на копиях действий во время выполнения.
package script

import "fmt"

// ActionType определяет тип действия в браузере. Закрытое множество —
// неизвестный тип отклоняется на границе при валидации, а не при выполнении.
type ActionType string

const (
	ActionNavigate   ActionType = "navigate"
	ActionClick      ActionType = "click"
	ActionTypeText   ActionType = "type"
	ActionExtract    ActionType = "extract"
	ActionScreenshot ActionType = "screenshot"
)

// ValidationType определяет тип проверки страницы после шага.
type ValidationType string

const (
	ValidationElementExists ValidationType = "element_exists"
	ValidationTextContains  ValidationType = "text_contains"
	ValidationURLChanged    ValidationType = "url_changed"
)

// BrowserAction представляет одно атомарное действие на странице.
// Поля url, selector и value могут содержать плейсхолдеры {{имя}},
// разрешаемые по карте переменных перед выполнением.
type BrowserAction struct {
	Type     ActionType `json:"action_type"`
	URL      string     `json:"url,omitempty"`
	Selector string     `json:"selector,omitempty"`
	Value    string     `json:"value,omitempty"`
}

// Validation представляет правило проверки состояния страницы после шага.
type Validation struct {
	Type          ValidationType `json:"type"`
	Selector      string         `json:"selector,omitempty"`
	ExpectedValue string         `json:"expected_value,omitempty"`
}

// ScriptStep представляет именованную группу действий с опциональной проверкой.
type ScriptStep struct {
	StepID      string          `json:"step_id"`
	Description string          `json:"description,omitempty"`
	Actions     []BrowserAction `json:"actions"`
	Validation  *Validation     `json:"validation,omitempty"`
	// MaxRetries переопределяет бюджет повторов задачи для этого шага. 0 — использовать дефолт.
	MaxRetries int `json:"max_retries,omitempty"`
}

// AutomationScript представляет сценарий: имя, описание и упорядоченные шаги.
type AutomationScript struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Steps       []ScriptStep `json:"steps"`
}

// Validate проверяет корректность сценария на границе: закрытые множества типов,
// обязательные поля по типу действия, уникальность step_id.
func (s *AutomationScript) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("имя сценария не задано")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("сценарий %q не содержит шагов", s.Name)
	}

	seen := make(map[string]struct{}, len(s.Steps))
	for i, step := range s.Steps {
		if step.StepID == "" {
			return fmt.Errorf("шаг #%d: step_id не задан", i+1)
		}
		if _, ok := seen[step.StepID]; ok {
			return fmt.Errorf("шаг %q: step_id не уникален", step.StepID)
		}
		seen[step.StepID] = struct{}{}

		if len(step.Actions) == 0 {
			return fmt.Errorf("шаг %q: нет действий", step.StepID)
		}
		if step.MaxRetries < 0 {
			return fmt.Errorf("шаг %q: отрицательный max_retries", step.StepID)
		}
		for j, action := range step.Actions {
			if err := action.validate(); err != nil {
				return fmt.Errorf("шаг %q, действие #%d: %w", step.StepID, j+1, err)
			}
		}
		if step.Validation != nil {
			if err := step.Validation.validate(); err != nil {
				return fmt.Errorf("шаг %q: %w", step.StepID, err)
			}
		}
	}
	return nil
}

func (a *BrowserAction) validate() error {
	switch a.Type {
	case ActionNavigate:
		if a.URL == "" {
			return fmt.Errorf("navigate требует url")
		}
	case ActionClick, ActionExtract:
		if a.Selector == "" {
			return fmt.Errorf("%s требует selector", a.Type)
		}
	case ActionTypeText:
		if a.Selector == "" {
			return fmt.Errorf("type требует selector")
		}
		if a.Value == "" {
			return fmt.Errorf("type требует value")
		}
	case ActionScreenshot:
		// selector опционален: без него снимается вся страница
	default:
		return fmt.Errorf("неизвестный тип действия %q", a.Type)
	}
	return nil
}

func (v *Validation) validate() error {
	switch v.Type {
	case ValidationElementExists:
		if v.Selector == "" {
			return fmt.Errorf("element_exists требует selector")
		}
	case ValidationTextContains:
		if v.Selector == "" || v.ExpectedValue == "" {
			return fmt.Errorf("text_contains требует selector и expected_value")
		}
	case ValidationURLChanged:
		// дополнительных полей нет
	default:
		return fmt.Errorf("неизвестный тип проверки %q", v.Type)
	}
	return nil
}
