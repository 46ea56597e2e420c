package script

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScript() *AutomationScript {
	return &AutomationScript{
		Name: "login",
		Steps: []ScriptStep{
			{
				StepID: "open",
				Actions: []BrowserAction{
					{Type: ActionNavigate, URL: "https://example.com/login"},
				},
			},
			{
				StepID: "submit",
				Actions: []BrowserAction{
					{Type: ActionTypeText, Selector: "#user", Value: "{{login}}"},
					{Type: ActionClick, Selector: "#go"},
				},
				Validation: &Validation{Type: ValidationURLChanged},
			},
		},
	}
}

func TestValidateAcceptsWellFormedScript(t *testing.T) {
	assert.NoError(t, validScript().Validate())
}

func TestValidateRejectsMalformedScripts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(s *AutomationScript)
	}{
		{"без имени", func(s *AutomationScript) { s.Name = "" }},
		{"без шагов", func(s *AutomationScript) { s.Steps = nil }},
		{"без step_id", func(s *AutomationScript) { s.Steps[0].StepID = "" }},
		{"дублирующийся step_id", func(s *AutomationScript) { s.Steps[1].StepID = s.Steps[0].StepID }},
		{"шаг без действий", func(s *AutomationScript) { s.Steps[0].Actions = nil }},
		{"отрицательный max_retries", func(s *AutomationScript) { s.Steps[0].MaxRetries = -1 }},
		{"navigate без url", func(s *AutomationScript) { s.Steps[0].Actions[0].URL = "" }},
		{"click без selector", func(s *AutomationScript) { s.Steps[1].Actions[1].Selector = "" }},
		{"type без value", func(s *AutomationScript) { s.Steps[1].Actions[0].Value = "" }},
		{"неизвестное действие", func(s *AutomationScript) { s.Steps[0].Actions[0].Type = "hover" }},
		{"неизвестная проверка", func(s *AutomationScript) { s.Steps[1].Validation.Type = "page_loaded" }},
		{"element_exists без selector", func(s *AutomationScript) {
			s.Steps[1].Validation = &Validation{Type: ValidationElementExists}
		}},
		{"text_contains без expected_value", func(s *AutomationScript) {
			s.Steps[1].Validation = &Validation{Type: ValidationTextContains, Selector: "#msg"}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validScript()
			tc.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestValidateScreenshotWithoutSelector(t *testing.T) {
	s := validScript()
	s.Steps[0].Actions = append(s.Steps[0].Actions, BrowserAction{Type: ActionScreenshot})
	assert.NoError(t, s.Validate())
}

func TestScriptJSONFieldNames(t *testing.T) {
	raw := `{
		"name": "search",
		"steps": [
			{
				"step_id": "s1",
				"actions": [
					{"action_type": "navigate", "url": "https://example.com"},
					{"action_type": "type", "selector": "#q", "value": "{{query}}"}
				],
				"validation": {"type": "text_contains", "selector": "#out", "expected_value": "готово"},
				"max_retries": 2
			}
		]
	}`

	var s AutomationScript
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	require.NoError(t, s.Validate())

	require.Len(t, s.Steps, 1)
	assert.Equal(t, "s1", s.Steps[0].StepID)
	assert.Equal(t, 2, s.Steps[0].MaxRetries)
	assert.Equal(t, ActionTypeText, s.Steps[0].Actions[1].Type)
	assert.Equal(t, ValidationTextContains, s.Steps[0].Validation.Type)
	assert.Equal(t, "готово", s.Steps[0].Validation.ExpectedValue)
}
