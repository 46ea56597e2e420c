package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariablesSubstitutesAllFields(t *testing.T) {
	action := BrowserAction{
		Type:     ActionTypeText,
		URL:      "https://{{host}}/form",
		Selector: "#{{field}}",
		Value:    "{{first}} {{second}}",
	}
	vars := map[string]string{
		"host":   "example.com",
		"field":  "email",
		"first":  "Иван",
		"second": "Петров",
	}

	resolved, err := ResolveVariables(action, vars)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/form", resolved.URL)
	assert.Equal(t, "#email", resolved.Selector)
	assert.Equal(t, "Иван Петров", resolved.Value)

	// Исходное действие не меняется.
	assert.Equal(t, "https://{{host}}/form", action.URL)
}

func TestResolveVariablesWhitespaceInsidePlaceholder(t *testing.T) {
	action := BrowserAction{Type: ActionNavigate, URL: "https://{{ host }}/"}
	resolved, err := ResolveVariables(action, map[string]string{"host": "example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", resolved.URL)
}

func TestResolveVariablesUnknownNameFails(t *testing.T) {
	action := BrowserAction{Type: ActionTypeText, Selector: "#q", Value: "{{query}}"}

	_, err := ResolveVariables(action, map[string]string{"other": "x"})
	require.Error(t, err)

	var verr *VariableError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "query", verr.Name)
	assert.Equal(t, "value", verr.Field)
}

func TestResolveVariablesNoPlaceholders(t *testing.T) {
	action := BrowserAction{Type: ActionClick, Selector: "#plain"}
	resolved, err := ResolveVariables(action, nil)
	require.NoError(t, err)
	assert.Equal(t, action, resolved)
}

func TestResolveVariablesEmptyValueAllowed(t *testing.T) {
	action := BrowserAction{Type: ActionTypeText, Selector: "#q", Value: "{{query}}"}
	resolved, err := ResolveVariables(action, map[string]string{"query": ""})
	require.NoError(t, err)
	assert.Equal(t, "", resolved.Value)
}
