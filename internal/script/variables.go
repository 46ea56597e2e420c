package script

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// VariableError сигнализирует о плейсхолдере, для которого не нашлось значения.
// Шаг с таким действием завершается ошибкой до выполнения первого действия.
type VariableError struct {
	Name  string
	Field string
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("неразрешенная переменная {{%s}} в поле %s", e.Name, e.Field)
}

// ResolveVariables возвращает копию действия с подставленными значениями
// переменных во всех текстовых полях. Неизвестное имя — ошибка, а не
// молчаливый проход плейсхолдера дальше.
func ResolveVariables(action BrowserAction, vars map[string]string) (BrowserAction, error) {
	resolved := action

	fields := []struct {
		name string
		dst  *string
	}{
		{"url", &resolved.URL},
		{"selector", &resolved.Selector},
		{"value", &resolved.Value},
	}

	for _, f := range fields {
		v, err := substitute(*f.dst, f.name, vars)
		if err != nil {
			return action, err
		}
		*f.dst = v
	}

	return resolved, nil
}

func substitute(text, field string, vars map[string]string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	var unresolved *VariableError
	result := placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			if unresolved == nil {
				unresolved = &VariableError{Name: name, Field: field}
			}
			return match
		}
		return value
	})

	if unresolved != nil {
		return text, unresolved
	}
	return result, nil
}
