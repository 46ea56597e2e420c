package runner

import (
	"fmt"
	"strings"

	"browserTasks/internal/script"
)

// Outcome — результат применения правила проверки к снимку страницы.
type Outcome struct {
	Passed bool
	Detail string
}

// Validate применяет правило проверки к снимку страницы. Чистая функция.
// Отсутствие правила означает, что шаг считается проверенным. Неизвестный тип
// правила проваливает проверку, а не пропускает ее молча.
func Validate(rule *script.Validation, snap *PageSnapshot, startURL string) Outcome {
	if rule == nil {
		return Outcome{Passed: true, Detail: "проверка не задана"}
	}
	if snap == nil {
		return Outcome{Passed: false, Detail: "нет снимка страницы для проверки"}
	}

	switch rule.Type {
	case script.ValidationElementExists:
		if _, ok := snap.Elements[rule.Selector]; ok {
			return Outcome{Passed: true, Detail: fmt.Sprintf("элемент %q найден", rule.Selector)}
		}
		return Outcome{Passed: false, Detail: fmt.Sprintf("элемент %q не найден", rule.Selector)}

	case script.ValidationTextContains:
		text, ok := snap.Elements[rule.Selector]
		if !ok {
			return Outcome{Passed: false, Detail: fmt.Sprintf("элемент %q не найден", rule.Selector)}
		}
		if strings.Contains(text, rule.ExpectedValue) {
			return Outcome{Passed: true, Detail: fmt.Sprintf("текст содержит %q", rule.ExpectedValue)}
		}
		return Outcome{Passed: false, Detail: fmt.Sprintf("текст элемента %q не содержит %q", rule.Selector, rule.ExpectedValue)}

	case script.ValidationURLChanged:
		if snap.URL != startURL {
			return Outcome{Passed: true, Detail: fmt.Sprintf("URL изменился: %s -> %s", startURL, snap.URL)}
		}
		return Outcome{Passed: false, Detail: fmt.Sprintf("URL не изменился: %s", snap.URL)}

	default:
		return Outcome{Passed: false, Detail: "unknown validation type"}
	}
}
