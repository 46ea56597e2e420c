// Package sanitizer маскирует чувствительные данные перед записью в журнал
// выполнения и перед логированием промптов LLM.
package sanitizer

import (
	"regexp"
	"strings"
)

type DataSanitizer struct {
	rules []SanitizerRule
}

type SanitizerRule interface {
	Sanitize(text string) string
}

func New() *DataSanitizer {
	return &DataSanitizer{
		rules: []SanitizerRule{
			&PasswordSanitizer{},
			&TokenSanitizer{},
			&APIKeySanitizer{},
			&CardSanitizer{},
		},
	}
}

func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, rule := range s.rules {
		result = rule.Sanitize(result)
	}

	return result
}

// sensitiveNames — имена переменных, значения которых нельзя показывать в журнале.
var sensitiveNames = []string{
	"password", "пароль", "passwd", "pwd",
	"token", "secret", "api_key", "api-key", "apikey",
}

// SensitiveValues возвращает значения переменных с чувствительными именами.
// Журнал выполнения заменяет такие значения на [FILTERED] уже после
// подстановки, когда имя переменной в тексте не видно.
func SensitiveValues(vars map[string]string) []string {
	if len(vars) == 0 {
		return nil
	}

	values := make([]string, 0, len(vars))
	for name, value := range vars {
		if value != "" && isSensitiveName(name) {
			values = append(values, value)
		}
	}
	return values
}

func isSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range sensitiveNames {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

type PasswordSanitizer struct{}

func (s *PasswordSanitizer) Sanitize(text string) string {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)(password|пароль)\s*[:=]\s*["']?([^"'\s]{3,})["']?`),
		regexp.MustCompile(`(?i)(passwd|pwd)\s*[:=]\s*["']?([^"'\s]{3,})["']?`),
	}

	for _, pattern := range patterns {
		text = pattern.ReplaceAllString(text, `${1}: [FILTERED]`)
	}

	return text
}

type TokenSanitizer struct{}

func (s *TokenSanitizer) Sanitize(text string) string {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)(bearer)\s+[a-zA-Z0-9._-]{16,}`),
		regexp.MustCompile(`(?i)(token|secret)\s*[:=]\s*["']?([^"'\s]{8,})["']?`),
	}

	for _, pattern := range patterns {
		text = pattern.ReplaceAllString(text, `${1}: [FILTERED]`)
	}

	return text
}

type APIKeySanitizer struct{}

func (s *APIKeySanitizer) Sanitize(text string) string {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		regexp.MustCompile(`(?i)(api[_-]?key)\s*[:=]\s*["']?([^"'\s]{8,})["']?`),
	}

	text = patterns[0].ReplaceAllString(text, "[FILTERED_KEY]")
	text = patterns[1].ReplaceAllString(text, `${1}: [FILTERED]`)

	return text
}

type CardSanitizer struct{}

func (s *CardSanitizer) Sanitize(text string) string {
	pattern := regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)
	return pattern.ReplaceAllString(text, "[FILTERED_CARD]")
}
