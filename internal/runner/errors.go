package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"browserTasks/internal/script"
)

type ErrorType int

const (
	ErrorTypeTemporary ErrorType = iota
	ErrorTypeCritical
	ErrorTypeRetryable
)

func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTemporary:
		return "temporary"
	case ErrorTypeCritical:
		return "critical"
	case ErrorTypeRetryable:
		return "retryable"
	default:
		return "unknown"
	}
}

// ActionError классифицирует сбой действия. Критические ошибки (отмена
// контекста, невалидное действие) не повторяются, остальные — до исчерпания бюджета.
type ActionError struct {
	Type    ErrorType
	Action  script.ActionType
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func classifyError(action script.ActionType, err error) *ActionError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ActionError{Type: ErrorTypeCritical, Action: action, Message: err.Error(), Err: err}
	}

	errStr := err.Error()

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "ECONNREFUSED") ||
		strings.Contains(errStr, "ETIMEDOUT") {
		return &ActionError{Type: ErrorTypeRetryable, Action: action, Message: errStr, Err: err}
	}

	if strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "selector") ||
		strings.Contains(errStr, "element") {
		return &ActionError{Type: ErrorTypeTemporary, Action: action, Message: errStr, Err: err}
	}

	return &ActionError{Type: ErrorTypeRetryable, Action: action, Message: errStr, Err: err}
}
