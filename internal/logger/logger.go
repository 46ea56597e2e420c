// Package logger предоставляет структурированное логирование на основе zap.
// В dev окружении используется человекочитаемый вывод, в prod — JSON.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap оборачивает zap.Logger для использования во всех пакетах сервиса.
type Zap struct {
	*zap.Logger
}

// New создает логгер для указанного окружения (dev/prod) и уровня логирования.
func New(env, level string) (*Zap, error) {
	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("неверный уровень логирования %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Zap{Logger: log}, nil
}

// Nop возвращает логгер, который ничего не пишет. Используется в тестах.
func Nop() *Zap {
	return &Zap{Logger: zap.NewNop()}
}
