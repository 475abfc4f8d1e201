// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package commons provides the logging facade shared by every subsystem so
// call sites never depend on zap directly.
package commons

import (
	"time"

	"go.uber.org/zap"
)

// Logger is the logging surface every subsystem depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Benchmark(stage string, d time.Duration)
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a Logger backed by zap. Development uses a human-readable
// console encoder; production emits structured JSON.
func NewLogger(level string, development bool) (Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: base.Sugar()}, nil
}

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Benchmark logs how long a named stage took. Noisy at debug level only.
func (l *zapLogger) Benchmark(stage string, d time.Duration) {
	l.sugar.Debugf("stage=%s took=%s", stage, d)
}
