package logger

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

type waLogger struct {
	s *zap.SugaredLogger
}

// WhatsMeow adapts zap to the whatsmeow logger interface.
func WhatsMeow(log *zap.Logger, module string) waLog.Logger {
	return &waLogger{s: log.Named(module).Sugar()}
}

func (l *waLogger) Errorf(msg string, args ...interface{}) { l.s.Errorf(msg, args...) }
func (l *waLogger) Warnf(msg string, args ...interface{})  { l.s.Warnf(msg, args...) }
func (l *waLogger) Infof(msg string, args ...interface{})  { l.s.Infof(msg, args...) }
func (l *waLogger) Debugf(msg string, args ...interface{}) { l.s.Debugf(msg, args...) }

func (l *waLogger) Sub(module string) waLog.Logger {
	return &waLogger{s: l.s.Named(module)}
}

type gocronLogger struct {
	s *zap.SugaredLogger
}

// Gocron adapts zap to the gocron logger interface. gocron passes key/value
// pairs, which map directly onto the sugared logger.
func Gocron(log *zap.Logger) gocron.Logger {
	return &gocronLogger{s: log.Named("scheduler").Sugar()}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, pairs(args)...) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.s.Infow(msg, pairs(args)...) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, pairs(args)...) }
func (l *gocronLogger) Error(msg string, args ...any) { l.s.Errorw(msg, pairs(args)...) }

// pairs stringifies keys so a stray non-string key cannot trip zap's
// sugared logger into a DPanic.
func pairs(args []any) []any {
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, "extra", args[i])
			break
		}
		out = append(out, fmt.Sprint(args[i]), args[i+1])
	}
	return out
}
