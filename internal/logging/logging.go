// Package logging carries the process logger used by the print pipeline.
//
// The logger is purely observational: nothing in the pipeline changes behavior
// based on what is logged. Library consumers get a nop logger unless they
// install one with SetLogger.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// SetLogger installs the process logger. Passing nil restores the nop logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
}

// Scope returns a named child of the process logger.
func Scope(name string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(name)
}

// Timer logs msg at debug level with the elapsed time when the returned stop
// function is called.
//
//	defer logging.Timer(log, "render page")()
func Timer(l *zap.Logger, msg string, fields ...zap.Field) func() {
	start := time.Now()
	return func() {
		l.Debug(msg, append(fields, zap.Duration("elapsed", time.Since(start)))...)
	}
}
