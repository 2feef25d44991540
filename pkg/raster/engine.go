// Package raster turns PDF pages into device-ready pixel buffers.
//
// The rendering engine is process-wide state initialized once and shared by
// every Rasterizer. Initialize and Cleanup are reference-counted: the first
// Initialize starts the engine, the matching final Cleanup destroys it.
package raster

import (
	"errors"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Code is an engine error code, mirroring a native renderer's last-error
// contract.
type Code int

const (
	CodeSuccess Code = iota
	CodeUnknown
	CodeFile
	CodeFormat
	CodePassword
	CodeSecurity
	CodePage
)

// String returns the conventional name for the code.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeUnknown:
		return "unknown error"
	case CodeFile:
		return "file access error"
	case CodeFormat:
		return "invalid or corrupted format"
	case CodePassword:
		return "password required or incorrect"
	case CodeSecurity:
		return "unsupported security scheme"
	case CodePage:
		return "page not found or content error"
	}
	return "unrecognized code"
}

// ErrNotInitialized is returned when the engine is used before Initialize.
var ErrNotInitialized = errors.New("raster: engine not initialized")

// EngineUnavailableError reports that the rendering engine failed to start.
type EngineUnavailableError struct {
	Reason error
}

func (e *EngineUnavailableError) Error() string {
	return "raster: rendering engine unavailable: " + e.Reason.Error()
}

func (e *EngineUnavailableError) Unwrap() error { return e.Reason }

// engineState is the one piece of truly shared mutable state in the pipeline.
type engineState struct {
	mu       sync.Mutex
	refs     int
	fallback *truetype.Font // base font used when a document embeds none
	lastErr  Code
}

var engine engineState

// Initialize starts the rendering engine, or bumps its reference count when
// already running. Every successful Initialize must be paired with a Cleanup.
func Initialize() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.refs > 0 {
		engine.refs++
		return nil
	}

	fallback, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return &EngineUnavailableError{Reason: err}
	}
	engine.fallback = fallback
	engine.lastErr = CodeSuccess
	engine.refs = 1
	return nil
}

// Cleanup drops one engine reference, destroying the engine when the count
// reaches zero. Extra calls beyond the matching Initialize count are no-ops.
func Cleanup() {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.refs == 0 {
		return
	}
	engine.refs--
	if engine.refs == 0 {
		engine.fallback = nil
	}
}

// initialized reports whether the engine is running.
func initialized() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.refs > 0
}

// fallbackFont returns the engine's base font, or nil before Initialize.
func fallbackFont() *truetype.Font {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.fallback
}

func setLastError(c Code) {
	engine.mu.Lock()
	engine.lastErr = c
	engine.mu.Unlock()
}

// LastError returns the engine code recorded by the most recent failed load
// or render.
func LastError() Code {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.lastErr
}

// refCount is exposed for tests.
func refCount() int {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.refs
}
