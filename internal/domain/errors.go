package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that the token store has not been loaded yet.
	// This can happen during startup when the DB isn't ready.
	ErrTokenStoreNotReady = errors.New("token store not ready")

	// ErrRender matches every *RenderError via errors.Is.
	ErrRender = errors.New("template render failed")
	// ErrRasterize matches every *RasterizationError via errors.Is.
	ErrRasterize = errors.New("pdf rasterization failed")
)

// Rasterization stages reported by RasterizationError.
const (
	StageLaunch = "launch"
	StageLoad   = "load"
	StagePrint  = "print"
)

// RenderError is returned when a template cannot be obtained or rendered.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return "failed to render template"
	}
	return "failed to render template: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }

// RasterizationError is returned when the rendering engine cannot start, load the
// document or print it. Err carries the engine diagnostic.
type RasterizationError struct {
	Stage string
	Err   error
}

func (e *RasterizationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pdf rasterization failed during %s", e.Stage)
	}
	return fmt.Sprintf("pdf rasterization failed during %s: %v", e.Stage, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

func (e *RasterizationError) Is(target error) bool { return target == ErrRasterize }
