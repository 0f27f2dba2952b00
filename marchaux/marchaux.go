// Package marchaux contains the host side of the marcher renderer: an orbit
// camera controller, per-frame parameter production, GL fragment program
// assembly and an interactive window.
package marchaux

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soypat/marcher"
	"github.com/soypat/marcher/glrender"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used by marchaux. By default nothing is logged.
// Passing nil restores the silent default. Safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current marchaux logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// UIConfig configures the interactive window started by [UI].
type UIConfig struct {
	Width, Height int
	// Context cancels the render loop when done. May be nil.
	Context context.Context
	// Render configures shading both for GL programs and the CPU shader.
	Render glrender.Config
	Orbit  OrbitConfig
	// CPU shades frames with [glrender.ImageRenderer] and uploads them as a texture
	// instead of running the generated fragment program.
	CPU bool
	// CPUScale divides the window resolution of CPU rendered frames, which are
	// then upscaled to the window. Values below 1 are treated as 1.
	CPUScale int
	// Workers limits the goroutines shading CPU frames. Non-positive uses GOMAXPROCS.
	Workers int
	// AutoRotate is the orbit azimuth increment in radians applied every frame.
	AutoRotate float32
	// HUD overlays frame statistics on CPU rendered frames.
	HUD bool
}

// DefaultUIConfig returns a 800x600 GPU window configuration.
func DefaultUIConfig() UIConfig {
	return UIConfig{
		Width:    800,
		Height:   600,
		Render:   glrender.DefaultConfig(),
		Orbit:    DefaultOrbitConfig(),
		CPUScale: 2,
	}
}

// UI opens a window and renders scene interactively until the window is closed
// or the context is cancelled. Dragging with the left mouse button orbits the
// camera, scrolling zooms and space resets the view. Must be called from the main thread.
func UI(scene *marcher.Scene, cfg UIConfig) error {
	if scene == nil || scene.Len() == 0 {
		return errors.New("empty scene")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("zero or negative window dimensions")
	}
	if err := cfg.Render.Validate(); err != nil {
		return err
	}
	if cfg.CPUScale < 1 {
		cfg.CPUScale = 1
	}
	return ui(scene, cfg)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
