package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/profiler"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer"
	"github.com/Carmen-Shannon/msaa-line/engine/window"
)

// ErrMissingCollaborator is returned by NewEngine when the window, surface or renderer was not supplied.
var ErrMissingCollaborator = errors.New("engine requires a window, a surface and a renderer")

// Surface is the presentation side of the GPU backend: it owns the swapchain the renderer draws into.
// renderer.WGPURendererBackend implements it.
type Surface interface {
	ConfigureSurface(width, height int) error
	AcquireFrame() (*renderer.Frame, error)
	Submit(cmd renderer.CommandBuffer) error
	Present(frame *renderer.Frame)
}

// engine implements the Engine interface.
// Every callback runs on the window's message loop thread; there is no other goroutine.
type engine struct {
	quitOnce sync.Once
	err      error

	window   window.Window
	surface  Surface
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	frames           uint64
	skipped          uint64
}

// Engine is the framework collaborator that drives the renderer: it forwards window input and resize
// events to the renderer and, once per message loop iteration, acquires a surface frame, renders it,
// submits the command buffer and presents.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the render loop controller driven by the engine.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frames returns how many frames were presented and how many were skipped because the surface was empty.
	//
	// Returns:
	//   - presented: the number of presented frames
	//   - skipped: the number of skipped frames
	Frames() (presented, skipped uint64)

	// Run runs the message loop on the calling goroutine until the window closes or a frame fails.
	//
	// Returns:
	//   - error: the error that stopped the loop, or nil if the window was closed
	Run() error

	// Quit asks the message loop to stop after the current iteration.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine and wires the window callbacks to the renderer.
//
// Parameters:
//   - options: functional options for engine configuration; WithWindow, WithSurface and WithRenderer are required
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrMissingCollaborator if a required collaborator is missing
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		profiler: profiler.NewProfiler(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window == nil || e.surface == nil || e.renderer == nil {
		return nil, ErrMissingCollaborator
	}

	e.window.SetKeyDownCallback(e.handleKeyDown)
	e.window.SetResizeCallback(e.handleResize)
	e.window.SetUpdateCallback(e.handleUpdate)
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() error {
	e.window.ProcessMessages()
	return e.err
}

// Quit is safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(e.window.RequestClose)
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) Frames() (presented, skipped uint64) {
	return e.frames, e.skipped
}

// handleKeyDown forwards key presses to the renderer.
func (e *engine) handleKeyDown(keyCode uint32) {
	e.renderer.Update(keyCode)
}

// handleResize reconfigures the swapchain and tells the renderer about the new size.
// A zero-sized (minimized) surface is not configured; frames are skipped until it has pixels again.
func (e *engine) handleResize(width, height int) {
	if width > 0 && height > 0 {
		if err := e.surface.ConfigureSurface(width, height); err != nil {
			e.fail(fmt.Errorf("failed to configure surface: %w", err))
			return
		}
	}
	e.renderer.Resize(width, height)
}

// handleUpdate runs one frame and applies the frame limit.
func (e *engine) handleUpdate() {
	start := time.Now()
	if err := e.frame(); err != nil {
		e.fail(err)
		return
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick("sample_count", uint32(e.renderer.SampleCount()))
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// frame acquires, renders, submits and presents one frame.
func (e *engine) frame() error {
	if e.window.Width() <= 0 || e.window.Height() <= 0 {
		e.skipped++
		return nil
	}

	frame, err := e.surface.AcquireFrame()
	if err != nil {
		return fmt.Errorf("failed to acquire frame: %w", err)
	}
	// The acquired image goes back to the swapchain even when rendering fails.
	defer e.surface.Present(frame)

	cmd, err := e.renderer.Render(frame.View)
	if errors.Is(err, renderer.ErrEmptySurface) {
		e.skipped++
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.surface.Submit(cmd); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	e.frames++
	return nil
}

// fail records the first fatal error and stops the loop.
func (e *engine) fail(err error) {
	if e.err == nil {
		e.err = err
		common.Logger().Error("frame failed, stopping engine", "error", err)
	}
	e.Quit()
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
