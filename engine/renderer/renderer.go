package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/geometry"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// UsageHint is logged once when a renderer is created.
const UsageHint = "Press left/right arrow keys to change sample_count."

// ErrNoSurfaceView is returned by Render when called without a surface view.
var ErrNoSurfaceView = errors.New("render requires a surface view")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	backend RendererBackend
	statics *StaticResources
	state   ControllerState
	config  *RenderConfiguration

	// Pre-creation config collected from builder options
	sampleCount    SampleCount
	maxSampleCount SampleCount
	segments       uint32
	vertexShader   shader.Shader
	fragmentShader shader.Shader
}

// Renderer is the render loop controller. It owns the line geometry, the shader modules and the
// current RenderConfiguration, and keeps the configuration in step with the sample count and surface
// size requested through Update, HandleInput and Resize.
//
// A Renderer is not safe for concurrent use; all calls must come from the thread that drives the frame loop.
type Renderer interface {
	// Update applies a keyboard key. The right arrow doubles the sample count and the left arrow
	// halves it; every other key is ignored.
	//
	// Parameters:
	//   - keyCode: the key code reported by the window
	Update(keyCode uint32)

	// HandleInput applies an already decoded input event.
	//
	// Parameters:
	//   - ev: the input event
	HandleInput(ev InputEvent)

	// Resize records a new surface size. The multisample target is rebuilt on the next Render even if
	// the size did not change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// Render rebuilds the RenderConfiguration if a rebuild is pending, then encodes the frame's render pass
	// into a command buffer that the caller submits. If the rebuild fails, no command buffer is produced, the
	// previous configuration stays installed and the rebuild is retried on the next call.
	//
	// Parameters:
	//   - surfaceView: the presentable surface texture view for this frame
	//
	// Returns:
	//   - CommandBuffer: the encoded frame
	//   - error: an error if the rebuild or encoding failed
	Render(surfaceView common.Resource) (CommandBuffer, error)

	// SampleCount returns the requested sample count, which the installed configuration may not match yet
	// while a rebuild is pending.
	SampleCount() SampleCount

	// State returns a copy of the controller state.
	State() ControllerState

	// Configuration returns the installed RenderConfiguration. It is replaced, never mutated, by a rebuild.
	Configuration() *RenderConfiguration

	// Release releases the installed configuration and the static resources.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates the static resources and the initial RenderConfiguration.
// Unless WithShaders is given, the bundled WGSL line shaders are compiled to SPIR-V first.
//
// Parameters:
//   - backend: the GPU backend used to create every resource
//   - format: the surface texture format
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the ready to render controller
//   - error: an error if shader compilation or any GPU resource creation fails
func NewRenderer(backend RendererBackend, format wgpu.TextureFormat, width, height int, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		backend:        backend,
		sampleCount:    MSAA4x,
		maxSampleCount: MSAA16x,
		segments:       geometry.DefaultSegments,
	}
	for _, opt := range options {
		opt(r)
	}

	if !r.sampleCount.Valid() {
		return nil, fmt.Errorf("%w: initial sample count %d", ErrInvalidSampleCount, r.sampleCount)
	}
	if !r.maxSampleCount.Valid() {
		return nil, fmt.Errorf("%w: max sample count %d", ErrInvalidSampleCount, r.maxSampleCount)
	}
	if r.sampleCount > r.maxSampleCount {
		return nil, fmt.Errorf("%w: initial sample count %d exceeds max %d", ErrInvalidSampleCount, r.sampleCount, r.maxSampleCount)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptySurface, width, height)
	}

	if r.vertexShader == nil || r.fragmentShader == nil {
		shaders, err := shader.Compile(shader.LineSources()...)
		if err != nil {
			return nil, fmt.Errorf("failed to compile line shaders: %w", err)
		}
		r.vertexShader, r.fragmentShader = shaders[0], shaders[1]
	}

	statics, err := newStaticResources(backend, geometry.ColorWheel(r.segments), r.vertexShader, r.fragmentShader)
	if err != nil {
		return nil, err
	}
	r.statics = statics

	supported := backend.SupportedSampleCounts(format) | SampleCountSet(MSAAOff)
	if !supported.Contains(r.sampleCount) {
		fallback := supported.Floor(r.sampleCount)
		common.Logger().Warn("sample count not supported by the device, falling back",
			"requested", uint32(r.sampleCount),
			"sample_count", uint32(fallback),
		)
		r.sampleCount = fallback
	}

	r.state = NewControllerState(r.sampleCount, r.maxSampleCount, uint32(width), uint32(height), format)
	r.state.Supported = supported
	r.config, err = buildConfiguration(backend, statics, r.state.Config(), 1)
	if err != nil {
		statics.Release()
		return nil, fmt.Errorf("failed to build initial render configuration: %w", err)
	}

	common.Logger().Info(UsageHint)
	common.Logger().Info("renderer ready",
		"sample_count", uint32(r.state.SampleCount),
		"width", width,
		"height", height,
		"vertices", statics.VertexCount,
		"supported", supported.Counts(),
	)
	return r, nil
}

func (r *renderer) Update(keyCode uint32) {
	r.HandleInput(InputEventFromKey(keyCode))
}

func (r *renderer) HandleInput(ev InputEvent) {
	if ev == InputNone {
		return
	}
	prev := r.state
	r.state = r.state.Apply(ev)
	if r.state.SampleCount == prev.SampleCount {
		common.Logger().Debug("sample count clamped", "input", ev.String(), "sample_count", uint32(prev.SampleCount))
	}
}

func (r *renderer) Resize(width, height int) {
	r.state = r.state.Resized(uint32(max(width, 0)), uint32(max(height, 0)))
}

func (r *renderer) Render(surfaceView common.Resource) (CommandBuffer, error) {
	if surfaceView == nil {
		return CommandBuffer{}, ErrNoSurfaceView
	}
	if r.state.RebuildPending {
		if err := r.rebuild(); err != nil {
			return CommandBuffer{}, err
		}
	}

	pass := r.config.RenderPass(surfaceView)
	buf, err := r.backend.EncodeRenderPass(pass)
	if err != nil {
		return CommandBuffer{}, fmt.Errorf("failed to encode render pass: %w", err)
	}
	return CommandBuffer{Buffer: buf, Pass: pass, Version: r.config.Version}, nil
}

// rebuild installs a configuration matching the state. The old configuration is released only after
// the new one is complete, so a failure leaves the renderer as it was.
func (r *renderer) rebuild() error {
	cfg := r.state.Config()
	if !cfg.NeedsRebuild(r.config.Config) {
		r.state = r.state.Rebuilt()
		common.Logger().Debug("rebuild skipped, configuration unchanged", "sample_count", uint32(cfg.SampleCount))
		return nil
	}

	next, err := buildConfiguration(r.backend, r.statics, cfg, r.config.Version+1)
	if err != nil {
		return fmt.Errorf("failed to rebuild render configuration: %w", err)
	}

	old := r.config
	r.config = next
	r.state = r.state.Rebuilt()
	old.Release()

	common.Logger().Info("render configuration rebuilt",
		"sample_count", uint32(cfg.SampleCount),
		"width", cfg.Width,
		"height", cfg.Height,
		"version", next.Version,
	)
	return nil
}

func (r *renderer) SampleCount() SampleCount {
	return r.state.SampleCount
}

func (r *renderer) State() ControllerState {
	return r.state
}

func (r *renderer) Configuration() *RenderConfiguration {
	return r.config
}

func (r *renderer) Release() {
	r.config.Release()
	r.config = nil
	if r.statics != nil {
		r.statics.Release()
		r.statics = nil
	}
}
