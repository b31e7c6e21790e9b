package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/profiler"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	label    string
	released int
}

func (h *fakeHandle) Release() { h.released++ }

// fakeWindow runs a scripted message loop: before iteration i it calls events[i], if any.
type fakeWindow struct {
	width, height int
	running       bool
	maxIterations int
	iterations    int
	events        map[int]func(w *fakeWindow)
	closeRequests int

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

func newFakeWindow(iterations int) *fakeWindow {
	return &fakeWindow{
		width:         800,
		height:        600,
		running:       true,
		maxIterations: iterations,
		events:        make(map[int]func(w *fakeWindow)),
	}
}

func (w *fakeWindow) SetUpdateCallback(callback func())                  { w.onUpdate = callback }
func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SetKeyDownCallback(callback func(keyCode uint32))   { w.onKeyDown = callback }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor         { return nil }
func (w *fakeWindow) Title() string                                      { return "fake" }
func (w *fakeWindow) IsRunning() bool                                    { return w.running }
func (w *fakeWindow) Width() int                                         { return w.width }
func (w *fakeWindow) Height() int                                        { return w.height }

func (w *fakeWindow) Close() error {
	w.running = false
	return nil
}

func (w *fakeWindow) RequestClose() {
	w.closeRequests++
	w.running = false
}

func (w *fakeWindow) ProcessMessages() {
	for w.IsRunning() && w.iterations < w.maxIterations {
		if ev, ok := w.events[w.iterations]; ok {
			ev(w)
		}
		w.iterations++
		if !w.IsRunning() {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

func (w *fakeWindow) resize(width, height int) {
	w.width, w.height = width, height
	w.onResize(width, height)
}

type fakeSurface struct {
	configured [][2]int
	acquired   []*renderer.Frame
	submitted  []renderer.CommandBuffer
	presented  []*renderer.Frame

	configureErr error
	acquireErr   error
	submitErr    error
}

func (s *fakeSurface) ConfigureSurface(width, height int) error {
	if s.configureErr != nil {
		return s.configureErr
	}
	s.configured = append(s.configured, [2]int{width, height})
	return nil
}

func (s *fakeSurface) AcquireFrame() (*renderer.Frame, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	f := &renderer.Frame{Texture: &fakeHandle{label: "texture"}, View: &fakeHandle{label: "view"}}
	s.acquired = append(s.acquired, f)
	return f, nil
}

func (s *fakeSurface) Submit(cmd renderer.CommandBuffer) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, cmd)
	return nil
}

func (s *fakeSurface) Present(frame *renderer.Frame) {
	s.presented = append(s.presented, frame)
}

// fakeRenderer records calls and renders through a ControllerState so input handling stays real.
type fakeRenderer struct {
	state     renderer.ControllerState
	keys      []uint32
	resizes   [][2]int
	views     []common.Resource
	renderErr error
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		state: renderer.NewControllerState(renderer.MSAA4x, renderer.MSAA16x, 800, 600, wgpu.TextureFormatBGRA8UnormSrgb),
	}
}

func (r *fakeRenderer) Update(keyCode uint32) {
	r.keys = append(r.keys, keyCode)
	r.HandleInput(renderer.InputEventFromKey(keyCode))
}

func (r *fakeRenderer) HandleInput(ev renderer.InputEvent) { r.state = r.state.Apply(ev) }

func (r *fakeRenderer) Resize(width, height int) {
	r.resizes = append(r.resizes, [2]int{width, height})
	r.state = r.state.Resized(uint32(width), uint32(height))
}

func (r *fakeRenderer) Render(view common.Resource) (renderer.CommandBuffer, error) {
	r.views = append(r.views, view)
	if r.renderErr != nil {
		return renderer.CommandBuffer{}, r.renderErr
	}
	if err := r.state.Config().Validate(); err != nil {
		return renderer.CommandBuffer{}, err
	}
	r.state = r.state.Rebuilt()
	return renderer.CommandBuffer{
		Buffer: &fakeHandle{label: "command buffer"},
		Pass:   renderer.RenderPass{SampleCount: r.state.SampleCount},
	}, nil
}

func (r *fakeRenderer) SampleCount() renderer.SampleCount            { return r.state.SampleCount }
func (r *fakeRenderer) State() renderer.ControllerState              { return r.state }
func (r *fakeRenderer) Configuration() *renderer.RenderConfiguration { return nil }
func (r *fakeRenderer) Release()                                     {}

func newTestEngine(t *testing.T, w *fakeWindow, s *fakeSurface, r *fakeRenderer, opts ...EngineBuilderOption) Engine {
	t.Helper()
	e, err := NewEngine(append([]EngineBuilderOption{WithWindow(w), WithSurface(s), WithRenderer(r)}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	_, err := NewEngine()
	assert.ErrorIs(t, err, ErrMissingCollaborator)

	_, err = NewEngine(WithWindow(newFakeWindow(1)), WithRenderer(newFakeRenderer()))
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestRunRendersSubmitsAndPresentsEachFrame(t *testing.T) {
	w, s, r := newFakeWindow(3), &fakeSurface{}, newFakeRenderer()
	e := newTestEngine(t, w, s, r)

	require.NoError(t, e.Run())

	require.Len(t, s.acquired, 3)
	assert.Len(t, s.submitted, 3)
	assert.Equal(t, s.acquired, s.presented)
	for i, f := range s.acquired {
		assert.Same(t, f.View, r.views[i])
	}
	presented, skipped := e.Frames()
	assert.Equal(t, uint64(3), presented)
	assert.Zero(t, skipped)
}

func TestKeysReachRenderer(t *testing.T) {
	w, s, r := newFakeWindow(2), &fakeSurface{}, newFakeRenderer()
	w.events[0] = func(w *fakeWindow) {
		w.onKeyDown(common.KeyRight)
		w.onKeyDown(common.KeyUp)
	}
	e := newTestEngine(t, w, s, r)

	require.NoError(t, e.Run())
	assert.Equal(t, []uint32{common.KeyRight, common.KeyUp}, r.keys)
	assert.Equal(t, renderer.MSAA8x, r.SampleCount())
	assert.Equal(t, renderer.MSAA8x, s.submitted[0].Pass.SampleCount)
}

func TestResizeConfiguresSurfaceAndRenderer(t *testing.T) {
	w, s, r := newFakeWindow(2), &fakeSurface{}, newFakeRenderer()
	w.events[1] = func(w *fakeWindow) { w.resize(1024, 768) }
	e := newTestEngine(t, w, s, r)

	require.NoError(t, e.Run())
	assert.Equal(t, [][2]int{{1024, 768}}, s.configured)
	assert.Equal(t, [][2]int{{1024, 768}}, r.resizes)
	assert.Len(t, s.submitted, 2)
}

func TestMinimizedWindowSkipsFrames(t *testing.T) {
	w, s, r := newFakeWindow(4), &fakeSurface{}, newFakeRenderer()
	w.events[1] = func(w *fakeWindow) { w.resize(0, 0) }
	w.events[3] = func(w *fakeWindow) { w.resize(640, 480) }
	e := newTestEngine(t, w, s, r)

	require.NoError(t, e.Run())
	assert.Equal(t, [][2]int{{640, 480}}, s.configured)
	assert.Equal(t, [][2]int{{0, 0}, {640, 480}}, r.resizes)
	presented, skipped := e.Frames()
	assert.Equal(t, uint64(2), presented)
	assert.Equal(t, uint64(2), skipped)
	assert.Len(t, s.acquired, 2)
}

func TestEmptySurfaceFromRendererSkipsFrame(t *testing.T) {
	w, s, r := newFakeWindow(1), &fakeSurface{}, newFakeRenderer()
	r.renderErr = renderer.ErrEmptySurface
	e := newTestEngine(t, w, s, r)

	require.NoError(t, e.Run())
	assert.Len(t, s.presented, 1)
	assert.Empty(t, s.submitted)
	_, skipped := e.Frames()
	assert.Equal(t, uint64(1), skipped)
}

func TestRenderErrorStopsEngine(t *testing.T) {
	w, s, r := newFakeWindow(5), &fakeSurface{}, newFakeRenderer()
	boom := errors.New("pipeline compile failed")
	r.renderErr = boom
	e := newTestEngine(t, w, s, r)

	err := e.Run()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, w.iterations)
	assert.Len(t, s.presented, 1, "acquired frame is still returned to the swapchain")
	assert.Empty(t, s.submitted)
	assert.Equal(t, 1, w.closeRequests)
}

func TestAcquireAndSubmitErrorsAreFatal(t *testing.T) {
	t.Run("acquire", func(t *testing.T) {
		w, s, r := newFakeWindow(5), &fakeSurface{acquireErr: errors.New("surface lost")}, newFakeRenderer()
		err := newTestEngine(t, w, s, r).Run()
		assert.ErrorContains(t, err, "failed to acquire frame")
		assert.Empty(t, r.views)
	})
	t.Run("submit", func(t *testing.T) {
		w, s, r := newFakeWindow(5), &fakeSurface{submitErr: errors.New("queue lost")}, newFakeRenderer()
		err := newTestEngine(t, w, s, r).Run()
		assert.ErrorContains(t, err, "failed to submit frame")
		assert.Len(t, s.presented, 1)
	})
	t.Run("configure", func(t *testing.T) {
		w, s, r := newFakeWindow(5), &fakeSurface{configureErr: errors.New("bad size")}, newFakeRenderer()
		w.events[0] = func(w *fakeWindow) { w.resize(10, 10) }
		err := newTestEngine(t, w, s, r).Run()
		assert.ErrorContains(t, err, "failed to configure surface")
		assert.Empty(t, r.resizes)
	})
}

func TestQuitIsIdempotent(t *testing.T) {
	w, s, r := newFakeWindow(10), &fakeSurface{}, newFakeRenderer()
	e := newTestEngine(t, w, s, r)
	w.events[2] = func(*fakeWindow) {
		e.Quit()
		e.Quit()
	}

	require.NoError(t, e.Run())
	assert.Equal(t, 1, w.closeRequests)
	assert.Len(t, s.presented, 2)
}

func TestFrameLimit(t *testing.T) {
	w, s, r := newFakeWindow(3), &fakeSurface{}, newFakeRenderer()
	e := newTestEngine(t, w, s, r, WithRenderFrameLimit(100))

	start := time.Now()
	require.NoError(t, e.Run())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.(*engine).renderFrameLimit)
}

func TestFrameDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), frameDuration(0))
	assert.Equal(t, time.Duration(0), frameDuration(-5))
	assert.Equal(t, 16666666*time.Nanosecond, frameDuration(60))
	assert.Equal(t, 10*time.Millisecond, frameDuration(100))
}

func TestProfilerToggle(t *testing.T) {
	w, s, r := newFakeWindow(1), &fakeSurface{}, newFakeRenderer()
	e := newTestEngine(t, w, s, r, WithProfiling(true))
	assert.True(t, e.(*engine).profilingEnabled)
	e.DisableProfiler()
	assert.False(t, e.(*engine).profilingEnabled)
	e.EnableProfiler()
	require.NoError(t, e.Run())
}

func TestCustomProfilerTicksWhenEnabled(t *testing.T) {
	w, s, r := newFakeWindow(3), &fakeSurface{}, newFakeRenderer()
	p := profiler.NewProfiler(profiler.WithUpdateInterval(time.Nanosecond))
	e := newTestEngine(t, w, s, r, WithProfiler(p), WithProfiling(true))

	require.NoError(t, e.Run())
	assert.Same(t, p, e.(*engine).profiler)
	assert.NotZero(t, p.Last().FramesCounted)
	assert.Positive(t, p.Last().SampledOver)

	idle := profiler.NewProfiler(profiler.WithUpdateInterval(time.Nanosecond))
	w2 := newFakeWindow(3)
	require.NoError(t, newTestEngine(t, w2, &fakeSurface{}, newFakeRenderer(), WithProfiler(idle)).Run())
	assert.Zero(t, idle.Last().FramesCounted, "profiling is off by default")
}
