package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrSurfaceFormatChanged is returned by ConfigureSurface when the surface stops offering the format
// chosen at the first configure.
var ErrSurfaceFormatChanged = errors.New("surface format changed")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat // chosen at the first ConfigureSurface, fixed afterwards
	presentMode   wgpu.PresentMode   // defaults to PresentModeFifo (VSync)

	// adapterFormatFeatures is set when the device was created with
	// NativeFeatureTextureAdapterSpecificFormatFeatures; without it only 1x and 4x are valid.
	adapterFormatFeatures bool
	sampleCounts          map[wgpu.TextureFormat]SampleCountSet

	// frame is the surface image acquired by AcquireFrame, nil once presented
	frame *Frame
}

// WGPURendererBackend is the cogentcore/webgpu implementation of RendererBackend. Besides creating
// resources for the Renderer it owns the device and the window surface, and drives the
// acquire, submit and present steps of each frame.
type WGPURendererBackend interface {
	RendererBackend

	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface

	// ConfigureSurface is a wrapper for boilerplate logic required when calling Configure on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	// A zero width or height leaves the surface unconfigured and returns ErrEmptySurface.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: ErrEmptySurface for a zero-sized surface, ErrSurfaceFormatChanged if the surface no
	//     longer offers the format the renderer was built for, nil otherwise
	ConfigureSurface(width, height int) error

	// SurfaceFormat returns the surface format chosen by the first ConfigureSurface call.
	SurfaceFormat() wgpu.TextureFormat

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// It takes effect on the next ConfigureSurface call.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// AcquireFrame acquires the next surface texture and creates its view.
	// Every acquired frame must be handed to Present before the next AcquireFrame.
	//
	// Returns:
	//   - *Frame: the acquired texture and view
	//   - error: an error if the previous frame was not presented or acquisition failed
	AcquireFrame() (*Frame, error)

	// Submit submits an encoded frame to the queue and releases the command buffer.
	//
	// Parameters:
	//   - cmd: the command buffer returned by Renderer.Render
	//
	// Returns:
	//   - error: an error if the command buffer was not created by this backend
	Submit(cmd CommandBuffer) error

	// Present presents the acquired surface image and releases the frame's view and texture.
	//
	// Parameters:
	//   - frame: the frame returned by AcquireFrame
	Present(frame *Frame)

	// Release releases the device, adapter, surface and instance.
	Release()
}

var _ WGPURendererBackend = &wgpuRendererBackendImpl{}

// NewWGPURendererBackend requests an adapter compatible with the window surface and creates the device.
// The calling goroutine is locked to its OS thread, since the surface belongs to the window thread.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor of the window
//   - forceFallbackAdapter: true to request a CPU/software adapter
//
// Returns:
//   - WGPURendererBackend: the backend
//   - error: an error if no adapter or device could be acquired
func NewWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (WGPURendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:           &sync.Mutex{},
		instance:     wgpu.CreateInstance(nil),
		presentMode:  wgpu.PresentModeFifo,
		sampleCounts: make(map[wgpu.TextureFormat]SampleCountSet),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	b.adapter = a

	var features []wgpu.FeatureName
	adapterSpecific := wgpu.FeatureName(wgpu.NativeFeatureTextureAdapterSpecificFormatFeatures)
	if a.HasFeature(adapterSpecific) {
		features = append(features, adapterSpecific)
		b.adapterFormatFeatures = true
	}

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Main Device",
		RequiredFeatures: features,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	common.Logger().Info("wgpu device acquired",
		"fallback_adapter", forceFallbackAdapter,
		"adapter_specific_format_features", b.adapterFormatFeatures,
	)
	return b, nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptySurface, width, height)
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	format, err := pickSurfaceFormat(b.surfaceFormat, capabilities.Formats)
	if err != nil {
		return err
	}
	b.surfaceFormat = format

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	common.Logger().Debug("surface configured", "width", width, "height", height, "format", b.surfaceFormat)
	return nil
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SupportedSampleCounts(format wgpu.TextureFormat) SampleCountSet {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.sampleCounts[format]; ok {
		return set
	}
	set := detectSampleCounts(b.adapterFormatFeatures, func(c SampleCount) error {
		texture, err := recoverGPU("create sample count test texture", func() (*wgpu.Texture, error) {
			return b.device.CreateTexture(&wgpu.TextureDescriptor{
				Label:         fmt.Sprintf("MSAA %dx Check", c),
				Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
				MipLevelCount: 1,
				SampleCount:   uint32(c),
				Dimension:     wgpu.TextureDimension2D,
				Format:        format,
				Usage:         wgpu.TextureUsageRenderAttachment,
			})
		})
		if err != nil {
			return err
		}
		texture.Release()
		return nil
	})
	b.sampleCounts[format] = set
	common.Logger().Info("supported sample counts", "format", format, "sample_counts", set.Counts())
	return set
}

func (b *wgpuRendererBackendImpl) CreateShaderModule(s shader.Shader) (common.Resource, error) {
	module, err := b.device.CreateShaderModule(s.Module())
	if err != nil {
		return nil, err
	}
	return module, nil
}

func (b *wgpuRendererBackendImpl) CreatePipelineLayout(label string) (common.Resource, error) {
	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: label,
	})
	if err != nil {
		return nil, err
	}
	return layout, nil
}

func (b *wgpuRendererBackendImpl) CreateVertexBuffer(label string, data []byte) (common.Resource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := writeOrRelease(buf, func() error { return b.queue.WriteBuffer(buf, 0, data) }); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) CreateRenderPipeline(p pipeline.Pipeline, statics *StaticResources) error {
	layout, err := handle[*wgpu.PipelineLayout](statics.Layout, "pipeline layout")
	if err != nil {
		return err
	}
	vs, err := handle[*wgpu.ShaderModule](statics.VertexModule, "vertex shader module")
	if err != nil {
		return err
	}
	fs, err := handle[*wgpu.ShaderModule](statics.FragmentModule, "fragment shader module")
	if err != nil {
		return err
	}

	rp, err := b.device.CreateRenderPipeline(p.Descriptor(layout, vs, fs))
	if err != nil {
		return err
	}
	p.SetRenderPipeline(rp)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateRenderBundle(p pipeline.Pipeline, statics *StaticResources) (common.Resource, error) {
	rp, err := handle[*wgpu.RenderPipeline](p.RenderPipeline(), "render pipeline")
	if err != nil {
		return nil, err
	}
	vb, err := handle[*wgpu.Buffer](statics.VertexBuffer, "vertex buffer")
	if err != nil {
		return nil, err
	}

	encoder, err := b.device.CreateRenderBundleEncoder(&wgpu.RenderBundleEncoderDescriptor{
		Label:        p.PipelineKey() + " Render Bundle Encoder",
		ColorFormats: []wgpu.TextureFormat{p.ColorFormat()},
		SampleCount:  p.SampleCount(),
	})
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	encoder.SetPipeline(rp)
	encoder.SetVertexBuffer(0, vb, 0, wgpu.WholeSize)
	encoder.Draw(statics.VertexCount, 1, 0, 0)

	return recoverGPU("finish render bundle", func() (common.Resource, error) {
		return encoder.Finish(&wgpu.RenderBundleDescriptor{Label: "main"}), nil
	})
}

func (b *wgpuRendererBackendImpl) CreateMultisampleTarget(cfg SampleConfig) (*MultisampleTarget, error) {
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "MSAA Texture",
		Size: wgpu.Extent3D{
			Width:              cfg.Width,
			Height:             cfg.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(cfg.SampleCount),
		Dimension:     wgpu.TextureDimension2D,
		Format:        cfg.Format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, err
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, err
	}

	return &MultisampleTarget{
		Texture:     texture,
		View:        view,
		Width:       cfg.Width,
		Height:      cfg.Height,
		SampleCount: cfg.SampleCount,
		Format:      cfg.Format,
	}, nil
}

func (b *wgpuRendererBackendImpl) EncodeRenderPass(pass RenderPass) (common.Resource, error) {
	view, err := handle[*wgpu.TextureView](pass.ColorAttachment.View, "color attachment view")
	if err != nil {
		return nil, err
	}
	attachment := wgpu.RenderPassColorAttachment{
		View:       view,
		LoadOp:     pass.ColorAttachment.LoadOp,
		StoreOp:    pass.ColorAttachment.StoreOp,
		ClearValue: pass.ColorAttachment.ClearValue,
	}
	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget.
	if pass.ColorAttachment.ResolveTarget != nil {
		if attachment.ResolveTarget, err = handle[*wgpu.TextureView](pass.ColorAttachment.ResolveTarget, "resolve target"); err != nil {
			return nil, err
		}
	}

	bundles := make([]*wgpu.RenderBundle, 0, len(pass.Bundles))
	for _, res := range pass.Bundles {
		bundle, err := handle[*wgpu.RenderBundle](res, "render bundle")
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, bundle)
	}

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: pass.Label + " Encoder"})
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            pass.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	if err := recordPass(rp, bundles); err != nil {
		return nil, err
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return commandBuffer, nil
}

func (b *wgpuRendererBackendImpl) AcquireFrame() (*Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Acquiring twice without presenting trips wgpu-native's "Surface image is already acquired".
	if b.frame != nil {
		return nil, errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}

	b.frame = &Frame{Texture: surfaceTexture, View: view}
	return b.frame, nil
}

func (b *wgpuRendererBackendImpl) Submit(cmd CommandBuffer) error {
	commandBuffer, err := handle[*wgpu.CommandBuffer](cmd.Buffer, "command buffer")
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present(frame *Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no frame surface is held, nothing to present.
	if frame == nil || b.frame != frame {
		return
	}

	b.surface.Present()
	common.ReleaseAll(frame.View, frame.Texture)
	b.frame = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame != nil {
		common.ReleaseAll(b.frame.View, b.frame.Texture)
		b.frame = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// handle type-asserts a resource back to the concrete wgpu handle this backend created.
func handle[T common.Resource](r common.Resource, what string) (T, error) {
	h, ok := r.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s is %T", ErrForeignResource, what, r)
	}
	return h, nil
}

// renderPassRecorder is the part of *wgpu.RenderPassEncoder the main pass uses.
type renderPassRecorder interface {
	ExecuteBundles(bundles ...*wgpu.RenderBundle)
	End() error
	Release()
}

// recordPass executes the bundles and ends the pass. The pass encoder is released either way.
func recordPass(rp renderPassRecorder, bundles []*wgpu.RenderBundle) error {
	defer rp.Release()
	rp.ExecuteBundles(bundles...)
	if err := rp.End(); err != nil {
		return fmt.Errorf("failed to end render pass: %w", err)
	}
	return nil
}

// writeOrRelease runs write and releases buf if it fails, so a failed upload never hands out a buffer.
func writeOrRelease(buf common.Resource, write func() error) error {
	if err := write(); err != nil {
		buf.Release()
		return fmt.Errorf("failed to upload buffer data: %w", err)
	}
	return nil
}

// recoverGPU runs fn and turns a panic raised by the bindings into an error.
func recoverGPU[T any](what string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("failed to %s: %v", what, r)
		}
	}()
	return fn()
}

// detectSampleCounts returns the counts try accepts. Without adapter specific format features only
// 1x and 4x are valid and nothing is tried.
func detectSampleCounts(adapterSpecific bool, try func(SampleCount) error) SampleCountSet {
	if !adapterSpecific {
		return GuaranteedSampleCounts
	}
	set := SampleCountSet(MSAAOff)
	for c := MSAA2x; c <= MSAA16x; c *= 2 {
		if err := try(c); err != nil {
			common.Logger().Debug("sample count rejected", "sample_count", uint32(c), "error", err)
			continue
		}
		set |= SampleCountSet(c)
	}
	return set
}

// pickSurfaceFormat chooses the preferred format the first time and keeps it afterwards, since the
// renderer's pipelines are built for it.
func pickSurfaceFormat(current wgpu.TextureFormat, available []wgpu.TextureFormat) (wgpu.TextureFormat, error) {
	if len(available) == 0 {
		return current, errors.New("surface reports no supported formats")
	}
	if current == wgpu.TextureFormatUndefined {
		return available[0], nil
	}
	if !slices.Contains(available, current) {
		return current, fmt.Errorf("%w: %v is no longer offered", ErrSurfaceFormatChanged, current)
	}
	return current, nil
}
