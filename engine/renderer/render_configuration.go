package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/geometry"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// linePipelineKey labels the line pipeline and its bundle.
const linePipelineKey = "line"

// lineVertexLayout describes geometry.Vertex in slot 0: position at location 0, color at location 1.
var lineVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: geometry.VertexStride,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x4, Offset: geometry.ColorOffset, ShaderLocation: 1},
	},
}

// lineBlendState replaces the destination color and alpha. Pipelines only read it.
var lineBlendState = pipeline.BlendStateReplace

// RenderConfiguration is every sample-count dependent resource for one SampleConfig: the
// pipeline, the bundle recorded against it and the multisample target. The three always agree
// on sample count and are built, installed and released together. Target is nil at sample count 1.
type RenderConfiguration struct {
	Version  uint64
	Config   SampleConfig
	Pipeline pipeline.Pipeline
	Bundle   common.Resource
	Target   *MultisampleTarget
}

// buildConfiguration builds a complete RenderConfiguration for cfg. If any step fails, the
// resources created so far are released and nothing is returned.
func buildConfiguration(backend RendererBackend, statics *StaticResources, cfg SampleConfig, version uint64) (*RenderConfiguration, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := &RenderConfiguration{
		Version: version,
		Config:  cfg,
		Pipeline: pipeline.NewPipeline(linePipelineKey,
			pipeline.WithVertexShader(statics.VertexShader),
			pipeline.WithFragmentShader(statics.FragmentShader),
			pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
			pipeline.WithFrontFace(wgpu.FrontFaceCCW),
			pipeline.WithCullMode(wgpu.CullModeNone),
			pipeline.WithColorFormat(cfg.Format),
			pipeline.WithBlendState(&lineBlendState),
			pipeline.WithWriteMask(wgpu.ColorWriteMaskAll),
			pipeline.WithSampleCount(uint32(cfg.SampleCount)),
			pipeline.WithSampleMask(0xFFFFFFFF),
			pipeline.WithAlphaToCoverage(false),
			pipeline.WithVertexLayout(lineVertexLayout),
		),
	}

	if err := backend.CreateRenderPipeline(rc.Pipeline, statics); err != nil {
		rc.Release()
		return nil, fmt.Errorf("failed to create render pipeline for %dx MSAA: %w", cfg.SampleCount, err)
	}
	if rc.Pipeline.RenderPipeline() == nil {
		rc.Release()
		return nil, fmt.Errorf("backend produced no render pipeline for %dx MSAA", cfg.SampleCount)
	}

	bundle, err := backend.CreateRenderBundle(rc.Pipeline, statics)
	if err != nil {
		rc.Release()
		return nil, fmt.Errorf("failed to record render bundle for %dx MSAA: %w", cfg.SampleCount, err)
	}
	rc.Bundle = bundle

	if rc.Target, err = rebuildTarget(backend, cfg); err != nil {
		rc.Release()
		return nil, err
	}

	if err := rc.validate(); err != nil {
		rc.Release()
		return nil, err
	}
	return rc, nil
}

// validate checks that pipeline, bundle and target were all built for the same sample count.
func (rc *RenderConfiguration) validate() error {
	if got := SampleCount(rc.Pipeline.SampleCount()); got != rc.Config.SampleCount {
		return fmt.Errorf("%w: pipeline built for %dx, want %dx", ErrSampleCountMismatch, got, rc.Config.SampleCount)
	}
	if rc.Config.SampleCount.Multisampled() != (rc.Target != nil) {
		return fmt.Errorf("%w: multisample target presence does not match %dx", ErrSampleCountMismatch, rc.Config.SampleCount)
	}
	return nil
}

// RenderPass selects the color attachment for this configuration and describes a pass that clears
// to black and executes the bundle. At sample count 1 the surface view is rendered into directly;
// otherwise the multisample target is rendered into and resolved into the surface view.
//
// Parameters:
//   - surfaceView: the presentable surface view for the current frame
//
// Returns:
//   - RenderPass: the pass description
func (rc *RenderConfiguration) RenderPass(surfaceView common.Resource) RenderPass {
	attachment := ColorAttachment{
		View:       surfaceView,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	if rc.Target != nil {
		attachment.View = rc.Target.View
		attachment.ResolveTarget = surfaceView
	}

	return RenderPass{
		Label:           fmt.Sprintf("%s Render Pass", linePipelineKey),
		SampleCount:     rc.Config.SampleCount,
		ColorAttachment: attachment,
		Bundles:         []common.Resource{rc.Bundle},
	}
}

// Release releases the bundle, the pipeline and the target. A released configuration must not be rendered.
func (rc *RenderConfiguration) Release() {
	if rc == nil {
		return
	}
	if rc.Bundle != nil {
		rc.Bundle.Release()
		rc.Bundle = nil
	}
	if rc.Pipeline != nil {
		rc.Pipeline.Release()
	}
	rc.Target.Release()
	rc.Target = nil
}
