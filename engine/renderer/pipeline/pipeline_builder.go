package pipeline

import (
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., wgpu.PrimitiveTopologyLineList)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask to use for this pipeline (e.g., wgpu.ColorWriteMaskAll)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithBlendState sets the blend state of the color target. Passing nil disables blending.
//
// Parameters:
//   - blendState: the blend state to use for this pipeline, e.g. &BlendStateReplace
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}

// WithColorFormat sets the texture format of the single color target. It must match the surface
// (and multisample target) the pipeline renders into.
//
// Parameters:
//   - format: the color target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color format for this pipeline
func WithColorFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = format
	}
}

// WithSampleCount sets the multisample count. It must match the sample count of every render pass
// and render bundle the pipeline is used in.
//
// Parameters:
//   - count: the number of samples per pixel (1, 2, 4, 8 or 16)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count for this pipeline
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleCount = count
	}
}

// WithSampleMask sets the multisample coverage mask. The default covers every sample.
//
// Parameters:
//   - mask: the coverage mask
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample mask for this pipeline
func WithSampleMask(mask uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleMask = mask
	}
}

// WithAlphaToCoverage enables or disables alpha-to-coverage.
//
// Parameters:
//   - enabled: true to derive sample coverage from fragment alpha
//
// Returns:
//   - PipelineBuilderOption: a function that sets alpha-to-coverage for this pipeline
func WithAlphaToCoverage(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.alphaToCoverage = enabled
	}
}

// WithVertexLayout appends a vertex buffer layout. Layouts are bound to consecutive slots in the
// order they are added.
//
// Parameters:
//   - layout: the vertex buffer layout for the next slot
//
// Returns:
//   - PipelineBuilderOption: a function that adds the vertex layout to this pipeline
func WithVertexLayout(layout wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayouts = append(p.vertexLayouts, layout)
	}
}
