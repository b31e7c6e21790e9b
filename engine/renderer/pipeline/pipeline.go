package pipeline

import (
	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// BlendStateReplace writes the source color and alpha straight through, ignoring the destination.
var BlendStateReplace = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorZero,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorZero,
		Operation: wgpu.BlendOperationAdd,
	},
}

// pipeline is the implementation of the Pipeline interface.
// It holds the CPU-side render pipeline configuration together with the GPU pipeline handle once created.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for labels and logging
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// renderPipeline is the GPU render pipeline, nil until the backend compiles this description
	renderPipeline common.Resource

	cullMode        wgpu.CullMode
	topology        wgpu.PrimitiveTopology
	frontFace       wgpu.FrontFace
	writeMask       wgpu.ColorWriteMask
	blendState      *wgpu.BlendState
	colorFormat     wgpu.TextureFormat
	sampleCount     uint32
	sampleMask      uint32
	alphaToCoverage bool
	vertexLayouts   []wgpu.VertexBufferLayout
}

// Pipeline defines the interface for a render pipeline description. It carries every setting needed to
// build a GPU render pipeline (shaders, primitive state, color target and multisample state) and, after
// the backend has compiled it, the GPU pipeline handle itself.
//
// A Pipeline is specific to one sample count and color format: a different SampleConfig needs a new Pipeline.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for labels and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex or fragment)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// RenderPipeline returns the GPU pipeline handle, or nil if the pipeline has not been created yet.
	// The caller is responsible for type asserting the handle to the backend's concrete pipeline type.
	//
	// Returns:
	//   - common.Resource: the GPU pipeline handle
	RenderPipeline() common.Resource

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state of the single color target.
	BlendState() *wgpu.BlendState

	// ColorFormat returns the texture format of the single color target.
	ColorFormat() wgpu.TextureFormat

	// SampleCount returns the multisample count the pipeline rasterizes with.
	SampleCount() uint32

	// SampleMask returns the multisample coverage mask.
	SampleMask() uint32

	// AlphaToCoverage returns whether alpha-to-coverage is enabled.
	AlphaToCoverage() bool

	// VertexLayouts returns the vertex buffer layouts, indexed by vertex buffer slot.
	VertexLayouts() []wgpu.VertexBufferLayout

	// Descriptor builds the wgpu descriptor for this pipeline from the given layout and shader modules.
	// Nothing is created on the GPU.
	//
	// Parameters:
	//   - layout: the pipeline layout shared by every pipeline built from the same shaders
	//   - vertexModule: the compiled vertex shader module
	//   - fragmentModule: the compiled fragment shader module
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor ready for Device.CreateRenderPipeline
	Descriptor(layout *wgpu.PipelineLayout, vertexModule, fragmentModule *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor

	// SetRenderPipeline stores the GPU pipeline handle created from this description.
	//
	// Parameters:
	//   - rp: the GPU pipeline handle
	SetRenderPipeline(rp common.Resource)

	// Release releases the GPU pipeline handle, if any. The description stays usable.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline description.
// Defaults describe an opaque triangle list with straight replace blending and no multisampling.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	blend := BlendStateReplace
	p := &pipeline{
		pipelineKey: pipelineKey,
		cullMode:    wgpu.CullModeNone,
		topology:    wgpu.PrimitiveTopologyTriangleList,
		frontFace:   wgpu.FrontFaceCCW,
		writeMask:   wgpu.ColorWriteMaskAll,
		blendState:  &blend,
		colorFormat: wgpu.TextureFormatBGRA8UnormSrgb,
		sampleCount: 1,
		sampleMask:  0xFFFFFFFF,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) RenderPipeline() common.Resource {
	return p.renderPipeline
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) SampleMask() uint32 {
	return p.sampleMask
}

func (p *pipeline) AlphaToCoverage() bool {
	return p.alphaToCoverage
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.vertexLayouts
}

func (p *pipeline) Descriptor(layout *wgpu.PipelineLayout, vertexModule, fragmentModule *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor {
	vertexEntry, fragmentEntry := shader.DefaultEntryPoint, shader.DefaultEntryPoint
	if p.vertexShader != nil {
		vertexEntry = p.vertexShader.EntryPoint()
	}
	if p.fragmentShader != nil {
		fragmentEntry = p.fragmentShader.EntryPoint()
	}

	return &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vertexModule,
			EntryPoint: vertexEntry,
			Buffers:    p.vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragmentModule,
			EntryPoint: fragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    p.colorFormat,
				Blend:     p.blendState,
				WriteMask: p.writeMask,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  p.sampleCount,
			Mask:                   p.sampleMask,
			AlphaToCoverageEnabled: p.alphaToCoverage,
		},
	}
}

func (p *pipeline) SetRenderPipeline(rp common.Resource) {
	p.renderPipeline = rp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
