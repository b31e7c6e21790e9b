package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrForeignResource is returned by a backend handed a resource it did not create.
var ErrForeignResource = errors.New("resource was not created by this backend")

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ColorAttachment describes the single color attachment of the main render pass.
type ColorAttachment struct {
	// View is the texture view rendered into: the surface view at sample count 1,
	// the multisample target view otherwise.
	View common.Resource
	// ResolveTarget receives the resolved image when View is multisampled, nil otherwise.
	ResolveTarget common.Resource
	LoadOp        wgpu.LoadOp
	StoreOp       wgpu.StoreOp
	ClearValue    wgpu.Color
}

// RenderPass is the backend-neutral description of one frame's render pass.
type RenderPass struct {
	Label           string
	SampleCount     SampleCount
	ColorAttachment ColorAttachment
	// Bundles are executed in order inside the pass. Every bundle must have been recorded
	// for SampleCount.
	Bundles []common.Resource
}

// CommandBuffer is an encoded frame ready for submission, together with the pass it encodes.
type CommandBuffer struct {
	// Buffer is the backend command buffer.
	Buffer common.Resource
	// Pass is the render pass configuration that was encoded into Buffer.
	Pass RenderPass
	// Version is the RenderConfiguration version the pass was encoded against.
	Version uint64
}

// Frame is a presentable surface image acquired for one frame.
type Frame struct {
	Texture common.Resource
	View    common.Resource
}

// RendererBackend is the GPU collaborator of the Renderer. It creates GPU objects and encodes
// render passes but keeps no rendering state of its own; every handle it returns is owned by the caller.
type RendererBackend interface {
	// SupportedSampleCounts reports the sample counts the device can render format at.
	//
	// Parameters:
	//   - format: the color target format
	//
	// Returns:
	//   - SampleCountSet: the supported counts; always contains MSAAOff
	SupportedSampleCounts(format wgpu.TextureFormat) SampleCountSet

	// CreateShaderModule creates a GPU shader module from a compiled shader stage.
	//
	// Parameters:
	//   - s: the shader holding SPIR-V bytecode
	//
	// Returns:
	//   - common.Resource: the shader module handle
	//   - error: an error if the module could not be created
	CreateShaderModule(s shader.Shader) (common.Resource, error)

	// CreatePipelineLayout creates a pipeline layout with no bind groups.
	//
	// Parameters:
	//   - label: the debug label for the layout
	//
	// Returns:
	//   - common.Resource: the pipeline layout handle
	//   - error: an error if the layout could not be created
	CreatePipelineLayout(label string) (common.Resource, error)

	// CreateVertexBuffer creates a vertex buffer initialized with data.
	//
	// Parameters:
	//   - label: the debug label for the buffer
	//   - data: the raw vertex bytes to upload
	//
	// Returns:
	//   - common.Resource: the buffer handle
	//   - error: an error if the buffer could not be created
	CreateVertexBuffer(label string, data []byte) (common.Resource, error)

	// CreateRenderPipeline compiles the pipeline description against the static resources and stores
	// the result on the pipeline via SetRenderPipeline.
	//
	// Parameters:
	//   - p: the pipeline description
	//   - statics: the shared shader modules and pipeline layout
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	CreateRenderPipeline(p pipeline.Pipeline, statics *StaticResources) error

	// CreateRenderBundle records a reusable bundle that binds the pipeline and the static vertex buffer
	// and draws every vertex once. The bundle inherits the pipeline's color format and sample count.
	//
	// Parameters:
	//   - p: a pipeline already created with CreateRenderPipeline
	//   - statics: the static resources holding the vertex buffer and vertex count
	//
	// Returns:
	//   - common.Resource: the render bundle handle
	//   - error: an error if the bundle could not be recorded
	CreateRenderBundle(p pipeline.Pipeline, statics *StaticResources) (common.Resource, error)

	// CreateMultisampleTarget allocates a render-attachment-only texture matching cfg and its default view.
	//
	// Parameters:
	//   - cfg: the dimensions, format and sample count of the target
	//
	// Returns:
	//   - *MultisampleTarget: the target owning both texture and view
	//   - error: an error if the allocation failed
	CreateMultisampleTarget(cfg SampleConfig) (*MultisampleTarget, error)

	// EncodeRenderPass encodes one render pass executing the pass bundles and finishes the encoder.
	//
	// Parameters:
	//   - pass: the render pass to encode
	//
	// Returns:
	//   - common.Resource: the finished command buffer
	//   - error: an error if encoding failed
	EncodeRenderPass(pass RenderPass) (common.Resource, error)
}
