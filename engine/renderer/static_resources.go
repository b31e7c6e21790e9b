package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/geometry"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
)

// StaticResources holds the GPU objects that do not depend on the sample count. They are created
// once and shared by every RenderConfiguration.
type StaticResources struct {
	VertexShader   shader.Shader
	FragmentShader shader.Shader

	VertexModule   common.Resource
	FragmentModule common.Resource
	Layout         common.Resource
	VertexBuffer   common.Resource
	VertexCount    uint32
}

// newStaticResources uploads the vertices and creates the shader modules and pipeline layout.
// On failure everything created so far is released.
func newStaticResources(backend RendererBackend, vertices []geometry.Vertex, vs, fs shader.Shader) (*StaticResources, error) {
	s := &StaticResources{
		VertexShader:   vs,
		FragmentShader: fs,
		VertexCount:    uint32(len(vertices)),
	}

	var err error
	if s.VertexBuffer, err = backend.CreateVertexBuffer("Line Vertex Buffer", geometry.Bytes(vertices)); err != nil {
		return nil, fmt.Errorf("failed to create vertex buffer: %w", err)
	}
	if s.VertexModule, err = backend.CreateShaderModule(vs); err != nil {
		s.Release()
		return nil, fmt.Errorf("failed to create vertex shader module %s: %w", vs.Key(), err)
	}
	if s.FragmentModule, err = backend.CreateShaderModule(fs); err != nil {
		s.Release()
		return nil, fmt.Errorf("failed to create fragment shader module %s: %w", fs.Key(), err)
	}
	if s.Layout, err = backend.CreatePipelineLayout("Line Pipeline Layout"); err != nil {
		s.Release()
		return nil, fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	return s, nil
}

// Release releases every GPU object held by the set.
func (s *StaticResources) Release() {
	common.ReleaseAll(s.Layout, s.FragmentModule, s.VertexModule, s.VertexBuffer)
	s.Layout, s.FragmentModule, s.VertexModule, s.VertexBuffer = nil, nil, nil, nil
}
