package renderer

import (
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSampleCount sets the initial multisample anti-aliasing sample count.
// When not specified, the default is MSAA4x. Use MSAAOff to start with MSAA disabled.
//
// Parameters:
//   - count: the initial SampleCount (MSAAOff, MSAA2x, MSAA4x, MSAA8x or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the sample count option to a renderer
func WithSampleCount(count SampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.sampleCount = count
	}
}

// WithMaxSampleCount caps how far the sample count can be increased at runtime.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent, so lower the ceiling on hardware that lacks them.
// When not specified, the default is MSAA16x.
//
// Parameters:
//   - count: the largest SampleCount Increase may reach
//
// Returns:
//   - RendererBuilderOption: a function that applies the ceiling to a renderer
func WithMaxSampleCount(count SampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.maxSampleCount = count
	}
}

// WithSegments sets the number of color wheel spokes drawn.
//
// Parameters:
//   - segments: the number of line segments
//
// Returns:
//   - RendererBuilderOption: a function that applies the segment count to a renderer
func WithSegments(segments uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.segments = segments
	}
}

// WithShaders supplies precompiled vertex and fragment shaders, skipping WGSL compilation.
//
// Parameters:
//   - vs: the vertex stage
//   - fs: the fragment stage
//
// Returns:
//   - RendererBuilderOption: a function that applies the shaders to a renderer
func WithShaders(vs, fs shader.Shader) RendererBuilderOption {
	return func(r *renderer) {
		r.vertexShader = vs
		r.fragmentShader = fs
	}
}
