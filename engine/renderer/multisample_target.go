package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// MultisampleTarget is the offscreen color attachment rendered into when MSAA is on.
// It is resolved into the surface texture at the end of every pass.
type MultisampleTarget struct {
	Texture     common.Resource
	View        common.Resource
	Width       uint32
	Height      uint32
	SampleCount SampleCount
	Format      wgpu.TextureFormat
}

// Release releases the view, then the texture.
func (t *MultisampleTarget) Release() {
	if t == nil {
		return
	}
	common.ReleaseAll(t.View, t.Texture)
	t.View, t.Texture = nil, nil
}

// Matches reports whether the target was allocated for cfg.
func (t *MultisampleTarget) Matches(cfg SampleConfig) bool {
	return t != nil &&
		t.SampleCount == cfg.SampleCount &&
		t.Width == cfg.Width &&
		t.Height == cfg.Height &&
		t.Format == cfg.Format
}

// rebuildTarget allocates the multisample target for cfg. At sample count 1 nothing is rendered
// through a target, so no texture is allocated and a nil target is returned.
func rebuildTarget(backend RendererBackend, cfg SampleConfig) (*MultisampleTarget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.SampleCount.Multisampled() {
		return nil, nil
	}

	target, err := backend.CreateMultisampleTarget(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %dx MSAA texture (%dx%d): %w", cfg.SampleCount, cfg.Width, cfg.Height, err)
	}
	if !target.Matches(cfg) {
		target.Release()
		return nil, fmt.Errorf("%w: multisample target built for %dx at %dx%d, want %dx at %dx%d", ErrSampleCountMismatch,
			target.SampleCount, target.Width, target.Height, cfg.SampleCount, cfg.Width, cfg.Height)
	}
	return target, nil
}
