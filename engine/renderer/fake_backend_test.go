package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/require"
)

// fakeResource records how many times it was released.
type fakeResource struct {
	label    string
	released int
}

func (r *fakeResource) Release() { r.released++ }

// fakeBundle is a bundle recorded for one pipeline.
type fakeBundle struct {
	fakeResource
	sampleCount uint32
	vertexCount uint32
}

// fakeBackend records every call made by the renderer and can be told to fail a given call.
type fakeBackend struct {
	created   []*fakeResource
	pipelines []pipeline.Pipeline
	bundles   []*fakeBundle
	targets   []*MultisampleTarget
	passes    []RenderPass
	uploads   [][]byte

	// supported is what the device accepts; the zero set means every count.
	supported SampleCountSet
	failOn    map[string]error
}

var _ RendererBackend = &fakeBackend{}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{failOn: make(map[string]error)}
}

func (b *fakeBackend) newResource(label string) *fakeResource {
	r := &fakeResource{label: label}
	b.created = append(b.created, r)
	return r
}

func (b *fakeBackend) fail(call string) error {
	return b.failOn[call]
}

// checkSampleCount rejects counts the device does not support, as wgpu validation does.
func (b *fakeBackend) checkSampleCount(call string, count uint32) error {
	if !common.Coalesce(b.supported, AllSampleCounts).Contains(SampleCount(count)) {
		return fmt.Errorf("%s: sample count %d not supported", call, count)
	}
	return nil
}

func (b *fakeBackend) SupportedSampleCounts(format wgpu.TextureFormat) SampleCountSet {
	return common.Coalesce(b.supported, AllSampleCounts)
}

func (b *fakeBackend) CreateShaderModule(s shader.Shader) (common.Resource, error) {
	if err := b.fail("CreateShaderModule"); err != nil {
		return nil, err
	}
	return b.newResource("module " + s.Key()), nil
}

func (b *fakeBackend) CreatePipelineLayout(label string) (common.Resource, error) {
	if err := b.fail("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	return b.newResource(label), nil
}

func (b *fakeBackend) CreateVertexBuffer(label string, data []byte) (common.Resource, error) {
	if err := b.fail("CreateVertexBuffer"); err != nil {
		return nil, err
	}
	b.uploads = append(b.uploads, data)
	return b.newResource(label), nil
}

func (b *fakeBackend) CreateRenderPipeline(p pipeline.Pipeline, statics *StaticResources) error {
	if err := b.fail("CreateRenderPipeline"); err != nil {
		return err
	}
	if err := b.checkSampleCount("CreateRenderPipeline", p.SampleCount()); err != nil {
		return err
	}
	p.SetRenderPipeline(b.newResource(fmt.Sprintf("pipeline %dx", p.SampleCount())))
	b.pipelines = append(b.pipelines, p)
	return nil
}

func (b *fakeBackend) CreateRenderBundle(p pipeline.Pipeline, statics *StaticResources) (common.Resource, error) {
	if err := b.fail("CreateRenderBundle"); err != nil {
		return nil, err
	}
	if err := b.checkSampleCount("CreateRenderBundle", p.SampleCount()); err != nil {
		return nil, err
	}
	bundle := &fakeBundle{
		fakeResource: fakeResource{label: "main"},
		sampleCount:  p.SampleCount(),
		vertexCount:  statics.VertexCount,
	}
	b.bundles = append(b.bundles, bundle)
	return bundle, nil
}

func (b *fakeBackend) CreateMultisampleTarget(cfg SampleConfig) (*MultisampleTarget, error) {
	if err := b.fail("CreateMultisampleTarget"); err != nil {
		return nil, err
	}
	if err := b.checkSampleCount("CreateMultisampleTarget", uint32(cfg.SampleCount)); err != nil {
		return nil, err
	}
	t := &MultisampleTarget{
		Texture:     b.newResource("msaa texture"),
		View:        b.newResource("msaa view"),
		Width:       cfg.Width,
		Height:      cfg.Height,
		SampleCount: cfg.SampleCount,
		Format:      cfg.Format,
	}
	b.targets = append(b.targets, t)
	return t, nil
}

func (b *fakeBackend) EncodeRenderPass(pass RenderPass) (common.Resource, error) {
	if err := b.fail("EncodeRenderPass"); err != nil {
		return nil, err
	}
	for _, res := range pass.Bundles {
		bundle, ok := res.(*fakeBundle)
		if !ok {
			return nil, ErrForeignResource
		}
		if SampleCount(bundle.sampleCount) != pass.SampleCount {
			return nil, fmt.Errorf("%w: bundle %dx in %dx pass", ErrSampleCountMismatch, bundle.sampleCount, pass.SampleCount)
		}
		if bundle.released > 0 {
			return nil, errors.New("bundle used after release")
		}
	}
	b.passes = append(b.passes, pass)
	return b.newResource("command buffer"), nil
}

// builds is the number of pipeline/bundle builds performed so far.
func (b *fakeBackend) builds() int {
	return len(b.pipelines)
}

// testShaders returns a minimal valid vertex/fragment pair so tests do not depend on the WGSL compiler.
func testShaders(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	vs, err := shader.NewShader("line_vert", shader.ShaderTypeVertex, code)
	require.NoError(t, err)
	fs, err := shader.NewShader("line_frag", shader.ShaderTypeFragment, code)
	require.NoError(t, err)
	return vs, fs
}
