package shader

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/gogpu/naga"
)

//go:embed assets/line.vert.wgsl
var lineVertexSource string

//go:embed assets/line.frag.wgsl
var lineFragmentSource string

// Source is a WGSL program for a single stage waiting to be compiled.
type Source struct {
	Key        string
	ShaderType ShaderType
	WGSL       string
}

// LineSources returns the built-in vertex and fragment sources used to draw colored line lists.
//
// Returns:
//   - []Source: the vertex source followed by the fragment source
func LineSources() []Source {
	return []Source{
		{Key: "line_vert", ShaderType: ShaderTypeVertex, WGSL: lineVertexSource},
		{Key: "line_frag", ShaderType: ShaderTypeFragment, WGSL: lineFragmentSource},
	}
}

// CompileWGSL compiles a WGSL program to SPIR-V using naga.
//
// Parameters:
//   - key: the shader key, used in error messages
//   - source: the WGSL program text
//
// Returns:
//   - []byte: the SPIR-V bytecode
//   - error: an error if the program fails to parse, lower, or compile
func CompileWGSL(key, source string) ([]byte, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shader %q: failed to compile WGSL: %w", key, err)
	}
	return code, nil
}

// Compile compiles every source to SPIR-V concurrently on a worker pool and wraps each result in a
// validated Shader. Results are returned in the same order as sources. The first error encountered
// (in source order) is returned and no shaders are.
//
// Parameters:
//   - sources: the WGSL sources to compile
//
// Returns:
//   - []Shader: one shader per source, in order
//   - error: the first compilation or validation error
func Compile(sources ...Source) ([]Shader, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	pool := worker.NewDynamicWorkerPool(len(sources), len(sources), time.Second)
	shaders := make([]Shader, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				start := time.Now()
				code, err := CompileWGSL(src.Key, src.WGSL)
				if err != nil {
					errs[i] = err
					return nil, err
				}
				shaders[i], errs[i] = NewShader(src.Key, src.ShaderType, code)
				common.Logger().Debug("compiled shader",
					"key", src.Key,
					"stage", src.ShaderType.String(),
					"bytes", len(code),
					"elapsed", time.Since(start),
				)
				return shaders[i], errs[i]
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return shaders, nil
}
