package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// DefaultEntryPoint is the entry point name every shader stage exposes.
const DefaultEntryPoint = "main"

// String returns a short, human readable name for the shader stage.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
// It holds validated SPIR-V bytecode and the metadata needed to create a shader module.
type shader struct {
	key        string
	shaderType ShaderType
	entryPoint string
	code       []byte
	module     *wgpu.ShaderModuleDescriptor
}

// Shader defines the interface for a single compiled shader stage. The bytecode is opaque SPIR-V
// owned by the shader toolchain; this package only checks that it is well formed enough to hand
// to the GPU.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the GPU debug label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// ShaderType returns the pipeline stage this shader belongs to.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// Code returns the SPIR-V bytecode of the shader.
	//
	// Returns:
	//   - []byte: little-endian SPIR-V words
	Code() []byte

	// Module returns the wgpu.ShaderModuleDescriptor for this shader, built once in NewShader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor carrying the SPIR-V code and label
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader creates a Shader from SPIR-V bytecode. The bytecode is validated before the shader is
// returned; malformed input yields an error wrapping ErrInvalidBytecode.
//
// Parameters:
//   - key: a unique identifier for the shader, used for labels and logging
//   - shaderType: the pipeline stage of the shader
//   - code: the SPIR-V bytecode
//   - options: functional options applied after defaults
//
// Returns:
//   - Shader: the validated shader
//   - error: an error if the bytecode is not valid SPIR-V
func NewShader(key string, shaderType ShaderType, code []byte, options ...ShaderBuilderOption) (Shader, error) {
	if err := ValidateSPIRV(code); err != nil {
		return nil, fmt.Errorf("shader %q: %w", key, err)
	}
	s := &shader{
		key:        key,
		shaderType: shaderType,
		entryPoint: DefaultEntryPoint,
		code:       code,
	}
	for _, opt := range options {
		opt(s)
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		SPIRVDescriptor: &wgpu.ShaderModuleSPIRVDescriptor{
			Code: s.code,
		},
	}
	return s, nil
}

// NewShaderFromPath reads SPIR-V bytecode from a file and creates a Shader from it.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the pipeline stage of the shader
//   - path: the file path of a .spv binary
//
// Returns:
//   - Shader: the validated shader
//   - error: an error if the file cannot be read or does not hold valid SPIR-V
func NewShaderFromPath(key string, shaderType ShaderType, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %q: failed to read bytecode %q: %w", key, path, err)
	}
	return NewShader(key, shaderType, data, options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Code() []byte {
	return s.code
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
