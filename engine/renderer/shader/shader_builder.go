package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint overrides the entry point name of the shader. The default is DefaultEntryPoint.
//
// Parameters:
//   - entryPoint: the name of the stage's entry function
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point for this shader
func WithEntryPoint(entryPoint string) ShaderBuilderOption {
	return func(s *shader) {
		if entryPoint != "" {
			s.entryPoint = entryPoint
		}
	}
}
