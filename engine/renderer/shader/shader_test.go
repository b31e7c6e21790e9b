package shader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// header returns a minimal five-word SPIR-V header in the given byte order.
func header(order binary.ByteOrder) []byte {
	b := make([]byte, spirvHeaderBytes)
	order.PutUint32(b[0:], spirvMagic)
	order.PutUint32(b[4:], 0x00010300)
	return b
}

func TestValidateSPIRV(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		wantErr bool
	}{
		{name: "little endian header", code: header(binary.LittleEndian)},
		{name: "big endian header", code: header(binary.BigEndian)},
		{name: "nil", code: nil, wantErr: true},
		{name: "too short", code: header(binary.LittleEndian)[:16], wantErr: true},
		{name: "ragged length", code: append(header(binary.LittleEndian), 0), wantErr: true},
		{name: "wgsl text", code: []byte("@fragment fn main() -> @location(0) vec4<f32> {}"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSPIRV(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBytecode)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewShader(t *testing.T) {
	code := header(binary.LittleEndian)
	s, err := NewShader("line_vert", ShaderTypeVertex, code)
	require.NoError(t, err)

	assert.Equal(t, "line_vert", s.Key())
	assert.Equal(t, ShaderTypeVertex, s.ShaderType())
	assert.Equal(t, DefaultEntryPoint, s.EntryPoint())
	assert.Equal(t, code, s.Code())
	require.NotNil(t, s.Module())
	assert.Equal(t, "line_vert", s.Module().Label)
	require.NotNil(t, s.Module().SPIRVDescriptor)
	assert.Equal(t, code, s.Module().SPIRVDescriptor.Code)
}

func TestNewShaderWithEntryPoint(t *testing.T) {
	s, err := NewShader("f", ShaderTypeFragment, header(binary.LittleEndian), WithEntryPoint("fs_main"))
	require.NoError(t, err)
	assert.Equal(t, "fs_main", s.EntryPoint())

	s, err = NewShader("f", ShaderTypeFragment, header(binary.LittleEndian), WithEntryPoint(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultEntryPoint, s.EntryPoint())
}

func TestNewShaderRejectsInvalidBytecode(t *testing.T) {
	s, err := NewShader("broken", ShaderTypeFragment, []byte{1, 2, 3, 4})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrInvalidBytecode)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewShaderFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "line.vert.spv")
	require.NoError(t, os.WriteFile(path, header(binary.LittleEndian), 0o600))

	s, err := NewShaderFromPath("line_vert", ShaderTypeVertex, path)
	require.NoError(t, err)
	assert.Equal(t, ShaderTypeVertex, s.ShaderType())

	_, err = NewShaderFromPath("missing", ShaderTypeVertex, filepath.Join(dir, "missing.spv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShaderTypeString(t *testing.T) {
	assert.Equal(t, "vertex", ShaderTypeVertex.String())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
	assert.Equal(t, "ShaderType(7)", ShaderType(7).String())
}

func TestLineSources(t *testing.T) {
	sources := LineSources()
	require.Len(t, sources, 2)
	assert.Equal(t, ShaderTypeVertex, sources[0].ShaderType)
	assert.Equal(t, ShaderTypeFragment, sources[1].ShaderType)
	for _, src := range sources {
		assert.Contains(t, src.WGSL, "fn main(")
	}
}

func TestCompileLineSources(t *testing.T) {
	shaders, err := Compile(LineSources()...)
	require.NoError(t, err)
	require.Len(t, shaders, 2)

	assert.Equal(t, "line_vert", shaders[0].Key())
	assert.Equal(t, "line_frag", shaders[1].Key())
	for _, s := range shaders {
		assert.NoError(t, ValidateSPIRV(s.Code()))
		assert.Equal(t, DefaultEntryPoint, s.EntryPoint())
	}
}

func TestCompileReportsFirstError(t *testing.T) {
	sources := append(LineSources(), Source{Key: "bad", ShaderType: ShaderTypeFragment, WGSL: "fn main( {"})
	shaders, err := Compile(sources...)
	assert.Nil(t, shaders)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestCompileEmpty(t *testing.T) {
	shaders, err := Compile()
	assert.NoError(t, err)
	assert.Nil(t, shaders)
}
