package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidBytecode is returned when shader bytecode is not a well formed SPIR-V module.
var ErrInvalidBytecode = errors.New("invalid SPIR-V bytecode")

const (
	// spirvMagic is the first word of every SPIR-V module.
	spirvMagic uint32 = 0x07230203

	// spirvHeaderBytes is the size of the five-word module header.
	spirvHeaderBytes = 20
)

// ValidateSPIRV performs the structural checks that can be done without a GPU: the module must be
// a whole number of 32-bit words, hold at least the header, and start with the SPIR-V magic number
// in either byte order.
//
// Parameters:
//   - code: the candidate bytecode
//
// Returns:
//   - error: nil when the header is well formed, otherwise an error wrapping ErrInvalidBytecode
func ValidateSPIRV(code []byte) error {
	switch {
	case len(code) < spirvHeaderBytes:
		return fmt.Errorf("%w: %d bytes is shorter than the module header", ErrInvalidBytecode, len(code))
	case len(code)%4 != 0:
		return fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidBytecode, len(code))
	}
	if binary.LittleEndian.Uint32(code) != spirvMagic && binary.BigEndian.Uint32(code) != spirvMagic {
		return fmt.Errorf("%w: bad magic number 0x%08x", ErrInvalidBytecode, binary.LittleEndian.Uint32(code))
	}
	return nil
}
