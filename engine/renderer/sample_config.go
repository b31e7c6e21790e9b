package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrEmptySurface is returned when a configuration is requested for a surface with no pixels,
	// e.g. while the window is minimized.
	ErrEmptySurface = errors.New("surface has zero width or height")

	// ErrInvalidSampleCount is returned for sample counts outside {1, 2, 4, 8, 16}.
	ErrInvalidSampleCount = errors.New("sample count must be a power of two between 1 and 16")

	// ErrSampleCountMismatch is returned when resources built for one sample count would be used with another.
	ErrSampleCountMismatch = errors.New("sample count mismatch")
)

// SampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type SampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff SampleCount = 1

	// MSAA2x enables 2× multisample anti-aliasing.
	MSAA2x SampleCount = 2

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x SampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x SampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x SampleCount = 16
)

// Valid reports whether c is one of 1, 2, 4, 8 or 16.
func (c SampleCount) Valid() bool {
	return c >= MSAAOff && c <= MSAA16x && common.IsPowerOfTwo(uint32(c))
}

// Multisampled reports whether rendering at c needs an offscreen multisample target.
func (c SampleCount) Multisampled() bool {
	return c > MSAAOff
}

// Increase doubles the sample count unless that would exceed ceiling.
//
// Parameters:
//   - ceiling: the largest sample count allowed, at most MSAA16x
//
// Returns:
//   - SampleCount: the doubled count, or c unchanged at the ceiling
func (c SampleCount) Increase(ceiling SampleCount) SampleCount {
	if c*2 > min(ceiling, MSAA16x) {
		return c
	}
	return c * 2
}

// Decrease halves the sample count, stopping at MSAAOff.
func (c SampleCount) Decrease() SampleCount {
	if c < 2 {
		return c
	}
	return c / 2
}

// SampleCountSet is a set of sample counts, one bit per count. Since every valid count is a power
// of two, the bit for a count is the count itself.
type SampleCountSet uint32

const (
	// AllSampleCounts contains 1, 2, 4, 8 and 16.
	AllSampleCounts = SampleCountSet(MSAAOff | MSAA2x | MSAA4x | MSAA8x | MSAA16x)

	// GuaranteedSampleCounts contains the counts every WebGPU device accepts for a renderable format.
	GuaranteedSampleCounts = SampleCountSet(MSAAOff | MSAA4x)
)

// NewSampleCountSet builds a set from counts. Invalid counts are ignored.
func NewSampleCountSet(counts ...SampleCount) SampleCountSet {
	var set SampleCountSet
	for _, c := range counts {
		if c.Valid() {
			set |= SampleCountSet(c)
		}
	}
	return set
}

// Contains reports whether c is in the set.
func (s SampleCountSet) Contains(c SampleCount) bool {
	return c.Valid() && s&SampleCountSet(c) != 0
}

// Counts returns the members in ascending order.
func (s SampleCountSet) Counts() []SampleCount {
	var counts []SampleCount
	for c := MSAAOff; c <= MSAA16x; c *= 2 {
		if s.Contains(c) {
			counts = append(counts, c)
		}
	}
	return counts
}

// Next returns the smallest member above c that does not exceed ceiling, doubling past counts
// missing from the set.
//
// Parameters:
//   - c: the current sample count
//   - ceiling: the largest sample count allowed
//
// Returns:
//   - SampleCount: the next supported count, or c unchanged if there is none
func (s SampleCountSet) Next(c, ceiling SampleCount) SampleCount {
	for cur := c; ; {
		next := cur.Increase(ceiling)
		if next == cur {
			return c
		}
		if s.Contains(next) {
			return next
		}
		cur = next
	}
}

// Prev returns the largest member below c, halving past counts missing from the set.
//
// Parameters:
//   - c: the current sample count
//
// Returns:
//   - SampleCount: the previous supported count, or c unchanged if there is none
func (s SampleCountSet) Prev(c SampleCount) SampleCount {
	for cur := c; ; {
		prev := cur.Decrease()
		if prev == cur {
			return c
		}
		if s.Contains(prev) {
			return prev
		}
		cur = prev
	}
}

// Floor returns the largest member not above c, or MSAAOff if there is none.
func (s SampleCountSet) Floor(c SampleCount) SampleCount {
	for ; c > MSAAOff; c = c.Decrease() {
		if s.Contains(c) {
			return c
		}
	}
	return MSAAOff
}

// SampleConfig is everything a multisample target and pipeline/bundle pair depend on.
// Two configurations that compare equal can share the same GPU resources.
type SampleConfig struct {
	SampleCount SampleCount
	Width       uint32
	Height      uint32
	Format      wgpu.TextureFormat
}

// NeedsRebuild reports whether resources built for prev are unusable under c.
func (c SampleConfig) NeedsRebuild(prev SampleConfig) bool {
	return c != prev
}

// Validate checks that resources can be built for c.
//
// Returns:
//   - error: ErrInvalidSampleCount or ErrEmptySurface (wrapped), or nil
func (c SampleConfig) Validate() error {
	if !c.SampleCount.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleCount, c.SampleCount)
	}
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptySurface, c.Width, c.Height)
	}
	return nil
}
