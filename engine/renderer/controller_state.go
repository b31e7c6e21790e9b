package renderer

import (
	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// InputEvent is a decoded user request to change the sample count.
type InputEvent int

const (
	// InputNone carries no request and leaves the state untouched.
	InputNone InputEvent = iota
	// InputIncrease doubles the sample count.
	InputIncrease
	// InputDecrease halves the sample count.
	InputDecrease
)

func (e InputEvent) String() string {
	switch e {
	case InputIncrease:
		return "increase"
	case InputDecrease:
		return "decrease"
	default:
		return "none"
	}
}

// InputEventFromKey maps a keyboard key code to an InputEvent. Only the right and left arrow
// keys are meaningful.
//
// Parameters:
//   - keyCode: the key code as reported by the window
//
// Returns:
//   - InputEvent: InputIncrease for right, InputDecrease for left, InputNone otherwise
func InputEventFromKey(keyCode uint32) InputEvent {
	switch keyCode {
	case common.KeyRight:
		return InputIncrease
	case common.KeyLeft:
		return InputDecrease
	default:
		return InputNone
	}
}

// Phase is the rebuild phase of the controller.
type Phase int

const (
	// PhaseIdle means the installed RenderConfiguration matches the state.
	PhaseIdle Phase = iota
	// PhaseDirty means the next render must rebuild before encoding.
	PhaseDirty
)

func (p Phase) String() string {
	if p == PhaseDirty {
		return "dirty"
	}
	return "idle"
}

// ControllerState is the complete mutable state of the render controller held as a plain value.
// Every transition returns a new value and leaves the receiver untouched, so sequences of inputs
// can be replayed without a GPU.
type ControllerState struct {
	SampleCount    SampleCount
	MaxSampleCount SampleCount
	// Supported holds the counts the device can render at; Apply steps only between members.
	// The zero set means every count is supported.
	Supported      SampleCountSet
	Width          uint32
	Height         uint32
	Format         wgpu.TextureFormat
	RebuildPending bool
}

// NewControllerState creates an Idle state.
//
// Parameters:
//   - count: the initial sample count
//   - maxCount: the largest sample count Increase may reach
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//   - format: the surface texture format
//
// Returns:
//   - ControllerState: the initial state
func NewControllerState(count, maxCount SampleCount, width, height uint32, format wgpu.TextureFormat) ControllerState {
	return ControllerState{
		SampleCount:    count,
		MaxSampleCount: maxCount,
		Width:          width,
		Height:         height,
		Format:         format,
	}
}

// Phase reports whether a rebuild is pending.
func (s ControllerState) Phase() Phase {
	if s.RebuildPending {
		return PhaseDirty
	}
	return PhaseIdle
}

// Apply applies an input event. An event clamped at the boundary changes nothing, including the
// rebuild flag.
//
// Parameters:
//   - ev: the input event
//
// Returns:
//   - ControllerState: the next state
func (s ControllerState) Apply(ev InputEvent) ControllerState {
	next := s.SampleCount
	supported := common.Coalesce(s.Supported, AllSampleCounts)
	switch ev {
	case InputIncrease:
		next = supported.Next(s.SampleCount, s.MaxSampleCount)
	case InputDecrease:
		next = supported.Prev(s.SampleCount)
	}
	if next == s.SampleCount {
		return s
	}
	s.SampleCount = next
	s.RebuildPending = true
	return s
}

// Resized records new surface dimensions. The state always becomes dirty, even if the size is unchanged.
//
// Parameters:
//   - width: the new surface width in pixels
//   - height: the new surface height in pixels
//
// Returns:
//   - ControllerState: the next state
func (s ControllerState) Resized(width, height uint32) ControllerState {
	s.Width = width
	s.Height = height
	s.RebuildPending = true
	return s
}

// Rebuilt clears the rebuild flag once the configuration for Config has been installed.
func (s ControllerState) Rebuilt() ControllerState {
	s.RebuildPending = false
	return s
}

// Config returns the SampleConfig the GPU resources must match for this state.
func (s ControllerState) Config() SampleConfig {
	return SampleConfig{
		SampleCount: s.SampleCount,
		Width:       s.Width,
		Height:      s.Height,
		Format:      s.Format,
	}
}
