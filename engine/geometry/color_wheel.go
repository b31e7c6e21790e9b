// Package geometry generates the vertex data drawn by the renderer.
package geometry

import (
	"math"

	"github.com/Carmen-Shannon/msaa-line/common"
)

// DefaultSegments is the number of spokes in the color wheel.
const DefaultSegments = 50

const (
	// VertexStride is the byte size of one Vertex in the vertex buffer.
	VertexStride = 24
	// ColorOffset is the byte offset of Vertex.Color within a Vertex.
	ColorOffset = 8
)

// Vertex is a single line-list vertex as laid out in the GPU vertex buffer.
// Position is in clip space; Color is RGBA.
type Vertex struct {
	Position [2]float32
	Color    [4]float32
}

// ColorWheel builds a line list of segments spokes radiating from the origin to the unit circle.
// Every consecutive vertex pair is one independent line: a center vertex followed by a rim vertex.
// The output is deterministic and always holds exactly 2*segments vertices.
//
// Parameters:
//   - segments: the number of spokes to generate
//
// Returns:
//   - []Vertex: the generated vertices, empty when segments is 0
func ColorWheel(segments uint32) []Vertex {
	vertices := make([]Vertex, 0, 2*int(segments))
	for i := range segments {
		percent := float64(i) / float64(segments)
		sin, cos := math.Sincos(percent * 2 * math.Pi)
		s, c := float32(sin), float32(cos)

		vertices = append(vertices,
			Vertex{
				Position: [2]float32{0, 0},
				Color:    [4]float32{1, -s, c, 1},
			},
			Vertex{
				Position: [2]float32{c, s},
				Color:    [4]float32{s, -c, 1, 1},
			},
		)
	}
	return vertices
}

// Bytes returns a byte view over vertices suitable for uploading to a vertex buffer.
// The returned slice shares memory with vertices.
func Bytes(vertices []Vertex) []byte {
	return common.SliceToBytes(vertices)
}
