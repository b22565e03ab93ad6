package nv04

import (
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/pushbuf/hw"
	"github.com/gogpu/pushbuf/state"
)

// Vertex is a lit vertex with a clip-space position.
type Vertex struct {
	Pos f32.Vec4

	// Color and Specular are A8R8G8B8. The specular alpha is the fog
	// factor.
	Color    uint32
	Specular uint32

	U, V float32
}

// Vertices is the TLVERTEX form of a vertex array. Positions go through
// the perspective divide and the viewport of the drawing context.
type Vertices struct {
	Verts []Vertex

	viewport *state.ViewportState
}

var _ hw.ViewportSource = (*Vertices)(nil)

// Len implements prim.VertexSource.
func (v *Vertices) Len() int { return len(v.Verts) }

// VertexWords implements prim.VertexSource.
func (v *Vertices) VertexWords() int { return TLVertexWords }

// SetViewport implements hw.ViewportSource.
func (v *Vertices) SetViewport(vp *state.ViewportState) { v.viewport = vp }

// Vertex writes SX, SY, SZ, RHW, COLOR, SPECULAR, TU and TV.
func (v *Vertices) Vertex(i uint32, dst []uint32) {
	in := &v.Verts[i]
	rhw := float32(1)
	if in.Pos[3] != 0 {
		rhw = 1 / in.Pos[3]
	}
	p := f32.Vec4{in.Pos[0] * rhw, in.Pos[1] * rhw, in.Pos[2] * rhw, 1}
	if v.viewport != nil {
		p = v.viewport.Apply(p)
	}
	dst[0] = math.Float32bits(p[0])
	dst[1] = math.Float32bits(p[1])
	dst[2] = math.Float32bits(p[2])
	dst[3] = math.Float32bits(rhw)
	dst[4] = in.Color
	dst[5] = in.Specular
	dst[6] = math.Float32bits(in.U)
	dst[7] = math.Float32bits(in.V)
}

// PackColor converts a color to A8R8G8B8.
func PackColor(c gputypes.Color) uint32 {
	return unorm8(c.A)<<24 | unorm8(c.R)<<16 | unorm8(c.G)<<8 | unorm8(c.B)
}

func unorm8(x float64) uint32 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 0xff
	}
	return uint32(x*255 + 0.5)
}
