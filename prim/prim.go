// Package prim decomposes index streams into the fixed-format draw batches
// of vertex-slot hardware.
//
// Such hardware has a small array of vertex slots. A batch uploads
// vertices into consecutive slots and then writes draw-primitive words,
// each naming the slots of one or two triangles. The [Batcher] splits
// triangle lists, strips, fans and quads into batches that never exceed
// the slot count and always fit the channel in one piece.
package prim

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pushbuf"
)

// Primitive errors.
var (
	// ErrTopologyMisuse is returned when the index count does not divide
	// into whole primitives. The whole primitives are still drawn.
	ErrTopologyMisuse = errors.New("prim: index count does not match topology")

	// ErrUnsupportedPrimitive is returned for topologies the batcher does
	// not draw. Nothing is emitted.
	ErrUnsupportedPrimitive = errors.New("prim: unsupported primitive")

	// ErrIndexRange is returned when an index exceeds the index format or
	// the vertex source. Nothing is emitted.
	ErrIndexRange = errors.New("prim: index out of range")
)

// Topology is how consecutive indices form primitives.
type Topology uint8

const (
	Points Topology = iota
	Lines
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
	Quads
	QuadStrip
	Polygon
)

var topologyNames = [...]string{
	Points:        "points",
	Lines:         "lines",
	LineStrip:     "line-strip",
	Triangles:     "triangles",
	TriangleStrip: "triangle-strip",
	TriangleFan:   "triangle-fan",
	Quads:         "quads",
	QuadStrip:     "quad-strip",
	Polygon:       "polygon",
}

// String returns the topology name.
func (t Topology) String() string {
	if int(t) < len(topologyNames) {
		return topologyNames[t]
	}
	return fmt.Sprintf("Topology(%d)", uint8(t))
}

// FromGPU maps a WebGPU primitive topology.
func FromGPU(t gputypes.PrimitiveTopology) Topology {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return Points
	case gputypes.PrimitiveTopologyLineList:
		return Lines
	case gputypes.PrimitiveTopologyLineStrip:
		return LineStrip
	case gputypes.PrimitiveTopologyTriangleStrip:
		return TriangleStrip
	default:
		return Triangles
	}
}

// Hardware describes a vertex-slot draw engine.
type Hardware struct {
	// Object is the 3-D object vertices and draws are written to.
	Object pushbuf.Object

	// Slots is the number of vertex slots, at most MaxSlots.
	Slots int

	// SlotMethod returns the first method of a vertex slot.
	SlotMethod func(slot int) uint32

	// DrawMethod is the draw-primitive method. When it directly follows
	// the last slot, list batches upload vertices and draw in one burst.
	DrawMethod uint32
}

// Pushbuf is the command stream batches are written to. It is
// implemented by *pushbuf.Channel.
type Pushbuf interface {
	Begin(obj pushbuf.Object, method uint32, count int)
	BeginNI(obj pushbuf.Object, method uint32, count int)
	Word(w uint32)
	Block(ws []uint32)
	Mark(words, relocs int)
}

// VertexSource produces the hardware form of vertices.
type VertexSource interface {
	// Len returns the number of vertices.
	Len() int

	// VertexWords returns the number of words per vertex.
	VertexWords() int

	// Vertex writes vertex i into dst, which has VertexWords elements.
	Vertex(i uint32, dst []uint32)
}

// Interleaved is a VertexSource over pre-formatted vertex words.
type Interleaved struct {
	Data  []uint32
	Words int
}

// Len implements VertexSource.
func (v Interleaved) Len() int {
	if v.Words == 0 {
		return 0
	}
	return len(v.Data) / v.Words
}

// VertexWords implements VertexSource.
func (v Interleaved) VertexWords() int { return v.Words }

// Vertex implements VertexSource.
func (v Interleaved) Vertex(i uint32, dst []uint32) {
	copy(dst, v.Data[int(i)*v.Words:])
}

// IndexSource is a stream of vertex indices.
type IndexSource interface {
	Len() int
	At(i int) uint32
}

// Uint16Indices is a 16-bit index buffer.
type Uint16Indices []uint16

func (x Uint16Indices) Len() int        { return len(x) }
func (x Uint16Indices) At(i int) uint32 { return uint32(x[i]) }

// Uint32Indices is a 32-bit index buffer.
type Uint32Indices []uint32

func (x Uint32Indices) Len() int        { return len(x) }
func (x Uint32Indices) At(i int) uint32 { return x[i] }

// Sequential is the non-indexed stream Start, Start+1, ..., Start+Count-1.
type Sequential struct {
	Start uint32
	Count int
}

func (s Sequential) Len() int        { return s.Count }
func (s Sequential) At(i int) uint32 { return s.Start + uint32(i) }

// Config selects batcher behavior.
type Config struct {
	// IndexFormat limits index values. With IndexFormatUint16 (the
	// default) indices above 0xFFFF are rejected.
	IndexFormat gputypes.IndexFormat
}

func (c Config) maxIndex() uint32 {
	if c.IndexFormat == gputypes.IndexFormatUint32 {
		return ^uint32(0)
	}
	return 0xFFFF
}

// Stats counts what a draw emitted.
type Stats struct {
	// Batches is the number of draw commands.
	Batches int

	// Indices is the number of indices covered by emitted primitives.
	Indices int

	// Uploaded is the number of vertices written to slots. Strips and fans
	// upload shared vertices once per window.
	Uploaded int

	Triangles int

	// Dropped is the number of trailing indices not forming a primitive.
	Dropped int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Batches += o.Batches
	s.Indices += o.Indices
	s.Uploaded += o.Uploaded
	s.Triangles += o.Triangles
	s.Dropped += o.Dropped
}
