package prim

import (
	"fmt"

	"github.com/gogpu/pushbuf"
)

// Batcher turns index streams into draw batches for one Hardware.
//
// A Batcher keeps a scratch vertex and is NOT safe for concurrent use.
type Batcher struct {
	hw      Hardware
	cfg     Config
	adjoin  bool // DrawMethod directly follows the last slot
	burst   bool
	scratch []uint32
	stats   Stats
}

// NewBatcher creates a batcher. The hardware needs at least six slots to
// draw two list triangles per batch.
func NewBatcher(hw Hardware, cfg Config) (*Batcher, error) {
	if hw.Slots < 6 || hw.Slots > MaxSlots {
		return nil, fmt.Errorf("prim: %d vertex slots, want 6..%d", hw.Slots, MaxSlots)
	}
	if hw.SlotMethod == nil {
		return nil, fmt.Errorf("prim: hardware has no slot method")
	}
	return &Batcher{
		hw:     hw,
		cfg:    cfg,
		adjoin: hw.SlotMethod(hw.Slots) == hw.DrawMethod,
	}, nil
}

// Stats returns the totals of every draw so far.
func (b *Batcher) Stats() Stats { return b.stats }

// Draw decomposes idx under topology topo and writes the batches to pb.
//
// Indices are checked against the index format and the vertex source
// before anything is written. Trailing indices that do not form a whole
// primitive are reported with ErrTopologyMisuse after the whole
// primitives have been drawn.
func (b *Batcher) Draw(pb Pushbuf, topo Topology, vs VertexSource, idx IndexSource) (Stats, error) {
	switch topo {
	case Points, Lines, LineStrip:
		return Stats{}, fmt.Errorf("%w: %s", ErrUnsupportedPrimitive, topo)
	}
	if err := b.checkIndices(vs, idx); err != nil {
		return Stats{}, err
	}
	n := vs.VertexWords()
	if cap(b.scratch) < n {
		b.scratch = make([]uint32, n)
	} else {
		b.scratch = b.scratch[:n]
	}
	b.burst = b.adjoin && b.hw.SlotMethod(1)-b.hw.SlotMethod(0) == uint32(4*n)

	var st Stats
	switch topo {
	case Triangles:
		st = b.triangles(pb, vs, idx)
	case Quads:
		st = b.quads(pb, vs, idx)
	case TriangleStrip:
		st = b.strip(pb, vs, idx, idx.Len())
	case QuadStrip:
		st = b.strip(pb, vs, idx, idx.Len()&^1)
		st.Dropped += idx.Len() & 1
	case TriangleFan, Polygon:
		st = b.fan(pb, vs, idx)
	default:
		return Stats{}, fmt.Errorf("%w: %s", ErrUnsupportedPrimitive, topo)
	}
	b.stats.Add(st)

	if st.Dropped > 0 {
		pushbuf.Logger().Warn("prim: incomplete primitive",
			"topology", topo, "indices", idx.Len(), "dropped", st.Dropped)
		return st, fmt.Errorf("%w: %s with %d indices leaves %d",
			ErrTopologyMisuse, topo, idx.Len(), st.Dropped)
	}
	return st, nil
}

func (b *Batcher) checkIndices(vs VertexSource, idx IndexSource) error {
	limit := b.cfg.maxIndex()
	n := uint32(vs.Len())
	for i := 0; i < idx.Len(); i++ {
		v := idx.At(i)
		if v > limit {
			return fmt.Errorf("%w: index %d is %#x, format allows %#x", ErrIndexRange, i, v, limit)
		}
		if v >= n {
			return fmt.Errorf("%w: index %d is %d, source has %d vertices", ErrIndexRange, i, v, n)
		}
	}
	return nil
}

// upload writes count vertices of idx starting at position first into
// consecutive slots from slot. extra words are reserved in the same
// method group.
func (b *Batcher) upload(pb Pushbuf, vs VertexSource, idx IndexSource, first, count, slot, extra int) {
	pb.Begin(b.hw.Object, b.hw.SlotMethod(slot), count*len(b.scratch)+extra)
	for i := 0; i < count; i++ {
		vs.Vertex(idx.At(first+i), b.scratch)
		pb.Block(b.scratch)
	}
}

// fixed draws count vertices uploaded to the top slots with one
// draw-primitive word.
func (b *Batcher) fixed(pb Pushbuf, vs VertexSource, idx IndexSource, first, count int, opcode uint32) {
	slot := b.hw.Slots - count
	words := 1 + count*len(b.scratch) + 1
	if !b.burst {
		words++
	}
	pb.Mark(words, 0)
	if b.burst {
		b.upload(pb, vs, idx, first, count, slot, 1)
	} else {
		b.upload(pb, vs, idx, first, count, slot, 0)
		pb.Begin(b.hw.Object, b.hw.DrawMethod, 1)
	}
	pb.Word(opcode)
}

// twoTriangles returns the opcode drawing the top six slots as two
// triangles, and oneTriangle the top three.
func (b *Batcher) twoTriangles() uint32 {
	s := b.hw.Slots - 6
	return Triangle(s, s+1, s+2) | Triangle(s+3, s+4, s+5)<<12
}

func (b *Batcher) oneTriangle() uint32 {
	s := b.hw.Slots - 3
	return Triangle(s, s+1, s+2)
}

// quad returns the opcode drawing the top four slots as a quad split along
// its first diagonal.
func (b *Batcher) quad() uint32 {
	s := b.hw.Slots - 4
	return Triangle(s, s+1, s+2) | Triangle(s, s+2, s+3)<<12
}

func (b *Batcher) triangles(pb Pushbuf, vs VertexSource, idx IndexSource) Stats {
	var st Stats
	n := idx.Len()
	i := 0
	for ; i+6 <= n; i += 6 {
		b.fixed(pb, vs, idx, i, 6, b.twoTriangles())
		st.Batches++
		st.Triangles += 2
	}
	if i+3 <= n {
		b.fixed(pb, vs, idx, i, 3, b.oneTriangle())
		st.Batches++
		st.Triangles++
		i += 3
	}
	st.Indices, st.Uploaded, st.Dropped = i, i, n-i
	return st
}

func (b *Batcher) quads(pb Pushbuf, vs VertexSource, idx IndexSource) Stats {
	var st Stats
	n := idx.Len()
	i := 0
	for ; i+4 <= n; i += 4 {
		b.fixed(pb, vs, idx, i, 4, b.quad())
		st.Batches++
		st.Triangles += 2
	}
	st.Indices, st.Uploaded, st.Dropped = i, i, n-i
	return st
}

// windowed draws n vertices in windows of at most size vertices, each
// advancing by its length minus overlap. Window triangles come from table.
func (b *Batcher) windowed(pb Pushbuf, vs VertexSource, idx IndexSource, first, n, size, slot, overlap int, table []uint32) Stats {
	var st Stats
	for start := first; n-(start-first) > overlap; {
		count := min(size, n-(start-first))
		tris := count - overlap
		draw := (tris + 1) / 2

		pb.Mark(1+count*len(b.scratch)+1+draw, 0)
		b.upload(pb, vs, idx, start, count, slot, 0)
		pb.BeginNI(b.hw.Object, b.hw.DrawMethod, draw)
		for k := 0; k+1 < tris; k += 2 {
			pb.Word(table[k] | table[k+1]<<12)
		}
		if tris%2 == 1 {
			pb.Word(table[tris-1] & 0xfff)
		}

		st.Batches++
		st.Uploaded += count
		st.Triangles += tris
		start += count - overlap
	}
	return st
}

func (b *Batcher) strip(pb Pushbuf, vs VertexSource, idx IndexSource, n int) Stats {
	if n < 3 {
		return Stats{Dropped: n}
	}
	// Windows must advance by an even count to keep the winding.
	size := b.hw.Slots &^ 1
	st := b.windowed(pb, vs, idx, 0, n, size, 0, 2, stripTable[:])
	st.Indices = n
	return st
}

func (b *Batcher) fan(pb Pushbuf, vs VertexSource, idx IndexSource) Stats {
	n := idx.Len()
	if n < 3 {
		return Stats{Dropped: n}
	}
	pb.Mark(1+len(b.scratch), 0)
	b.upload(pb, vs, idx, 0, 1, 0, 0)
	st := b.windowed(pb, vs, idx, 1, n-1, b.hw.Slots-1, 1, 1, fanTable[:])
	st.Uploaded++
	st.Indices = n
	return st
}
