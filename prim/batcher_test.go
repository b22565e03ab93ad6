package prim

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/bo"
	"github.com/gogpu/pushbuf/ring"
)

type captureDevice struct {
	submissions [][]uint32
}

func (d *captureDevice) Submit(_ context.Context, words []uint32) (uint64, error) {
	d.submissions = append(d.submissions, slices.Clone(words))
	return uint64(len(d.submissions)), nil
}

func (d *captureDevice) Completed() uint64 { return uint64(len(d.submissions)) }

// tlVertex is a vertex source of 8-word vertices whose first word is the
// vertex index.
type tlVertex struct{ n int }

func (v tlVertex) Len() int         { return v.n }
func (v tlVertex) VertexWords() int { return 8 }
func (v tlVertex) Vertex(i uint32, dst []uint32) {
	clear(dst)
	dst[0] = i
}

var testHW = Hardware{
	Object:     pushbuf.Object{Subchannel: 1, Class: 0x54},
	Slots:      16,
	SlotMethod: func(slot int) uint32 { return 0x400 + uint32(slot)*32 },
	DrawMethod: 0x600,
}

func newBatcher(t *testing.T, cfg Config) *Batcher {
	t.Helper()
	b, err := NewBatcher(testHW, cfg)
	if err != nil {
		t.Fatalf("NewBatcher() error = %v", err)
	}
	return b
}

func newChannel(t *testing.T, opts ...pushbuf.ChannelOption) (*pushbuf.Channel, *captureDevice) {
	t.Helper()
	dev := &captureDevice{}
	ch, err := pushbuf.NewChannel(dev, bo.NewTable(bo.TableConfig{}), opts...)
	if err != nil {
		t.Fatalf("NewChannel() error = %v", err)
	}
	return ch, dev
}

type group struct {
	method uint32
	count  int
	ni     bool
	data   []uint32
}

func groups(t *testing.T, words []uint32) []group {
	t.Helper()
	var out []group
	dec := ring.NewDecoder(words)
	for dec.Next() {
		m := dec.Method()
		out = append(out, group{m.Method, m.Count, m.NonIncrementing, dec.Data()})
	}
	if dec.Truncated() {
		t.Fatalf("stream truncated at %d", dec.HeaderOffset())
	}
	return out
}

// slotIndices returns the vertex index of every uploaded vertex in g.
func slotIndices(g group) []uint32 {
	var out []uint32
	for i := 0; i+8 <= len(g.data); i += 8 {
		out = append(out, g.data[i])
	}
	return out
}

func TestTriangleListNine(t *testing.T) {
	ch, _ := newChannel(t)
	b := newBatcher(t, Config{})

	st, err := b.Draw(ch, Triangles, tlVertex{9}, Sequential{Count: 9})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if st.Batches != 2 || st.Triangles != 3 || st.Indices != 9 {
		t.Errorf("Draw() stats = %+v, want 2 batches, 3 triangles, 9 indices", st)
	}

	gs := groups(t, ch.Words())
	if len(gs) != 2 {
		t.Fatalf("got %d method groups, want 2", len(gs))
	}
	tests := []struct {
		method  uint32
		count   int
		opcode  uint32
		indices []uint32
	}{
		{0x540, 49, 0xfedcba, []uint32{0, 1, 2, 3, 4, 5}},
		{0x5a0, 25, 0xfed, []uint32{6, 7, 8}},
	}
	for i, tt := range tests {
		g := gs[i]
		if g.method != tt.method || g.count != tt.count || g.ni {
			t.Errorf("group %d = 0x%03x x%d ni=%v, want 0x%03x x%d", i, g.method, g.count, g.ni, tt.method, tt.count)
		}
		if got := g.data[len(g.data)-1]; got != tt.opcode {
			t.Errorf("group %d opcode = %#x, want %#x", i, got, tt.opcode)
		}
		if got := slotIndices(g); !slices.Equal(got, tt.indices) {
			t.Errorf("group %d vertices = %v, want %v", i, got, tt.indices)
		}
	}
}

func TestQuadsFive(t *testing.T) {
	ch, _ := newChannel(t)
	b := newBatcher(t, Config{})

	st, err := b.Draw(ch, Quads, tlVertex{5}, Uint16Indices{0, 1, 2, 3, 4})
	if !errors.Is(err, ErrTopologyMisuse) {
		t.Errorf("Draw() error = %v, want ErrTopologyMisuse", err)
	}
	if st.Batches != 1 || st.Dropped != 1 || st.Indices != 4 {
		t.Errorf("Draw() stats = %+v, want 1 batch, 4 indices, 1 dropped", st)
	}

	gs := groups(t, ch.Words())
	if len(gs) != 1 {
		t.Fatalf("got %d method groups, want 1", len(gs))
	}
	if gs[0].method != 0x580 || gs[0].count != 33 {
		t.Errorf("group = 0x%03x x%d, want 0x580 x33", gs[0].method, gs[0].count)
	}
	if got := gs[0].data[32]; got != 0xfecedc {
		t.Errorf("opcode = %#x, want 0xfecedc", got)
	}
}

func TestTriangleStripWindows(t *testing.T) {
	ch, _ := newChannel(t)
	b := newBatcher(t, Config{})

	st, err := b.Draw(ch, TriangleStrip, tlVertex{20}, Sequential{Count: 20})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if st.Batches != 2 || st.Triangles != 18 || st.Uploaded != 22 {
		t.Errorf("Draw() stats = %+v, want 2 batches, 18 triangles, 22 uploaded", st)
	}

	gs := groups(t, ch.Words())
	if len(gs) != 4 {
		t.Fatalf("got %d method groups, want 4", len(gs))
	}
	if gs[0].method != 0x400 || gs[0].count != 128 {
		t.Errorf("first upload = 0x%03x x%d, want 0x400 x128", gs[0].method, gs[0].count)
	}
	if !gs[1].ni || gs[1].method != 0x600 || gs[1].count != 7 {
		t.Errorf("first draw = 0x%03x x%d ni=%v, want 0x600 x7 ni", gs[1].method, gs[1].count, gs[1].ni)
	}
	if gs[1].data[0] != 0x312210 || gs[1].data[6] != 0xfdeedc {
		t.Errorf("first draw words = %#x", gs[1].data)
	}
	// The second window restarts two vertices back.
	if got := slotIndices(gs[2]); !slices.Equal(got, []uint32{14, 15, 16, 17, 18, 19}) {
		t.Errorf("second window vertices = %v", got)
	}
	if !slices.Equal(gs[3].data, []uint32{0x312210, 0x534432}) {
		t.Errorf("second draw words = %#x", gs[3].data)
	}
}

func TestTriangleStripOddTail(t *testing.T) {
	ch, _ := newChannel(t)
	b := newBatcher(t, Config{})

	if _, err := b.Draw(ch, TriangleStrip, tlVertex{5}, Sequential{Count: 5}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	gs := groups(t, ch.Words())
	if want := []uint32{0x312210, 0x432}; !slices.Equal(gs[1].data, want) {
		t.Errorf("draw words = %#x, want %#x", gs[1].data, want)
	}
}

func TestTriangleFanWindows(t *testing.T) {
	ch, _ := newChannel(t)
	b := newBatcher(t, Config{})

	st, err := b.Draw(ch, TriangleFan, tlVertex{17}, Sequential{Count: 17})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if st.Batches != 2 || st.Triangles != 15 {
		t.Errorf("Draw() stats = %+v, want 2 batches, 15 triangles", st)
	}

	gs := groups(t, ch.Words())
	if len(gs) != 5 {
		t.Fatalf("got %d method groups, want 5", len(gs))
	}
	if gs[0].method != 0x400 || gs[0].count != 8 || gs[0].data[0] != 0 {
		t.Errorf("pivot group = 0x%03x x%d", gs[0].method, gs[0].count)
	}
	if gs[1].method != 0x420 || gs[1].count != 15*8 {
		t.Errorf("first window = 0x%03x x%d, want 0x420 x120", gs[1].method, gs[1].count)
	}
	if gs[2].data[0] != 0x320210 {
		t.Errorf("first fan word = %#x, want 0x320210", gs[2].data[0])
	}
	if got := slotIndices(gs[3]); !slices.Equal(got, []uint32{15, 16}) {
		t.Errorf("second window vertices = %v, want [15 16]", got)
	}
	if !slices.Equal(gs[4].data, []uint32{0x210}) {
		t.Errorf("second fan words = %#x, want [0x210]", gs[4].data)
	}
}

func TestCoverage(t *testing.T) {
	tests := []struct {
		topo      Topology
		n         int
		triangles int
		dropped   int
	}{
		{Triangles, 0, 0, 0},
		{Triangles, 3, 1, 0},
		{Triangles, 12, 4, 0},
		{Triangles, 13, 4, 1},
		{Triangles, 14, 4, 2},
		{Quads, 8, 4, 0},
		{Quads, 11, 4, 3},
		{TriangleStrip, 2, 0, 2},
		{TriangleStrip, 16, 14, 0},
		{TriangleStrip, 17, 15, 0},
		{TriangleStrip, 100, 98, 0},
		{TriangleFan, 3, 1, 0},
		{TriangleFan, 16, 14, 0},
		{TriangleFan, 64, 62, 0},
		{Polygon, 5, 3, 0},
		{QuadStrip, 6, 4, 0},
		{QuadStrip, 7, 4, 1},
	}
	for _, tt := range tests {
		ch, _ := newChannel(t)
		b := newBatcher(t, Config{})
		st, err := b.Draw(ch, tt.topo, tlVertex{tt.n}, Sequential{Count: tt.n})
		if (err != nil) != (tt.dropped > 0) {
			t.Errorf("Draw(%v, %d) error = %v", tt.topo, tt.n, err)
		}
		if st.Triangles != tt.triangles || st.Dropped != tt.dropped {
			t.Errorf("Draw(%v, %d) = %d triangles, %d dropped, want %d, %d",
				tt.topo, tt.n, st.Triangles, st.Dropped, tt.triangles, tt.dropped)
		}
		if st.Indices+st.Dropped != tt.n {
			t.Errorf("Draw(%v, %d) covered %d + dropped %d indices", tt.topo, tt.n, st.Indices, st.Dropped)
		}
		for _, g := range groups(t, ch.Words()) {
			if g.method >= 0x400 && g.method < 0x600 && g.count > 16*8+1 {
				t.Errorf("Draw(%v, %d) uploaded %d words in one group", tt.topo, tt.n, g.count)
			}
		}
	}
}

func TestBatchesNeverSplit(t *testing.T) {
	ch, dev := newChannel(t, pushbuf.WithCapacity(200))
	b := newBatcher(t, Config{})

	if _, err := b.Draw(ch, TriangleStrip, tlVertex{60}, Sequential{Count: 60}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := ch.Fire(context.Background()); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if len(dev.submissions) < 2 {
		t.Fatalf("got %d submissions, want the draw split across several", len(dev.submissions))
	}
	for i, words := range dev.submissions {
		gs := groups(t, words)
		// Every submission holds whole upload and draw pairs.
		if len(gs)%2 != 0 {
			t.Errorf("submission %d has %d groups", i, len(gs))
		}
		for j := 0; j+1 < len(gs); j += 2 {
			if gs[j].ni || !gs[j+1].ni {
				t.Errorf("submission %d group %d is not an upload and draw pair", i, j)
			}
		}
	}
}

func TestIndexRange(t *testing.T) {
	ch, _ := newChannel(t)
	big := Uint32Indices{0, 1, 0x10000}
	vs := tlVertex{0x10001}

	if _, err := newBatcher(t, Config{}).Draw(ch, Triangles, vs, big); !errors.Is(err, ErrIndexRange) {
		t.Errorf("Draw() with 16-bit format error = %v, want ErrIndexRange", err)
	}
	if ch.Pending() != 0 {
		t.Errorf("Pending() = %d after rejected draw, want 0", ch.Pending())
	}

	wide := newBatcher(t, Config{IndexFormat: gputypes.IndexFormatUint32})
	if _, err := wide.Draw(ch, Triangles, vs, big); err != nil {
		t.Errorf("Draw() with 32-bit format error = %v", err)
	}
	if _, err := wide.Draw(ch, Triangles, tlVertex{2}, big); !errors.Is(err, ErrIndexRange) {
		t.Errorf("Draw() past the vertex source error = %v, want ErrIndexRange", err)
	}
}

func TestUnsupportedPrimitive(t *testing.T) {
	ch, _ := newChannel(t)
	b := newBatcher(t, Config{})
	for _, topo := range []Topology{Points, Lines, LineStrip} {
		if _, err := b.Draw(ch, topo, tlVertex{4}, Sequential{Count: 4}); !errors.Is(err, ErrUnsupportedPrimitive) {
			t.Errorf("Draw(%v) error = %v, want ErrUnsupportedPrimitive", topo, err)
		}
	}
	if ch.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", ch.Pending())
	}
}

func TestInterleaved(t *testing.T) {
	ch, _ := newChannel(t)
	b := newBatcher(t, Config{})
	data := make([]uint32, 3*8)
	for i := range data {
		data[i] = uint32(i)
	}
	if _, err := b.Draw(ch, Triangles, Interleaved{Data: data, Words: 8}, Uint16Indices{2, 1, 0}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	gs := groups(t, ch.Words())
	if got := slotIndices(gs[0]); !slices.Equal(got, []uint32{16, 8, 0}) {
		t.Errorf("uploaded first words = %v, want [16 8 0]", got)
	}
}

func TestSeparateDrawMethod(t *testing.T) {
	hw := testHW
	hw.DrawMethod = 0x700
	b, err := NewBatcher(hw, Config{})
	if err != nil {
		t.Fatalf("NewBatcher() error = %v", err)
	}
	ch, _ := newChannel(t)
	if _, err := b.Draw(ch, Triangles, tlVertex{3}, Sequential{Count: 3}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	gs := groups(t, ch.Words())
	if len(gs) != 2 || gs[0].count != 24 || gs[1].method != 0x700 || gs[1].data[0] != 0xfed {
		t.Errorf("groups = %+v, want upload then draw 0xfed at 0x700", gs)
	}
}

func TestNewBatcherSlots(t *testing.T) {
	for _, slots := range []int{0, 5, 17} {
		hw := testHW
		hw.Slots = slots
		if _, err := NewBatcher(hw, Config{}); err == nil {
			t.Errorf("NewBatcher() with %d slots succeeded", slots)
		}
	}
}

func TestCheckTable(t *testing.T) {
	bad := slices.Clone(stripTable[:])
	bad[3] = 0x543
	err := checkTable("strip", bad, func(k int) uint32 { return stripTable[k] })
	if err == nil {
		t.Error("checkTable() accepted a wrong entry")
	}
	if err := checkTable("fan", fanTable[:10], func(k int) uint32 { return fanTable[k] }); err == nil {
		t.Error("checkTable() accepted a short table")
	}
}

func TestFromGPU(t *testing.T) {
	tests := []struct {
		in   gputypes.PrimitiveTopology
		want Topology
	}{
		{gputypes.PrimitiveTopologyPointList, Points},
		{gputypes.PrimitiveTopologyLineList, Lines},
		{gputypes.PrimitiveTopologyLineStrip, LineStrip},
		{gputypes.PrimitiveTopologyTriangleList, Triangles},
		{gputypes.PrimitiveTopologyTriangleStrip, TriangleStrip},
	}
	for _, tt := range tests {
		if got := FromGPU(tt.in); got != tt.want {
			t.Errorf("FromGPU(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
