// Command pushdemo records a small scene into a command ring, submits it
// through the noop HAL device and prints the decoded method stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/bo"
	"github.com/gogpu/pushbuf/device/haldev"
	"github.com/gogpu/pushbuf/hw"
	"github.com/gogpu/pushbuf/hw/nv04"
	"github.com/gogpu/pushbuf/prim"
	"github.com/gogpu/pushbuf/ring"
	"github.com/gogpu/pushbuf/state"
)

const size = 256

// recorder keeps a copy of every submission for the dump.
type recorder struct {
	pushbuf.Device
	subs [][]uint32
}

func (r *recorder) Submit(ctx context.Context, words []uint32) (uint64, error) {
	r.subs = append(r.subs, slices.Clone(words))
	return r.Device.Submit(ctx, words)
}

func main() {
	var (
		config  = flag.String("config", "", "TOML channel configuration")
		backend = flag.String("backend", "", "hardware backend (overrides the configuration)")
		points  = flag.Int("points", 7, "star points")
		verbose = flag.Bool("v", false, "log library activity to stderr")
		dump    = flag.Bool("dump", true, "print the decoded method stream")
	)
	flag.Parse()

	if *verbose {
		pushbuf.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg, err := loadConfig(*config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}

	subs, stats, err := run(cfg, *points)
	if err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
	if *dump {
		for i, words := range subs {
			printStream(os.Stdout, i, words)
		}
	}
	log.Printf("Submitted %d rings: %d batches, %d indices, %d triangles\n",
		len(subs), stats.Batches, stats.Indices, stats.Triangles)
}

func loadConfig(path string) (pushbuf.Config, error) {
	if path == "" {
		cfg := pushbuf.DefaultConfig()
		cfg.VRAMHandle, cfg.GARTHandle = 0xd8000001, 0xd8000002
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return pushbuf.Config{}, err
	}
	defer f.Close()
	return pushbuf.LoadConfig(f)
}

func run(cfg pushbuf.Config, points int) ([][]uint32, prim.Stats, error) {
	dev, err := haldev.Open(noop.API{})
	if err != nil {
		return nil, prim.Stats{}, err
	}
	defer dev.Close()
	rec := &recorder{Device: dev}

	table := bo.NewTable(bo.TableConfig{})
	ch, err := pushbuf.NewChannel(rec, table, cfg.Options()...)
	if err != nil {
		return nil, prim.Stats{}, err
	}
	defer ch.Close()

	b, err := hw.Open(cfg.Backend)
	if err != nil {
		return nil, prim.Stats{}, err
	}
	index, err := cfg.Index()
	if err != nil {
		return nil, prim.Stats{}, err
	}
	ctx, err := hw.NewContext(ch, b, prim.Config{IndexFormat: index})
	if err != nil {
		return nil, prim.Stats{}, err
	}

	color, err := table.Alloc(size*size*4, bo.DomainVRAM, "color")
	if err != nil {
		return nil, prim.Stats{}, err
	}
	fb := &state.FramebufferState{Color: []state.Surface{{
		Buf: color, Pitch: size * 4, Format: gputypes.TextureFormatBGRA8Unorm, Width: size, Height: size,
	}}}

	if nb, ok := b.(*nv04.Backend); ok {
		if err := nb.Clear(fb, gputypes.Color{R: 0.1, G: 0.2, B: 0.4, A: 1}); err != nil {
			return nil, prim.Stats{}, err
		}
	}

	tr := ctx.Tracker()
	tr.BindFramebuffer(fb)
	tr.SetViewport(state.NewViewport(0, 0, size, size, 0, 1))
	tr.BindBlend(&state.BlendState{
		State: &gputypes.BlendState{Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		}},
		WriteMask: gputypes.ColorWriteMaskAll,
	})

	if _, err := ctx.DrawArrays(prim.Polygon, star(points), 0, 2*points); err != nil {
		return nil, prim.Stats{}, err
	}
	if _, err := ctx.DrawArrays(prim.TriangleStrip, ribbon(24), 0, 24); err != nil {
		return nil, prim.Stats{}, err
	}

	fence, err := ctx.FlushFence(context.Background())
	if err != nil {
		return nil, prim.Stats{}, err
	}
	if err := fence.Wait(context.Background()); err != nil {
		return nil, prim.Stats{}, err
	}
	return rec.subs, ctx.Stats(), nil
}

// star returns a polygon alternating between an outer and inner radius.
func star(points int) *nv04.Vertices {
	verts := make([]nv04.Vertex, 0, 2*points)
	for i := 0; i < 2*points; i++ {
		angle := float64(i) * math.Pi / float64(points)
		r := 0.8
		if i%2 == 1 {
			r = 0.35
		}
		c := nv04.PackColor(gputypes.Color{R: 1, G: 0.8, B: float64(i) / float64(2*points), A: 0.9})
		verts = append(verts, nv04.Vertex{
			Pos:   f32.Vec4{float32(r * math.Sin(angle)), float32(r * math.Cos(angle)), 0.5, 1},
			Color: c,
		})
	}
	return &nv04.Vertices{Verts: verts}
}

// ribbon returns a wavy horizontal triangle strip of n vertices.
func ribbon(n int) *nv04.Vertices {
	verts := make([]nv04.Vertex, n)
	for i := range verts {
		x := -0.9 + 1.8*float64(i/2)/float64(n/2-1)
		y := -0.7 + 0.05*math.Sin(x*math.Pi*2)
		if i%2 == 1 {
			y -= 0.15
		}
		verts[i] = nv04.Vertex{
			Pos:   f32.Vec4{float32(x), float32(y), 0.25, 1},
			Color: nv04.PackColor(gputypes.Color{R: 0.3, G: 1, B: 0.3, A: 1}),
		}
	}
	return &nv04.Vertices{Verts: verts}
}

func printStream(w io.Writer, n int, words []uint32) {
	fmt.Fprintf(w, "# submission %d: %d words\n", n, len(words))
	d := ring.NewDecoder(words)
	for d.Next() {
		m := d.Method()
		ni := ""
		if m.NonIncrementing {
			ni = " ni"
		}
		fmt.Fprintf(w, "%5d  subc %d  0x%04x x%d%s:", d.HeaderOffset(), m.Subchannel, m.Method, m.Count, ni)
		for _, v := range d.Data() {
			fmt.Fprintf(w, " %08x", v)
		}
		fmt.Fprintln(w)
	}
	if d.Truncated() {
		fmt.Fprintln(w, "# truncated")
	}
}
