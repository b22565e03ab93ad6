package pushbuf_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/bo"
	"github.com/gogpu/pushbuf/reloc"
	"github.com/gogpu/pushbuf/ring"
)

// printDevice prints every method write it is given.
type printDevice struct{ seq uint64 }

func (d *printDevice) Submit(_ context.Context, words []uint32) (uint64, error) {
	d.seq++
	ws, _ := ring.Writes(words)
	for _, w := range ws {
		fmt.Printf("subc %d 0x%04x = 0x%08x\n", w.Subchannel, w.Method, w.Value)
	}
	return d.seq, nil
}

func (d *printDevice) Completed() uint64 { return d.seq }

func ExampleChannel() {
	table := bo.NewTable(bo.TableConfig{})
	target, err := table.Alloc(4096, bo.DomainVRAM, "target")
	if err != nil {
		log.Fatal(err)
	}
	ch, err := pushbuf.NewChannel(&printDevice{}, table, pushbuf.WithDMAHandles(0xd8000001, 0xd8000002))
	if err != nil {
		log.Fatal(err)
	}

	surf := ch.Bind(0x53, 0x80000001)
	ch.Mark(4, 2)
	ch.Begin(surf, 0x184, 1)
	ch.RelocObject(target, reloc.VRAM)
	ch.Begin(surf, 0x30c, 1)
	ch.RelocLow(target, 0x100, reloc.VRAM)

	if err := ch.Fire(context.Background()); err != nil {
		log.Fatal(err)
	}
	// Output:
	// subc 0 0x0000 = 0x80000001
	// subc 0 0x0184 = 0xd8000001
	// subc 0 0x030c = 0x00000100
}

func ExampleLoadConfig() {
	cfg, err := pushbuf.LoadConfig(strings.NewReader(`
capacity = 4096
backend = "nv04"
index_format = "uint32"
`))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(cfg.Capacity, cfg.MaxRelocs, cfg.Backend, cfg.IndexFormat)
	// Output: 4096 256 nv04 uint32
}
