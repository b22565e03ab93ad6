// Package pushbuf is the command submission core of a family of GPU
// driver backends.
//
// # Overview
//
// A [Channel] owns a fixed-size ring of 32-bit command words. Commands are
// method groups: a header word naming a subchannel, a method offset and a
// word count, followed by that many data words. Words that depend on where
// a buffer lives in memory are written as relocations and patched by
// [Channel.Fire] right before the ring is handed to the [Device].
//
// Higher layers build on the channel:
//   - state: dirty tracking of render state and per-category emitters
//   - prim: decomposition of index streams into hardware draw batches
//   - hw: backend registry and the per-draw Context tying them together
//   - hw/nv04: one concrete backend
//
// # Quick Start
//
//	table := bo.NewTable(bo.TableConfig{})
//	ch, err := pushbuf.NewChannel(dev, table, pushbuf.WithCapacity(4096))
//	if err != nil {
//	    return err
//	}
//	defer ch.Close()
//
//	obj := ch.Bind(0x0039, 0x80000010)
//	ch.Begin(obj, 0x30c, 2)
//	ch.RelocLow(src, 0, reloc.VRAM|reloc.GART)
//	ch.RelocLow(dst, 0, reloc.VRAM|reloc.GART)
//	return ch.Fire(ctx)
//
// # Flow control
//
// [Channel.Begin] reserves room for a header and its data before writing
// anything. When the ring is too full, it is submitted first (a flush) so
// a method group is never split. [Channel.Mark] does the same for a whole
// sequence of groups and their relocations.
//
// # Errors
//
// Reserving more than the ring holds panics. Writes past a reservation
// are dropped and make the next Fire fail with [ring.ErrOverflow];
// relocation failures make it fail with the reloc package errors. In both
// cases the ring is discarded and the channel stays usable.
package pushbuf
