package nv04

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pushbuf/bo"
	"github.com/gogpu/pushbuf/reloc"
	"github.com/gogpu/pushbuf/state"
)

// Copy copies lines rows of length bytes from src to dst with the
// memory-to-memory object. Row i starts at off + i*pitch in each buffer.
//
// Pitches the object cannot express are copied row by row.
func (b *Backend) Copy(dst bo.Buffer, dstOff, dstPitch uint32, src bo.Buffer, srcOff, srcPitch uint32, length, lines uint32) error {
	if err := b.initialized(); err != nil {
		return err
	}
	if length == 0 || lines == 0 {
		return nil
	}
	if dstPitch > maxM2MFPitch || srcPitch > maxM2MFPitch {
		for i := uint32(0); i < lines; i++ {
			b.memcpy(dst, dstOff+i*dstPitch, src, srcOff+i*srcPitch, length)
		}
		return nil
	}
	for lines > 0 {
		n := min(lines, maxM2MFLines)
		b.transfer(dst, dstOff, dstPitch, src, srcOff, srcPitch, length, n)
		dstOff += dstPitch * n
		srcOff += srcPitch * n
		lines -= n
	}
	return nil
}

// Memcpy copies size contiguous bytes from src to dst.
func (b *Backend) Memcpy(dst bo.Buffer, dstOff uint32, src bo.Buffer, srcOff uint32, size uint32) error {
	if err := b.initialized(); err != nil {
		return err
	}
	b.memcpy(dst, dstOff, src, srcOff, size)
	return nil
}

// memcpy copies a linear range as rows of the widest pitch the object
// accepts plus a short last row.
func (b *Backend) memcpy(dst bo.Buffer, dstOff uint32, src bo.Buffer, srcOff uint32, size uint32) {
	rows, rest := size/maxM2MFPitch, size%maxM2MFPitch
	for rows > 0 {
		n := min(rows, maxM2MFLines)
		b.transfer(dst, dstOff, maxM2MFPitch, src, srcOff, maxM2MFPitch, maxM2MFPitch, n)
		dstOff += maxM2MFPitch * n
		srcOff += maxM2MFPitch * n
		rows -= n
	}
	if rest > 0 {
		b.transfer(dst, dstOff, rest, src, srcOff, rest, rest, 1)
	}
}

// transfer writes one M2MF transfer of at most maxM2MFLines rows.
func (b *Backend) transfer(dst bo.Buffer, dstOff, dstPitch uint32, src bo.Buffer, srcOff, srcPitch uint32, length, lines uint32) {
	ch := b.ch
	ch.Mark(3+9, 4)
	ch.Begin(b.m2mf, m2mfDMAIn, 2)
	ch.RelocObject(src, reloc.GART|reloc.VRAM)
	ch.RelocObject(dst, reloc.GART|reloc.VRAM)
	ch.Begin(b.m2mf, m2mfOffsetIn, 8)
	ch.RelocLow(src, srcOff, reloc.GART|reloc.VRAM)
	ch.RelocLow(dst, dstOff, reloc.GART|reloc.VRAM)
	ch.Word(srcPitch)
	ch.Word(dstPitch)
	ch.Word(length)
	ch.Word(lines)
	ch.Word(m2mfFormat1x1)
	ch.Word(0)
}

// Fill sets a w by h rectangle at (x, y) of dst to color using the GDI
// rectangle object. The surface pitch must be a non-zero multiple of 64.
func (b *Backend) Fill(dst *state.Surface, x, y, w, h uint32, color uint32) error {
	if err := b.initialized(); err != nil {
		return err
	}
	if w == 0 || h == 0 {
		return nil
	}
	if dst.Pitch == 0 || dst.Pitch&63 != 0 || dst.Pitch > 0xffff {
		return unsupported("fill pitch %d", dst.Pitch)
	}
	var surfFmt, rectFmt uint32
	switch dst.Format {
	case gputypes.TextureFormatR8Unorm:
		surfFmt, rectFmt = surf2dY8, rectA8R8G8B8
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatDepth16Unorm:
		surfFmt, rectFmt = surf2dY16, rectA16R5G6B5
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8:
		surfFmt, rectFmt = surf2dY32, rectA8R8G8B8
	default:
		return unsupported("fill format %v", dst.Format)
	}

	ch := b.ch
	ch.Mark(15, 4)
	ch.Begin(b.surf2d, surf2dDMASource, 2)
	ch.RelocObject(dst.Buf, reloc.VRAM)
	ch.RelocObject(dst.Buf, reloc.VRAM)
	ch.Begin(b.surf2d, surf2dFormat, 4)
	ch.Word(surfFmt)
	ch.Word(dst.Pitch<<16 | dst.Pitch)
	ch.RelocLow(dst.Buf, dst.Offset, reloc.VRAM)
	ch.RelocLow(dst.Buf, dst.Offset, reloc.VRAM)
	ch.Begin(b.rect, rectColorFmt, 1)
	ch.Word(rectFmt)
	ch.Begin(b.rect, rectColor1A, 1)
	ch.Word(color)
	ch.Begin(b.rect, rectPoint(0), 2)
	ch.Word(x<<16 | y)
	ch.Word(w<<16 | h)
	return nil
}

// Clear fills the whole color target of fb with c.
func (b *Backend) Clear(fb *state.FramebufferState, c gputypes.Color) error {
	w, h, err := fb.Size()
	if err != nil {
		return err
	}
	for i := range fb.Color {
		if err := b.Fill(&fb.Color[i], 0, 0, w, h, PackColor(c)); err != nil {
			return err
		}
	}
	return nil
}
