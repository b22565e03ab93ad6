package nv04

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/pushbuf/program"
	"github.com/gogpu/pushbuf/reloc"
	"github.com/gogpu/pushbuf/state"
)

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: nv04: %s", state.ErrUnsupportedState, fmt.Sprintf(format, args...))
}

func emitVertexProgram(t *state.Tracker, _ state.Pushbuf) error {
	if t.VertexProgram() != nil {
		return unsupported("vertex programs")
	}
	return nil
}

// emitSamplers validates the sampler of unit 0. Filtering and addressing
// live in the texture registers, so the texture is emitted again.
func emitSamplers(t *state.Tracker, _ state.Pushbuf) error {
	s := t.Sampler(0)
	if s.Compare != gputypes.CompareFunctionUndefined {
		return unsupported("depth compare samplers")
	}
	if _, err := addressMode(s.AddressModeU); err != nil {
		return err
	}
	if _, err := addressMode(s.AddressModeV); err != nil {
		return err
	}
	t.Invalidate(state.Textures)
	return nil
}

func (b *Backend) emitTextures(t *state.Tracker, pb state.Pushbuf) error {
	s := t.Sampler(0)
	tex := t.Texture(0)
	if tex == nil {
		pb.Begin(b.tri, dx5Offset, 3)
		pb.Word(0)
		pb.Word(formatDMAA | formatOriginZOH | formatOriginFOH | texColorA8R8G8B8<<formatColorShift | 1<<formatLevelShift)
		pb.Word(filterWord(s, 1))
		return nil
	}
	format, err := textureFormat(tex, s)
	if err != nil {
		return err
	}
	pb.Mark(4, 2)
	pb.Begin(b.tri, dx5Offset, 3)
	pb.RelocLow(tex.Buf, tex.Offset, reloc.VRAM|reloc.GART)
	pb.Reloc(tex.Buf, format, reloc.Or|reloc.VRAM|reloc.GART, formatDMAA, formatDMAB)
	pb.Word(filterWord(s, tex.Levels))
	return nil
}

func (b *Backend) emitFramebuffer(t *state.Tracker, pb state.Pushbuf) error {
	fb := t.Framebuffer()
	if fb == nil {
		return unsupported("no render target bound")
	}
	w, h, err := fb.Size()
	if err != nil {
		return err
	}
	if len(fb.Color) != 1 {
		return unsupported("%d color targets", len(fb.Color))
	}
	color := &fb.Color[0]
	cf, err := surfaceFormat(color.Format)
	if err != nil {
		return err
	}
	zeta := color
	if fb.Depth != nil {
		zeta = fb.Depth
		if !depthFormat(zeta.Format) {
			return unsupported("depth format %v", zeta.Format)
		}
	}
	if w > 0x800 || h > 0x800 || color.Pitch > 0xffff || zeta.Pitch > 0xffff {
		return unsupported("surface of %dx%d, pitch %d", w, h, color.Pitch)
	}
	ctl, err := controlWord(t)
	if err != nil {
		return err
	}

	pb.Mark(3+6+2, 4)
	pb.Begin(b.surf3d, surf3dDMAColor, 2)
	pb.RelocObject(color.Buf, reloc.VRAM)
	pb.RelocObject(zeta.Buf, reloc.VRAM)
	pb.Begin(b.surf3d, surf3dFormat, 5)
	pb.Word(cf | surfTypePitch)
	pb.Word(h<<16 | w)
	pb.Word(zeta.Pitch<<16 | color.Pitch)
	pb.RelocLow(color.Buf, color.Offset, reloc.VRAM)
	pb.RelocLow(zeta.Buf, zeta.Offset, reloc.VRAM)

	// Depth enable depends on the depth target.
	pb.Begin(b.tri, dx5Control, 1)
	pb.Word(ctl)

	t.Invalidate(state.Scissor)
	return nil
}

// emitClip writes the 3-D clip rectangle: the scissor when enabled,
// otherwise the whole render target.
func (b *Backend) emitClip(t *state.Tracker, pb state.Pushbuf) error {
	fb := t.Framebuffer()
	if fb == nil {
		return nil
	}
	w, h, err := fb.Size()
	if err != nil {
		return err
	}
	var x, y uint32
	if s := t.Scissor(); s != nil && t.Rasterizer().ScissorEnable {
		x, y = min(s.X, w), min(s.Y, h)
		w, h = min(s.Width, w-x), min(s.Height, h-y)
	}
	pb.Begin(b.surf3d, surf3dClipH, 2)
	pb.Word(w<<16 | x)
	pb.Word(h<<16 | y)
	return nil
}

func (b *Backend) emitBlend(t *state.Tracker, pb state.Pushbuf) error {
	w, err := blendWord(t)
	if err != nil {
		return err
	}
	pb.Begin(b.tri, dx5Blend, 1)
	pb.Word(w)
	return nil
}

func (b *Backend) emitControl(t *state.Tracker, pb state.Pushbuf) error {
	w, err := controlWord(t)
	if err != nil {
		return err
	}
	pb.Begin(b.tri, dx5Control, 1)
	pb.Word(w)
	return nil
}

// emitBlendControl writes BLEND and CONTROL, which together hold the
// blend factors and dithering.
func (b *Backend) emitBlendControl(t *state.Tracker, pb state.Pushbuf) error {
	bw, err := blendWord(t)
	if err != nil {
		return err
	}
	cw, err := controlWord(t)
	if err != nil {
		return err
	}
	pb.Begin(b.tri, dx5Blend, 2)
	pb.Word(bw)
	pb.Word(cw)
	return nil
}

func (b *Backend) emitRasterizer(t *state.Tracker, pb state.Pushbuf) error {
	r := t.Rasterizer()
	if r.LineWidth > fixed.I(1) || r.PointSize > fixed.I(1) {
		return unsupported("line width %v, point size %v", r.LineWidth, r.PointSize)
	}
	if err := b.emitBlendControl(t, pb); err != nil {
		return err
	}
	t.Invalidate(state.Scissor)
	return nil
}

// blendWord computes the BLEND register from the fragment program, vertex
// layout, rasterizer and blend state.
func blendWord(t *state.Tracker) (uint32, error) {
	fp := t.FragmentProgram()
	r := t.Rasterizer()

	w := uint32(blendTexModulate)
	if readsTexcoords(fp) {
		w = blendTexModulateAlpha
	}
	shade := uint32(shadeGouraud)
	if r.FlatShade {
		shade = shadeFlat
	}
	w |= shade << blendShadeShift
	if l := t.VertexLayout(); l != nil && slices.Contains(l.Interpolations(fp), program.Perspective) {
		w |= blendPerspective
	}
	if r.Specular {
		w |= blendSpecular
	}
	if r.Fog {
		w |= blendFog
	}

	bs := t.Blend().State
	if bs == nil {
		return w | factorOne<<blendSrcShift | factorZero<<blendDstShift, nil
	}
	if op := bs.Color.Operation; op != gputypes.BlendOperationUndefined && op != gputypes.BlendOperationAdd {
		return 0, unsupported("blend operation %v", op)
	}
	src, err := blendFactor(bs.Color.SrcFactor)
	if err != nil {
		return 0, err
	}
	dst, err := blendFactor(bs.Color.DstFactor)
	if err != nil {
		return 0, err
	}
	return w | blendEnable | src<<blendSrcShift | dst<<blendDstShift, nil
}

func readsTexcoords(fp *program.Program) bool {
	if fp == nil {
		return false
	}
	for _, in := range fp.Inputs {
		if in.Semantic.Kind == program.Generic {
			return true
		}
	}
	return false
}

func blendFactor(f gputypes.BlendFactor) (uint32, error) {
	switch f {
	case gputypes.BlendFactorZero:
		return factorZero, nil
	case gputypes.BlendFactorOne, gputypes.BlendFactorUndefined:
		return factorOne, nil
	case gputypes.BlendFactorSrc:
		return factorSrcColor, nil
	case gputypes.BlendFactorOneMinusSrc:
		return factorInvSrcColor, nil
	case gputypes.BlendFactorSrcAlpha:
		return factorSrcAlpha, nil
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return factorInvSrcAlpha, nil
	case gputypes.BlendFactorDst:
		return factorDstColor, nil
	case gputypes.BlendFactorOneMinusDst:
		return factorInvDstColor, nil
	case gputypes.BlendFactorDstAlpha:
		return factorDstAlpha, nil
	case gputypes.BlendFactorOneMinusDstAlpha:
		return factorInvDstAlpha, nil
	case gputypes.BlendFactorSrcAlphaSaturated:
		return factorSrcAlphaSat, nil
	}
	return 0, unsupported("blend factor %v", f)
}

// controlWord computes the CONTROL register from the depth/stencil,
// rasterizer, blend and framebuffer state.
func controlWord(t *state.Tracker) (uint32, error) {
	d := t.DepthStencil()
	if stencilUsed(&d.State) {
		return 0, unsupported("stencil test")
	}

	w := uint32(controlOrigin | controlZFixed)
	if d.AlphaTest {
		w |= controlAlphaEnable | alphaRef(d.AlphaRef) | compare(d.AlphaCompare)<<controlAlphaShift
	} else {
		w |= compareAlways << controlAlphaShift
	}
	if fb := t.Framebuffer(); fb != nil && fb.Depth != nil && d.DepthEnabled() {
		w |= controlZEnable
	}
	w |= compare(d.State.DepthCompare) << controlZFuncShift
	if d.State.DepthWriteEnabled {
		w |= controlZWrite
	}
	w |= cullMode(t.Rasterizer().Primitive) << controlCullShift
	if t.Blend().Dither {
		w |= controlDither
	}
	return w, nil
}

func stencilUsed(s *gputypes.DepthStencilState) bool {
	for _, f := range [...]gputypes.StencilFaceState{s.StencilFront, s.StencilBack} {
		if f.Compare != gputypes.CompareFunctionUndefined && f.Compare != gputypes.CompareFunctionAlways {
			return true
		}
	}
	return false
}

// compare maps a compare function to the hardware encoding, which uses the
// same numbering.
func compare(f gputypes.CompareFunction) uint32 {
	if f == gputypes.CompareFunctionUndefined {
		return compareAlways
	}
	return uint32(f)
}

func alphaRef(ref float32) uint32 {
	switch {
	case ref <= 0:
		return 0
	case ref >= 1:
		return 0xff
	}
	return uint32(ref*255 + 0.5)
}

// cullMode returns which winding the hardware discards.
func cullMode(p gputypes.PrimitiveState) uint32 {
	switch p.CullMode {
	case gputypes.CullModeBack:
		if p.FrontFace == gputypes.FrontFaceCW {
			return cullCCW
		}
		return cullCW
	case gputypes.CullModeFront:
		if p.FrontFace == gputypes.FrontFaceCW {
			return cullCW
		}
		return cullCCW
	}
	return cullNone
}

func surfaceFormat(f gputypes.TextureFormat) (uint32, error) {
	switch f {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return surfColorA8R8G8B8, nil
	}
	return 0, unsupported("render target format %v", f)
}

func depthFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth16Unorm, gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8:
		return true
	}
	return false
}

func textureFormat(tex *state.Texture, s *state.Sampler) (uint32, error) {
	var color uint32
	switch tex.Format {
	case gputypes.TextureFormatR8Unorm:
		color = texColorY8
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		color = texColorA8R8G8B8
	default:
		return 0, unsupported("texture format %v", tex.Format)
	}
	if !pow2(tex.Width) || !pow2(tex.Height) || tex.Width > 2048 || tex.Height > 2048 {
		return 0, unsupported("texture size %dx%d", tex.Width, tex.Height)
	}
	levels := max(tex.Levels, 1)
	if levels > 12 {
		return 0, unsupported("%d mipmap levels", tex.Levels)
	}
	au, err := addressMode(s.AddressModeU)
	if err != nil {
		return 0, err
	}
	av, err := addressMode(s.AddressModeV)
	if err != nil {
		return 0, err
	}
	return formatOriginZOH | formatOriginFOH |
		color<<formatColorShift |
		uint32(levels)<<formatLevelShift |
		uint32(bits.TrailingZeros32(tex.Width))<<formatUShift |
		uint32(bits.TrailingZeros32(tex.Height))<<formatVShift |
		au<<formatAddrUShift |
		av<<formatAddrVShift, nil
}

func pow2(x uint32) bool { return x != 0 && x&(x-1) == 0 }

func addressMode(m gputypes.AddressMode) (uint32, error) {
	switch m {
	case gputypes.AddressModeClampToEdge, gputypes.AddressModeUndefined:
		return addrClamp, nil
	case gputypes.AddressModeRepeat:
		return addrWrap, nil
	case gputypes.AddressModeMirrorRepeat:
		return addrMirror, nil
	}
	return 0, unsupported("address mode %v", m)
}

func filterWord(s *state.Sampler, levels int) uint32 {
	mag := uint32(filterNearest)
	if s.MagFilter == gputypes.FilterModeLinear {
		mag = filterLinear
	}
	linear := s.MinFilter == gputypes.FilterModeLinear
	var minify uint32
	switch {
	case levels <= 1 || s.MipmapFilter == gputypes.MipmapFilterModeUndefined:
		minify = filterNearest
		if linear {
			minify = filterLinear
		}
	case s.MipmapFilter == gputypes.MipmapFilterModeLinear:
		minify = filterNearestMipmapLinear
		if linear {
			minify = filterLinearMipmapLinear
		}
	default:
		minify = filterNearestMipmapNearest
		if linear {
			minify = filterLinearMipmapNearest
		}
	}
	return minify<<filterMinifyShift | mag<<filterMagnifyShift
}
