package state

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/bo"
	"github.com/gogpu/pushbuf/program"
	"github.com/gogpu/pushbuf/reloc"
)

// Pushbuf is the command stream emitters write to. It is implemented by
// *pushbuf.Channel.
type Pushbuf interface {
	Begin(obj pushbuf.Object, method uint32, count int)
	BeginNI(obj pushbuf.Object, method uint32, count int)
	Word(w uint32)
	Float(f float32)
	Block(ws []uint32)
	Reloc(buf bo.Buffer, data uint32, flags reloc.Flags, vor, tor uint32)
	RelocObject(buf bo.Buffer, flags reloc.Flags)
	RelocLow(buf bo.Buffer, delta uint32, flags reloc.Flags)
	RelocHigh(buf bo.Buffer, delta uint32, flags reloc.Flags)
	RelocData(buf bo.Buffer, data uint32, flags reloc.Flags)
	Mark(words, relocs int)
	Remaining() int
}

var _ Pushbuf = (*pushbuf.Channel)(nil)

// Emitter writes the hardware form of one category's current state.
type Emitter func(t *Tracker, pb Pushbuf) error

// Emitters is a backend's emitter table.
type Emitters map[Category]Emitter

// Ignore is the emitter for categories a backend has no registers for.
func Ignore(*Tracker, Pushbuf) error { return nil }

// maxPasses bounds how often EmitPending revisits categories that a flush
// during emission made dirty again.
const maxPasses = 2

// Tracker holds the bound state of one rendering context and which
// categories still need to be written to the hardware.
//
// State objects are referenced, not copied: bind a new object instead of
// modifying a bound one.
//
// Tracker is NOT safe for concurrent use.
type Tracker struct {
	dirty    Mask
	emitters Emitters

	vp, fp     *program.Program
	samplers   [MaxTextureUnits]*Sampler
	textures   [MaxTextureUnits]*Texture
	fb         *FramebufferState
	layout     *VertexLayoutState
	rasterizer *RasterizerState
	blend      *BlendState
	dsa        *DepthStencilState
	viewport   *ViewportState
	scissor    *ScissorState
	blendColor gputypes.Color
	stencilRef uint32

	emitRuns [NumCategories]uint64
}

// NewTracker creates a tracker using the given emitter table. Every
// category starts dirty so the first draw writes complete state.
func NewTracker(emitters Emitters) *Tracker {
	return &Tracker{
		dirty:    AllCategories(),
		emitters: emitters,
	}
}

// Dirty reports whether c needs emitting.
func (t *Tracker) Dirty(c Category) bool { return t.dirty.Has(c) }

// DirtyMask returns the set of categories that need emitting.
func (t *Tracker) DirtyMask() Mask { return t.dirty }

// Invalidate marks categories dirty without changing their state, e.g.
// after a submission when buffer-backed state has to be revalidated.
func (t *Tracker) Invalidate(cs ...Category) { t.dirty.Set(cs...) }

// InvalidateAll marks every category dirty.
func (t *Tracker) InvalidateAll() { t.dirty = AllCategories() }

// EmitCount returns how many times the emitter of c has run successfully.
func (t *Tracker) EmitCount(c Category) uint64 { return t.emitRuns[c] }

// EmitPending runs the emitter of every dirty category in priority order,
// clearing each flag after its emitter succeeds.
//
// On error the failing category stays dirty and the error is returned;
// categories after it are not emitted. With nothing dirty it writes
// nothing.
func (t *Tracker) EmitPending(pb Pushbuf) error {
	for pass := 0; pass < maxPasses && t.dirty.Any(); pass++ {
		for c := Category(0); c < NumCategories; c++ {
			if !t.dirty[c] {
				continue
			}
			emit, ok := t.emitters[c]
			if !ok || emit == nil {
				return fmt.Errorf("%w: %s", ErrNoEmitter, c)
			}
			if err := emit(t, pb); err != nil {
				return fmt.Errorf("state: emit %s: %w", c, err)
			}
			t.dirty[c] = false
			t.emitRuns[c]++
		}
	}
	if t.dirty.Any() {
		pushbuf.Logger().Debug("state: categories dirtied again during emission", "dirty", t.dirty)
	}
	return nil
}

// BindVertexProgram replaces the vertex program.
func (t *Tracker) BindVertexProgram(p *program.Program) {
	t.vp = p
	t.dirty.Set(VertexProgram)
}

// BindFragmentProgram replaces the fragment program. The vertex layout
// depends on it and is marked dirty too.
func (t *Tracker) BindFragmentProgram(p *program.Program) {
	t.fp = p
	t.dirty.Set(FragmentProgram, VertexLayout)
}

// BindSampler replaces the sampler of a texture unit.
func (t *Tracker) BindSampler(unit int, s *Sampler) {
	t.samplers[unit] = s
	t.dirty.Set(Samplers)
}

// BindTexture replaces the texture of a texture unit.
func (t *Tracker) BindTexture(unit int, tex *Texture) {
	t.textures[unit] = tex
	t.dirty.Set(Textures)
}

// BindFramebuffer replaces the render targets.
func (t *Tracker) BindFramebuffer(fb *FramebufferState) {
	t.fb = fb
	t.dirty.Set(Framebuffer)
}

// BindVertexLayout replaces the vertex layout.
func (t *Tracker) BindVertexLayout(l *VertexLayoutState) {
	t.layout = l
	t.dirty.Set(VertexLayout)
}

// BindRasterizer replaces the rasterizer state.
func (t *Tracker) BindRasterizer(r *RasterizerState) {
	t.rasterizer = r
	t.dirty.Set(Rasterizer)
}

// BindBlend replaces the blend state.
func (t *Tracker) BindBlend(b *BlendState) {
	t.blend = b
	t.dirty.Set(Blend)
}

// BindDepthStencil replaces the depth, stencil and alpha test state.
func (t *Tracker) BindDepthStencil(d *DepthStencilState) {
	t.dsa = d
	t.dirty.Set(DepthStencil)
}

// SetViewport replaces the viewport.
func (t *Tracker) SetViewport(v *ViewportState) {
	t.viewport = v
	t.dirty.Set(Viewport)
}

// SetScissor replaces the scissor rectangle.
func (t *Tracker) SetScissor(s *ScissorState) {
	t.scissor = s
	t.dirty.Set(Scissor)
}

// SetBlendColor replaces the constant blend color.
func (t *Tracker) SetBlendColor(c gputypes.Color) {
	t.blendColor = c
	t.dirty.Set(BlendColor)
}

// SetStencilRef replaces the stencil reference value.
func (t *Tracker) SetStencilRef(ref uint32) {
	t.stencilRef = ref
	t.dirty.Set(StencilRef)
}

// VertexProgram returns the bound vertex program, or nil.
func (t *Tracker) VertexProgram() *program.Program { return t.vp }

// FragmentProgram returns the bound fragment program, or nil.
func (t *Tracker) FragmentProgram() *program.Program { return t.fp }

// Sampler returns the sampler of a unit, or the default sampler.
func (t *Tracker) Sampler(unit int) *Sampler {
	if s := t.samplers[unit]; s != nil {
		return s
	}
	return &defaultSampler
}

// Texture returns the texture of a unit, or nil.
func (t *Tracker) Texture(unit int) *Texture { return t.textures[unit] }

// Framebuffer returns the bound render targets, or nil.
func (t *Tracker) Framebuffer() *FramebufferState { return t.fb }

// VertexLayout returns the bound vertex layout, or nil.
func (t *Tracker) VertexLayout() *VertexLayoutState { return t.layout }

// Rasterizer returns the bound rasterizer state, or the default.
func (t *Tracker) Rasterizer() *RasterizerState {
	if t.rasterizer != nil {
		return t.rasterizer
	}
	return &defaultRasterizer
}

// Blend returns the bound blend state, or the default.
func (t *Tracker) Blend() *BlendState {
	if t.blend != nil {
		return t.blend
	}
	return &defaultBlend
}

// DepthStencil returns the bound depth/stencil state, or the default.
func (t *Tracker) DepthStencil() *DepthStencilState {
	if t.dsa != nil {
		return t.dsa
	}
	return &defaultDepthStencil
}

// Viewport returns the viewport, or the identity viewport.
func (t *Tracker) Viewport() *ViewportState {
	if t.viewport != nil {
		return t.viewport
	}
	return &defaultViewport
}

// Scissor returns the scissor rectangle, or nil when unset.
func (t *Tracker) Scissor() *ScissorState { return t.scissor }

// BlendColor returns the constant blend color.
func (t *Tracker) BlendColor() gputypes.Color { return t.blendColor }

// StencilRef returns the stencil reference value.
func (t *Tracker) StencilRef() uint32 { return t.stencilRef }
