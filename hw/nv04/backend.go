package nv04

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/hw"
	"github.com/gogpu/pushbuf/prim"
	"github.com/gogpu/pushbuf/state"
)

// DefaultHandleBase is the handle of the first object a backend binds.
const DefaultHandleBase = 0x80000010

// numObjects is the number of objects Init binds.
const numObjects = 5

var errAlreadyInitialized = errors.New("nv04: backend already initialized")

func init() {
	hw.Register(hw.BackendNV04, func() hw.Backend { return NewNV04() })
	hw.Register(hw.BackendNV05, func() hw.Backend { return NewNV05() })
}

// Backend drives the fixed-function 3-D engine of NV04 class chips.
type Backend struct {
	name     string
	chip     string
	triClass uint32

	// HandleBase is the handle of the first bound object; the others
	// follow consecutively.
	HandleBase uint32

	// NotifyHandle, when non-zero, is set as the notifier DMA object of
	// every bound object.
	NotifyHandle uint32

	ch     *pushbuf.Channel
	tri    pushbuf.Object
	surf3d pushbuf.Object
	m2mf   pushbuf.Object
	surf2d pushbuf.Object
	rect   pushbuf.Object
}

// NewNV04 returns a backend for RIVA TNT chips.
func NewNV04() *Backend {
	return &Backend{
		name:       hw.BackendNV04,
		chip:       "RIVA TNT",
		triClass:   ClassDX5Triangle,
		HandleBase: DefaultHandleBase,
	}
}

// NewNV05 returns a backend for RIVA TNT2 chips.
func NewNV05() *Backend {
	return &Backend{
		name:       hw.BackendNV05,
		chip:       "RIVA TNT2",
		triClass:   ClassNV05DX5,
		HandleBase: DefaultHandleBase,
	}
}

// Name implements hw.Backend.
func (b *Backend) Name() string { return b.name }

// Info implements hw.Backend.
func (b *Backend) Info() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: b.chip, Type: gpucontext.AdapterTypeDiscrete}
}

// Init binds the 3-D, surface, copy and rectangle objects on ch and
// connects them to their surfaces.
func (b *Backend) Init(ch *pushbuf.Channel) error {
	if b.ch != nil {
		return errAlreadyInitialized
	}
	if free := 8 - len(ch.Objects()); free < numObjects {
		return fmt.Errorf("nv04: %d free subchannels, need %d", free, numObjects)
	}
	b.ch = ch

	h := b.HandleBase
	b.tri = ch.Bind(b.triClass, h)
	b.surf3d = ch.Bind(ClassSurfaces3D, h+1)
	b.m2mf = ch.Bind(ClassM2MF, h+2)
	b.surf2d = ch.Bind(ClassSurfaces2D, h+3)
	b.rect = ch.Bind(ClassGDIRect, h+4)

	if n := b.NotifyHandle; n != 0 {
		for _, obj := range []pushbuf.Object{b.tri, b.surf3d, b.m2mf, b.surf2d, b.rect} {
			ch.Begin(obj, dx5DMANotify, 1)
			ch.Word(n)
		}
	}

	vram, gart := ch.DMAHandles()
	ch.Mark(3+2+2*3, 0)
	ch.Begin(b.tri, dx5DMAA, 3)
	ch.Word(vram)
	ch.Word(gart)
	ch.Word(b.surf3d.Handle)
	ch.Begin(b.tri, dx5ColorKey, 1)
	ch.Word(0)
	ch.Begin(b.rect, rectSurface, 1)
	ch.Word(b.surf2d.Handle)
	ch.Begin(b.rect, rectOperation, 1)
	ch.Word(rectOpSrcCopy)
	ch.Begin(b.rect, rectMonoFormat, 1)
	ch.Word(rectMonoLE)

	pushbuf.Logger().Info("nv04: backend initialized", "backend", b.name, "chip", b.chip)
	return nil
}

// Hardware implements hw.Backend.
func (b *Backend) Hardware() prim.Hardware {
	return prim.Hardware{
		Object:     b.tri,
		Slots:      NumSlots,
		SlotMethod: TLVertex,
		DrawMethod: DrawPrimitive(0),
	}
}

// Relocated implements hw.Backend.
func (b *Backend) Relocated() []state.Category {
	return []state.Category{state.Framebuffer, state.Textures}
}

// Emitters implements hw.Backend.
func (b *Backend) Emitters() state.Emitters {
	return state.Emitters{
		state.VertexProgram:   emitVertexProgram,
		state.FragmentProgram: b.emitBlend,
		state.Samplers:        emitSamplers,
		state.Textures:        b.emitTextures,
		state.Framebuffer:     b.emitFramebuffer,
		state.VertexLayout:    b.emitBlend,
		state.Rasterizer:      b.emitRasterizer,
		state.Blend:           b.emitBlendControl,
		state.DepthStencil:    b.emitControl,
		state.Viewport:        state.Ignore,
		state.Scissor:         b.emitClip,
		state.BlendColor:      state.Ignore,
		state.StencilRef:      state.Ignore,
	}
}

func (b *Backend) initialized() error {
	if b.ch == nil {
		return hw.ErrNotInitialized
	}
	return nil
}
