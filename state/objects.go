package state

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/pushbuf/bo"
	"github.com/gogpu/pushbuf/program"
)

// MaxTextureUnits is the number of sampler and texture slots.
const MaxTextureUnits = 8

// BlendState is color blending and write masking for the render target.
type BlendState struct {
	// State is nil when blending is disabled.
	State *gputypes.BlendState

	WriteMask gputypes.ColorWriteMask
	Dither    bool
}

// RasterizerState is primitive assembly and shading state.
type RasterizerState struct {
	Primitive gputypes.PrimitiveState

	// FlatShade uses the provoking vertex color for the whole primitive.
	FlatShade bool

	// Specular enables the specular color add.
	Specular bool

	// Fog enables per-vertex fog.
	Fog bool

	// ScissorEnable restricts rendering to the Scissor rectangle.
	ScissorEnable bool

	LineWidth fixed.Int26_6
	PointSize fixed.Int26_6
}

// DepthStencilState is depth, stencil and alpha test state.
type DepthStencilState struct {
	State gputypes.DepthStencilState

	// AlphaTest discards fragments failing AlphaCompare against AlphaRef.
	AlphaTest    bool
	AlphaCompare gputypes.CompareFunction
	AlphaRef     float32
}

// DepthEnabled reports whether depth testing or writing is on.
func (d *DepthStencilState) DepthEnabled() bool {
	s := &d.State
	return s.DepthWriteEnabled || (s.DepthCompare != gputypes.CompareFunctionUndefined && s.DepthCompare != gputypes.CompareFunctionAlways)
}

// Sampler is texture filtering and addressing state.
type Sampler = gputypes.SamplerDescriptor

// Texture is a texture image in a buffer.
type Texture struct {
	Buf    bo.Buffer
	Offset uint32
	Format gputypes.TextureFormat
	Width  uint32
	Height uint32
	Levels int
}

// Surface is a render target in a buffer.
type Surface struct {
	Buf    bo.Buffer
	Offset uint32
	Pitch  uint32
	Format gputypes.TextureFormat
	Width  uint32
	Height uint32
}

// FramebufferState is the set of bound render targets.
type FramebufferState struct {
	Color []Surface
	Depth *Surface
}

// Size returns the common size of all bound targets.
func (fb *FramebufferState) Size() (width, height uint32, err error) {
	first := true
	check := func(kind string, i int, s *Surface) error {
		if first {
			width, height, first = s.Width, s.Height, false
			return nil
		}
		if s.Width != width || s.Height != height {
			return fmt.Errorf("%w: %s %d is %dx%d, want %dx%d",
				ErrFramebufferMismatch, kind, i, s.Width, s.Height, width, height)
		}
		return nil
	}
	for i := range fb.Color {
		if err := check("color", i, &fb.Color[i]); err != nil {
			return 0, 0, err
		}
	}
	if fb.Depth != nil {
		if err := check("depth", 0, fb.Depth); err != nil {
			return 0, 0, err
		}
	}
	return width, height, nil
}

// VertexLayoutState describes the interleaved vertex buffer.
type VertexLayoutState struct {
	Layout gputypes.VertexBufferLayout

	// PositionLocation is the shader location of the position attribute.
	PositionLocation uint32
}

// Semantics resolves the semantic each attribute feeds in the fragment
// program fp. Attributes fp does not read are generic.
func (l *VertexLayoutState) Semantics(fp *program.Program) []program.Semantic {
	out := make([]program.Semantic, len(l.Layout.Attributes))
	for i, a := range l.Layout.Attributes {
		if a.ShaderLocation == l.PositionLocation {
			out[i] = program.Semantic{Kind: program.Position}
			continue
		}
		out[i] = fp.SemanticAt(int(a.ShaderLocation))
	}
	return out
}

// Interpolations returns the interpolation mode of every attribute.
func (l *VertexLayoutState) Interpolations(fp *program.Program) []program.Interpolation {
	sems := l.Semantics(fp)
	out := make([]program.Interpolation, len(sems))
	for i, s := range sems {
		out[i] = s.Interpolation()
	}
	return out
}

// ViewportState maps normalized device coordinates to window coordinates:
// window = ndc*Scale + Translate.
type ViewportState struct {
	Scale     f32.Vec4
	Translate f32.Vec4
}

// NewViewport returns the viewport covering the rectangle (x, y, w, h)
// with depth range [near, far]. Window y grows downwards.
func NewViewport(x, y, w, h, near, far float32) *ViewportState {
	return &ViewportState{
		Scale:     f32.Vec4{w / 2, -h / 2, far - near, 1},
		Translate: f32.Vec4{x + w/2, y + h/2, near, 0},
	}
}

// Apply maps an NDC position to window coordinates.
func (v *ViewportState) Apply(p f32.Vec4) f32.Vec4 {
	return f32.Vec4{
		p[0]*v.Scale[0] + v.Translate[0],
		p[1]*v.Scale[1] + v.Translate[1],
		p[2]*v.Scale[2] + v.Translate[2],
		p[3],
	}
}

// ScissorState is the scissor rectangle in pixels.
type ScissorState struct {
	X, Y          uint32
	Width, Height uint32
}

var (
	defaultBlend        = BlendState{WriteMask: gputypes.ColorWriteMaskAll}
	defaultRasterizer   = RasterizerState{LineWidth: fixed.I(1), PointSize: fixed.I(1)}
	defaultDepthStencil = DepthStencilState{State: gputypes.DepthStencilState{DepthCompare: gputypes.CompareFunctionAlways}}
	defaultSampler      = Sampler{
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.MipmapFilterModeNearest,
		LodMaxClamp:  32,
	}
	defaultViewport = ViewportState{Scale: f32.Vec4{1, 1, 1, 1}}
)
