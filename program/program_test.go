package program

import (
	"errors"
	"testing"

	"github.com/gogpu/naga/ir"
)

const fragmentSource = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) uv: vec2<f32>,
    @location(2) fog: f32,
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return in.color;
}
`

const vertexSource = `
@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 0.0, 1.0);
}
`

func TestCompileFragment(t *testing.T) {
	p, err := Compile(fragmentSource, StageFragment)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if p.Entry != "fs_main" {
		t.Errorf("Entry = %q, want fs_main", p.Entry)
	}
	if len(p.Code) == 0 {
		t.Error("Code is empty")
	}

	want := []Semantic{
		{Kind: Position},
		{Kind: Color, Index: 0},
		{Kind: Generic, Index: 1},
		{Kind: Fog},
	}
	if len(p.Inputs) != len(want) {
		t.Fatalf("Inputs = %v, want %d inputs", p.Inputs, len(want))
	}
	for i, w := range want {
		if p.Inputs[i].Semantic != w {
			t.Errorf("Inputs[%d].Semantic = %v, want %v", i, p.Inputs[i].Semantic, w)
		}
	}
}

func TestCompileStageMismatch(t *testing.T) {
	if _, err := Compile(vertexSource, StageFragment); !errors.Is(err, ErrNoEntryPoint) {
		t.Errorf("Compile() error = %v, want ErrNoEntryPoint", err)
	}
	p, err := Compile(vertexSource, StageVertex)
	if err != nil {
		t.Fatalf("Compile(vertex) error = %v", err)
	}
	if len(p.Inputs) != 1 || p.Inputs[0].Semantic != (Semantic{Kind: Generic}) {
		t.Errorf("Inputs = %v, want [GENERIC[0]]", p.Inputs)
	}
}

func TestCompileSyntaxError(t *testing.T) {
	if _, err := Compile("fn (", StageVertex); err == nil {
		t.Error("Compile() error = nil for invalid source")
	}
}

func bindingPtr(b ir.Binding) *ir.Binding { return &b }

func TestCollectInputs(t *testing.T) {
	module := &ir.Module{
		Types: []ir.Type{
			{Name: "f32"},
			{Name: "In", Inner: ir.StructType{Members: []ir.StructMember{
				{Name: "diffuse_color", Binding: bindingPtr(ir.LocationBinding{Location: 3})},
				{Name: "specularColour", Binding: bindingPtr(ir.LocationBinding{Location: 4})},
				{Name: "padding"},
			}}},
		},
	}
	fn := &ir.Function{Arguments: []ir.FunctionArgument{
		{Name: "pos", Binding: bindingPtr(ir.BuiltinBinding{Builtin: ir.BuiltinPosition})},
		{Name: "in", Type: 1},
		{Name: "tex", Binding: bindingPtr(ir.LocationBinding{Location: 7})},
	}}

	got := collectInputs(module, fn)
	want := []Input{
		{Name: "pos", Semantic: Semantic{Kind: Position}, Location: -1},
		{Name: "diffuse_color", Semantic: Semantic{Kind: Color, Index: 0}, Location: 3},
		{Name: "specularColour", Semantic: Semantic{Kind: Color, Index: 1}, Location: 4},
		{Name: "tex", Semantic: Semantic{Kind: Generic, Index: 7}, Location: 7},
	}
	if len(got) != len(want) {
		t.Fatalf("collectInputs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("input %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestInterpolation(t *testing.T) {
	tests := []struct {
		s    Semantic
		want Interpolation
	}{
		{Semantic{Kind: Position}, Linear},
		{Semantic{Kind: Color, Index: 1}, Linear},
		{Semantic{Kind: Generic, Index: 0}, Perspective},
		{Semantic{Kind: Fog}, Perspective},
	}
	for _, tt := range tests {
		if got := tt.s.Interpolation(); got != tt.want {
			t.Errorf("%v.Interpolation() = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestSemanticAt(t *testing.T) {
	p := New(StageFragment, nil, []Input{{Semantic: Semantic{Kind: Color}, Location: 0}})
	if got := p.SemanticAt(0); got.Kind != Color {
		t.Errorf("SemanticAt(0) = %v, want COLOR[0]", got)
	}
	if got := p.SemanticAt(5); got != (Semantic{Kind: Generic, Index: 5}) {
		t.Errorf("SemanticAt(5) = %v, want GENERIC[5]", got)
	}
	var nilProg *Program
	if got := nilProg.SemanticAt(2); got != (Semantic{Kind: Generic, Index: 2}) {
		t.Errorf("nil SemanticAt(2) = %v, want GENERIC[2]", got)
	}
}
