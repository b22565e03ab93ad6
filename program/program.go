// Package program turns shader source into the opaque program objects the
// state emitters bind: a compiled blob plus the ordered list of inputs the
// shader reads, each tagged with a semantic.
//
// Compilation goes through naga (WGSL to SPIR-V). Backends that cannot run
// the blob themselves still use the input semantics, e.g. to pick
// per-attribute interpolation.
package program

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// Program errors.
var (
	// ErrNoEntryPoint is returned when the source has no entry point for
	// the requested stage.
	ErrNoEntryPoint = errors.New("program: no entry point for stage")

	// ErrInvalid is returned when the shader fails IR validation.
	ErrInvalid = errors.New("program: shader failed validation")
)

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

func (s Stage) ir() ir.ShaderStage {
	if s == StageFragment {
		return ir.StageFragment
	}
	return ir.StageVertex
}

// SemanticKind classifies a shader input.
type SemanticKind uint8

const (
	Generic SemanticKind = iota
	Position
	Color
	Fog
)

// Semantic names what a shader input carries.
type Semantic struct {
	Kind  SemanticKind
	Index int
}

// String returns the semantic in the usual NAME[index] form.
func (s Semantic) String() string {
	switch s.Kind {
	case Position:
		return "POSITION"
	case Color:
		return fmt.Sprintf("COLOR[%d]", s.Index)
	case Fog:
		return "FOG"
	default:
		return fmt.Sprintf("GENERIC[%d]", s.Index)
	}
}

// Interpolation is how an attribute is interpolated across a primitive.
type Interpolation uint8

const (
	// Linear interpolates in screen space.
	Linear Interpolation = iota

	// Perspective interpolates with perspective correction.
	Perspective
)

// String returns the interpolation name.
func (i Interpolation) String() string {
	if i == Perspective {
		return "perspective"
	}
	return "linear"
}

// Interpolation returns the interpolation mode for an input of this
// semantic. Positions and colors are interpolated linearly; every other
// input is perspective-correct.
func (s Semantic) Interpolation() Interpolation {
	switch s.Kind {
	case Position, Color:
		return Linear
	default:
		return Perspective
	}
}

// Input is one shader input.
type Input struct {
	Name     string
	Semantic Semantic

	// Location is the @location index, or -1 for builtins.
	Location int
}

// Program is a compiled shader.
type Program struct {
	Stage Stage
	Entry string

	// Code is the compiled instruction blob.
	Code []byte

	// Inputs are in declaration order.
	Inputs []Input
}

// New wraps an already compiled blob.
func New(stage Stage, code []byte, inputs []Input) *Program {
	return &Program{Stage: stage, Code: code, Inputs: inputs}
}

// Input returns the input read from a location.
func (p *Program) Input(location int) (Input, bool) {
	if p == nil {
		return Input{}, false
	}
	for _, in := range p.Inputs {
		if in.Location == location {
			return in, true
		}
	}
	return Input{}, false
}

// SemanticAt returns the semantic of the input at location, or
// GENERIC[location] when the program does not read it.
func (p *Program) SemanticAt(location int) Semantic {
	if in, ok := p.Input(location); ok {
		return in.Semantic
	}
	return Semantic{Kind: Generic, Index: location}
}

// Compile compiles WGSL source and returns the first entry point of the
// given stage.
func Compile(source string, stage Stage) (*Program, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, verrs[0].Message)
	}

	var ep *ir.EntryPoint
	for i := range module.EntryPoints {
		if module.EntryPoints[i].Stage == stage.ir() {
			ep = &module.EntryPoints[i]
			break
		}
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, stage)
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}

	return &Program{
		Stage:  stage,
		Entry:  ep.Name,
		Code:   code,
		Inputs: collectInputs(module, &ep.Function),
	}, nil
}

// collectInputs walks entry point arguments, flattening struct arguments
// into their members.
func collectInputs(module *ir.Module, fn *ir.Function) []Input {
	var c inputCollector
	for _, arg := range fn.Arguments {
		if arg.Binding != nil {
			c.add(arg.Name, *arg.Binding)
			continue
		}
		if int(arg.Type) >= len(module.Types) {
			continue
		}
		st, ok := module.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			continue
		}
		for _, m := range st.Members {
			if m.Binding != nil {
				c.add(m.Name, *m.Binding)
			}
		}
	}
	return c.inputs
}

type inputCollector struct {
	inputs []Input
	colors int
}

func (c *inputCollector) add(name string, b ir.Binding) {
	switch b := b.(type) {
	case ir.BuiltinBinding:
		if b.Builtin == ir.BuiltinPosition {
			c.inputs = append(c.inputs, Input{Name: name, Semantic: Semantic{Kind: Position}, Location: -1})
		}
	case ir.LocationBinding:
		loc := int(b.Location)
		c.inputs = append(c.inputs, Input{Name: name, Semantic: c.classify(name, loc), Location: loc})
	}
}

func (c *inputCollector) classify(name string, location int) Semantic {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "color"), strings.Contains(lower, "colour"):
		s := Semantic{Kind: Color, Index: c.colors}
		c.colors++
		return s
	case strings.Contains(lower, "fog"):
		return Semantic{Kind: Fog}
	default:
		return Semantic{Kind: Generic, Index: location}
	}
}
