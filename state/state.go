// Package state tracks render state that has changed since it was last
// written to the hardware.
//
// A [Tracker] holds the current state object of every category and a
// dirty flag per category. Binding an object replaces the slot and sets
// the flag; [Tracker.EmitPending] runs the backend's emitter for every
// dirty category, in a fixed priority order, right before a draw.
//
// Emitters are pure translators from state objects to method writes. They
// never decide whether they need to run.
package state

import (
	"errors"
	"fmt"
)

// State errors.
var (
	// ErrFramebufferMismatch is returned when bound render targets disagree
	// on width or height.
	ErrFramebufferMismatch = errors.New("state: framebuffer targets differ in size")

	// ErrUnsupportedState is returned by emitters for state the hardware
	// cannot express.
	ErrUnsupportedState = errors.New("state: unsupported state")

	// ErrNoEmitter is returned when a dirty category has no emitter.
	ErrNoEmitter = errors.New("state: no emitter for category")
)

// Category is a group of state emitted together.
type Category uint8

// Categories in emission order. Programs come first since later emitters
// read them.
const (
	VertexProgram Category = iota
	FragmentProgram
	Samplers
	Textures
	Framebuffer
	VertexLayout
	Rasterizer
	Blend
	DepthStencil
	Viewport
	Scissor
	BlendColor
	StencilRef

	// NumCategories is the number of categories.
	NumCategories
)

var categoryNames = [NumCategories]string{
	VertexProgram:   "vertex-program",
	FragmentProgram: "fragment-program",
	Samplers:        "samplers",
	Textures:        "textures",
	Framebuffer:     "framebuffer",
	VertexLayout:    "vertex-layout",
	Rasterizer:      "rasterizer",
	Blend:           "blend",
	DepthStencil:    "depth-stencil",
	Viewport:        "viewport",
	Scissor:         "scissor",
	BlendColor:      "blend-color",
	StencilRef:      "stencil-ref",
}

// String returns the category name.
func (c Category) String() string {
	if c < NumCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// Mask is a set of categories.
type Mask [NumCategories]bool

// AllCategories returns a mask with every category set.
func AllCategories() Mask {
	var m Mask
	for i := range m {
		m[i] = true
	}
	return m
}

// Has reports whether c is in the set.
func (m Mask) Has(c Category) bool { return c < NumCategories && m[c] }

// Set adds categories to the set.
func (m *Mask) Set(cs ...Category) {
	for _, c := range cs {
		m[c] = true
	}
}

// Clear removes categories from the set.
func (m *Mask) Clear(cs ...Category) {
	for _, c := range cs {
		m[c] = false
	}
}

// Any reports whether the set is non-empty.
func (m Mask) Any() bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}

// Categories returns the members of the set in emission order.
func (m Mask) Categories() []Category {
	var out []Category
	for c := Category(0); c < NumCategories; c++ {
		if m[c] {
			out = append(out, c)
		}
	}
	return out
}

// String returns the members joined by ','.
func (m Mask) String() string {
	s := ""
	for _, c := range m.Categories() {
		if s != "" {
			s += ","
		}
		s += c.String()
	}
	if s == "" {
		return "{}"
	}
	return "{" + s + "}"
}
