package hw

import (
	"errors"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/prim"
	"github.com/gogpu/pushbuf/state"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered.
	ErrBackendNotAvailable = errors.New("hw: backend not available")

	// ErrNotInitialized is returned when a backend is used before Init.
	ErrNotInitialized = errors.New("hw: backend not initialized")
)

// Backend is one hardware generation.
//
// Backends must be registered via Register and are selected via Open.
type Backend interface {
	// Name returns the backend identifier (e.g., "nv04").
	Name() string

	// Info describes the chip the backend drives.
	Info() gpucontext.AdapterInfo

	// Init binds the backend's objects on ch and writes their one-time
	// setup. It is called once per channel.
	Init(ch *pushbuf.Channel) error

	// Emitters returns the state emitter table.
	Emitters() state.Emitters

	// Hardware describes the vertex-slot draw engine. Valid after Init.
	Hardware() prim.Hardware

	// Relocated returns the categories whose emission records
	// relocations. They are emitted again after every flush.
	Relocated() []state.Category
}

// ViewportSource is a vertex source that applies the viewport while
// producing hardware vertices.
type ViewportSource interface {
	prim.VertexSource
	SetViewport(v *state.ViewportState)
}
