// Package bo describes buffer objects as seen by the command-submission
// core: opaque GPU-addressable allocations whose pool and bus address are
// only looked up when a channel is fired.
//
// The core never allocates or maps memory itself. A [Manager] answers
// residency queries; [Table] is a simple in-memory Manager used by the
// demo tool and by tests.
package bo

import "fmt"

// Pool identifies the memory pool currently backing a buffer.
type Pool uint8

const (
	// PoolNone means the buffer is not resident anywhere.
	PoolNone Pool = iota

	// PoolVRAM is device-local video memory.
	PoolVRAM

	// PoolGART is host-visible memory reached through the GART/AGP aperture.
	PoolGART
)

// String returns the pool name.
func (p Pool) String() string {
	switch p {
	case PoolNone:
		return "none"
	case PoolVRAM:
		return "vram"
	case PoolGART:
		return "gart"
	default:
		return fmt.Sprintf("Pool(%d)", uint8(p))
	}
}

// Placement is the residency of a buffer at a point in time.
type Placement struct {
	Pool Pool
	Addr uint64
}

// Resident reports whether the placement names a pool.
func (p Placement) Resident() bool { return p.Pool != PoolNone }

// String returns a human-readable placement.
func (p Placement) String() string {
	if !p.Resident() {
		return "not resident"
	}
	return fmt.Sprintf("%s@0x%x", p.Pool, p.Addr)
}

// Buffer is an opaque reference to a GPU allocation.
type Buffer interface {
	// Size returns the allocation size in bytes.
	Size() uint64
}

// Manager reports where buffers currently live.
//
// Placement is consulted only while relocations are resolved. A buffer the
// manager does not know returns a non-resident placement.
type Manager interface {
	Placement(buf Buffer) Placement
}

// ManagerFunc adapts a function to the Manager interface.
type ManagerFunc func(buf Buffer) Placement

// Placement calls f(buf).
func (f ManagerFunc) Placement(buf Buffer) Placement { return f(buf) }
