package bo

import (
	"errors"
	"fmt"
	"sync"
)

// Table errors.
var (
	// ErrPoolFull is returned when no allowed pool has room for an allocation.
	ErrPoolFull = errors.New("bo: no pool has room for allocation")

	// ErrUnknownBuffer is returned for buffers not created by the table.
	ErrUnknownBuffer = errors.New("bo: buffer not managed by table")

	// ErrInvalidSize is returned for zero-sized allocations.
	ErrInvalidSize = errors.New("bo: invalid allocation size")
)

// Default table layout.
const (
	// DefaultVRAMSize is the default device-local aperture (16 MB).
	DefaultVRAMSize = 16 << 20

	// DefaultGARTSize is the default host-visible aperture (32 MB).
	DefaultGARTSize = 32 << 20

	// DefaultGARTBase is where the GART aperture starts in bus address space.
	DefaultGARTBase = 0x1000_0000

	// Alignment of every allocation in bytes.
	Alignment = 256
)

// Domain is a set of pools an allocation may be placed in.
type Domain uint8

const (
	// DomainVRAM allows device-local placement.
	DomainVRAM Domain = 1 << iota

	// DomainGART allows host-visible placement.
	DomainGART

	// DomainAny allows either pool, VRAM preferred.
	DomainAny = DomainVRAM | DomainGART
)

// Object is a buffer allocated by a Table.
type Object struct {
	id    uint64
	size  uint64
	label string
}

// Size returns the allocation size in bytes.
func (o *Object) Size() uint64 { return o.size }

// Label returns the debug label given at allocation.
func (o *Object) Label() string { return o.label }

// String returns a short description for logs.
func (o *Object) String() string {
	if o.label != "" {
		return fmt.Sprintf("bo#%d(%s)", o.id, o.label)
	}
	return fmt.Sprintf("bo#%d", o.id)
}

// TableStats contains residency statistics.
type TableStats struct {
	VRAMUsed, VRAMSize uint64
	GARTUsed, GARTSize uint64
	Objects            int
	Evictions          uint64
}

// String returns a human-readable string of table stats.
func (s TableStats) String() string {
	return fmt.Sprintf("BO[vram %d/%d KB, gart %d/%d KB, %d objects, %d evictions]",
		s.VRAMUsed/1024, s.VRAMSize/1024,
		s.GARTUsed/1024, s.GARTSize/1024,
		s.Objects, s.Evictions)
}

type region struct {
	base uint64
	size uint64
	next uint64 // bump pointer, relative to base
	used uint64
}

func (r *region) alloc(size uint64) (uint64, bool) {
	if r.next+size > r.size {
		return 0, false
	}
	addr := r.base + r.next
	r.next += size
	r.used += size
	return addr, true
}

type tableEntry struct {
	obj       *Object
	placement Placement
	size      uint64 // aligned size
	charged   bool   // size is accounted in the placement's pool
}

// Table is an in-memory Manager with a bump allocator per pool.
//
// It models residency only: objects can be moved between pools or evicted
// to exercise relocation resolution. Freed space is reclaimed only when the
// table is reset.
//
// Table is safe for concurrent use.
type Table struct {
	mu sync.RWMutex

	vram region
	gart region

	entries map[*Object]*tableEntry
	nextID  uint64

	evictions uint64
}

// TableConfig holds the layout for NewTable.
type TableConfig struct {
	// VRAMBase is the bus address of the device-local aperture.
	VRAMBase uint64

	// VRAMSize defaults to DefaultVRAMSize if zero.
	VRAMSize uint64

	// GARTBase defaults to DefaultGARTBase if zero.
	GARTBase uint64

	// GARTSize defaults to DefaultGARTSize if zero.
	GARTSize uint64
}

// NewTable creates an empty residency table.
func NewTable(config TableConfig) *Table {
	if config.VRAMSize == 0 {
		config.VRAMSize = DefaultVRAMSize
	}
	if config.GARTSize == 0 {
		config.GARTSize = DefaultGARTSize
	}
	if config.GARTBase == 0 {
		config.GARTBase = DefaultGARTBase
	}
	return &Table{
		vram:    region{base: config.VRAMBase, size: config.VRAMSize},
		gart:    region{base: config.GARTBase, size: config.GARTSize},
		entries: make(map[*Object]*tableEntry),
	}
}

func alignUp(n uint64) uint64 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Alloc places a new buffer in the first pool of domain with room,
// trying VRAM before GART.
func (t *Table) Alloc(size uint64, domain Domain, label string) (*Object, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}
	aligned := alignUp(size)

	t.mu.Lock()
	defer t.mu.Unlock()

	placement, ok := t.placeLocked(aligned, domain)
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes in domain %#x", ErrPoolFull, size, uint8(domain))
	}

	t.nextID++
	obj := &Object{id: t.nextID, size: size, label: label}
	t.entries[obj] = &tableEntry{obj: obj, placement: placement, size: aligned, charged: true}
	return obj, nil
}

func (t *Table) placeLocked(size uint64, domain Domain) (Placement, bool) {
	if domain&DomainVRAM != 0 {
		if addr, ok := t.vram.alloc(size); ok {
			return Placement{Pool: PoolVRAM, Addr: addr}, true
		}
	}
	if domain&DomainGART != 0 {
		if addr, ok := t.gart.alloc(size); ok {
			return Placement{Pool: PoolGART, Addr: addr}, true
		}
	}
	return Placement{}, false
}

func (t *Table) releaseLocked(e *tableEntry) {
	if !e.charged {
		e.placement = Placement{}
		return
	}
	e.charged = false
	switch e.placement.Pool {
	case PoolVRAM:
		t.vram.used -= e.size
	case PoolGART:
		t.gart.used -= e.size
	}
	e.placement = Placement{}
}

// Free forgets a buffer. Subsequent lookups report it as not resident.
func (t *Table) Free(obj *Object) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[obj]
	if !ok {
		return ErrUnknownBuffer
	}
	t.releaseLocked(e)
	delete(t.entries, obj)
	return nil
}

// Evict drops a buffer's residency without forgetting it.
func (t *Table) Evict(obj *Object) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[obj]
	if !ok {
		return ErrUnknownBuffer
	}
	if e.placement.Resident() {
		t.releaseLocked(e)
		t.evictions++
	}
	return nil
}

// Move re-places a buffer into domain, e.g. after an eviction or to
// migrate it between pools.
func (t *Table) Move(obj *Object, domain Domain) (Placement, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[obj]
	if !ok {
		return Placement{}, ErrUnknownBuffer
	}
	placement, ok := t.placeLocked(e.size, domain)
	if !ok {
		return Placement{}, fmt.Errorf("%w: moving %s", ErrPoolFull, obj)
	}
	t.releaseLocked(e)
	e.placement = placement
	e.charged = true
	return placement, nil
}

// Pin places a buffer at a fixed address, bypassing the allocator.
// Used to describe scanout surfaces or buffers owned by another manager.
func (t *Table) Pin(obj *Object, placement Placement) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[obj]
	if !ok {
		return ErrUnknownBuffer
	}
	t.releaseLocked(e)
	e.placement = placement
	return nil
}

// Placement implements Manager.
func (t *Table) Placement(buf Buffer) Placement {
	obj, ok := buf.(*Object)
	if !ok {
		return Placement{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.entries[obj]; ok {
		return e.placement
	}
	return Placement{}
}

// Stats returns current residency statistics.
func (t *Table) Stats() TableStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TableStats{
		VRAMUsed:  t.vram.used,
		VRAMSize:  t.vram.size,
		GARTUsed:  t.gart.used,
		GARTSize:  t.gart.size,
		Objects:   len(t.entries),
		Evictions: t.evictions,
	}
}
