// Package reloc implements deferred relocations: ring words whose final
// value depends on where a buffer lives when the ring is submitted.
//
// A relocation is recorded while the word is emitted, as a logical offset
// into the ring plus flags describing how to combine the buffer's bus
// address with the caller's data. [Resolve] patches every recorded word,
// in emission order, right before submission.
package reloc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/pushbuf/bo"
)

// Relocation errors.
var (
	// ErrNotResident is returned when a relocated buffer has no resident
	// pool at resolution time.
	ErrNotResident = errors.New("reloc: buffer not resident")

	// ErrPlacement is returned when a relocation's pool hints exclude the
	// pool currently backing its buffer.
	ErrPlacement = errors.New("reloc: buffer placed outside allowed pools")

	// ErrFlags is returned for contradictory flag combinations.
	ErrFlags = errors.New("reloc: invalid flag combination")

	// ErrListFull is returned when more relocations are recorded than the
	// list was created for.
	ErrListFull = errors.New("reloc: relocation list full")

	// ErrOffsetOrder is returned when a relocation does not target a ring
	// word after every previously recorded one.
	ErrOffsetOrder = errors.New("reloc: relocation offsets must increase")
)

// Flags select how a relocated word is computed.
//
// Low, High and Raw choose the base value and are mutually exclusive; with
// none of them the caller's data is used unchanged. Or may be combined with
// any base and ORs in Vor or Tor depending on the buffer's pool. VRAM and
// GART restrict the pools the buffer may be in; with neither set any pool
// is accepted.
type Flags uint32

const (
	// Low selects the low 32 bits of address + data.
	Low Flags = 1 << iota

	// High selects the high 32 bits of address + data.
	High

	// Or ORs in Vor when the buffer is in VRAM and Tor when it is in GART.
	Or

	// Raw writes the caller's data unchanged; only the pool hints apply.
	Raw

	// VRAM allows the buffer to be in device-local memory.
	VRAM

	// GART allows the buffer to be in host-visible memory.
	GART

	// Pools is both pool hints.
	Pools = VRAM | GART
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{Low, "low"}, {High, "high"}, {Or, "or"}, {Raw, "raw"}, {VRAM, "vram"}, {GART, "gart"},
}

// String returns the set flags joined by '|'.
func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
			f &^= fn.f
		}
	}
	if f != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint32(f)))
	}
	return strings.Join(parts, "|")
}

// Validate reports contradictory flag combinations.
func (f Flags) Validate() error {
	base := 0
	for _, b := range []Flags{Low, High, Raw} {
		if f&b != 0 {
			base++
		}
	}
	if base > 1 {
		return fmt.Errorf("%w: %s", ErrFlags, f)
	}
	if f&^(Low|High|Or|Raw|Pools) != 0 {
		return fmt.Errorf("%w: unknown bits in %s", ErrFlags, f)
	}
	return nil
}

// Allows reports whether pool p satisfies the pool hints.
func (f Flags) Allows(p bo.Pool) bool {
	switch {
	case f&Pools == 0:
		return true
	case p == bo.PoolVRAM:
		return f&VRAM != 0
	case p == bo.PoolGART:
		return f&GART != 0
	default:
		return false
	}
}

// Record is one deferred patch of a ring word.
type Record struct {
	// Buf is the buffer whose placement the word depends on.
	Buf bo.Buffer

	// Offset is the logical ring offset of the word to patch.
	Offset int

	// Data is added to the address (Low, High) or used as the base value.
	Data uint32

	Flags Flags

	// Vor and Tor are ORed in by Or mode for VRAM and GART placements.
	Vor, Tor uint32
}

// Value computes the patched word for r given the buffer's placement.
// It is a pure function of its arguments.
func Value(r Record, p bo.Placement) uint32 {
	var v uint32
	switch {
	case r.Flags&Low != 0:
		v = uint32(p.Addr + uint64(r.Data))
	case r.Flags&High != 0:
		v = uint32((p.Addr + uint64(r.Data)) >> 32)
	default:
		v = r.Data
	}
	if r.Flags&Or != 0 {
		if p.Pool == bo.PoolVRAM {
			v |= r.Vor
		} else {
			v |= r.Tor
		}
	}
	return v
}

// Patcher is the ring view Resolve writes through.
type Patcher interface {
	Patch(offset int, w uint32) error
}

// Resolve patches every record's word in emission order. It stops at the
// first record that cannot be resolved; words of earlier records are
// already patched at that point.
func Resolve(records []Record, ring Patcher, mgr bo.Manager) error {
	for i, r := range records {
		p := mgr.Placement(r.Buf)
		if !p.Resident() {
			return fmt.Errorf("reloc %d at offset %d: %w", i, r.Offset, ErrNotResident)
		}
		if !r.Flags.Allows(p.Pool) {
			return fmt.Errorf("reloc %d at offset %d: %s not in %s: %w", i, r.Offset, p.Pool, r.Flags&Pools, ErrPlacement)
		}
		if err := ring.Patch(r.Offset, Value(r, p)); err != nil {
			return fmt.Errorf("reloc %d: %w", i, err)
		}
	}
	return nil
}
