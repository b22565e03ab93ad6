package prim

import "fmt"

// MaxSlots is the largest slot count the triangle tables cover.
const MaxSlots = 16

// Triangle packs three slot numbers into a 12-bit draw-primitive entry,
// first vertex in the low nibble.
func Triangle(a, b, c int) uint32 {
	return uint32(a) | uint32(b)<<4 | uint32(c)<<8
}

// stripTable[k] is triangle k of a strip window starting at slot 0. Odd
// triangles swap their first two vertices to keep the winding.
var stripTable = [MaxSlots - 2]uint32{
	0x210, 0x312, 0x432, 0x534, 0x654, 0x756, 0x876,
	0x978, 0xa98, 0xb9a, 0xcba, 0xdbc, 0xedc, 0xfde,
}

// fanTable[k] is triangle k of a fan window: the pivot in slot 0 and the
// window's vertices from slot 1.
var fanTable = [MaxSlots - 2]uint32{
	0x210, 0x320, 0x430, 0x540, 0x650, 0x760, 0x870,
	0x980, 0xa90, 0xba0, 0xcb0, 0xdc0, 0xed0, 0xfe0,
}

func init() {
	if err := checkTable("strip", stripTable[:], func(k int) uint32 {
		if k%2 == 1 {
			return Triangle(k+1, k, k+2)
		}
		return Triangle(k, k+1, k+2)
	}); err != nil {
		panic(err)
	}
	if err := checkTable("fan", fanTable[:], func(k int) uint32 {
		return Triangle(0, k+1, k+2)
	}); err != nil {
		panic(err)
	}
}

// checkTable verifies a table's shape and every entry against the slot
// pattern it encodes.
func checkTable(name string, table []uint32, want func(k int) uint32) error {
	if len(table) != MaxSlots-2 {
		return fmt.Errorf("prim: %s table has %d entries, want %d", name, len(table), MaxSlots-2)
	}
	for k, e := range table {
		if e != want(k) {
			return fmt.Errorf("prim: %s table entry %d = %#03x, want %#03x", name, k, e, want(k))
		}
		if e&^0xfff != 0 {
			return fmt.Errorf("prim: %s table entry %d does not fit 12 bits", name, k)
		}
	}
	return nil
}
