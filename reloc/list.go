package reloc

import (
	"fmt"
	"slices"

	"github.com/gogpu/pushbuf/bo"
)

// List collects the relocations of one submission.
type List struct {
	records []Record
	max     int
}

// NewList creates a list holding at most size records.
func NewList(size int) *List {
	if size <= 0 {
		panic(fmt.Sprintf("reloc: invalid list size %d", size))
	}
	return &List{records: make([]Record, 0, size), max: size}
}

// Len returns the number of recorded relocations.
func (l *List) Len() int { return len(l.records) }

// Cap returns the maximum number of relocations.
func (l *List) Cap() int { return l.max }

// Available reports whether n more relocations fit.
func (l *List) Available(n int) bool { return len(l.records)+n <= l.max }

// Append records r. Offsets must strictly increase so that each record
// owns a distinct ring word.
func (l *List) Append(r Record) error {
	if err := r.Flags.Validate(); err != nil {
		return err
	}
	if len(l.records) >= l.max {
		return ErrListFull
	}
	if n := len(l.records); n > 0 && r.Offset <= l.records[n-1].Offset {
		return fmt.Errorf("%w: offset %d after %d", ErrOffsetOrder, r.Offset, l.records[n-1].Offset)
	}
	l.records = append(l.records, r)
	return nil
}

// Split removes and returns the records targeting ring offsets at or
// after offset.
func (l *List) Split(offset int) []Record {
	i := len(l.records)
	for i > 0 && l.records[i-1].Offset >= offset {
		i--
	}
	tail := slices.Clone(l.records[i:])
	clear(l.records[i:])
	l.records = l.records[:i]
	return tail
}

// Records returns the recorded relocations in emission order.
func (l *List) Records() []Record { return l.records }

// Resolve patches every recorded word into ring.
func (l *List) Resolve(ring Patcher, mgr bo.Manager) error {
	return Resolve(l.records, ring, mgr)
}

// Reset empties the list.
func (l *List) Reset() {
	clear(l.records)
	l.records = l.records[:0]
}
