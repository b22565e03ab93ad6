package ring

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a write would go past the end of the ring.
var ErrOverflow = errors.New("ring: write past end of ring")

// Ring is a fixed-capacity command word buffer.
//
// Space is accounted in two steps: Reserve takes words out of the remaining
// count for a whole method group, and the appends that follow move the
// cursor. Once every reserved word has been written,
//
//	Remaining() == Capacity() - Cursor()
//
// Ring is NOT safe for concurrent use.
type Ring struct {
	words     []uint32
	cursor    int
	remaining int
}

// New creates a ring holding capacity words.
func New(capacity int) *Ring {
	if capacity <= 0 {
		panic(fmt.Sprintf("ring: invalid capacity %d", capacity))
	}
	return &Ring{
		words:     make([]uint32, capacity),
		remaining: capacity,
	}
}

// Capacity returns the total number of words the ring holds.
func (r *Ring) Capacity() int { return len(r.words) }

// Cursor returns the logical offset of the next word to be written.
func (r *Ring) Cursor() int { return r.cursor }

// Remaining returns the number of words not yet reserved.
func (r *Ring) Remaining() int { return r.remaining }

// Len returns the number of words written since the last Reset.
func (r *Ring) Len() int { return r.cursor }

// Empty reports whether nothing has been written since the last Reset.
func (r *Ring) Empty() bool { return r.cursor == 0 }

// Fits reports whether a method group of n data words could ever be
// reserved, i.e. whether n plus its header fits an empty ring.
func (r *Ring) Fits(n int) bool { return n >= 0 && n+1 <= len(r.words) }

// Reserve takes n+1 words (n data words and their header) out of the
// remaining count. It returns false, leaving the ring untouched, when not
// enough words remain; the caller is expected to submit and Reset.
func (r *Ring) Reserve(n int) bool {
	if n < 0 || r.remaining < n+1 {
		return false
	}
	r.remaining -= n + 1
	return true
}

// Available reports whether at least n words remain unreserved.
func (r *Ring) Available(n int) bool { return r.remaining >= n }

// Append writes one word at the cursor.
func (r *Ring) Append(w uint32) error {
	if r.cursor >= len(r.words) {
		return ErrOverflow
	}
	r.words[r.cursor] = w
	r.cursor++
	return nil
}

// AppendFloat writes the bit pattern of f as one word.
func (r *Ring) AppendFloat(f float32) error {
	return r.Append(math.Float32bits(f))
}

// AppendBlock copies ws verbatim at the cursor. Nothing is written if the
// block does not fit.
func (r *Ring) AppendBlock(ws []uint32) error {
	if r.cursor+len(ws) > len(r.words) {
		return ErrOverflow
	}
	r.cursor += copy(r.words[r.cursor:], ws)
	return nil
}

// At returns the word at a logical offset.
func (r *Ring) At(offset int) (uint32, error) {
	if offset < 0 || offset >= r.cursor {
		return 0, fmt.Errorf("ring: offset %d outside written range [0,%d): %w", offset, r.cursor, ErrOverflow)
	}
	return r.words[offset], nil
}

// Patch overwrites an already written word.
func (r *Ring) Patch(offset int, w uint32) error {
	if offset < 0 || offset >= r.cursor {
		return fmt.Errorf("ring: patch offset %d outside written range [0,%d): %w", offset, r.cursor, ErrOverflow)
	}
	r.words[offset] = w
	return nil
}

// Truncate drops the words written at and after offset. Reserved space is
// not returned.
func (r *Ring) Truncate(offset int) {
	if offset >= 0 && offset < r.cursor {
		r.cursor = offset
	}
}

// Words returns the words written since the last Reset. The slice aliases
// the ring storage and is only valid until the next write or Reset.
func (r *Ring) Words() []uint32 { return r.words[:r.cursor] }

// Reset rewinds the cursor and restores the full capacity.
func (r *Ring) Reset() {
	r.cursor = 0
	r.remaining = len(r.words)
}
