package ring

// Decoder walks a submitted word stream one method group at a time.
//
// Example usage:
//
//	dec := ring.NewDecoder(words)
//	for dec.Next() {
//	    m := dec.Method()
//	    for i, w := range dec.Data() {
//	        fmt.Printf("0x%04x <- 0x%08x\n", m.Target(i), w)
//	    }
//	}
//	if dec.Truncated() {
//	    // last group announced more words than the stream holds
//	}
type Decoder struct {
	words []uint32

	// pos is the offset of the next header.
	pos int

	// Current group.
	method    Method
	header    int
	data      []uint32
	truncated bool
}

// NewDecoder creates a decoder over words.
func NewDecoder(words []uint32) *Decoder {
	return &Decoder{words: words}
}

// Reset restarts the decoder on a new stream.
func (d *Decoder) Reset(words []uint32) {
	*d = Decoder{words: words}
}

// Next advances to the next method group.
// Returns false at the end of the stream or when the last group is truncated.
func (d *Decoder) Next() bool {
	if d.truncated || d.pos >= len(d.words) {
		return false
	}
	d.header = d.pos
	d.method = DecodeHeader(d.words[d.pos])
	start := d.pos + 1
	end := start + d.method.Count
	if end > len(d.words) {
		d.truncated = true
		d.data = d.words[start:]
		d.pos = len(d.words)
		return false
	}
	d.data = d.words[start:end]
	d.pos = end
	return true
}

// Method returns the current group's decoded header.
func (d *Decoder) Method() Method { return d.method }

// Data returns the current group's data words.
func (d *Decoder) Data() []uint32 { return d.data }

// HeaderOffset returns the stream offset of the current group's header.
func (d *Decoder) HeaderOffset() int { return d.header }

// Position returns the offset of the next header.
func (d *Decoder) Position() int { return d.pos }

// Truncated reports whether the stream ended inside a method group.
func (d *Decoder) Truncated() bool { return d.truncated }

// Write is one data word together with the method it targets.
type Write struct {
	Subchannel uint8
	Method     uint32
	Value      uint32
}

// Writes flattens a stream into individual method writes.
// The second result is false when the stream is truncated.
func Writes(words []uint32) ([]Write, bool) {
	var out []Write
	dec := NewDecoder(words)
	for dec.Next() {
		m := dec.Method()
		for i, w := range dec.Data() {
			out = append(out, Write{Subchannel: m.Subchannel, Method: m.Target(i), Value: w})
		}
	}
	return out, !dec.Truncated()
}
