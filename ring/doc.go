// Package ring implements the fixed-capacity command word buffer shared by
// every hardware channel, together with the method-header word format.
//
// A Ring owns its backing storage. Space is granted in whole method groups
// with Reserve, and words are appended with bounds-checked writes:
//
//	r := ring.New(1024)
//	if !r.Reserve(2) {
//	    // not enough room: submit r.Words() and call r.Reset()
//	}
//	_ = r.Append(ring.Header(subc, method, 2))
//	_ = r.Append(a)
//	_ = r.Append(b)
//
// Positions handed out by Cursor are logical offsets into the ring and stay
// valid until the next Reset, so deferred patches (see package reloc) never
// hold references into the storage itself.
//
// # Header Format
//
// A method header packs, from most to least significant bit:
//
//	bits 31:29  reserved (bit 30 doubles as the non-incrementing flag)
//	bits 28:18  word count
//	bits 15:13  subchannel
//	bits 12:0   method offset
package ring
