package pushbuf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/gogpu/pushbuf/bo"
	"github.com/gogpu/pushbuf/reloc"
	"github.com/gogpu/pushbuf/ring"
)

// Device accepts finished command streams.
//
// Submit hands the words to the hardware and returns a sequence number
// that increases with every submission. Completed returns the highest
// sequence number the hardware has finished executing.
type Device interface {
	Submit(ctx context.Context, words []uint32) (uint64, error)
	Completed() uint64
}

// Object is a hardware object bound to a subchannel.
type Object struct {
	Subchannel uint8
	Class      uint32
	Handle     uint32
}

// String returns a short description for logs.
func (o Object) String() string {
	return fmt.Sprintf("subc %d class 0x%04x handle 0x%08x", o.Subchannel, o.Class, o.Handle)
}

// Stats contains channel submission statistics.
type Stats struct {
	// Submissions is the number of rings handed to the device.
	Submissions uint64

	// Flushes counts submissions forced by running out of ring or
	// relocation space.
	Flushes uint64

	// Words is the total number of words submitted.
	Words uint64

	// Relocs is the total number of relocations resolved.
	Relocs uint64

	// Discarded counts rings dropped because of an error.
	Discarded uint64
}

// String returns a human-readable string of channel stats.
func (s Stats) String() string {
	return fmt.Sprintf("Channel[%d submissions (%d flushes), %d words, %d relocs, %d discarded]",
		s.Submissions, s.Flushes, s.Words, s.Relocs, s.Discarded)
}

// Channel is the command submission path of one rendering context.
//
// Commands are written as method groups: Begin reserves room for a header
// and its data words and writes the header, then Word, Float, Block and
// the Reloc family write the data. When the ring runs out of space Begin
// submits it first, so a group is never split across submissions.
//
// Channel is NOT safe for concurrent use. Use a DeviceLock to arbitrate
// the device between channels.
type Channel struct {
	ring   *ring.Ring
	relocs *reloc.List
	dev    Device
	mgr    bo.Manager
	opts   channelOptions

	objects []Object

	// err is the first emission error since the last submission. The ring
	// is discarded when it is set.
	err error

	// flushErr is an error from an implicit flush, reported by the next Fire.
	flushErr error

	// group and groupEnd delimit the last method group: the offset of its
	// header and the offset just past its data.
	group, groupEnd int

	lastSeq  uint64
	stats    Stats
	flushing bool
	closed   bool
}

// NewChannel creates a channel submitting to dev and resolving
// relocations through mgr.
func NewChannel(dev Device, mgr bo.Manager, opts ...ChannelOption) (*Channel, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	if mgr == nil {
		return nil, ErrNoManager
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 2 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidConfig, o.capacity)
	}
	if o.maxRelocs < 1 {
		return nil, fmt.Errorf("%w: max relocs %d", ErrInvalidConfig, o.maxRelocs)
	}

	c := &Channel{
		ring:   ring.New(o.capacity),
		relocs: reloc.NewList(o.maxRelocs),
		dev:    dev,
		mgr:    mgr,
		opts:   o,
	}
	c.log().Info("pushbuf: channel created",
		"capacity", o.capacity,
		"maxRelocs", o.maxRelocs)
	return c, nil
}

func (c *Channel) log() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return Logger()
}

// Capacity returns the ring size in words.
func (c *Channel) Capacity() int { return c.ring.Capacity() }

// Remaining returns the number of ring words not yet reserved.
func (c *Channel) Remaining() int { return c.ring.Remaining() }

// Pending returns the number of words written since the last submission.
func (c *Channel) Pending() int { return c.ring.Len() }

// Stats returns submission statistics.
func (c *Channel) Stats() Stats { return c.stats }

// Err returns the emission error that will fail the next Fire, if any.
func (c *Channel) Err() error { return c.err }

// Words returns the words written since the last submission, with
// relocations still unresolved. The slice is only valid until the next
// write.
func (c *Channel) Words() []uint32 { return c.ring.Words() }

// Objects returns the bound objects in subchannel order.
func (c *Channel) Objects() []Object { return c.objects }

// DMAHandles returns the DMA objects RelocObject selects for VRAM and
// GART buffers.
func (c *Channel) DMAHandles() (vram, gart uint32) {
	return c.opts.vramHandle, c.opts.gartHandle
}

// OnFlush adds a callback run whenever the ring is emptied, after
// WithFlushNotify callbacks.
func (c *Channel) OnFlush(fn func()) {
	c.opts.notify = append(c.opts.notify, fn)
}

// Reserve guarantees room for a method group of n data words and its
// header, submitting the ring first if needed.
//
// A group larger than the whole ring is a programming error and panics.
func (c *Channel) Reserve(n int) {
	if c.ring.Reserve(n) {
		return
	}
	if !c.ring.Fits(n) {
		panic(fmt.Sprintf("pushbuf: reserve of %d words exceeds ring capacity %d", n, c.ring.Capacity()))
	}
	c.flush()
	if !c.ring.Reserve(n) {
		panic(fmt.Sprintf("pushbuf: reserve of %d words failed after flush", n))
	}
}

// Mark guarantees room for a sequence of method groups totalling words
// ring words (headers included) and relocs relocations, submitting the
// ring first if needed. The following Begin calls will not flush as long
// as they stay within the marked amounts.
func (c *Channel) Mark(words, relocs int) {
	if words > c.ring.Capacity() || relocs > c.relocs.Cap() {
		panic(fmt.Sprintf("pushbuf: mark of %d words, %d relocs exceeds channel limits %d, %d",
			words, relocs, c.ring.Capacity(), c.relocs.Cap()))
	}
	if c.ring.Available(words) && c.relocs.Available(relocs) {
		return
	}
	c.flush()
}

// EmitHeader writes a method header for count words to obj. The group
// must have been reserved.
func (c *Channel) EmitHeader(obj Object, method uint32, count int) {
	c.openGroup(count)
	c.Word(ring.Header(obj.Subchannel, method, count))
}

// EmitHeaderNI writes a non-incrementing method header: all count words
// go to method itself.
func (c *Channel) EmitHeaderNI(obj Object, method uint32, count int) {
	c.openGroup(count)
	c.Word(ring.HeaderNI(obj.Subchannel, method, count))
}

func (c *Channel) openGroup(count int) {
	c.group = c.ring.Cursor()
	c.groupEnd = c.group + 1 + count
}

// Begin reserves room for count words and writes their method header.
func (c *Channel) Begin(obj Object, method uint32, count int) {
	c.Reserve(count)
	c.EmitHeader(obj, method, count)
}

// BeginNI is Begin with a non-incrementing header.
func (c *Channel) BeginNI(obj Object, method uint32, count int) {
	c.Reserve(count)
	c.EmitHeaderNI(obj, method, count)
}

// Word writes one data word.
func (c *Channel) Word(w uint32) {
	if c.err != nil {
		return
	}
	if err := c.ring.Append(w); err != nil {
		c.fail(err)
	}
}

// Float writes the bit pattern of f.
func (c *Channel) Float(f float32) {
	c.Word(math.Float32bits(f))
}

// Block copies ws verbatim.
func (c *Channel) Block(ws []uint32) {
	if c.err != nil {
		return
	}
	if err := c.ring.AppendBlock(ws); err != nil {
		c.fail(err)
	}
}

// Reloc writes data and records a relocation patching it at submission.
func (c *Channel) Reloc(buf bo.Buffer, data uint32, flags reloc.Flags, vor, tor uint32) {
	if c.err != nil {
		return
	}
	if !c.relocs.Available(1) {
		c.flushRelocs()
		if c.err != nil {
			return
		}
	}
	offset := c.ring.Cursor()
	if err := c.relocs.Append(reloc.Record{
		Buf:    buf,
		Offset: offset,
		Data:   data,
		Flags:  flags,
		Vor:    vor,
		Tor:    tor,
	}); err != nil {
		c.fail(err)
		return
	}
	c.Word(data)
}

// RelocData writes data unchanged, checking only the pool hints in flags.
func (c *Channel) RelocData(buf bo.Buffer, data uint32, flags reloc.Flags) {
	c.Reloc(buf, data, flags|reloc.Raw, 0, 0)
}

// RelocObject writes the DMA object handle matching the buffer's pool, as
// configured with WithDMAHandles.
func (c *Channel) RelocObject(buf bo.Buffer, flags reloc.Flags) {
	c.Reloc(buf, 0, flags|reloc.Or, c.opts.vramHandle, c.opts.gartHandle)
}

// RelocLow writes the low 32 bits of the buffer address plus delta.
func (c *Channel) RelocLow(buf bo.Buffer, delta uint32, flags reloc.Flags) {
	c.Reloc(buf, delta, flags|reloc.Low, 0, 0)
}

// RelocHigh writes the high 32 bits of the buffer address plus delta.
func (c *Channel) RelocHigh(buf bo.Buffer, delta uint32, flags reloc.Flags) {
	c.Reloc(buf, delta, flags|reloc.High, 0, 0)
}

// MethodReloc writes a one-word method group whose data is relocated.
func (c *Channel) MethodReloc(obj Object, method uint32, buf bo.Buffer, data uint32, flags reloc.Flags, vor, tor uint32) {
	c.Begin(obj, method, 1)
	c.Reloc(buf, data, flags, vor, tor)
}

// Bind assigns the next free subchannel to a hardware object and emits the
// set-object method for it.
//
// At most eight objects can be bound; a ninth is a programming error and
// panics.
func (c *Channel) Bind(class, handle uint32) Object {
	if len(c.objects) > ring.MaxSubchannel {
		panic(fmt.Sprintf("pushbuf: no free subchannel for class 0x%04x", class))
	}
	obj := Object{
		Subchannel: uint8(len(c.objects)),
		Class:      class,
		Handle:     handle,
	}
	c.objects = append(c.objects, obj)
	c.Begin(obj, 0, 1)
	c.Word(handle)
	c.log().Debug("pushbuf: bound object", "object", obj)
	return obj
}

func (c *Channel) fail(err error) {
	if c.err == nil {
		c.err = err
		c.log().Debug("pushbuf: emission failed, ring will be discarded", "err", err)
	}
}

// flush submits the ring because it ran out of space. Errors are kept for
// the next Fire; the ring is always left empty.
func (c *Channel) flush() {
	if c.flushing {
		panic("pushbuf: recursive flush")
	}
	c.flushing = true
	defer func() { c.flushing = false }()

	c.stats.Flushes++
	c.log().Debug("pushbuf: flush", "words", c.ring.Len(), "relocs", c.relocs.Len())
	if _, err := c.submit(context.Background()); err != nil {
		c.discard()
		if c.flushErr == nil {
			c.flushErr = err
		}
	}
}

// flushRelocs submits the ring because the relocation list is full. A
// method group whose data is still being written is moved, together with
// its relocations, to the start of the next ring so it is never split.
func (c *Channel) flushRelocs() {
	start, cur := c.group, c.ring.Cursor()
	if cur <= start || cur >= c.groupEnd {
		c.flush()
		return
	}
	if start == 0 {
		c.failGroupRelocs()
		return
	}
	count := c.groupEnd - start - 1
	carried := slices.Clone(c.ring.Words()[start:])
	records := c.relocs.Split(start)
	c.ring.Truncate(start)

	c.flush()

	if !c.ring.Reserve(count) {
		panic(fmt.Sprintf("pushbuf: reserve of %d words failed after flush", count))
	}
	base := c.ring.Cursor()
	c.openGroup(count)
	if err := c.ring.AppendBlock(carried); err != nil {
		c.fail(err)
		return
	}
	for _, r := range records {
		r.Offset += base - start
		if err := c.relocs.Append(r); err != nil {
			c.fail(err)
			return
		}
	}
	if !c.relocs.Available(1) {
		c.failGroupRelocs()
	}
}

func (c *Channel) failGroupRelocs() {
	c.fail(fmt.Errorf("pushbuf: method group needs more than %d relocations: %w", c.relocs.Cap(), reloc.ErrListFull))
}

// Fire resolves all pending relocations and submits the ring.
//
// An empty ring is not submitted. If the ring cannot be resolved or
// submitted it is discarded and the error returned; the draws it held are
// lost. An error from an earlier implicit flush is also reported here.
func (c *Channel) Fire(ctx context.Context) error {
	_, err := c.fire(ctx)
	return err
}

// FireFence is Fire returning a fence that signals when the device has
// executed the submitted commands. With nothing to submit the fence
// tracks the previous submission.
func (c *Channel) FireFence(ctx context.Context) (*Fence, error) {
	seq, err := c.fire(ctx)
	if err != nil {
		return nil, err
	}
	return &Fence{
		dev:     c.dev,
		seq:     seq,
		spin:    c.opts.fenceSpin,
		timeout: c.opts.fenceTimeout,
	}, nil
}

func (c *Channel) fire(ctx context.Context) (uint64, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if c.opts.lock != nil && !c.opts.lock.Held() {
		return 0, ErrLockNotHeld
	}
	pending := c.flushErr
	c.flushErr = nil

	seq, err := c.submit(ctx)
	if err != nil {
		c.discard()
	}
	if err = errors.Join(pending, err); err != nil {
		return 0, err
	}
	return seq, nil
}

// submit resolves and submits the ring, resetting it on success.
func (c *Channel) submit(ctx context.Context) (uint64, error) {
	if err := c.err; err != nil {
		c.err = nil
		return 0, fmt.Errorf("pushbuf: ring discarded: %w", err)
	}
	if c.ring.Empty() {
		return c.lastSeq, nil
	}
	if err := c.relocs.Resolve(c.ring, c.mgr); err != nil {
		return 0, fmt.Errorf("pushbuf: resolve: %w", err)
	}

	words := c.ring.Len()
	relocs := c.relocs.Len()
	seq, err := c.dev.Submit(ctx, c.ring.Words())
	if err != nil {
		return 0, fmt.Errorf("pushbuf: submit: %w", err)
	}

	c.lastSeq = seq
	c.stats.Submissions++
	c.stats.Words += uint64(words)
	c.stats.Relocs += uint64(relocs)
	c.log().Debug("pushbuf: submitted", "seq", seq, "words", words, "relocs", relocs)

	c.reset()
	return seq, nil
}

func (c *Channel) discard() {
	if !c.ring.Empty() {
		c.stats.Discarded++
	}
	c.reset()
}

func (c *Channel) reset() {
	c.ring.Reset()
	c.relocs.Reset()
	c.group, c.groupEnd = 0, 0
	c.err = nil
	for _, fn := range c.opts.notify {
		fn()
	}
}

// Close discards any unsubmitted commands. Further use returns ErrClosed
// from Fire.
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.ring.Empty() {
		c.log().Debug("pushbuf: discarding unsubmitted commands on close", "words", c.ring.Len())
	}
	c.ring.Reset()
	c.relocs.Reset()
	c.log().Info("pushbuf: channel closed", "stats", c.stats)
	return nil
}
