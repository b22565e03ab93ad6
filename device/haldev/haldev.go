// Package haldev submits command rings through a WebGPU HAL queue.
//
// Each submission uploads the ring into a GPU buffer with
// Queue.WriteBuffer and then calls Queue.Submit. Completion is tracked
// with the queue's submission index, so Device can back a pushbuf.Channel
// and its fences directly:
//
//	dev, err := haldev.Open(noop.API{})
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//	ch, err := pushbuf.NewChannel(dev, table)
package haldev

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pushbuf"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("haldev: device closed")

	// ErrNoAdapter is returned by Open when the backend exposes no adapter.
	ErrNoAdapter = errors.New("haldev: no adapter available")
)

// minBufferSize is the smallest pushbuffer allocation in bytes.
const minBufferSize = pushbuf.DefaultCapacity * 4

// Device implements pushbuf.Device on a HAL device and queue.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	instance hal.Instance // nil unless created by Open
	device   hal.Device
	queue    hal.Queue
	info     gputypes.AdapterInfo

	buf     hal.Buffer
	size    uint64
	scratch []byte
	last    uint64
	closed  bool
}

var _ pushbuf.Device = (*Device)(nil)

// New wraps an already opened HAL device and queue. Close does not
// destroy them.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	d := &Device{device: device, queue: queue}
	if err := d.grow(minBufferSize); err != nil {
		return nil, err
	}
	return d, nil
}

// Open creates an instance of backend and opens its first adapter with
// default limits. Close releases everything Open created.
func Open(backend hal.Backend) (*Device, error) {
	instance, err := backend.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("haldev: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("haldev: open %s: %w", adapters[0].Info.Name, err)
	}

	d := &Device{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		info:     adapters[0].Info,
	}
	if err := d.grow(minBufferSize); err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	pushbuf.Logger().Info("haldev: device opened", "adapter", d.info.Name, "backend", backend.Variant())
	return d, nil
}

// Info describes the adapter. It is zero for devices created with New.
func (d *Device) Info() gputypes.AdapterInfo { return d.info }

// Buffer returns the pushbuffer holding the most recent submission.
func (d *Device) Buffer() hal.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf
}

// BufferSize returns the size of the pushbuffer in bytes.
func (d *Device) BufferSize() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// grow replaces the pushbuffer with one of at least size bytes.
func (d *Device) grow(size uint64) error {
	n := max(d.size, minBufferSize)
	for n < size {
		n *= 2
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pushbuf",
		Size:  n,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc | gputypes.BufferUsageStorage,
	})
	if err != nil {
		return fmt.Errorf("haldev: create pushbuffer of %d bytes: %w", n, err)
	}
	if d.buf != nil {
		d.device.DestroyBuffer(d.buf)
		pushbuf.Logger().Debug("haldev: pushbuffer grown", "from", d.size, "to", n)
	}
	d.buf, d.size = buf, n
	return nil
}

// Submit uploads words and submits them. It returns the queue's
// submission index.
func (d *Device) Submit(ctx context.Context, words []uint32) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}

	size := uint64(len(words)) * 4
	if size > d.size {
		if err := d.grow(size); err != nil {
			return 0, err
		}
	}
	if cap(d.scratch) < int(size) {
		d.scratch = make([]byte, size)
	}
	b := d.scratch[:size]
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}

	if err := d.queue.WriteBuffer(d.buf, 0, b); err != nil {
		return 0, fmt.Errorf("haldev: upload %d words: %w", len(words), err)
	}
	seq, err := d.queue.Submit(nil)
	if err != nil {
		return 0, fmt.Errorf("haldev: submit: %w", err)
	}
	d.last = seq
	return seq, nil
}

// Completed returns the highest submission index the queue has finished.
func (d *Device) Completed() uint64 { return d.queue.PollCompleted() }

// Close releases the pushbuffer, and the device and instance when they
// were created by Open. Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.device.DestroyBuffer(d.buf)
	d.buf = nil
	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
	}
	pushbuf.Logger().Debug("haldev: device closed", "last", d.last)
	return nil
}
