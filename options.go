package pushbuf

import (
	"log/slog"
	"time"
)

// Channel defaults.
const (
	// DefaultCapacity is the default ring size in words.
	DefaultCapacity = 2048

	// DefaultMaxRelocs is the default number of relocations per submission.
	DefaultMaxRelocs = 256

	// DefaultFenceSpin is how many times Fence.Wait polls before sleeping.
	DefaultFenceSpin = 1000

	// DefaultFenceTimeout bounds Fence.Wait.
	DefaultFenceTimeout = 2 * time.Second
)

// ChannelOption configures a Channel during creation.
//
// Example:
//
//	ch, err := pushbuf.NewChannel(dev, table,
//	    pushbuf.WithCapacity(4096),
//	    pushbuf.WithDMAHandles(0xd8000001, 0xd8000002),
//	)
type ChannelOption func(*channelOptions)

type channelOptions struct {
	capacity     int
	maxRelocs    int
	vramHandle   uint32
	gartHandle   uint32
	lock         *DeviceLock
	notify       []func()
	logger       *slog.Logger
	fenceSpin    int
	fenceTimeout time.Duration
}

func defaultOptions() channelOptions {
	return channelOptions{
		capacity:     DefaultCapacity,
		maxRelocs:    DefaultMaxRelocs,
		fenceSpin:    DefaultFenceSpin,
		fenceTimeout: DefaultFenceTimeout,
	}
}

// WithCapacity sets the ring size in words.
func WithCapacity(words int) ChannelOption {
	return func(o *channelOptions) {
		o.capacity = words
	}
}

// WithMaxRelocs sets how many relocations fit one submission. Running out
// forces a flush just like running out of ring space.
func WithMaxRelocs(n int) ChannelOption {
	return func(o *channelOptions) {
		o.maxRelocs = n
	}
}

// WithDMAHandles sets the DMA object handles RelocObject selects between
// for buffers in VRAM and in GART.
func WithDMAHandles(vram, gart uint32) ChannelOption {
	return func(o *channelOptions) {
		o.vramHandle = vram
		o.gartHandle = gart
	}
}

// WithLock makes Fire require lock to be held.
func WithLock(lock *DeviceLock) ChannelOption {
	return func(o *channelOptions) {
		o.lock = lock
	}
}

// WithFlushNotify registers fn to run after every submission, explicit or
// implicit. Multiple callbacks run in registration order.
func WithFlushNotify(fn func()) ChannelOption {
	return func(o *channelOptions) {
		if fn != nil {
			o.notify = append(o.notify, fn)
		}
	}
}

// WithLogger overrides the package logger for one channel.
func WithLogger(l *slog.Logger) ChannelOption {
	return func(o *channelOptions) {
		o.logger = l
	}
}

// WithFenceWait sets the busy-poll count and overall timeout of Fence.Wait.
func WithFenceWait(spin int, timeout time.Duration) ChannelOption {
	return func(o *channelOptions) {
		o.fenceSpin = spin
		o.fenceTimeout = timeout
	}
}
