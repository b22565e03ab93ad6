package pushbuf

import "errors"

// Channel errors.
var (
	// ErrClosed is returned when operating on a closed channel.
	ErrClosed = errors.New("pushbuf: channel closed")

	// ErrLockNotHeld is returned by Fire when the channel was created with a
	// device lock that is not currently held.
	ErrLockNotHeld = errors.New("pushbuf: device lock not held")

	// ErrFenceTimeout is returned when a fence does not signal in time.
	ErrFenceTimeout = errors.New("pushbuf: fence wait timed out")

	// ErrNoDevice is returned when a channel is created without a device.
	ErrNoDevice = errors.New("pushbuf: no device")

	// ErrNoManager is returned when a channel is created without a buffer
	// manager.
	ErrNoManager = errors.New("pushbuf: no buffer manager")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("pushbuf: invalid configuration")
)
