package pushbuf

import (
	"context"
	"fmt"
	"time"
)

// fencePoll is the sleep between completion checks once spinning is over.
const fencePoll = 50 * time.Microsecond

// Fence tracks the completion of one submission.
type Fence struct {
	dev     Device
	seq     uint64
	spin    int
	timeout time.Duration
}

// Seq returns the device sequence number of the tracked submission.
func (f *Fence) Seq() uint64 { return f.seq }

// Signalled reports whether the device has finished the submission.
// It never blocks.
func (f *Fence) Signalled() bool {
	return f.dev.Completed() >= f.seq
}

// Wait blocks until the submission completes, ctx is done, or the
// channel's fence timeout expires. It polls busily for a bounded number
// of iterations before sleeping between polls.
func (f *Fence) Wait(ctx context.Context) error {
	for i := 0; i < f.spin; i++ {
		if f.Signalled() {
			return nil
		}
	}

	var deadline <-chan time.Time
	if f.timeout > 0 {
		timer := time.NewTimer(f.timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(fencePoll)
	defer ticker.Stop()

	for {
		if f.Signalled() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			if f.Signalled() {
				return nil
			}
			return fmt.Errorf("%w: seq %d, completed %d", ErrFenceTimeout, f.seq, f.dev.Completed())
		case <-ticker.C:
		}
	}
}
