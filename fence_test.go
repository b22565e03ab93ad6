package pushbuf

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFireFenceSignalled(t *testing.T) {
	ch, dev := newTestChannel(t, nil)
	dev.autoRetire = true

	ch.Begin(testObj, 0x100, 1)
	ch.Word(1)
	f, err := ch.FireFence(context.Background())
	if err != nil {
		t.Fatalf("FireFence() error = %v", err)
	}
	if f.Seq() != 1 {
		t.Errorf("Seq() = %d, want 1", f.Seq())
	}
	if !f.Signalled() {
		t.Error("Signalled() = false for retired submission")
	}
	if err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}

	// Nothing pending: the fence tracks the previous submission.
	f2, err := ch.FireFence(context.Background())
	if err != nil || f2.Seq() != 1 {
		t.Errorf("empty FireFence() = %v, %v, want seq 1", f2, err)
	}
}

func TestFenceWaitTimeout(t *testing.T) {
	ch, _ := newTestChannel(t, nil, WithFenceWait(10, 5*time.Millisecond))
	ch.Begin(testObj, 0x100, 1)
	ch.Word(1)
	f, err := ch.FireFence(context.Background())
	if err != nil {
		t.Fatalf("FireFence() error = %v", err)
	}
	if f.Signalled() {
		t.Fatal("Signalled() = true before completion")
	}
	if err := f.Wait(context.Background()); !errors.Is(err, ErrFenceTimeout) {
		t.Errorf("Wait() error = %v, want ErrFenceTimeout", err)
	}
}

func TestFenceWaitCanceled(t *testing.T) {
	dev := &recordingDevice{}
	f := &Fence{dev: dev, seq: 1, spin: 1, timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()
	if err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}
