package haldev

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/bo"
)

func openNoop(t *testing.T) *Device {
	t.Helper()
	d, err := Open(noop.API{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// readWords reads n words back from the pushbuffer.
func readWords(t *testing.T, d *Device, n int) []uint32 {
	t.Helper()
	m, err := d.device.MapBuffer(d.Buffer(), 0, uint64(n)*4)
	if err != nil {
		t.Fatalf("MapBuffer() error = %v", err)
	}
	b := unsafe.Slice((*byte)(m.Ptr), n*4)
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func TestOpen(t *testing.T) {
	d := openNoop(t)
	if d.Info().Name == "" {
		t.Error("Info().Name is empty")
	}
	if got := d.BufferSize(); got != minBufferSize {
		t.Errorf("BufferSize() = %d, want %d", got, minBufferSize)
	}
}

func TestSubmit(t *testing.T) {
	d := openNoop(t)
	words := []uint32{0x00042000, 0xdeadbeef, 0x80000010}

	seq, err := d.Submit(context.Background(), words)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if seq != 1 {
		t.Errorf("Submit() = %d, want 1", seq)
	}
	if got := d.Completed(); got < seq {
		t.Errorf("Completed() = %d, want >= %d", got, seq)
	}
	got := readWords(t, d, len(words))
	for i := range words {
		if got[i] != words[i] {
			t.Errorf("word %d = %#x, want %#x", i, got[i], words[i])
		}
	}

	seq2, err := d.Submit(context.Background(), words[:1])
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if seq2 <= seq {
		t.Errorf("second Submit() = %d, want > %d", seq2, seq)
	}
}

func TestSubmitGrows(t *testing.T) {
	d := openNoop(t)
	words := make([]uint32, pushbuf.DefaultCapacity*3)
	for i := range words {
		words[i] = uint32(i)
	}
	if _, err := d.Submit(context.Background(), words); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got, want := d.BufferSize(), uint64(minBufferSize*4); got != want {
		t.Errorf("BufferSize() = %d, want %d", got, want)
	}
	got := readWords(t, d, len(words))
	if got[len(words)-1] != uint32(len(words)-1) {
		t.Errorf("last word = %d, want %d", got[len(words)-1], len(words)-1)
	}
}

func TestSubmitCanceled(t *testing.T) {
	d := openNoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Submit(ctx, []uint32{1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
}

func TestClose(t *testing.T) {
	d, err := Open(noop.API{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := d.Submit(context.Background(), []uint32{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
}

func TestChannelFence(t *testing.T) {
	d := openNoop(t)
	ch, err := pushbuf.NewChannel(d, bo.NewTable(bo.TableConfig{}))
	if err != nil {
		t.Fatalf("NewChannel() error = %v", err)
	}
	obj := ch.Bind(0x54, 0x80000010)
	ch.Begin(obj, 0x304, 1)
	ch.Word(0)

	f, err := ch.FireFence(context.Background())
	if err != nil {
		t.Fatalf("FireFence() error = %v", err)
	}
	if err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if got := readWords(t, d, 4); got[1] != 0x80000010 || got[3] != 0 {
		t.Errorf("pushbuffer = %#x, want the bind and one method", got)
	}
}
