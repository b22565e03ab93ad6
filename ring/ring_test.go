package ring

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	check := func(subc uint8, method uint32, count int) {
		t.Helper()
		m := DecodeHeader(Header(subc, method, count))
		if m.Subchannel != subc || m.Method != method || m.Count != count || m.NonIncrementing {
			t.Fatalf("DecodeHeader(Header(%d, 0x%x, %d)) = %+v", subc, method, count, m)
		}
		ni := DecodeHeader(HeaderNI(subc, method, count))
		if ni.Subchannel != subc || ni.Method != method || ni.Count != count || !ni.NonIncrementing {
			t.Fatalf("DecodeHeader(HeaderNI(%d, 0x%x, %d)) = %+v", subc, method, count, ni)
		}
	}

	// Field extremes.
	for subc := uint8(0); subc <= MaxSubchannel; subc++ {
		for _, method := range []uint32{0, 4, 0x100, MaxMethod} {
			for _, count := range []int{0, 1, MaxCount} {
				check(subc, method, count)
			}
		}
	}
	for range 10000 {
		check(uint8(rng.IntN(MaxSubchannel+1)), uint32(rng.IntN(MaxMethod+1)), rng.IntN(MaxCount+1))
	}
}

func TestHeaderLayout(t *testing.T) {
	got := Header(3, 0x184, 2)
	want := uint32(2<<18 | 3<<13 | 0x184)
	if got != want {
		t.Errorf("Header(3, 0x184, 2) = 0x%08x, want 0x%08x", got, want)
	}
	if got := HeaderNI(1, 0x600, 4); got&0x40000000 == 0 {
		t.Errorf("HeaderNI() = 0x%08x, non-incrementing bit not set", got)
	}
	if got&0xe0000000 != 0 {
		t.Errorf("Header() = 0x%08x, reserved bits set", got)
	}
}

func TestHeaderPanicsOnBadFields(t *testing.T) {
	tests := []struct {
		name   string
		subc   uint8
		method uint32
		count  int
	}{
		{"subchannel", 8, 0, 1},
		{"method", 0, MaxMethod + 1, 1},
		{"count", 0, 0, MaxCount + 1},
		{"negative count", 0, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Header(%d, 0x%x, %d) did not panic", tt.subc, tt.method, tt.count)
				}
			}()
			Header(tt.subc, tt.method, tt.count)
		})
	}
}

func TestMethodTarget(t *testing.T) {
	inc := DecodeHeader(Header(0, 0x400, 3))
	if got := inc.Target(2); got != 0x408 {
		t.Errorf("Target(2) = 0x%x, want 0x408", got)
	}
	ni := DecodeHeader(HeaderNI(0, 0x600, 3))
	if got := ni.Target(2); got != 0x600 {
		t.Errorf("non-incrementing Target(2) = 0x%x, want 0x600", got)
	}
}

func TestRingAccounting(t *testing.T) {
	const capacity = 64
	r := New(capacity)
	rng := rand.New(rand.NewPCG(7, 9))

	written := 0
	for {
		n := rng.IntN(6)
		if !r.Reserve(n) {
			break
		}
		if err := r.Append(Header(0, 0x100, n)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		for i := 0; i < n; i++ {
			if err := r.Append(uint32(i)); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}
		written += n + 1
		if r.Remaining() != capacity-written {
			t.Fatalf("Remaining() = %d, want %d", r.Remaining(), capacity-written)
		}
		if r.Remaining() != r.Capacity()-r.Cursor() {
			t.Fatalf("Remaining() = %d, Capacity()-Cursor() = %d", r.Remaining(), r.Capacity()-r.Cursor())
		}
	}

	r.Reset()
	if r.Remaining() != capacity || r.Cursor() != 0 || !r.Empty() {
		t.Errorf("after Reset: Remaining() = %d, Cursor() = %d", r.Remaining(), r.Cursor())
	}
}

func TestRingReserveInsufficient(t *testing.T) {
	r := New(10)
	if !r.Reserve(8) {
		t.Fatal("Reserve(8) = false on empty ring of 10")
	}
	if r.Reserve(1) {
		t.Error("Reserve(1) = true with 1 word remaining, want false")
	}
	if r.Remaining() != 1 {
		t.Errorf("Remaining() = %d after failed reserve, want 1", r.Remaining())
	}
	if r.Fits(10) {
		t.Error("Fits(10) = true for capacity 10")
	}
	if !r.Fits(9) {
		t.Error("Fits(9) = false for capacity 10")
	}
}

func TestRingOverflow(t *testing.T) {
	r := New(2)
	if err := r.AppendBlock([]uint32{1, 2, 3}); !errors.Is(err, ErrOverflow) {
		t.Errorf("AppendBlock() error = %v, want ErrOverflow", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after failed block, want 0", r.Len())
	}
	_ = r.Append(1)
	_ = r.Append(2)
	if err := r.Append(3); !errors.Is(err, ErrOverflow) {
		t.Errorf("Append() error = %v, want ErrOverflow", err)
	}
}

func TestRingPatch(t *testing.T) {
	r := New(4)
	_ = r.Append(0)
	_ = r.AppendFloat(1.5)
	if err := r.Patch(0, 0xdead); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if w, _ := r.At(0); w != 0xdead {
		t.Errorf("At(0) = 0x%x, want 0xdead", w)
	}
	if w, _ := r.At(1); w != math.Float32bits(1.5) {
		t.Errorf("At(1) = 0x%x, want bits of 1.5", w)
	}
	if err := r.Patch(2, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Patch(unwritten) error = %v, want ErrOverflow", err)
	}
}

func TestDecoder(t *testing.T) {
	words := []uint32{
		Header(1, 0x184, 2), 0xa, 0xb,
		HeaderNI(2, 0x600, 1), 0xc,
		Header(0, 0x100, 0),
	}
	dec := NewDecoder(words)

	var got []Method
	for dec.Next() {
		got = append(got, dec.Method())
	}
	if len(got) != 3 {
		t.Fatalf("decoded %d groups, want 3", len(got))
	}
	if got[0].Subchannel != 1 || got[0].Method != 0x184 || got[0].Count != 2 {
		t.Errorf("group 0 = %v", got[0])
	}
	if !got[1].NonIncrementing {
		t.Errorf("group 1 = %v, want non-incrementing", got[1])
	}
	if dec.Truncated() {
		t.Error("Truncated() = true for complete stream")
	}

	writes, ok := Writes(words)
	if !ok || len(writes) != 3 {
		t.Fatalf("Writes() = %d writes, ok=%v", len(writes), ok)
	}
	if writes[1].Method != 0x188 || writes[1].Value != 0xb {
		t.Errorf("writes[1] = %+v, want method 0x188 value 0xb", writes[1])
	}
}

func TestDecoderTruncated(t *testing.T) {
	dec := NewDecoder([]uint32{Header(0, 0x100, 4), 1, 2})
	if dec.Next() {
		t.Error("Next() = true for truncated group")
	}
	if !dec.Truncated() {
		t.Error("Truncated() = false")
	}
}
