package bufpool

import "testing"

func TestAcquireNeverBlocksBeyondCapacity(t *testing.T) {
	p := New(16, 2)

	bufs := make([][]byte, 0, 5)
	for i := 0; i < 5; i++ {
		bufs = append(bufs, p.Acquire())
	}

	if got := p.TotalIssued(); got != 5 {
		t.Fatalf("TotalIssued() = %d, want 5", got)
	}
	for _, b := range bufs {
		if len(b) != 16 {
			t.Fatalf("acquired buffer has length %d, want 16", len(b))
		}
	}
}

func TestReleaseZeroesAndBoundsCapacity(t *testing.T) {
	p := New(4, 1)

	a := p.Acquire() // drains the single pre-filled buffer
	b := p.Acquire() // pool empty, allocates fresh

	copy(a, []byte{1, 2, 3, 4})
	copy(b, []byte{5, 6, 7, 8})

	p.Release(a)
	if avail := p.Available(); avail != 1 {
		t.Fatalf("Available() = %d after first release, want 1", avail)
	}

	// Capacity is 1: this release must be dropped, not accumulate.
	p.Release(b)
	if avail := p.Available(); avail != 1 {
		t.Fatalf("Available() = %d after overflow release, want 1 (lossy pool)", avail)
	}

	reused := p.Acquire()
	for i, v := range reused {
		if v != 0 {
			t.Fatalf("reused buffer not zeroed at index %d: %d", i, v)
		}
	}
}

func TestReleaseWrongSizeIsDropped(t *testing.T) {
	p := New(8, 1)
	before := p.Available()

	p.Release(make([]byte, 4))

	if after := p.Available(); after != before {
		t.Fatalf("Available() changed after releasing wrong-size buffer: before=%d after=%d", before, after)
	}
}

func TestPoolConservation(t *testing.T) {
	p := New(32, 4)

	var held [][]byte
	for i := 0; i < 10; i++ {
		held = append(held, p.Acquire())
		if p.Available() > 4 {
			t.Fatalf("Available() exceeded capacity: %d", p.Available())
		}
	}

	for _, b := range held {
		p.Release(b)
		if p.Available() > 4 {
			t.Fatalf("Available() exceeded capacity after release: %d", p.Available())
		}
	}
}
