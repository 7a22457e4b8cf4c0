package governor

import "testing"

func TestRingPushAndAt(t *testing.T) {
	r := newRing[int](4)
	if r.Len() != 0 || r.Cap() != 4 {
		t.Fatalf("fresh ring len/cap = %d/%d", r.Len(), r.Cap())
	}
	for i := 1; i <= 3; i++ {
		r.Push(i)
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	if r.At(0) != 3 || r.At(1) != 2 || r.At(2) != 1 {
		t.Errorf("At order wrong: %d %d %d", r.At(0), r.At(1), r.At(2))
	}
}

func TestRingWrapOverwritesOldest(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	want := []int{5, 4, 3}
	for i, w := range want {
		if got := r.At(i); got != w {
			t.Errorf("At(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestRingRecent(t *testing.T) {
	r := newRing[string](4)
	r.Push("a")
	r.Push("b")
	r.Push("c")

	got := r.Recent(2)
	if len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Errorf("Recent(2) = %v", got)
	}
	if got := r.Recent(10); len(got) != 3 {
		t.Errorf("Recent(10) len = %d, want 3", len(got))
	}
}

func TestRingSetAt(t *testing.T) {
	r := newRing[int](3)
	r.Push(1)
	r.Push(2)
	r.SetAt(1, 99)
	if r.At(1) != 99 || r.At(0) != 2 {
		t.Errorf("after SetAt: At(0)=%d At(1)=%d", r.At(0), r.At(1))
	}
}

func TestRingReset(t *testing.T) {
	r := newRing[int](2)
	r.Push(1)
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("len after reset = %d", r.Len())
	}
}
