package governor

// ring is a fixed-capacity circular buffer. Push overwrites the oldest entry
// once full; At(0) is the most recent entry. Invariants: 0 <= head < cap,
// 0 <= count <= cap.
type ring[T any] struct {
	buf   []T
	head  int // next write position
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

// Push appends v, overwriting the oldest entry when full.
func (r *ring[T]) Push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of stored entries.
func (r *ring[T]) Len() int {
	return r.count
}

// Cap returns the fixed capacity.
func (r *ring[T]) Cap() int {
	return len(r.buf)
}

// At returns the i-th most recent entry; At(0) is the newest. The index must
// satisfy 0 <= i < Len().
func (r *ring[T]) At(i int) T {
	pos := (r.head - 1 - i + len(r.buf)) % len(r.buf)
	return r.buf[pos]
}

// SetAt replaces the i-th most recent entry.
func (r *ring[T]) SetAt(i int, v T) {
	pos := (r.head - 1 - i + len(r.buf)) % len(r.buf)
	r.buf[pos] = v
}

// Recent returns up to n most recent entries, newest first.
func (r *ring[T]) Recent(n int) []T {
	if n > r.count {
		n = r.count
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Reset drops all entries.
func (r *ring[T]) Reset() {
	r.head = 0
	r.count = 0
}
