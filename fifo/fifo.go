package fifo

// Fifo is a fixed-capacity byte queue with strict FIFO ordering.
// The controller instantiates it twice, once per direction, with the
// depth passed in rather than hardcoded.
type Fifo struct {
	items    []byte
	capacity int
}

// New returns an empty Fifo holding at most capacity bytes.
func New(capacity int) *Fifo {
	return &Fifo{capacity: capacity}
}

// Enqueue adds a byte to the rear of the queue. A full queue rejects
// the byte and stays unchanged.
func (f *Fifo) Enqueue(b byte) bool {
	if len(f.items) == f.capacity {
		return false
	}
	f.items = append(f.items, b)
	return true
}

// Dequeue removes and returns the byte at the front of the queue.
func (f *Fifo) Dequeue() (byte, bool) {
	if len(f.items) == 0 {
		return 0, false
	}
	front := f.items[0]
	f.items = f.items[1:]
	return front, true
}

// Len returns the current occupancy.
func (f *Fifo) Len() int {
	return len(f.items)
}

// Empty is true iff occupancy is zero.
func (f *Fifo) Empty() bool {
	return len(f.items) == 0
}

// Full is true iff occupancy equals capacity.
func (f *Fifo) Full() bool {
	return len(f.items) == f.capacity
}

// Reset discards all queued bytes.
func (f *Fifo) Reset() {
	f.items = f.items[:0]
}
