package overtime

// Slot is one fixed-width time bucket of aggregate counts.
type Slot struct {
	Timestamp int64 `json:"timestamp"` // bucket start, Unix seconds
	Total     int   `json:"total"`
	Blocked   int   `json:"blocked"`
}

// Buckets is a sliding array of time-bucket aggregates. Slot i covers
// [start+i*width, start+(i+1)*width). The window slides forward as the
// retention cutoff advances; it never grows.
//
// Buckets carries no lock of its own: it is guarded by the arena lock,
// because its counts must stay consistent with the arena's records.
type Buckets struct {
	width int64
	start int64
	slots []Slot
}

// New creates a bucket window of numSlots buckets of width seconds,
// beginning at start. Start is aligned down to a bucket boundary so the
// window always lines up with the retention cutoff.
func New(numSlots int, width int64, start int64) *Buckets {
	start -= start % width
	b := &Buckets{
		width: width,
		start: start,
		slots: make([]Slot, numSlots),
	}
	for i := range b.slots {
		b.slots[i].Timestamp = start + int64(i)*width
	}
	return b
}

// Width returns the bucket width in seconds.
func (b *Buckets) Width() int64 { return b.width }

// Index returns the bucket index for ts, clamped into the current window.
// Timestamps outside the window are legal (a stale record during a
// delayed GC run, or a record newer than the last slot) and map to the
// nearest edge bucket rather than failing.
func (b *Buckets) Index(ts int64) int {
	idx := (ts - b.start) / b.width
	if idx < 0 {
		return 0
	}
	if idx >= int64(len(b.slots)) {
		return len(b.slots) - 1
	}
	return int(idx)
}

// Add counts one query in the bucket for ts.
func (b *Buckets) Add(ts int64, blocked bool) {
	slot := &b.slots[b.Index(ts)]
	slot.Total++
	if blocked {
		slot.Blocked++
	}
}

// Sub reverses one query's contribution to the bucket for ts.
func (b *Buckets) Sub(ts int64, blocked bool) {
	slot := &b.slots[b.Index(ts)]
	slot.Total--
	if blocked {
		slot.Blocked--
	}
}

// Slide discards every bucket that lies entirely before cutoff, shifts
// the remaining window down and extends it with fresh buckets at the far
// end. It returns the number of buckets discarded; zero means the check
// was a no-op.
func (b *Buckets) Slide(cutoff int64) int {
	if cutoff <= b.start {
		return 0
	}
	evict := (cutoff - b.start) / b.width
	if evict > int64(len(b.slots)) {
		evict = int64(len(b.slots))
	}
	n := int(evict)
	if n == 0 {
		return 0
	}

	copy(b.slots[:len(b.slots)-n], b.slots[n:])
	b.start += int64(n) * b.width

	// Fresh buckets continue the sequence at the far end
	for i := len(b.slots) - n; i < len(b.slots); i++ {
		b.slots[i] = Slot{Timestamp: b.start + int64(i)*b.width}
	}
	return n
}

// Slots returns a copy of the current window, oldest first.
func (b *Buckets) Slots() []Slot {
	out := make([]Slot, len(b.slots))
	copy(out, b.slots)
	return out
}
