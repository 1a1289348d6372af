// Package tracker implements a monotonic-deque minimum-timestamp tracker,
// the building block RecordQueue uses to answer "what is the lowest
// timestamp currently buffered" in amortized O(1) without re-scanning the
// queue on every add/remove.
package tracker

// Stamped is anything carrying a record's original insertion offset and its
// extracted timestamp. RecordQueue's StampedRecord satisfies this.
type Stamped interface {
	Offset() int64
	Timestamp() int64
}

// Tracker maintains a lower bound on the minimum timestamp among a set of
// Stamped values currently held, supporting Add/Remove in the insertion
// order a FIFO queue presents them in.
//
// The implementation keeps a deque of candidate minima: on Add(x), every
// trailing candidate with a timestamp >= x's is popped first, since it can
// never again be the minimum while x remains in the set. On Remove(x), x is
// only popped from the front if it is still the current head; if it was
// already shadowed by a smaller value, removal is a no-op.
type Tracker struct {
	candidates []Stamped
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Add records x as newly buffered.
func (t *Tracker) Add(x Stamped) {
	i := len(t.candidates)
	for i > 0 && t.candidates[i-1].Timestamp() >= x.Timestamp() {
		i--
	}
	t.candidates = append(t.candidates[:i], x)
}

// Remove records x as no longer buffered. x must be the oldest surviving
// insertion order is not checked; a Remove of an already-shadowed entry is
// safe and a no-op.
func (t *Tracker) Remove(x Stamped) {
	if len(t.candidates) == 0 {
		return
	}
	head := t.candidates[0]
	if head.Offset() == x.Offset() {
		t.candidates = t.candidates[1:]
	}
}

// Get returns the minimum timestamp currently tracked, or -1 if nothing is
// held.
func (t *Tracker) Get() int64 {
	if len(t.candidates) == 0 {
		return -1
	}
	return t.candidates[0].Timestamp()
}

// Len reports how many un-shadowed candidates remain in the deque. Exposed
// for tests; never larger than the number of buffered records.
func (t *Tracker) Len() int {
	return len(t.candidates)
}
