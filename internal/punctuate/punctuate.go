// Package punctuate implements PunctuationQueue, the priority queue of
// scheduled periodic callbacks a StreamTask fires against advancing stream
// time rather than wall time.
package punctuate

import "container/heap"

// Punctuator is invoked with the current stream time when its schedule
// fires.
type Punctuator interface {
	Punctuate(streamTime int64)
}

type entry struct {
	node     Punctuator
	interval int64
	nextFire int64
	seq      int // registration order, breaks ties among equal nextFire
	index    int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].nextFire != h[j].nextFire {
		return h[i].nextFire < h[j].nextFire
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue holds scheduled (node, interval) punctuations ordered by next-fire
// stream time.
type Queue struct {
	heap entryHeap
	seq  int
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Schedule registers node to fire every interval stream-time units,
// starting at currentStreamTime+interval.
func (q *Queue) Schedule(node Punctuator, interval int64, currentStreamTime int64) {
	e := &entry{
		node:     node,
		interval: interval,
		nextFire: currentStreamTime + interval,
		seq:      q.seq,
	}
	q.seq++
	heap.Push(&q.heap, e)
}

// MaybePunctuate fires every scheduled entry whose next-fire time is at or
// before currentStreamTime, in next-fire order (ties broken by scheduling
// order), then reschedules each at nextFire+interval. Returns the number of
// firings.
func (q *Queue) MaybePunctuate(currentStreamTime int64) int {
	fired := 0
	for q.heap.Len() > 0 && q.heap[0].nextFire <= currentStreamTime {
		e := heap.Pop(&q.heap).(*entry)
		e.node.Punctuate(currentStreamTime)
		e.nextFire += e.interval
		heap.Push(&q.heap, e)
		fired++
	}
	return fired
}

// Len reports the number of scheduled entries.
func (q *Queue) Len() int { return q.heap.Len() }

// Close drops every scheduled entry.
func (q *Queue) Close() {
	q.heap = nil
}
