// Package pqueue provides a min-priority queue whose equal-priority items
// pop in insertion order.
package pqueue

import "container/heap"

type item[T any] struct {
	value    T
	priority float64
	seq      uint64
}

type itemHeap[T any] []item[T]

func (h itemHeap[T]) Len() int { return len(h) }

func (h itemHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap[T]) Push(x any) { *h = append(*h, x.(item[T])) }

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Queue is a min-priority queue. The zero value is ready to use.
type Queue[T any] struct {
	items itemHeap[T]
	seq   uint64
}

// New returns an empty queue with room for capacity items.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{items: make(itemHeap[T], 0, capacity)}
}

// Push adds value with the given priority.
func (q *Queue[T]) Push(value T, priority float64) {
	heap.Push(&q.items, item[T]{value: value, priority: priority, seq: q.seq})
	q.seq++
}

// Pop removes and returns the lowest-priority item.
func (q *Queue[T]) Pop() (T, float64, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, 0, false
	}
	it := heap.Pop(&q.items).(item[T])
	return it.value, it.priority, true
}

// Peek returns the lowest-priority item without removing it.
func (q *Queue[T]) Peek() (T, float64, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, 0, false
	}
	return q.items[0].value, q.items[0].priority, true
}

func (q *Queue[T]) Len() int { return len(q.items) }

// Reset empties the queue, keeping its storage.
func (q *Queue[T]) Reset() {
	q.items = q.items[:0]
	q.seq = 0
}
