package exec

import (
	"container/heap"
	"sync"
)

// item is a single entry in the job queue
type item[T any] struct {
	value    T
	priority int
	index    int
}

// jobHeap implements heap.Interface
type jobHeap[T any] []*item[T]

func (h jobHeap[T]) Len() int {
	return len(h)
}

// lower values = higher priority
func (h jobHeap[T]) Less(i, j int) bool {
	return h[i].priority < h[j].priority
}

func (h jobHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap[T]) Push(x interface{}) {
	n := len(*h)
	it := x.(*item[T])
	it.index = n
	*h = append(*h, it)
}

func (h *jobHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil  // avoid memory leak
	it.index = -1   // for safety
	*h = old[0 : n-1]
	return it
}

// Queue is a thread-safe generic priority queue.
type Queue[T any] struct {
	heap jobHeap[T]
	mu   sync.Mutex
}

func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{
		heap: make(jobHeap[T], 0),
	}
	heap.Init(&q.heap)
	return q
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Enqueue adds a value with the given priority.
func (q *Queue[T]) Enqueue(value T, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.heap, &item[T]{
		value:    value,
		priority: priority,
	})
}

// Dequeue removes and returns the highest priority value.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.heap.Len() == 0 {
		var zero T
		return zero, false
	}

	it := heap.Pop(&q.heap).(*item[T])
	return it.value, true
}
