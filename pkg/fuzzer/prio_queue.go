// Copyright 2024 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"container/heap"
	"sync"
)

// priorityQueue pops items with the highest priority first.
// Items with equal priority are popped in the push order.
type priorityQueue[T any] struct {
	mu   sync.Mutex
	impl priorityQueueImpl[T]
	seq  uint64
}

func makePriorityQueue[T any]() *priorityQueue[T] {
	return &priorityQueue[T]{}
}

func (pq *priorityQueue[T]) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.impl.Len()
}

func (pq *priorityQueue[T]) push(value T, prio int) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.seq++
	heap.Push(&pq.impl, &priorityQueueItem[T]{value: value, prio: prio, seq: pq.seq})
}

// tryPop does not wait if the queue is being used by another worker.
func (pq *priorityQueue[T]) tryPop() (T, bool) {
	if !pq.mu.TryLock() {
		var zero T
		return zero, false
	}
	defer pq.mu.Unlock()
	return pq.popLocked()
}

func (pq *priorityQueue[T]) pop() (T, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.popLocked()
}

func (pq *priorityQueue[T]) popLocked() (T, bool) {
	if len(pq.impl) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&pq.impl).(*priorityQueueItem[T]).value, true
}

// The implementation below is based on the example provided
// by https://pkg.go.dev/container/heap.

type priorityQueueItem[T any] struct {
	value T
	prio  int
	seq   uint64
}

type priorityQueueImpl[T any] []*priorityQueueItem[T]

func (pq priorityQueueImpl[T]) Len() int { return len(pq) }

func (pq priorityQueueImpl[T]) Less(i, j int) bool {
	if pq[i].prio != pq[j].prio {
		return pq[i].prio > pq[j].prio
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueueImpl[T]) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueueImpl[T]) Push(x any) {
	*pq = append(*pq, x.(*priorityQueueItem[T]))
}

func (pq *priorityQueueImpl[T]) Pop() any {
	n := len(*pq)
	item := (*pq)[n-1]
	(*pq)[n-1] = nil
	*pq = (*pq)[:n-1]
	return item
}
