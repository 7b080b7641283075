// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import "sync"

// Backpressure controls what a bounded Queue does when Put is called
// against a full buffer.
type Backpressure int

const (
	// BackpressureBlock parks the putting fiber until room frees up, in
	// FIFO order relative to other blocked putters.
	BackpressureBlock Backpressure = iota
	// BackpressureDrop completes Put immediately without buffering the
	// value, reporting the drop through OnDroppedNotification.
	BackpressureDrop
)

type pendingPut[A any] struct {
	value A
	done  *Promise[struct{}]
}

// Queue is a bounded, multi-producer multi-consumer buffer. Put and
// Take are Task-returning, so they compose naturally into Fiber graphs
// and park the owning fiber (rather than blocking an OS thread) when
// the queue is full or empty. A capacity of 0 makes Queue a pure
// rendezvous: Put and Take only ever complete by handing a value
// directly from one to the other.
type Queue[A any] struct {
	mu       sync.Mutex
	capacity int
	policy   Backpressure

	values       []A
	pendingTakes []*Promise[A]
	pendingPuts  []pendingPut[A]
}

// NewQueue creates a Queue with the given capacity and overflow policy.
// A non-positive capacity is treated as 0 (rendezvous).
func NewQueue[A any](capacity int, policy Backpressure) *Queue[A] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[A]{capacity: capacity, policy: policy}
}

// Put enqueues value, or — under BackpressureBlock with a full buffer —
// returns a Task that completes once room becomes available.
func (q *Queue[A]) Put(value A) Task[struct{}] {
	return AsyncTask(func(sched Scheduler) *Deferred[struct{}] {
		p := NewPromise[struct{}](sched)
		q.mu.Lock()

		if len(q.pendingTakes) > 0 {
			taker := q.pendingTakes[0]
			q.pendingTakes = q.pendingTakes[1:]
			q.mu.Unlock()
			taker.Success(value)
			p.Success(struct{}{})
			return p.Deferred()
		}

		if q.capacity > 0 && len(q.values) < q.capacity {
			q.values = append(q.values, value)
			q.mu.Unlock()
			p.Success(struct{}{})
			return p.Deferred()
		}

		switch q.policy {
		case BackpressureDrop:
			q.mu.Unlock()
			OnDroppedNotification("queue full, tail-drop", value)
			p.Success(struct{}{})
		default:
			q.pendingPuts = append(q.pendingPuts, pendingPut[A]{value: value, done: p})
			q.mu.Unlock()
		}
		return p.Deferred()
	})
}

// Take removes and returns the oldest buffered value, or — if the
// buffer is empty — returns a Task that completes once a value is put.
func (q *Queue[A]) Take() Task[A] {
	return AsyncTask(func(sched Scheduler) *Deferred[A] {
		p := NewPromise[A](sched)
		q.mu.Lock()

		if len(q.values) > 0 {
			v := q.values[0]
			q.values = q.values[1:]
			if len(q.pendingPuts) > 0 {
				pp := q.pendingPuts[0]
				q.pendingPuts = q.pendingPuts[1:]
				q.values = append(q.values, pp.value)
				q.mu.Unlock()
				pp.done.Success(struct{}{})
				p.Success(v)
				return p.Deferred()
			}
			q.mu.Unlock()
			p.Success(v)
			return p.Deferred()
		}

		if len(q.pendingPuts) > 0 {
			pp := q.pendingPuts[0]
			q.pendingPuts = q.pendingPuts[1:]
			q.mu.Unlock()
			pp.done.Success(struct{}{})
			p.Success(pp.value)
			return p.Deferred()
		}

		q.pendingTakes = append(q.pendingTakes, p)
		q.mu.Unlock()
		return p.Deferred()
	})
}

// TryPut attempts to enqueue value without suspending: it reports false
// if the queue is full under BackpressureBlock, true otherwise
// (including when the value is silently dropped under
// BackpressureDrop).
func (q *Queue[A]) TryPut(value A) bool {
	q.mu.Lock()
	if len(q.pendingTakes) > 0 {
		taker := q.pendingTakes[0]
		q.pendingTakes = q.pendingTakes[1:]
		q.mu.Unlock()
		taker.Success(value)
		return true
	}
	if len(q.values) < q.capacity {
		q.values = append(q.values, value)
		q.mu.Unlock()
		return true
	}
	if q.policy == BackpressureDrop {
		q.mu.Unlock()
		OnDroppedNotification("queue full, tail-drop", value)
		return true
	}
	q.mu.Unlock()
	return false
}

// Size reports the number of buffered values.
func (q *Queue[A]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.values)
}

// Capacity returns the queue's configured capacity.
func (q *Queue[A]) Capacity() int { return q.capacity }
