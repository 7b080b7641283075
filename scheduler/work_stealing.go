// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"math/rand"
	"sync"
	"time"
)

// maxStealBatch bounds how many tasks a single steal attempt moves from
// a victim's queue at once, so one steal never starves the victim.
const maxStealBatch = 128

// deque is a mutex-guarded double-ended queue of Tasks. The owner pushes
// and pops from the front; thieves pop from the back.
type deque struct {
	mu    sync.Mutex
	items []Task
}

func (d *deque) pushFront(t Task) {
	d.mu.Lock()
	d.items = append([]Task{t}, d.items...)
	d.mu.Unlock()
}

func (d *deque) popFront() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil, false
	}
	t := d.items[0]
	d.items = d.items[1:]
	return t, true
}

func (d *deque) stealFromBack(max int) []Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.items)
	if n == 0 {
		return nil
	}
	if max > n {
		max = n
	}
	if max > maxStealBatch {
		max = maxStealBatch
	}
	start := n - max
	stolen := append([]Task(nil), d.items[start:]...)
	d.items = d.items[:start]
	return stolen
}

func (d *deque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// WorkStealing runs submitted work across a fixed set of workers, each
// with its own local deque. An idle worker picks a random peer and steals
// a batch of tasks off the back of that peer's deque rather than blocking.
type WorkStealing struct {
	workers []*deque
	metrics Metrics
	wake    chan struct{}

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	next  int
	nextMu sync.Mutex
}

// NewWorkStealing starts a WorkStealing scheduler with cfg.WorkerCount
// workers, each owning its own local deque.
func NewWorkStealing(opts ...Option) *WorkStealing {
	cfg := newConfig(opts...)
	ws := &WorkStealing{
		workers: make([]*deque, cfg.WorkerCount),
		metrics: cfg.Metrics,
		wake:    make(chan struct{}, cfg.WorkerCount),
		done:    make(chan struct{}),
	}
	for i := range ws.workers {
		ws.workers[i] = &deque{}
	}
	for i := range ws.workers {
		ws.wg.Add(1)
		go ws.runWorker(i)
	}
	return ws
}

func (ws *WorkStealing) runWorker(id int) {
	defer ws.wg.Done()
	own := ws.workers[id]
	idleBackoff := time.Millisecond
	for {
		if t, ok := own.popFront(); ok {
			ws.metrics.TaskStarted()
			runTask(t)
			ws.metrics.TaskCompleted()
			idleBackoff = time.Millisecond
			continue
		}
		if ws.stealOnce(id) {
			idleBackoff = time.Millisecond
			continue
		}
		select {
		case <-ws.done:
			return
		case <-ws.wake:
		case <-time.After(idleBackoff):
			if idleBackoff < 16*time.Millisecond {
				idleBackoff *= 2
			}
		}
	}
}

func (ws *WorkStealing) stealOnce(self int) bool {
	n := len(ws.workers)
	if n <= 1 {
		return false
	}
	victim := self
	for victim == self {
		victim = rand.Intn(n)
	}
	batch := ws.workers[victim].stealFromBack(maxStealBatch)
	if len(batch) == 0 {
		return false
	}
	ws.metrics.TaskStolen()
	own := ws.workers[self]
	for i := len(batch) - 1; i >= 0; i-- {
		own.pushFront(batch[i])
	}
	return true
}

func (ws *WorkStealing) pick() int {
	ws.nextMu.Lock()
	i := ws.next
	ws.next = (ws.next + 1) % len(ws.workers)
	ws.nextMu.Unlock()
	return i
}

// Submit implements Scheduler.
func (ws *WorkStealing) Submit(t Task) {
	ws.metrics.TaskSubmitted()
	ws.workers[ws.pick()].pushFront(t)
	select {
	case ws.wake <- struct{}{}:
	default:
	}
}

// SubmitBulk implements Scheduler.
func (ws *WorkStealing) SubmitBulk(ts []Task) {
	for _, t := range ts {
		ws.Submit(t)
	}
}

// SubmitAfter implements Scheduler.
func (ws *WorkStealing) SubmitAfter(d time.Duration, t Task) TimerHandle {
	ws.metrics.TimerScheduled()
	h := newRealTimer(d, func(t Task) { ws.metrics.TimerFired(); ws.Submit(t) }, t)
	return timerWithCancelMetric{h, ws.metrics}
}

// IsIdle implements Scheduler.
func (ws *WorkStealing) IsIdle() bool {
	for _, w := range ws.workers {
		if w.len() > 0 {
			return false
		}
	}
	return true
}

// Close stops every worker goroutine once its local deque drains.
func (ws *WorkStealing) Close() {
	ws.closeOnce.Do(func() { close(ws.done) })
	ws.wg.Wait()
}
