// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// Bench is a single-goroutine, manually-driven Scheduler for tests. It
// keeps its own virtual clock: nothing runs until the test calls
// RunOneTask or RunReadyTasks, and timers only move into the ready queue
// when AdvanceTime passes their deadline, so fiber behavior becomes
// fully deterministic and reproducible.
type Bench struct {
	mu      sync.Mutex
	now     time.Duration
	ready   []Task
	timers  timerHeap
	metrics Metrics
}

// NewBench returns a Bench scheduler with its virtual clock at zero.
func NewBench(opts ...Option) *Bench {
	cfg := newConfig(opts...)
	return &Bench{metrics: cfg.Metrics}
}

// Submit implements Scheduler: t is appended to the ready queue and will
// run on the next RunOneTask/RunReadyTasks call.
func (b *Bench) Submit(t Task) {
	b.metrics.TaskSubmitted()
	b.mu.Lock()
	b.ready = append(b.ready, t)
	b.mu.Unlock()
}

// SubmitBulk implements Scheduler.
func (b *Bench) SubmitBulk(ts []Task) {
	for _, t := range ts {
		b.Submit(t)
	}
}

// benchTimer is the TimerHandle returned by Bench.SubmitAfter: canceling
// it removes the entry from the virtual-time heap directly, since there
// is no real OS timer to race against.
type benchTimer struct {
	b             *Bench
	entry         *timerEntry
	canceled      bool
	completed     bool
	onCancelFns   []func()
	onShutdownFns []func()
}

// complete fires every registered OnShutdown callback exactly once,
// after the timer's wrapped task has finished running.
func (t *benchTimer) complete() {
	t.b.mu.Lock()
	t.completed = true
	fns := t.onShutdownFns
	t.onShutdownFns = nil
	t.b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (t *benchTimer) OnShutdown(f func()) {
	t.b.mu.Lock()
	if t.completed {
		t.b.mu.Unlock()
		f()
		return
	}
	t.onShutdownFns = append(t.onShutdownFns, f)
	t.b.mu.Unlock()
}

func (t *benchTimer) Cancel() bool {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.canceled || t.entry.fired {
		return false
	}
	t.canceled = true
	t.entry.canceled = true
	for i, e := range t.b.timers {
		if e == t.entry {
			heap.Remove(&t.b.timers, i)
			break
		}
	}
	t.b.metrics.TimerCanceled()
	fns := t.onCancelFns
	t.onCancelFns = nil
	for _, fn := range fns {
		fn()
	}
	return true
}

func (t *benchTimer) IsCanceled() bool {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	return t.canceled
}

func (t *benchTimer) OnCancel(f func()) {
	t.b.mu.Lock()
	if t.canceled {
		t.b.mu.Unlock()
		f()
		return
	}
	t.onCancelFns = append(t.onCancelFns, f)
	t.b.mu.Unlock()
}

// SubmitAfter implements Scheduler: t fires once the virtual clock
// reaches now+d, via AdvanceTime.
func (b *Bench) SubmitAfter(d time.Duration, t Task) TimerHandle {
	b.metrics.TimerScheduled()
	bt := &benchTimer{b: b}
	b.mu.Lock()
	entry := &timerEntry{at: b.now + d, task: func() {
		t()
		bt.complete()
	}}
	heap.Push(&b.timers, entry)
	b.mu.Unlock()
	bt.entry = entry
	return bt
}

// IsIdle implements Scheduler.
func (b *Bench) IsIdle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ready) == 0 && b.timers.Len() == 0
}

// RunOneTask runs the single oldest ready task, if any, and reports
// whether it ran one.
func (b *Bench) RunOneTask() bool {
	b.mu.Lock()
	if len(b.ready) == 0 {
		b.mu.Unlock()
		return false
	}
	t := b.ready[0]
	b.ready = b.ready[1:]
	b.mu.Unlock()
	b.metrics.TaskStarted()
	runTask(t)
	b.metrics.TaskCompleted()
	return true
}

// RunReadyTasks runs every currently-ready task, including ones newly
// enqueued by tasks it runs along the way, until none remain.
func (b *Bench) RunReadyTasks() int {
	n := 0
	for b.RunOneTask() {
		n++
	}
	return n
}

// AdvanceTime moves the virtual clock forward by d, firing (and
// submitting) every timer whose deadline falls at or before the new
// time. It does not itself run the fired tasks; call RunReadyTasks
// afterward.
func (b *Bench) AdvanceTime(d time.Duration) int {
	b.mu.Lock()
	b.now += d
	fired := 0
	for b.timers.Len() > 0 && b.timers[0].at <= b.now {
		entry := heap.Pop(&b.timers).(*timerEntry)
		if entry.canceled {
			continue
		}
		entry.fired = true
		b.metrics.TimerFired()
		b.ready = append(b.ready, entry.task)
		fired++
	}
	b.mu.Unlock()
	return fired
}

// NumTasksReady reports how many tasks are currently runnable without
// advancing the virtual clock.
func (b *Bench) NumTasksReady() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ready)
}

// NumTimers reports how many timers are still pending (not yet fired or
// canceled).
func (b *Bench) NumTimers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timers.Len()
}

// Now returns the scheduler's current virtual time, measured from zero
// at construction.
func (b *Bench) Now() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

type timerEntry struct {
	at       time.Duration
	task     Task
	canceled bool
	fired    bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at < h[j].at }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
