// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"sync"
	"time"
)

// SingleThread runs every submitted Task on one dedicated goroutine, in
// submission order. It is the simplest Scheduler: useful for code that
// must not run concurrently with itself.
type SingleThread struct {
	tasks   chan Task
	metrics Metrics

	closeOnce sync.Once
	done      chan struct{}

	pending sync.WaitGroup
}

// NewSingleThread starts a SingleThread scheduler backed by a single
// dispatch goroutine. Close stops the worker without running the tasks
// still queued.
func NewSingleThread(opts ...Option) *SingleThread {
	cfg := newConfig(opts...)
	st := &SingleThread{
		tasks:   make(chan Task, cfg.QueueCapacity),
		metrics: cfg.Metrics,
		done:    make(chan struct{}),
	}
	go st.loop()
	return st
}

func (st *SingleThread) loop() {
	for {
		select {
		case t, ok := <-st.tasks:
			if !ok {
				return
			}
			st.metrics.TaskStarted()
			runTask(t)
			st.metrics.TaskCompleted()
			st.pending.Done()
		case <-st.done:
			return
		}
	}
}

func runTask(t Task) {
	defer func() { recover() }()
	t()
}

// Submit implements Scheduler.
func (st *SingleThread) Submit(t Task) {
	st.metrics.TaskSubmitted()
	st.pending.Add(1)
	st.tasks <- t
}

// SubmitBulk implements Scheduler.
func (st *SingleThread) SubmitBulk(ts []Task) {
	for _, t := range ts {
		st.Submit(t)
	}
}

// SubmitAfter implements Scheduler.
func (st *SingleThread) SubmitAfter(d time.Duration, t Task) TimerHandle {
	st.metrics.TimerScheduled()
	h := newRealTimer(d, func(t Task) { st.metrics.TimerFired(); st.Submit(t) }, t)
	return timerWithCancelMetric{h, st.metrics}
}

// IsIdle implements Scheduler.
func (st *SingleThread) IsIdle() bool {
	return len(st.tasks) == 0
}

// Close stops the worker goroutine once any in-flight task finishes. It
// does not wait for already-queued tasks to run.
func (st *SingleThread) Close() {
	st.closeOnce.Do(func() { close(st.done) })
}

// timerWithCancelMetric decorates a TimerHandle so Cancel reports to
// Metrics, shared by every goroutine-backed scheduler in this package.
type timerWithCancelMetric struct {
	*realTimer
	metrics Metrics
}

func (t timerWithCancelMetric) Cancel() bool {
	ok := t.realTimer.Cancel()
	if ok {
		t.metrics.TimerCanceled()
	}
	return ok
}
