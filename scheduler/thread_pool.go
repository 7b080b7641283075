// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"sync"
	"time"
)

// ThreadPool runs submitted work across a fixed number of goroutines
// draining a single shared queue. Unlike WorkStealing it has no per-worker
// locality; it is the right default when tasks are independent and
// roughly uniform in cost.
type ThreadPool struct {
	tasks   chan Task
	metrics Metrics

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewThreadPool starts a ThreadPool with cfg.WorkerCount goroutines (the
// default is runtime.GOMAXPROCS(0)).
func NewThreadPool(opts ...Option) *ThreadPool {
	cfg := newConfig(opts...)
	tp := &ThreadPool{
		tasks:   make(chan Task, cfg.QueueCapacity),
		metrics: cfg.Metrics,
		done:    make(chan struct{}),
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		tp.wg.Add(1)
		go tp.worker()
	}
	return tp
}

func (tp *ThreadPool) worker() {
	defer tp.wg.Done()
	for {
		select {
		case t, ok := <-tp.tasks:
			if !ok {
				return
			}
			tp.metrics.TaskStarted()
			runTask(t)
			tp.metrics.TaskCompleted()
		case <-tp.done:
			return
		}
	}
}

// Submit implements Scheduler.
func (tp *ThreadPool) Submit(t Task) {
	tp.metrics.TaskSubmitted()
	tp.tasks <- t
}

// SubmitBulk implements Scheduler.
func (tp *ThreadPool) SubmitBulk(ts []Task) {
	for _, t := range ts {
		tp.Submit(t)
	}
}

// SubmitAfter implements Scheduler.
func (tp *ThreadPool) SubmitAfter(d time.Duration, t Task) TimerHandle {
	tp.metrics.TimerScheduled()
	h := newRealTimer(d, func(t Task) { tp.metrics.TimerFired(); tp.Submit(t) }, t)
	return timerWithCancelMetric{h, tp.metrics}
}

// IsIdle implements Scheduler.
func (tp *ThreadPool) IsIdle() bool {
	return len(tp.tasks) == 0
}

// Close signals every worker goroutine to exit and waits until they
// have. Each worker finishes its in-flight task first; tasks still
// queued are not run.
func (tp *ThreadPool) Close() {
	tp.closeOnce.Do(func() { close(tp.done) })
	tp.wg.Wait()
}
