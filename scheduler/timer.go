// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// realTimer is the TimerHandle shared by the goroutine-backed scheduler
// implementations (SingleThread, ThreadPool, WorkStealing). It wraps a
// stdlib time.Timer and guards cancellation with a CAS so that a firing
// timer and a racing Cancel call never both win.
type realTimer struct {
	timer     *time.Timer
	fired     atomic.Bool
	canceled  atomic.Bool
	completed atomic.Bool

	mu            sync.Mutex
	onCancelFns   []func()
	onShutdownFns []func()
}

func newRealTimer(d time.Duration, submit func(Task), t Task) *realTimer {
	rt := &realTimer{}
	rt.timer = time.AfterFunc(d, func() {
		if rt.fired.CompareAndSwap(false, true) {
			submit(func() {
				t()
				rt.complete()
			})
		}
	})
	return rt
}

// complete fires every registered OnShutdown callback exactly once,
// after the timer's wrapped task has finished running.
func (rt *realTimer) complete() {
	rt.completed.Store(true)
	rt.mu.Lock()
	fns := rt.onShutdownFns
	rt.onShutdownFns = nil
	rt.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (rt *realTimer) Cancel() bool {
	if !rt.fired.CompareAndSwap(false, true) {
		return false
	}
	rt.timer.Stop()
	rt.canceled.Store(true)
	rt.mu.Lock()
	fns := rt.onCancelFns
	rt.onCancelFns = nil
	rt.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return true
}

func (rt *realTimer) IsCanceled() bool {
	return rt.canceled.Load()
}

func (rt *realTimer) OnCancel(f func()) {
	if rt.IsCanceled() {
		f()
		return
	}
	rt.mu.Lock()
	if rt.canceled.Load() {
		rt.mu.Unlock()
		f()
		return
	}
	rt.onCancelFns = append(rt.onCancelFns, f)
	rt.mu.Unlock()
}

func (rt *realTimer) OnShutdown(f func()) {
	if rt.completed.Load() {
		f()
		return
	}
	rt.mu.Lock()
	if rt.completed.Load() {
		rt.mu.Unlock()
		f()
		return
	}
	rt.onShutdownFns = append(rt.onShutdownFns, f)
	rt.mu.Unlock()
}
