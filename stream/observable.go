// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"sync"

	"code.hybscloud.com/cask"
	"code.hybscloud.com/cask/internal/xerrors"
)

// Observable is a lazy, repeatable description of a sequence of
// notifications. Nothing runs until Subscribe is called: an Observable
// is a Task[struct{}] factory parameterized over the Observer that
// will receive the notifications, the same relationship a cask.Task
// has to the Fiber that eventually runs it. Subscribing the same
// Observable twice runs the producer twice, from scratch, each time.
type Observable[T any] struct {
	run func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}]
}

func newObservable[T any](run func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}]) Observable[T] {
	return Observable[T]{run: run}
}

// Subscribe starts the Observable's producer on sched, delivering
// notifications to obs, and returns a Subscription that can cancel it.
func (o Observable[T]) Subscribe(sched cask.Scheduler, obs Observer[T]) Subscription {
	state := &subscriptionState{}
	fb := cask.Run(o.run(sched, obs), sched)
	state.fiber = fb
	fb.OnFiberShutdown(func(*cask.Fiber[struct{}]) { state.runTeardowns() })
	return Subscription{state: state}
}

type subscriptionState struct {
	mu        sync.Mutex
	fiber     *cask.Fiber[struct{}]
	teardowns []func()
	ran       bool
}

// runTeardowns runs every registered teardown exactly once, recovering
// a panic from each so that one misbehaving teardown does not stop the
// others from running, then re-panics the joined set — mirroring
// ro.Subscription's contract that a broken finalizer surfaces loudly
// instead of disappearing silently.
func (s *subscriptionState) runTeardowns() {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return
	}
	s.ran = true
	fns := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	var errs []error
	for _, f := range fns {
		if err := recoverToError(f); err != nil {
			errs = append(errs, err)
		}
	}
	if joined := xerrors.Join(errs); joined != nil {
		panic(joined)
	}
}

func (s *subscriptionState) add(f func()) {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		f()
		return
	}
	s.teardowns = append(s.teardowns, f)
	s.mu.Unlock()
}

// Subscription represents an active Observable subscription. Its zero
// value is already unsubscribed and runs any Add-ed teardown inline.
type Subscription struct {
	state *subscriptionState
}

// Unsubscribe cancels the subscription, causing the underlying
// producer Fiber to stop at its next cancellation check and running
// every teardown registered via Add (as well as any
// Guarantee/DoOnCancel finalizers built into the Observable itself).
func (s Subscription) Unsubscribe() {
	if s.state == nil || s.state.fiber == nil {
		return
	}
	s.state.fiber.Cancel()
}

// IsUnsubscribed reports whether the subscription has been canceled or
// has already run to completion.
func (s Subscription) IsUnsubscribed() bool {
	return s.state == nil || s.state.fiber == nil || s.state.fiber.IsCompleted() || s.state.fiber.IsCanceled()
}

// Add registers f to run once the subscription reaches a terminal
// state, whether by completion, error, or cancellation. If the
// subscription has already terminated, f runs immediately.
func (s Subscription) Add(f func()) {
	if s.state == nil {
		f()
		return
	}
	s.state.add(f)
}
