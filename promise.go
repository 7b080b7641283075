// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import "sync"

// Deferred is the read side of a single-assignment cell that settles
// exactly once with a value, an error, or cancellation. Producers hand
// callers a *Deferred so they can observe the eventual result without
// being able to settle it themselves; the corresponding Promise holds
// that privilege.
type Deferred[A any] struct {
	mu      sync.Mutex
	settled bool
	out     outcome

	onValueCbs    []func(A)
	onErrorCbs    []func(error)
	onCancelCbs   []func()
	onCompleteCbs []func(A, error)

	submit func(func())
}

func newDeferred[A any]() *Deferred[A] {
	return &Deferred[A]{submit: func(f func()) { f() }}
}

func newScheduledDeferred[A any](sched Scheduler) *Deferred[A] {
	return &Deferred[A]{submit: func(f func()) { sched.Submit(f) }}
}

// settle is the single entry point every completion path funnels
// through; it is idempotent — only the first call has any effect — and
// reports whether this call was the one that settled d, so that
// Promise.Success/Promise.Error can tell a genuine first settlement
// apart from a redundant later one.
func (d *Deferred[A]) settle(o outcome) bool {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return false
	}
	d.settled = true
	d.out = o

	switch o.kind {
	case outcomeValue:
		valueCbs := d.onValueCbs
		completeCbs := d.onCompleteCbs
		d.clearCallbacks()
		d.mu.Unlock()
		v := o.val.(A)
		for _, cb := range valueCbs {
			d.submit(func() { cb(v) })
		}
		for _, cb := range completeCbs {
			d.submit(func() { cb(v, nil) })
		}
	case outcomeError:
		errorCbs := d.onErrorCbs
		completeCbs := d.onCompleteCbs
		d.clearCallbacks()
		d.mu.Unlock()
		var zero A
		for _, cb := range errorCbs {
			d.submit(func() { cb(o.err) })
		}
		for _, cb := range completeCbs {
			d.submit(func() { cb(zero, o.err) })
		}
	default:
		cancelCbs := d.onCancelCbs
		d.clearCallbacks()
		d.mu.Unlock()
		for _, cb := range cancelCbs {
			cb()
		}
	}
	return true
}

// panicIfAlreadyResolved is called after a redundant settle attempt to
// decide whether that redundancy is a programmer fault. A second
// Success/Error after the Promise already resolved with a value or an
// error panics; a second Success/Error after the Promise was already
// canceled stays silent, since Cancel always takes one-way precedence.
func (d *Deferred[A]) panicIfAlreadyResolved() {
	d.mu.Lock()
	kind := d.out.kind
	d.mu.Unlock()
	switch kind {
	case outcomeValue:
		panic("cask: promise already successfully completed")
	case outcomeError:
		panic("cask: promise already completed with an error")
	}
}

func (d *Deferred[A]) clearCallbacks() {
	d.onValueCbs = nil
	d.onErrorCbs = nil
	d.onCancelCbs = nil
	d.onCompleteCbs = nil
}

// onSettle is the internal hook Task composition uses to observe a
// Deferred's erased outcome, independent of the typed callbacks below.
func (d *Deferred[A]) onSettle(f func(outcome)) {
	d.OnComplete(func(v A, err error) {
		if err != nil {
			f(errorOutcome(err))
			return
		}
		f(valueOutcome(Erased(v)))
	})
	d.OnCancel(func() { f(canceledOutcome()) })
}

// OnValue registers f to run once d settles with a value. If d is
// already settled with a value, f runs immediately via the same
// scheduling path a fresh callback would.
func (d *Deferred[A]) OnValue(f func(A)) {
	d.mu.Lock()
	if d.settled {
		o := d.out
		d.mu.Unlock()
		if o.kind == outcomeValue {
			d.submit(func() { f(o.val.(A)) })
		}
		return
	}
	d.onValueCbs = append(d.onValueCbs, f)
	d.mu.Unlock()
}

// OnError registers f to run once d settles with an error.
func (d *Deferred[A]) OnError(f func(error)) {
	d.mu.Lock()
	if d.settled {
		o := d.out
		d.mu.Unlock()
		if o.kind == outcomeError {
			d.submit(func() { f(o.err) })
		}
		return
	}
	d.onErrorCbs = append(d.onErrorCbs, f)
	d.mu.Unlock()
}

// OnCancel registers f to run if and only if d is canceled. Unlike
// OnValue/OnError/OnComplete, the callback runs inline rather than
// through the scheduler, matching the original implementation's
// same-stack cancellation propagation.
func (d *Deferred[A]) OnCancel(f func()) {
	d.mu.Lock()
	if d.settled {
		canceled := d.out.isCanceled()
		d.mu.Unlock()
		if canceled {
			f()
		}
		return
	}
	d.onCancelCbs = append(d.onCancelCbs, f)
	d.mu.Unlock()
}

// OnComplete registers f to run once d settles with a value or an
// error. It never fires on cancellation.
func (d *Deferred[A]) OnComplete(f func(A, error)) {
	d.mu.Lock()
	if d.settled {
		o := d.out
		d.mu.Unlock()
		switch o.kind {
		case outcomeValue:
			v := o.val.(A)
			d.submit(func() { f(v, nil) })
		case outcomeError:
			var zero A
			d.submit(func() { f(zero, o.err) })
		}
		return
	}
	d.onCompleteCbs = append(d.onCompleteCbs, f)
	d.mu.Unlock()
}

// OnShutdown registers f to run once d reaches any terminal state
// reachable via settlement — i.e. value or error, the same set
// OnComplete observes. It is defined as a thin OnComplete wrapper so
// that direct cancellation of the owning Promise never fires it,
// matching the original library's onShutdown/onComplete relationship.
func (d *Deferred[A]) OnShutdown(f func()) {
	d.OnComplete(func(A, error) { f() })
}

// IsCompleted reports whether d has settled, with any outcome.
func (d *Deferred[A]) IsCompleted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Promise is the write side of a Deferred: it can be settled exactly
// once, either with Success, Error, or Cancel. A second Success or
// Error call after the Promise already resolved with a value or an
// error panics — double-completing a Promise is a programmer fault,
// not a race to tolerate — but Cancel always takes one-way precedence:
// once canceled, further Success or Error attempts are silent no-ops,
// and a second Cancel is always a silent no-op regardless of prior
// state.
type Promise[A any] struct {
	deferred *Deferred[A]
}

// NewPromise creates an unsettled Promise whose callbacks are
// dispatched through sched rather than invoked inline, so that settling
// a Promise from deep inside a Fiber's resume loop never reenters the
// interpreter on the same stack.
func NewPromise[A any](sched Scheduler) *Promise[A] {
	return &Promise[A]{deferred: newScheduledDeferred[A](sched)}
}

// Deferred returns the read-only view of this Promise.
func (p *Promise[A]) Deferred() *Deferred[A] { return p.deferred }

// Success settles the Promise with a value. A second or subsequent
// settlement attempt panics if the Promise already resolved with a
// value or an error; it is a silent no-op if the Promise was already
// canceled.
func (p *Promise[A]) Success(value A) {
	if !p.deferred.settle(valueOutcome(Erased(value))) {
		p.deferred.panicIfAlreadyResolved()
	}
}

// Error settles the Promise with a typed error. See Success for the
// panic-vs-silent-no-op rule governing a redundant settlement.
func (p *Promise[A]) Error(err error) {
	if !p.deferred.settle(errorOutcome(err)) {
		p.deferred.panicIfAlreadyResolved()
	}
}

// Cancel settles the Promise as canceled. It is always a silent no-op
// if the Promise has already settled, with any outcome — cancellation
// never panics.
func (p *Promise[A]) Cancel() { p.deferred.settle(canceledOutcome()) }

// IsCanceled reports whether this Promise's terminal state is
// cancellation.
func (p *Promise[A]) IsCanceled() bool {
	p.deferred.mu.Lock()
	defer p.deferred.mu.Unlock()
	return p.deferred.settled && p.deferred.out.isCanceled()
}
