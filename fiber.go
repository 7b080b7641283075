// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import "sync"

// defaultYieldBudget bounds how many synchronous steps a single resume
// call takes before yielding the worker goroutine back to the scheduler.
// It protects against a busy Task (e.g. RestartUntil looping without
// ever suspending) starving every other fiber on a shared scheduler.
const defaultYieldBudget = 2048

// fiberControl is the cancellation channel between a running Fiber and
// whatever op node is currently suspended on its behalf — a child race
// fiber, an async callback registration, or a pending timer. At most one
// abort hook is registered at a time; Cancel races harmlessly with a
// concurrent settle, since whichever arrives first wins and clears the
// other's hook.
type fiberControl struct {
	mu        sync.Mutex
	requested bool
	delivered bool
	abort     func()
}

// takeCancel reports whether a cancellation request is pending that has
// not yet been delivered to the interpreter, and marks it delivered, so
// finalizers further up the stack run instead of being canceled in turn.
func (c *fiberControl) takeCancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.requested || c.delivered {
		return false
	}
	c.delivered = true
	return true
}

func (c *fiberControl) requestCancel() {
	c.mu.Lock()
	already := c.requested
	c.requested = true
	abort := c.abort
	c.abort = nil
	if !already && abort != nil {
		c.delivered = true
	}
	c.mu.Unlock()
	if !already && abort != nil {
		abort()
	}
}

func (c *fiberControl) setAbort(f func()) {
	c.mu.Lock()
	if c.requested && !c.delivered {
		c.delivered = true
		c.mu.Unlock()
		f()
		return
	}
	c.abort = f
	c.mu.Unlock()
}

func (c *fiberControl) clearAbort() {
	c.mu.Lock()
	c.abort = nil
	c.mu.Unlock()
}

// evalSyncLeaf evaluates any op tag that never suspends a fiber:
// constant value, constant error, a requested cancellation, or a thunk.
func evalSyncLeaf(leaf *op) outcome {
	switch leaf.tag {
	case opValue:
		return valueOutcome(leaf.constVal)
	case opError:
		return errorOutcome(leaf.constErr)
	case opCancel:
		return canceledOutcome()
	case opThunk:
		v, err := leaf.thunk()
		if err != nil {
			return errorOutcome(err)
		}
		return valueOutcome(v)
	default:
		panic("cask: evalSyncLeaf called on a suspending op tag")
	}
}

func isSyncLeaf(tag opTag) bool {
	return tag == opValue || tag == opError || tag == opCancel || tag == opThunk
}

// contFrame is one pending FlatMap continuation: given the outcome of
// whatever it was waiting on, it produces the next node to evaluate.
type contFrame = func(outcome) *op

// runOp is the trampolined interpreter at the core of every Fiber. It
// evaluates node to a terminal outcome, calling onDone exactly once.
// Pending continuations are kept on an explicit stack rather than the
// Go call stack, so a FlatMap chain of any depth or shape — however it
// was nested at construction time — steps through purely-synchronous
// sections in a tight loop and only ever recurses (shallowly, one frame
// per hop) when handing off across an asynchronous boundary.
func runOp(sched Scheduler, node *op, ctl *fiberControl, onDone func(outcome)) {
	runFrom(sched, node, nil, ctl, onDone)
}

func runFrom(sched Scheduler, cur *op, stack []contFrame, ctl *fiberControl, onDone func(outcome)) {
	budget := defaultYieldBudget
	for {
		for cur.tag == opFlatMap {
			stack = append(stack, cur.flatPred)
			cur = cur.flatInput
		}
		if ctl.takeCancel() {
			continueStack(sched, stack, canceledOutcome(), ctl, onDone)
			return
		}
		if isSyncLeaf(cur.tag) {
			o := evalSyncLeaf(cur)
			if len(stack) == 0 {
				onDone(o)
				return
			}
			pred := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cur = pred(o)
			budget--
			if budget <= 0 {
				capturedCur, capturedStack := cur, stack
				sched.Submit(func() { runFrom(sched, capturedCur, capturedStack, ctl, onDone) })
				return
			}
			continue
		}
		capturedStack := stack
		suspendLeaf(sched, cur, ctl, func(o outcome) {
			continueStack(sched, capturedStack, o, ctl, onDone)
		})
		return
	}
}

// continueStack resumes interpretation after a suspension settles (or
// is abort-canceled): it pops one pending continuation, applies it to
// the outcome that just arrived, and hands the result back to runFrom
// to keep descending.
func continueStack(sched Scheduler, stack []contFrame, o outcome, ctl *fiberControl, onDone func(outcome)) {
	if len(stack) == 0 {
		onDone(o)
		return
	}
	pred := stack[len(stack)-1]
	rest := stack[:len(stack)-1]
	runFrom(sched, pred(o), rest, ctl, onDone)
}

// suspendLeaf parks the fiber on one of the three suspending op kinds:
// an async callback, a delay, or a race between child fibers. onDone is
// invoked exactly once, whether the leaf settles naturally or ctl is
// canceled first.
func suspendLeaf(sched Scheduler, leaf *op, ctl *fiberControl, onDone func(outcome)) {
	switch leaf.tag {
	case opAsync:
		suspendAsync(sched, leaf, ctl, onDone)
	case opDelay:
		suspendDelay(sched, leaf, ctl, onDone)
	case opRace:
		runRace(sched, leaf.racers, ctl, onDone)
	default:
		panic("cask: suspendLeaf called on a non-suspending op tag")
	}
}

func suspendAsync(sched Scheduler, leaf *op, ctl *fiberControl, onDone func(outcome)) {
	var once sync.Once
	d := leaf.async(sched)
	ctl.setAbort(func() { once.Do(func() { onDone(canceledOutcome()) }) })
	d.onSettle(func(o outcome) {
		once.Do(func() {
			ctl.clearAbort()
			onDone(o)
		})
	})
}

func suspendDelay(sched Scheduler, leaf *op, ctl *fiberControl, onDone func(outcome)) {
	var once sync.Once
	handle := sched.SubmitAfter(leaf.delay, func() {
		once.Do(func() {
			ctl.clearAbort()
			onDone(valueOutcome(Erased(struct{}{})))
		})
	})
	ctl.setAbort(func() {
		once.Do(func() {
			handle.Cancel()
			onDone(canceledOutcome())
		})
	})
}

// runRace starts one child evaluation per racer, each with its own
// fiberControl, and settles with whichever settles first — value,
// error, or cancellation alike. Every other racer is then canceled, and
// a cancellation of the race itself cancels every still-running racer.
func runRace(sched Scheduler, racers []*op, ctl *fiberControl, onDone func(outcome)) {
	var once sync.Once
	childCtls := make([]*fiberControl, len(racers))
	for i := range childCtls {
		childCtls[i] = &fiberControl{}
	}
	finish := func(o outcome) {
		once.Do(func() {
			ctl.clearAbort()
			for _, c := range childCtls {
				c.requestCancel()
			}
			onDone(o)
		})
	}
	ctl.setAbort(func() { finish(canceledOutcome()) })
	for i, racer := range racers {
		r, c := racer, childCtls[i]
		sched.Submit(func() { runOp(sched, r, c, finish) })
	}
}

// fiberStatus is the coarse terminal classification a Fiber settles
// into; mid-flight fibers are simply "running" regardless of whether
// they happen to be executing synchronously or parked on a suspension.
type fiberStatus int32

const (
	fiberRunning fiberStatus = iota
	fiberCompleted
	fiberCanceled
)

// Fiber is a running handle to a Task being driven to completion by a
// Scheduler. It is created by Run and settles exactly once, with a
// value, a typed error, or cancellation.
type Fiber[A any] struct {
	ctl *fiberControl

	mu          sync.Mutex
	status      fiberStatus
	value       A
	err         error
	shutdownCbs []func(*Fiber[A])
}

// Run schedules t to evaluate under sched and returns immediately with a
// handle to the running Fiber.
func Run[A any](t Task[A], sched Scheduler) *Fiber[A] {
	fb := &Fiber[A]{ctl: &fiberControl{}}
	node := t.node
	sched.Submit(func() {
		runOp(sched, node, fb.ctl, fb.settle)
	})
	return fb
}

// Await runs t under sched and blocks the calling goroutine until it
// reaches a terminal state, returning its value and error directly. It
// never returns early: if t never suspends, the blocking window is as
// short as one scheduler round-trip; if it does suspend, Await simply
// waits for it. It requires a scheduler that is actually driving ready
// tasks concurrently (e.g. a running ThreadPool or SingleThread); run
// against a Bench scheduler, it deadlocks unless the caller drains the
// bench from another goroutine.
func Await[A any](t Task[A], sched Scheduler) (A, error) {
	return Run(t, sched).Await()
}

// RunSync attempts to evaluate t to completion using only the calling
// goroutine, without ever handing control to a Scheduler: it steps
// through every purely-synchronous node (Pure, RaiseError, Eval/Thunk,
// FlatMap over them, cancellation) directly, the same trampoline runOp
// uses, but stops the instant it would otherwise have to suspend on an
// async callback, a delay, or a race. If evaluation reaches a terminal
// outcome along that synchronous path, it returns Left with the
// materialized result. If it hits a suspension point first, it returns
// Right with a residual Task capturing exactly the remaining work, for
// the caller to Run (or RunSync again, e.g. after advancing a Bench
// scheduler's clock) once it is ready to go asynchronous. RunSync never
// blocks and never touches a scheduler.
func RunSync[A any](t Task[A]) Either[Materialized[A], Task[A]] {
	cur := t.node
	var stack []contFrame
	for {
		for cur.tag == opFlatMap {
			stack = append(stack, cur.flatPred)
			cur = cur.flatInput
		}
		if isSyncLeaf(cur.tag) {
			o := evalSyncLeaf(cur)
			if len(stack) == 0 {
				return Left[Materialized[A], Task[A]](materializeOutcome[A](o))
			}
			pred := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cur = pred(o)
			continue
		}
		residual := cur
		for i := len(stack) - 1; i >= 0; i-- {
			residual = flatMapNode(residual, stack[i])
		}
		return Right[Materialized[A], Task[A]](wrap[A](residual))
	}
}

func materializeOutcome[A any](o outcome) Materialized[A] {
	switch o.kind {
	case outcomeValue:
		return Materialized[A]{Value: o.val.(A)}
	case outcomeError:
		return Materialized[A]{Err: o.err}
	default:
		return Materialized[A]{Canceled: true}
	}
}

// Run is a convenience method equivalent to the package-level Run.
func (t Task[A]) Run(sched Scheduler) *Fiber[A] { return Run(t, sched) }

// RunSync is a convenience method equivalent to the package-level
// RunSync.
func (t Task[A]) RunSync() Either[Materialized[A], Task[A]] {
	return RunSync(t)
}

func (fb *Fiber[A]) settle(o outcome) {
	fb.mu.Lock()
	if fb.status != fiberRunning {
		fb.mu.Unlock()
		return
	}
	switch o.kind {
	case outcomeValue:
		fb.status = fiberCompleted
		fb.value = o.val.(A)
	case outcomeError:
		fb.status = fiberCompleted
		fb.err = o.err
	default:
		fb.status = fiberCanceled
	}
	cbs := fb.shutdownCbs
	fb.shutdownCbs = nil
	fb.mu.Unlock()
	for _, cb := range cbs {
		cb(fb)
	}
}

// Cancel requests cooperative cancellation of the fiber. It is
// idempotent and safe to call from any goroutine, and has no effect if
// the fiber has already settled.
func (fb *Fiber[A]) Cancel() {
	fb.ctl.requestCancel()
}

// IsCompleted reports whether the fiber reached a terminal state with a
// value or an error (as opposed to still running, or canceled).
func (fb *Fiber[A]) IsCompleted() bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.status == fiberCompleted
}

// IsCanceled reports whether the fiber's terminal state is
// cancellation.
func (fb *Fiber[A]) IsCanceled() bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.status == fiberCanceled
}

// GetValue returns the fiber's value if it completed successfully, or
// the zero value of A otherwise.
func (fb *Fiber[A]) GetValue() A {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.value
}

// GetError returns the fiber's error if it completed with one, or nil
// otherwise (including while still running, or if canceled).
func (fb *Fiber[A]) GetError() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.err
}

// OnFiberShutdown registers f to run once the fiber reaches any
// terminal state — value, error, or cancellation. If the fiber has
// already settled, f runs immediately on the calling goroutine.
func (fb *Fiber[A]) OnFiberShutdown(f func(*Fiber[A])) {
	fb.mu.Lock()
	if fb.status != fiberRunning {
		fb.mu.Unlock()
		f(fb)
		return
	}
	fb.shutdownCbs = append(fb.shutdownCbs, f)
	fb.mu.Unlock()
}

// Await blocks the calling goroutine until the fiber settles, returning
// its value and error. A canceled fiber returns ErrFiberCanceled.
func (fb *Fiber[A]) Await() (A, error) {
	done := make(chan struct{})
	fb.OnFiberShutdown(func(*Fiber[A]) { close(done) })
	<-done
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.status == fiberCanceled {
		var zero A
		return zero, ErrFiberCanceled
	}
	return fb.value, fb.err
}
