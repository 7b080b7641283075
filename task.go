// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import "time"

// Erased is a type-erased value, used internally wherever the interpreter
// must treat user values uniformly. Typed wrappers at the API surface cast
// into and out of this representation at the boundary.
type Erased = any

// outcomeKind classifies the three terminal shapes an evaluation step can
// settle into: a user value, a user error, or cancellation.
type outcomeKind int8

const (
	outcomeValue outcomeKind = iota
	outcomeError
	outcomeCanceled
)

// outcome is the erased result of one evaluation step: exactly one of a
// value, an error, or the canceled marker.
type outcome struct {
	kind outcomeKind
	val  Erased
	err  error
}

func valueOutcome(v Erased) outcome  { return outcome{kind: outcomeValue, val: v} }
func errorOutcome(e error) outcome   { return outcome{kind: outcomeError, err: e} }
func canceledOutcome() outcome       { return outcome{kind: outcomeCanceled} }
func (o outcome) isCanceled() bool   { return o.kind == outcomeCanceled }
func (o outcome) isError() bool      { return o.kind == outcomeError }
func (o outcome) isValue() bool      { return o.kind == outcomeValue }

// opTag identifies the kind of an effect IR node. There are exactly eight,
// per the data model: pure value, pure error, thunk, async, flat-map,
// delay, race, and cancel. flatMap is the only composition point; every
// other tag is a leaf.
type opTag int8

const (
	opValue opTag = iota
	opError
	opThunk
	opAsync
	opFlatMap
	opDelay
	opRace
	opCancel
)

// op is the immutable, type-erased effect IR node that the Fiber
// interpreter consumes. Typed Task[A] values are thin phantom wrappers
// around *op; all composition happens on the erased representation so
// flatMap can chain across arbitrary result types without host recursion.
type op struct {
	tag opTag

	// opValue / opError payload.
	constVal Erased
	constErr error

	// opThunk payload: invoked exactly once per evaluation.
	thunk func() (Erased, error)

	// opAsync payload: evaluated at most once per evaluation; the fiber
	// parks until the returned Deferred settles.
	async func(sched Scheduler) *Deferred[Erased]

	// opFlatMap payload.
	flatInput *op
	flatPred  func(outcome) *op

	// opDelay payload.
	delay time.Duration

	// opRace payload.
	racers []*op
}

// Task is an immutable description of a possibly-asynchronous computation
// that produces a value of type A, or a typed error, or is canceled.
// Tasks are built by smart constructors and composed by FlatMap; they are
// freely shareable across goroutines and are evaluated only when run by a
// Fiber.
type Task[A any] struct {
	node *op
}

func wrap[A any](n *op) Task[A] { return Task[A]{node: n} }

// Pure lifts a value into a Task that completes immediately with that
// value and never suspends.
func Pure[A any](value A) Task[A] {
	return wrap[A](&op{tag: opValue, constVal: Erased(value)})
}

// RaiseError lifts a typed error into a Task that completes immediately
// with that error and never suspends.
func RaiseError[A any](err error) Task[A] {
	return wrap[A](&op{tag: opError, constErr: err})
}

// None is a Task that completes immediately with the zero value of A.
// It is the idiomatic "no-op" effect, equivalent to Pure(zero).
func None[A any]() Task[A] {
	var zero A
	return Pure(zero)
}

// Eval lifts a nullary closure into a Task. The closure is invoked exactly
// once, synchronously, when the Task is evaluated, and never suspends.
// Panics that match the error boundary convention are not caught here —
// use Thunk if you need the closure to be able to fail.
func Eval[A any](f func() A) Task[A] {
	return wrap[A](&op{tag: opThunk, thunk: func() (Erased, error) {
		return Erased(f()), nil
	}})
}

// Thunk lifts a closure that may fail into a Task. The closure is invoked
// exactly once, synchronously, when the Task is evaluated.
func Thunk[A any](f func() (A, error)) Task[A] {
	return wrap[A](&op{tag: opThunk, thunk: func() (Erased, error) {
		v, err := f()
		return Erased(v), err
	}})
}

// Defer builds a Task by lazily invoking a factory that returns the Task
// to run. The factory is invoked once, at evaluation time, which lets
// recursive and context-dependent Task graphs be constructed without
// eagerly recursing at build time.
func Defer[A any](factory func() Task[A]) Task[A] {
	return FlatMap(Eval(func() struct{} { return struct{}{} }), func(struct{}) Task[A] {
		return factory()
	})
}

// DeferAction is Defer specialised for a factory that may itself fail to
// construct the next Task.
func DeferAction[A any](factory func() (Task[A], error)) Task[A] {
	return FlatMap(Thunk(func() (struct{}, error) { return struct{}{}, nil }), func(struct{}) Task[A] {
		t, err := factory()
		if err != nil {
			return RaiseError[A](err)
		}
		return t
	})
}

// DeferFiber builds a Task from a factory that is given the Scheduler the
// Task is ultimately run on, useful for spawning and awaiting child
// fibers from within a Thunk-like step.
func DeferFiber[A any](factory func(sched Scheduler) Task[A]) Task[A] {
	return AsyncTask(func(sched Scheduler) *Deferred[A] {
		p := NewPromise[A](sched)
		f := factory(sched).Run(sched)
		f.OnFiberShutdown(func(fb *Fiber[A]) {
			switch {
			case fb.IsCanceled():
				p.Cancel()
			case fb.GetError() != nil:
				p.Error(fb.GetError())
			default:
				p.Success(fb.GetValue())
			}
		})
		return p.Deferred()
	})
}

// Never returns a Task that never settles on its own; it only terminates
// if its owning Fiber is canceled.
func Never[A any]() Task[A] {
	return AsyncTask(func(sched Scheduler) *Deferred[A] {
		return newDeferred[A]()
	})
}

// AsyncTask lifts a callback-based producer into a Task. The closure is
// invoked at most once per evaluation and receives the Scheduler the
// owning Fiber is running on; the Fiber parks until the returned Deferred
// settles.
func AsyncTask[A any](f func(sched Scheduler) *Deferred[A]) Task[A] {
	return wrap[A](&op{tag: opAsync, async: func(sched Scheduler) *Deferred[Erased] {
		d := f(sched)
		out := newDeferred[Erased]()
		d.onSettle(func(o outcome) { out.settle(o) })
		return out
	}})
}

// DelayTask returns a Task that, when run, parks the owning Fiber for at
// least the given duration before completing with Unit.
func DelayTask(d time.Duration) Task[struct{}] {
	return wrap[struct{}](&op{tag: opDelay, delay: d})
}

// Delay parks the Fiber for at least d before resuming t.
func Delay[A any](t Task[A], d time.Duration) Task[A] {
	return FlatMap(DelayTask(d), func(struct{}) Task[A] { return t })
}

// RaceWith starts every Task in ops as a child fiber; the first to settle
// (value, error, or cancel) wins and the rest are canceled.
func RaceWith[A any](ops ...Task[A]) Task[A] {
	racers := make([]*op, len(ops))
	for i, o := range ops {
		racers[i] = o.node
	}
	return wrap[A](&op{tag: opRace, racers: racers})
}

// CancelTask returns a Task that immediately cancels its owning Fiber.
func CancelTask[A any]() Task[A] {
	return wrap[A](&op{tag: opCancel})
}

// FlatMap is the sole composition point of the effect IR: it evaluates m,
// then applies f to the resulting value to obtain the next Task. When
// applied to an already-FlatMap node, the implementation flattens the
// chain so interpretation stays left-leaning and composition depth never
// grows the interpreter's stack (see the associativity law in the
// package's design notes).
func FlatMap[A, B any](m Task[A], f func(A) Task[B]) Task[B] {
	pred := func(o outcome) *op {
		switch o.kind {
		case outcomeValue:
			return f(o.val.(A)).node
		case outcomeError:
			return &op{tag: opError, constErr: o.err}
		default:
			return &op{tag: opCancel}
		}
	}
	return wrap[B](flatMapNode(m.node, pred))
}

// flatMapNode builds the erased FlatMap node, flattening existing FlatMap
// chains so that FlatMap(FlatMap(u, f), g) becomes FlatMap(u, x =>
// f(x).flatMap(g)) instead of a right-associated tree.
func flatMapNode(input *op, pred func(outcome) *op) *op {
	if input.tag == opFlatMap {
		innerInput := input.flatInput
		innerPred := input.flatPred
		return &op{
			tag:       opFlatMap,
			flatInput: innerInput,
			flatPred: func(o outcome) *op {
				next := innerPred(o)
				return flatMapNode(next, pred)
			},
		}
	}
	return &op{tag: opFlatMap, flatInput: input, flatPred: pred}
}

// FlatMapError sequences only on the error channel: value outcomes pass
// through untouched, and errors are handed to f to obtain the next Task.
func FlatMapError[A any](m Task[A], f func(error) Task[A]) Task[A] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		if o.kind == outcomeError {
			return f(o.err).node
		}
		if o.kind == outcomeCanceled {
			return &op{tag: opCancel}
		}
		return &op{tag: opValue, constVal: o.val}
	}}
	return wrap[A](n)
}

// FlatMapBoth sequences on both channels: onValue handles a successful
// result, onError handles a typed error. Cancellation still propagates
// untouched.
func FlatMapBoth[A, B any](m Task[A], onValue func(A) Task[B], onError func(error) Task[B]) Task[B] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		switch o.kind {
		case outcomeValue:
			return onValue(o.val.(A)).node
		case outcomeError:
			return onError(o.err).node
		default:
			return &op{tag: opCancel}
		}
	}}
	return wrap[B](n)
}

// Map applies a pure function to the result of m.
func Map[A, B any](m Task[A], f func(A) B) Task[B] {
	return FlatMap(m, func(a A) Task[B] { return Pure(f(a)) })
}

// MapError applies a pure function to the error channel of m.
func MapError[A any](m Task[A], f func(error) error) Task[A] {
	return FlatMapError(m, func(e error) Task[A] { return RaiseError[A](f(e)) })
}

// MapBoth combines two independent Tasks once both have settled
// successfully, using f to produce the final value.
func MapBoth[A, B, C any](a Task[A], b Task[B], f func(A, B) C) Task[C] {
	return FlatMap(a, func(av A) Task[C] {
		return Map(b, func(bv B) C { return f(av, bv) })
	})
}

// Recover replaces an erroring m with the Task produced by f; successful
// results and cancellation propagate untouched.
func Recover[A any](m Task[A], f func(error) Task[A]) Task[A] {
	return FlatMapError(m, f)
}

// OnError runs a side-effecting Task whenever m fails, then re-raises the
// original error. It does not run on success or cancellation.
func OnError[A any](m Task[A], f func(error) Task[struct{}]) Task[A] {
	return FlatMapError(m, func(e error) Task[A] {
		return FlatMap(f(e), func(struct{}) Task[A] { return RaiseError[A](e) })
	})
}

// RestartUntil re-evaluates m until f(result) returns true.
func RestartUntil[A any](m Task[A], f func(A) bool) Task[A] {
	return Defer(func() Task[A] {
		return FlatMap(m, func(a A) Task[A] {
			if f(a) {
				return Pure(a)
			}
			return RestartUntil(m, f)
		})
	})
}

// SideEffect runs f purely for its side effect, discarding its result and
// forwarding m's value unchanged.
func SideEffect[A any](m Task[A], f func(A)) Task[A] {
	return Map(m, func(a A) A { f(a); return a })
}

// Guarantee runs finalizer exactly once on any terminal outcome of m
// (value, error, or cancel), re-raising the original outcome afterward.
func Guarantee[A any](m Task[A], finalizer Task[struct{}]) Task[A] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		fin := &op{tag: opFlatMap, flatInput: finalizer.node, flatPred: func(outcome) *op {
			return outcomeToOp(o)
		}}
		return fin
	}}
	return wrap[A](n)
}

func outcomeToOp(o outcome) *op {
	switch o.kind {
	case outcomeValue:
		return &op{tag: opValue, constVal: o.val}
	case outcomeError:
		return &op{tag: opError, constErr: o.err}
	default:
		return &op{tag: opCancel}
	}
}

// DoOnCancel runs a side-effecting Task if and only if m is canceled.
func DoOnCancel[A any](m Task[A], onCancel Task[struct{}]) Task[A] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		if !o.isCanceled() {
			return outcomeToOp(o)
		}
		fin := &op{tag: opFlatMap, flatInput: onCancel.node, flatPred: func(outcome) *op {
			return &op{tag: opCancel}
		}}
		return fin
	}}
	return wrap[A](n)
}

// OnCancelRaiseError converts cancellation of m into a typed error,
// leaving successful and erroring outcomes untouched.
func OnCancelRaiseError[A any](m Task[A], err error) Task[A] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		if o.isCanceled() {
			return &op{tag: opError, constErr: err}
		}
		return outcomeToOp(o)
	}}
	return wrap[A](n)
}

// Materialized represents a settled outcome reified as a plain value:
// exactly one of a value, a typed error, or cancellation.
type Materialized[A any] struct {
	Value    A
	Err      error
	Canceled bool
}

// Materialize reifies any terminal outcome of m (value, error, cancel)
// into a successful Materialized[A] value, so it can be inspected and
// recovered from without short-circuiting the surrounding composition.
func Materialize[A any](m Task[A]) Task[Materialized[A]] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		switch o.kind {
		case outcomeValue:
			return &op{tag: opValue, constVal: Erased(Materialized[A]{Value: o.val.(A)})}
		case outcomeError:
			return &op{tag: opValue, constVal: Erased(Materialized[A]{Err: o.err})}
		default:
			return &op{tag: opValue, constVal: Erased(Materialized[A]{Canceled: true})}
		}
	}}
	return wrap[Materialized[A]](n)
}

// Dematerialize is the inverse of Materialize: it replays a
// Materialized[A] value as the corresponding value, error, or
// cancellation. Materialize().Dematerialize() is the identity.
func Dematerialize[A any](m Task[Materialized[A]]) Task[A] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		mat := o.val.(Materialized[A])
		switch {
		case mat.Canceled:
			return &op{tag: opCancel}
		case mat.Err != nil:
			return &op{tag: opError, constErr: mat.Err}
		default:
			return &op{tag: opValue, constVal: Erased(mat.Value)}
		}
	}}
	return wrap[A](n)
}

// Failed inverts success and failure: a successful m becomes an error
// carrying ErrTaskSucceeded, and an erroring m becomes a successful Task
// carrying the error value.
func Failed[A any](m Task[A]) Task[error] {
	n := &op{tag: opFlatMap, flatInput: m.node, flatPred: func(o outcome) *op {
		switch o.kind {
		case outcomeValue:
			return &op{tag: opError, constErr: ErrTaskSucceeded}
		case outcomeError:
			return &op{tag: opValue, constVal: Erased(o.err)}
		default:
			return &op{tag: opCancel}
		}
	}}
	return wrap[error](n)
}

// Timeout races m against an error that fires after d; the loser is
// canceled automatically via race semantics.
func Timeout[A any](m Task[A], d time.Duration, err error) Task[A] {
	timeoutBranch := Delay(RaiseError[A](err), d)
	return RaceWith(m, timeoutBranch)
}

// AsyncBoundary yields control back to the scheduler once before
// continuing, forcing an asynchronous resumption point even if no other
// suspension would otherwise occur.
func AsyncBoundary() Task[struct{}] {
	return DelayTask(0)
}
