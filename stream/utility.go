// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import "code.hybscloud.com/cask"

// DoOnCancel runs onCancel only if the subscription is canceled from
// the outside before the producer reaches a terminal state on its own.
func DoOnCancel[A any](src Observable[A], onCancel cask.Task[struct{}]) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return cask.DoOnCancel(src.run(sched, obs), onCancel)
	})
}

// ForeachTask drives src to completion, invoking f as an effect for
// every value, and returns a Task that completes once the Observable
// does. An error from f stops the subscription and becomes the Task's
// error.
func ForeachTask[A any](src Observable[A], f func(A) cask.Task[struct{}]) cask.Task[struct{}] {
	return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[struct{}] {
		p := cask.NewPromise[struct{}](sched)
		obs := funcObserver[A]{
			onNext: func(v A) cask.Task[Ack] {
				return cask.FlatMapBoth(f(v),
					func(struct{}) cask.Task[Ack] { return cask.Pure(Continue) },
					func(err error) cask.Task[Ack] {
						return cask.Eval(func() Ack { p.Error(err); return Stop })
					},
				)
			},
			onError: func(err error) cask.Task[struct{}] {
				return cask.Eval(func() struct{} { p.Error(err); return struct{}{} })
			},
			onComplete: func() cask.Task[struct{}] {
				return cask.Eval(func() struct{} { p.Success(struct{}{}); return struct{}{} })
			},
		}
		cask.Run(src.run(sched, obs), sched)
		return p.Deferred()
	})
}

// Foreach is ForeachTask for a plain, non-effectful callback.
func Foreach[A any](src Observable[A], f func(A)) cask.Task[struct{}] {
	return ForeachTask(src, func(v A) cask.Task[struct{}] {
		return cask.Eval(func() struct{} { f(v); return struct{}{} })
	})
}

// ToSlice collects every value emitted by src into a slice, completing
// with that slice once src completes.
func ToSlice[A any](src Observable[A]) cask.Task[[]A] {
	return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[[]A] {
		p := cask.NewPromise[[]A](sched)
		var values []A
		obs := funcObserver[A]{
			onNext: func(v A) cask.Task[Ack] {
				return cask.Eval(func() Ack { values = append(values, v); return Continue })
			},
			onError: func(err error) cask.Task[struct{}] {
				return cask.Eval(func() struct{} { p.Error(err); return struct{}{} })
			},
			onComplete: func() cask.Task[struct{}] {
				return cask.Eval(func() struct{} { p.Success(values); return struct{}{} })
			},
		}
		cask.Run(src.run(sched, obs), sched)
		return p.Deferred()
	})
}

// Last completes with the final value emitted by src, or errEmpty if
// src completes without ever emitting one.
func Last[A any](src Observable[A], errEmpty error) cask.Task[A] {
	return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[A] {
		p := cask.NewPromise[A](sched)
		var last A
		has := false
		obs := funcObserver[A]{
			onNext: func(v A) cask.Task[Ack] {
				return cask.Eval(func() Ack { last, has = v, true; return Continue })
			},
			onError: func(err error) cask.Task[struct{}] {
				return cask.Eval(func() struct{} { p.Error(err); return struct{}{} })
			},
			onComplete: func() cask.Task[struct{}] {
				return cask.Eval(func() struct{} {
					if has {
						p.Success(last)
					} else {
						p.Error(errEmpty)
					}
					return struct{}{}
				})
			},
		}
		cask.Run(src.run(sched, obs), sched)
		return p.Deferred()
	})
}

// Completed subscribes to src purely for its termination signal,
// discarding every value it emits.
func Completed[A any](src Observable[A]) cask.Task[struct{}] {
	return Foreach(src, func(A) {})
}
