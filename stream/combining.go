// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/cask"
)

// Merge subscribes to every source concurrently and forwards their
// notifications to a single downstream Observer as they arrive. The
// downstream completes only once every source has completed; the
// first source to error cancels the rest and forwards that one error.
func Merge[A any](sources ...Observable[A]) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return runMerge(sched, sources, obs)
	})
}

// MergeAll flattens an Observable of Observables, subscribing to every
// inner Observable as soon as it is emitted and merging their outputs.
func MergeAll[A any](src Observable[Observable[A]]) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[struct{}] {
			p := cask.NewPromise[struct{}](sched)
			lock := cask.NewMVar[struct{}](struct{}{})
			var active atomic.Int64
			active.Store(1) // the outer subscription counts as one pending completion
			var done sync.Once
			finish := func(err error) {
				done.Do(func() {
					if err != nil {
						cask.Run(obs.OnError(err), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
					} else {
						cask.Run(obs.OnComplete(), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
					}
				})
			}
			release := func() {
				if active.Add(-1) == 0 {
					finish(nil)
				}
			}
			outerObs := funcObserver[Observable[A]]{
				onNext: func(inner Observable[A]) cask.Task[Ack] {
					active.Add(1)
					gate := &mergeGate[A]{lock: lock, downstream: obs, reportErr: finish}
					cask.Run(inner.run(sched, gate), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { release() })
					return cask.Pure(Continue)
				},
				onError:    func(err error) cask.Task[struct{}] { finish(err); return cask.Pure(struct{}{}) },
				onComplete: func() cask.Task[struct{}] { release(); return cask.Pure(struct{}{}) },
			}
			cask.Run(src.run(sched, outerObs), sched)
			return p.Deferred()
		})
	})
}

func runMerge[A any](sched cask.Scheduler, sources []Observable[A], obs Observer[A]) cask.Task[struct{}] {
	return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[struct{}] {
		p := cask.NewPromise[struct{}](sched)
		if len(sources) == 0 {
			cask.Run(obs.OnComplete(), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
			return p.Deferred()
		}

		lock := cask.NewMVar[struct{}](struct{}{})
		var remaining atomic.Int64
		remaining.Store(int64(len(sources)))
		var done sync.Once
		fibers := make([]*cask.Fiber[struct{}], len(sources))

		finish := func(err error) {
			done.Do(func() {
				for _, fb := range fibers {
					if fb != nil {
						fb.Cancel()
					}
				}
				if err != nil {
					cask.Run(obs.OnError(err), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
				} else {
					cask.Run(obs.OnComplete(), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
				}
			})
		}

		for i, src := range sources {
			gate := &mergeGate[A]{lock: lock, downstream: obs, reportErr: finish}
			fibers[i] = cask.Run(src.run(sched, gate), sched)
			fibers[i].OnFiberShutdown(func(*cask.Fiber[struct{}]) {
				if remaining.Add(-1) == 0 {
					finish(nil)
				}
			})
		}
		return p.Deferred()
	})
}

// mergeGate serializes concurrent OnNext calls from several sources
// into a single downstream Observer using an MVar as an async mutex,
// so the downstream sees exactly one notification in flight at a
// time regardless of how many upstream sources race to deliver one.
// Per-source completion is suppressed; runMerge/MergeAll decide when
// the shared downstream actually completes. A reported error is
// forwarded to reportErr once, which ends the whole merge.
type mergeGate[A any] struct {
	lock       *cask.MVar[struct{}]
	downstream Observer[A]
	reportErr  func(error)
}

func (g *mergeGate[A]) OnNext(v A) cask.Task[Ack] {
	return cask.FlatMap(g.lock.Take(), func(struct{}) cask.Task[Ack] {
		return cask.FlatMap(g.downstream.OnNext(v), func(ack Ack) cask.Task[Ack] {
			return cask.Map(g.lock.Put(struct{}{}), func(struct{}) Ack { return ack })
		})
	})
}

func (g *mergeGate[A]) OnError(err error) cask.Task[struct{}] {
	g.reportErr(err)
	return cask.Pure(struct{}{})
}

func (g *mergeGate[A]) OnComplete() cask.Task[struct{}] {
	return cask.Pure(struct{}{})
}

// FlatMap maps every value of src to an inner Observable via f and
// subscribes to each inner in turn: the next upstream value is taken
// only once the current inner has completed, the stream analogue of
// cask's monadic FlatMap.
func FlatMap[A, B any](src Observable[A], f func(A) Observable[B]) Observable[B] {
	return newObservable(func(sched cask.Scheduler, obs Observer[B]) cask.Task[struct{}] {
		return src.run(sched, funcObserver[A]{
			onNext: func(v A) cask.Task[Ack] {
				gate := &concatGate[B]{downstream: obs}
				return cask.Map(f(v).run(sched, gate), func(struct{}) Ack {
					if gate.stopped {
						return Stop
					}
					return Continue
				})
			},
			onError:    obs.OnError,
			onComplete: obs.OnComplete,
		})
	})
}

// Concat subscribes to each source in turn, only starting the next
// once the previous has completed; an error from any source ends the
// whole sequence.
func Concat[A any](sources ...Observable[A]) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return emitConcat(sources, 0, sched, obs)
	})
}

func emitConcat[A any](sources []Observable[A], i int, sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
	if i >= len(sources) {
		return obs.OnComplete()
	}
	gate := &concatGate[A]{downstream: obs}
	return cask.FlatMap(sources[i].run(sched, gate), func(struct{}) cask.Task[struct{}] {
		if gate.stopped {
			return cask.Pure(struct{}{})
		}
		return cask.Defer(func() cask.Task[struct{}] { return emitConcat(sources, i+1, sched, obs) })
	})
}

// concatGate forwards everything to the downstream Observer except the
// per-source OnComplete, which the driving loop above intercepts so it
// can move on to the next source instead of ending the subscription.
type concatGate[A any] struct {
	downstream Observer[A]
	stopped    bool
}

func (g *concatGate[A]) OnNext(v A) cask.Task[Ack] {
	return cask.Map(g.downstream.OnNext(v), func(ack Ack) Ack {
		if ack == Stop {
			g.stopped = true
		}
		return ack
	})
}
func (g *concatGate[A]) OnError(err error) cask.Task[struct{}] {
	g.stopped = true
	return g.downstream.OnError(err)
}
func (g *concatGate[A]) OnComplete() cask.Task[struct{}] { return cask.Pure(struct{}{}) }

// AppendAll concatenates a fixed prefix Observable with a variadic
// list of further Observables, in order.
func AppendAll[A any](first Observable[A], rest ...Observable[A]) Observable[A] {
	return Concat(append([]Observable[A]{first}, rest...)...)
}

// SwitchMap maps every value of src to an inner Observable via f,
// subscribing to the latest one and canceling whichever inner
// subscription was previously active.
func SwitchMap[A, B any](src Observable[A], f func(A) Observable[B]) Observable[B] {
	return newObservable(func(sched cask.Scheduler, obs Observer[B]) cask.Task[struct{}] {
		return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[struct{}] {
			p := cask.NewPromise[struct{}](sched)
			lock := cask.NewMVar[struct{}](struct{}{})
			var mu sync.Mutex
			var current *cask.Fiber[struct{}]
			outerDone := false
			innerDone := true
			var finishOnce sync.Once
			finish := func(err error) {
				finishOnce.Do(func() {
					mu.Lock()
					if current != nil {
						current.Cancel()
					}
					mu.Unlock()
					if err != nil {
						cask.Run(obs.OnError(err), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
					} else {
						cask.Run(obs.OnComplete(), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
					}
				})
			}
			maybeFinish := func() {
				mu.Lock()
				done := outerDone && innerDone
				mu.Unlock()
				if done {
					finish(nil)
				}
			}
			outerObs := funcObserver[A]{
				onNext: func(v A) cask.Task[Ack] {
					inner := f(v)
					mu.Lock()
					if current != nil {
						current.Cancel()
					}
					innerDone = false
					mu.Unlock()
					gate := &mergeGate[B]{lock: lock, downstream: obs, reportErr: finish}
					fb := cask.Run(inner.run(sched, gate), sched)
					mu.Lock()
					current = fb
					mu.Unlock()
					fb.OnFiberShutdown(func(*cask.Fiber[struct{}]) {
						mu.Lock()
						if current == fb {
							innerDone = true
						}
						mu.Unlock()
						maybeFinish()
					})
					return cask.Pure(Continue)
				},
				onError: func(err error) cask.Task[struct{}] { finish(err); return cask.Pure(struct{}{}) },
				onComplete: func() cask.Task[struct{}] {
					mu.Lock()
					outerDone = true
					mu.Unlock()
					maybeFinish()
					return cask.Pure(struct{}{})
				},
			}
			cask.Run(src.run(sched, outerObs), sched)
			return p.Deferred()
		})
	})
}
