// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import "code.hybscloud.com/cask"

// Map transforms every value emitted by src with f.
func Map[A, B any](src Observable[A], f func(A) B) Observable[B] {
	return newObservable(func(sched cask.Scheduler, obs Observer[B]) cask.Task[struct{}] {
		return src.run(sched, mapObserver[A, B]{downstream: obs, f: f})
	})
}

type mapObserver[A, B any] struct {
	downstream Observer[B]
	f          func(A) B
}

func (o mapObserver[A, B]) OnNext(v A) cask.Task[Ack]            { return o.downstream.OnNext(o.f(v)) }
func (o mapObserver[A, B]) OnError(err error) cask.Task[struct{}] { return o.downstream.OnError(err) }
func (o mapObserver[A, B]) OnComplete() cask.Task[struct{}]      { return o.downstream.OnComplete() }

// MapError transforms an error raised upstream before it reaches the
// subscriber; it does not see values that were delivered successfully.
func MapError[A any](src Observable[A], f func(error) error) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return src.run(sched, mapErrorObserver[A]{downstream: obs, f: f})
	})
}

type mapErrorObserver[A any] struct {
	downstream Observer[A]
	f          func(error) error
}

func (o mapErrorObserver[A]) OnNext(v A) cask.Task[Ack] { return o.downstream.OnNext(v) }
func (o mapErrorObserver[A]) OnError(err error) cask.Task[struct{}] {
	return o.downstream.OnError(o.f(err))
}
func (o mapErrorObserver[A]) OnComplete() cask.Task[struct{}] { return o.downstream.OnComplete() }

// Filter keeps only the values for which pred returns true.
func Filter[A any](src Observable[A], pred func(A) bool) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return src.run(sched, filterObserver[A]{downstream: obs, pred: pred})
	})
}

type filterObserver[A any] struct {
	downstream Observer[A]
	pred       func(A) bool
}

func (o filterObserver[A]) OnNext(v A) cask.Task[Ack] {
	if !o.pred(v) {
		return cask.Pure(Continue)
	}
	return o.downstream.OnNext(v)
}
func (o filterObserver[A]) OnError(err error) cask.Task[struct{}] { return o.downstream.OnError(err) }
func (o filterObserver[A]) OnComplete() cask.Task[struct{}]      { return o.downstream.OnComplete() }

// MapTask transforms every value with an effectful f, awaiting its
// Task before forwarding the result downstream; an error raised by f
// is routed to the subscriber's OnError and ends the subscription.
func MapTask[A, B any](src Observable[A], f func(A) cask.Task[B]) Observable[B] {
	return newObservable(func(sched cask.Scheduler, obs Observer[B]) cask.Task[struct{}] {
		return src.run(sched, mapTaskObserver[A, B]{downstream: obs, f: f})
	})
}

type mapTaskObserver[A, B any] struct {
	downstream Observer[B]
	f          func(A) cask.Task[B]
}

func (o mapTaskObserver[A, B]) OnNext(v A) cask.Task[Ack] {
	return cask.FlatMapBoth(o.f(v),
		func(b B) cask.Task[Ack] { return o.downstream.OnNext(b) },
		func(err error) cask.Task[Ack] {
			return cask.Map(o.downstream.OnError(err), func(struct{}) Ack { return Stop })
		},
	)
}
func (o mapTaskObserver[A, B]) OnError(err error) cask.Task[struct{}] {
	return o.downstream.OnError(err)
}
func (o mapTaskObserver[A, B]) OnComplete() cask.Task[struct{}] { return o.downstream.OnComplete() }

// MapBothTask is MapTask with a separate effectful recovery for
// upstream errors: onError may itself emit a replacement value, or
// forward the error on.
func MapBothTask[A, B any](src Observable[A], onValue func(A) cask.Task[B], onError func(error) cask.Task[B]) Observable[B] {
	return newObservable(func(sched cask.Scheduler, obs Observer[B]) cask.Task[struct{}] {
		return src.run(sched, mapBothTaskObserver[A, B]{downstream: obs, onValue: onValue, onError: onError})
	})
}

type mapBothTaskObserver[A, B any] struct {
	downstream Observer[B]
	onValue    func(A) cask.Task[B]
	onError    func(error) cask.Task[B]
}

func (o mapBothTaskObserver[A, B]) OnNext(v A) cask.Task[Ack] {
	return cask.FlatMapBoth(o.onValue(v),
		func(b B) cask.Task[Ack] { return o.downstream.OnNext(b) },
		func(err error) cask.Task[Ack] {
			return cask.Map(o.downstream.OnError(err), func(struct{}) Ack { return Stop })
		},
	)
}
func (o mapBothTaskObserver[A, B]) OnError(err error) cask.Task[struct{}] {
	return cask.FlatMapBoth(o.onError(err),
		func(b B) cask.Task[struct{}] {
			return cask.FlatMap(o.downstream.OnNext(b), func(ack Ack) cask.Task[struct{}] {
				if ack == Stop {
					return cask.Pure(struct{}{})
				}
				return o.downstream.OnComplete()
			})
		},
		o.downstream.OnError,
	)
}
func (o mapBothTaskObserver[A, B]) OnComplete() cask.Task[struct{}] { return o.downstream.OnComplete() }

// Scan folds f over every emitted value, starting from seed, and
// emits the running accumulator instead of the raw value.
func Scan[A, B any](src Observable[A], seed B, f func(B, A) B) Observable[B] {
	return newObservable(func(sched cask.Scheduler, obs Observer[B]) cask.Task[struct{}] {
		acc := seed
		return src.run(sched, scanObserver[A, B]{downstream: obs, acc: &acc, f: f})
	})
}

type scanObserver[A, B any] struct {
	downstream Observer[B]
	acc        *B
	f          func(B, A) B
}

func (o scanObserver[A, B]) OnNext(v A) cask.Task[Ack] {
	*o.acc = o.f(*o.acc, v)
	return o.downstream.OnNext(*o.acc)
}
func (o scanObserver[A, B]) OnError(err error) cask.Task[struct{}] { return o.downstream.OnError(err) }
func (o scanObserver[A, B]) OnComplete() cask.Task[struct{}]      { return o.downstream.OnComplete() }

// ScanTask is Scan with an effectful accumulator step.
func ScanTask[A, B any](src Observable[A], seed B, f func(B, A) cask.Task[B]) Observable[B] {
	return newObservable(func(sched cask.Scheduler, obs Observer[B]) cask.Task[struct{}] {
		acc := seed
		return src.run(sched, scanTaskObserver[A, B]{downstream: obs, acc: &acc, f: f})
	})
}

type scanTaskObserver[A, B any] struct {
	downstream Observer[B]
	acc        *B
	f          func(B, A) cask.Task[B]
}

func (o scanTaskObserver[A, B]) OnNext(v A) cask.Task[Ack] {
	return cask.FlatMapBoth(o.f(*o.acc, v),
		func(next B) cask.Task[Ack] {
			*o.acc = next
			return o.downstream.OnNext(next)
		},
		func(err error) cask.Task[Ack] {
			return cask.Map(o.downstream.OnError(err), func(struct{}) Ack { return Stop })
		},
	)
}
func (o scanTaskObserver[A, B]) OnError(err error) cask.Task[struct{}] {
	return o.downstream.OnError(err)
}
func (o scanTaskObserver[A, B]) OnComplete() cask.Task[struct{}] { return o.downstream.OnComplete() }

// Take forwards at most n values, then stops the producer and
// completes the subscriber.
func Take[A any](src Observable[A], n int) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		remaining := n
		if remaining <= 0 {
			return obs.OnComplete()
		}
		return src.run(sched, takeObserver[A]{downstream: obs, remaining: &remaining})
	})
}

type takeObserver[A any] struct {
	downstream Observer[A]
	remaining  *int
}

func (o takeObserver[A]) OnNext(v A) cask.Task[Ack] {
	*o.remaining--
	last := *o.remaining <= 0
	return cask.FlatMap(o.downstream.OnNext(v), func(ack Ack) cask.Task[Ack] {
		if ack == Stop {
			return cask.Pure(Stop)
		}
		if last {
			return cask.Map(o.downstream.OnComplete(), func(struct{}) Ack { return Stop })
		}
		return cask.Pure(Continue)
	})
}
func (o takeObserver[A]) OnError(err error) cask.Task[struct{}] { return o.downstream.OnError(err) }
func (o takeObserver[A]) OnComplete() cask.Task[struct{}]       { return o.downstream.OnComplete() }

// TakeWhile forwards values while pred holds, then stops the producer
// without forwarding the first value that fails pred.
func TakeWhile[A any](src Observable[A], pred func(A) bool) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return src.run(sched, takeWhileObserver[A]{downstream: obs, pred: pred})
	})
}

type takeWhileObserver[A any] struct {
	downstream Observer[A]
	pred       func(A) bool
}

func (o takeWhileObserver[A]) OnNext(v A) cask.Task[Ack] {
	if !o.pred(v) {
		return cask.Map(o.downstream.OnComplete(), func(struct{}) Ack { return Stop })
	}
	return o.downstream.OnNext(v)
}
func (o takeWhileObserver[A]) OnError(err error) cask.Task[struct{}] {
	return o.downstream.OnError(err)
}
func (o takeWhileObserver[A]) OnComplete() cask.Task[struct{}] { return o.downstream.OnComplete() }

// TakeWhileInclusive is TakeWhile but forwards the first value that
// fails pred before completing.
func TakeWhileInclusive[A any](src Observable[A], pred func(A) bool) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return src.run(sched, takeWhileInclusiveObserver[A]{downstream: obs, pred: pred})
	})
}

type takeWhileInclusiveObserver[A any] struct {
	downstream Observer[A]
	pred       func(A) bool
}

func (o takeWhileInclusiveObserver[A]) OnNext(v A) cask.Task[Ack] {
	ok := o.pred(v)
	return cask.FlatMap(o.downstream.OnNext(v), func(ack Ack) cask.Task[Ack] {
		if ack == Stop {
			return cask.Pure(Stop)
		}
		if !ok {
			return cask.Map(o.downstream.OnComplete(), func(struct{}) Ack { return Stop })
		}
		return cask.Pure(Continue)
	})
}
func (o takeWhileInclusiveObserver[A]) OnError(err error) cask.Task[struct{}] {
	return o.downstream.OnError(err)
}
func (o takeWhileInclusiveObserver[A]) OnComplete() cask.Task[struct{}] {
	return o.downstream.OnComplete()
}

// DistinctUntilChanged drops a value that equals the immediately
// preceding forwarded value.
func DistinctUntilChanged[A comparable](src Observable[A]) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return src.run(sched, &distinctObserver[A]{downstream: obs})
	})
}

type distinctObserver[A comparable] struct {
	downstream Observer[A]
	has        bool
	last       A
}

func (o *distinctObserver[A]) OnNext(v A) cask.Task[Ack] {
	if o.has && o.last == v {
		return cask.Pure(Continue)
	}
	o.has, o.last = true, v
	return o.downstream.OnNext(v)
}
func (o *distinctObserver[A]) OnError(err error) cask.Task[struct{}] {
	return o.downstream.OnError(err)
}
func (o *distinctObserver[A]) OnComplete() cask.Task[struct{}] { return o.downstream.OnComplete() }

// Guarantee runs finalizer once the subscription reaches any terminal
// state — completion, error, or cancellation — exactly once, mirroring
// cask.Guarantee at the Observable level.
func Guarantee[A any](src Observable[A], finalizer cask.Task[struct{}]) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return cask.Guarantee(src.run(sched, obs), finalizer)
	})
}

// DoOnNext runs f as a side effect for every forwarded value, without
// otherwise changing the stream.
func DoOnNext[A any](src Observable[A], f func(A)) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return src.run(sched, doOnNextObserver[A]{downstream: obs, f: f})
	})
}

type doOnNextObserver[A any] struct {
	downstream Observer[A]
	f          func(A)
}

func (o doOnNextObserver[A]) OnNext(v A) cask.Task[Ack] {
	o.f(v)
	return o.downstream.OnNext(v)
}
func (o doOnNextObserver[A]) OnError(err error) cask.Task[struct{}] { return o.downstream.OnError(err) }
func (o doOnNextObserver[A]) OnComplete() cask.Task[struct{}]      { return o.downstream.OnComplete() }

// Buffer collects values into slices of size n, emitting a full batch
// as soon as it fills; a shorter final batch is emitted on completion
// if any values are pending.
func Buffer[A any](src Observable[A], n int) Observable[[]A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[[]A]) cask.Task[struct{}] {
		return src.run(sched, &bufferObserver[A]{downstream: obs, n: n})
	})
}

type bufferObserver[A any] struct {
	downstream Observer[[]A]
	n          int
	pending    []A
}

func (o *bufferObserver[A]) OnNext(v A) cask.Task[Ack] {
	o.pending = append(o.pending, v)
	if len(o.pending) < o.n {
		return cask.Pure(Continue)
	}
	batch := o.pending
	o.pending = nil
	return o.downstream.OnNext(batch)
}
func (o *bufferObserver[A]) OnError(err error) cask.Task[struct{}] {
	return o.downstream.OnError(err)
}
func (o *bufferObserver[A]) OnComplete() cask.Task[struct{}] {
	if len(o.pending) == 0 {
		return o.downstream.OnComplete()
	}
	batch := o.pending
	o.pending = nil
	return cask.FlatMap(o.downstream.OnNext(batch), func(ack Ack) cask.Task[struct{}] {
		if ack == Stop {
			return cask.Pure(struct{}{})
		}
		return o.downstream.OnComplete()
	})
}

// Queue decouples src's producer from the eventual subscriber through a
// cask.Queue of the given capacity and overflow policy: src runs ahead,
// buffering into the queue (parking under BackpressureBlock, or
// dropping under BackpressureDrop, exactly as cask.Queue.Put already
// does), while the subscriber drains it at its own pace.
func Queue[A any](src Observable[A], capacity int, policy cask.Backpressure) Observable[A] {
	return newObservable(func(sched cask.Scheduler, obs Observer[A]) cask.Task[struct{}] {
		return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[struct{}] {
			p := cask.NewPromise[struct{}](sched)
			q := cask.NewQueue[notification[A]](capacity, policy)
			gate := funcObserver[A]{
				onNext: func(v A) cask.Task[Ack] {
					return cask.Map(q.Put(notification[A]{kind: notifyNext, val: v}), func(struct{}) Ack { return Continue })
				},
				onError: func(err error) cask.Task[struct{}] {
					return q.Put(notification[A]{kind: notifyError, err: err})
				},
				onComplete: func() cask.Task[struct{}] {
					return q.Put(notification[A]{kind: notifyComplete})
				},
			}
			cask.Run(src.run(sched, gate), sched)
			cask.Run(drainQueueOperator(q, obs), sched).OnFiberShutdown(func(*cask.Fiber[struct{}]) { p.Success(struct{}{}) })
			return p.Deferred()
		})
	})
}

func drainQueueOperator[A any](q *cask.Queue[notification[A]], obs Observer[A]) cask.Task[struct{}] {
	return cask.FlatMap(q.Take(), func(n notification[A]) cask.Task[struct{}] {
		switch n.kind {
		case notifyError:
			return obs.OnError(n.err)
		case notifyComplete:
			return obs.OnComplete()
		default:
			return cask.FlatMap(obs.OnNext(n.val), func(ack Ack) cask.Task[struct{}] {
				if ack == Stop {
					return cask.Pure(struct{}{})
				}
				return cask.Defer(func() cask.Task[struct{}] { return drainQueueOperator(q, obs) })
			})
		}
	})
}
