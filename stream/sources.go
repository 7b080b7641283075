// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"time"

	"code.hybscloud.com/cask"
)

// Of emits each of values in order, then completes.
func Of[T any](values ...T) Observable[T] {
	return FromSlice(values)
}

// FromSlice emits every element of values in order, then completes.
// The slice is read, never mutated; each subscription walks it from
// the start.
func FromSlice[T any](values []T) Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		return emitSlice(values, 0, obs)
	})
}

func emitSlice[T any](values []T, i int, obs Observer[T]) cask.Task[struct{}] {
	if i >= len(values) {
		return obs.OnComplete()
	}
	return cask.FlatMap(obs.OnNext(values[i]), func(ack Ack) cask.Task[struct{}] {
		if ack == Stop {
			return cask.Pure(struct{}{})
		}
		return cask.Defer(func() cask.Task[struct{}] { return emitSlice(values, i+1, obs) })
	})
}

// Empty completes immediately without emitting any value.
func Empty[T any]() Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		return obs.OnComplete()
	})
}

// Failed emits err immediately and never completes or emits a value.
func Failed[T any](err error) Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		return obs.OnError(err)
	})
}

// Never neither emits nor completes nor errors; its only way out is
// unsubscription.
func Never[T any]() Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		return cask.Never[struct{}]()
	})
}

// Range emits count consecutive ints starting at start, then
// completes.
func Range(start, count int) Observable[int] {
	return newObservable(func(sched cask.Scheduler, obs Observer[int]) cask.Task[struct{}] {
		return emitRange(start, count, obs)
	})
}

func emitRange(cur, remaining int, obs Observer[int]) cask.Task[struct{}] {
	if remaining <= 0 {
		return obs.OnComplete()
	}
	return cask.FlatMap(obs.OnNext(cur), func(ack Ack) cask.Task[struct{}] {
		if ack == Stop {
			return cask.Pure(struct{}{})
		}
		return cask.Defer(func() cask.Task[struct{}] { return emitRange(cur+1, remaining-1, obs) })
	})
}

// Interval emits an increasing int, starting at 0, every d, forever,
// until the subscription is canceled.
func Interval(d time.Duration) Observable[int] {
	return newObservable(func(sched cask.Scheduler, obs Observer[int]) cask.Task[struct{}] {
		return emitInterval(0, d, obs)
	})
}

func emitInterval(n int, d time.Duration, obs Observer[int]) cask.Task[struct{}] {
	return cask.FlatMap(cask.DelayTask(d), func(struct{}) cask.Task[struct{}] {
		return cask.FlatMap(obs.OnNext(n), func(ack Ack) cask.Task[struct{}] {
			if ack == Stop {
				return cask.Pure(struct{}{})
			}
			return cask.Defer(func() cask.Task[struct{}] { return emitInterval(n+1, d, obs) })
		})
	})
}

// Timer waits for d, emits a single struct{} value, then completes.
func Timer(d time.Duration) Observable[struct{}] {
	return newObservable(func(sched cask.Scheduler, obs Observer[struct{}]) cask.Task[struct{}] {
		return cask.FlatMap(cask.DelayTask(d), func(struct{}) cask.Task[struct{}] {
			return cask.FlatMap(obs.OnNext(struct{}{}), func(ack Ack) cask.Task[struct{}] {
				if ack == Stop {
					return cask.Pure(struct{}{})
				}
				return obs.OnComplete()
			})
		})
	})
}

// RepeatTask evaluates t over and over, emitting its value each time,
// until t errors (forwarded via OnError) or the subscription is
// canceled or stopped by the Observer.
func RepeatTask[T any](t cask.Task[T]) Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		return emitRepeat(t, obs)
	})
}

func emitRepeat[T any](t cask.Task[T], obs Observer[T]) cask.Task[struct{}] {
	return cask.FlatMapBoth(t,
		func(v T) cask.Task[struct{}] {
			return cask.FlatMap(obs.OnNext(v), func(ack Ack) cask.Task[struct{}] {
				if ack == Stop {
					return cask.Pure(struct{}{})
				}
				return cask.Defer(func() cask.Task[struct{}] { return emitRepeat(t, obs) })
			})
		},
		obs.OnError,
	)
}

// FromTask runs t once; its value is emitted as a single notification
// followed by OnComplete, or its error is forwarded to OnError.
func FromTask[T any](t cask.Task[T]) Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		return cask.FlatMapBoth(t,
			func(v T) cask.Task[struct{}] {
				return cask.FlatMap(obs.OnNext(v), func(ack Ack) cask.Task[struct{}] {
					if ack == Stop {
						return cask.Pure(struct{}{})
					}
					return obs.OnComplete()
				})
			},
			obs.OnError,
		)
	})
}
