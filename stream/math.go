// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"golang.org/x/exp/constraints"

	"code.hybscloud.com/cask"
)

// FlatScan is ScanTask under the name used by the rest of the scan
// family: it folds an effectful step over src, starting from seed, and
// emits each intermediate accumulator.
func FlatScan[A, B any](src Observable[A], seed B, f func(B, A) cask.Task[B]) Observable[B] {
	return ScanTask(src, seed, f)
}

type numeric interface {
	constraints.Integer | constraints.Float
}

// Sum completes with the sum of every value src emits, 0 if it never
// emits any.
func Sum[N numeric](src Observable[N]) cask.Task[N] {
	return cask.Map(ToSlice(src), func(values []N) N {
		var total N
		for _, v := range values {
			total += v
		}
		return total
	})
}

// Count completes with the number of values src emits.
func Count[A any](src Observable[A]) cask.Task[int] {
	return cask.Map(ToSlice(src), func(values []A) int { return len(values) })
}

// Min completes with the smallest value src emits, or errEmpty if it
// never emits one.
func Min[N numeric](src Observable[N], errEmpty error) cask.Task[N] {
	return reduceCompare(src, errEmpty, func(acc, v N) bool { return v < acc })
}

// Max completes with the largest value src emits, or errEmpty if it
// never emits one.
func Max[N numeric](src Observable[N], errEmpty error) cask.Task[N] {
	return reduceCompare(src, errEmpty, func(acc, v N) bool { return v > acc })
}

func reduceCompare[N numeric](src Observable[N], errEmpty error, replace func(acc, v N) bool) cask.Task[N] {
	return cask.AsyncTask(func(sched cask.Scheduler) *cask.Deferred[N] {
		p := cask.NewPromise[N](sched)
		var acc N
		has := false
		obs := funcObserver[N]{
			onNext: func(v N) cask.Task[Ack] {
				return cask.Eval(func() Ack {
					if !has || replace(acc, v) {
						acc, has = v, true
					}
					return Continue
				})
			},
			onError: func(err error) cask.Task[struct{}] {
				return cask.Eval(func() struct{} { p.Error(err); return struct{}{} })
			},
			onComplete: func() cask.Task[struct{}] {
				return cask.Eval(func() struct{} {
					if has {
						p.Success(acc)
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
