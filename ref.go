// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import "sync/atomic"

// Ref is a mutable cell updated by optimistic compare-and-swap rather
// than a mutex. Reads and writes never park a fiber: every operation is
// expressed as an Eval-backed Task that runs synchronously wherever it
// is evaluated.
type Ref[A any] struct {
	v atomic.Pointer[A]
}

// NewRef creates a Ref holding initial.
func NewRef[A any](initial A) *Ref[A] {
	r := &Ref[A]{}
	r.v.Store(&initial)
	return r
}

// Get returns the current value.
func (r *Ref[A]) Get() Task[A] {
	return Eval(func() A { return *r.v.Load() })
}

// Set replaces the current value unconditionally.
func (r *Ref[A]) Set(value A) Task[struct{}] {
	return Eval(func() struct{} {
		r.v.Store(&value)
		return struct{}{}
	})
}

// Modify atomically replaces the current value with f applied to it,
// retrying on CAS contention, and yields the new value.
func (r *Ref[A]) Modify(f func(A) A) Task[A] {
	return Eval(func() A {
		for {
			old := r.v.Load()
			next := f(*old)
			if r.v.CompareAndSwap(old, &next) {
				return next
			}
		}
	})
}

// Update is Modify without yielding the new value, for callers that
// only care about the side effect.
func (r *Ref[A]) Update(f func(A) A) Task[struct{}] {
	return Map(r.Modify(f), func(A) struct{} { return struct{}{} })
}
