// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xpool provides a thin generic wrapper around sync.Pool for
// reuse of short-lived, per-emission allocations — notification
// envelopes traveling through a stream pipeline, not the immutable
// Task/op graph itself, which callers are entitled to retain and run
// more than once.
package xpool

import "sync"

// Pool recycles values of type T. The zero value is not usable; build
// one with New.
type Pool[T any] struct {
	p sync.Pool
}

// New returns a Pool whose Get calls newFn whenever the pool has
// nothing to reuse.
func New[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{p: sync.Pool{New: func() any { return newFn() }}}
}

// Get returns a pooled value, or a freshly constructed one if the pool
// was empty.
func (p *Pool[T]) Get() T {
	return p.p.Get().(T)
}

// Put returns v to the pool for later reuse. Callers must not use v
// again after calling Put.
func (p *Pool[T]) Put(v T) {
	p.p.Put(v)
}
