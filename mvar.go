// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

// MVar is a single-slot mailbox: Take empties it (parking if it is
// already empty) and Put fills it (parking if it is already full). It
// is a capacity-1 Queue under the hood, with BackpressureBlock so Put
// and Take always rendezvous rather than silently dropping a value.
type MVar[A any] struct {
	q *Queue[A]
}

// NewEmptyMVar creates an MVar with nothing in it; the first Take
// parks until a Put arrives.
func NewEmptyMVar[A any]() *MVar[A] {
	return &MVar[A]{q: NewQueue[A](1, BackpressureBlock)}
}

// NewMVar creates an MVar already holding initial.
func NewMVar[A any](initial A) *MVar[A] {
	m := NewEmptyMVar[A]()
	m.q.values = append(m.q.values, initial)
	return m
}

// Put fills the MVar, parking if it is already full.
func (m *MVar[A]) Put(value A) Task[struct{}] { return m.q.Put(value) }

// Take empties the MVar, parking if it is already empty.
func (m *MVar[A]) Take() Task[A] { return m.q.Take() }

// Read observes the current value without permanently emptying the
// MVar: it takes, then immediately puts the same value back, and
// yields it to the caller. Defined exactly as Take().FlatMap(Put).Map
// so that a racing Take between the internal take and put still
// behaves like two independent operations rather than a single atomic
// read.
func (m *MVar[A]) Read() Task[A] {
	return FlatMap(m.Take(), func(v A) Task[A] {
		return Map(m.Put(v), func(struct{}) A { return v })
	})
}

// Modify takes the current value, computes a replacement with f, puts
// it back, and yields the replacement.
func (m *MVar[A]) Modify(f func(A) A) Task[A] {
	return FlatMap(m.Take(), func(v A) Task[A] {
		nv := f(v)
		return Map(m.Put(nv), func(struct{}) A { return nv })
	})
}
