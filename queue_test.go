// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import (
	"testing"

	"code.hybscloud.com/cask/scheduler"
)

func TestQueuePutThenTakeFIFO(t *testing.T) {
	b := scheduler.NewBench()
	q := NewQueue[int](2, BackpressureBlock)

	Run(q.Put(1), b)
	Run(q.Put(2), b)
	drain(b)

	fb := Run(q.Take(), b)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
}

func TestQueueTakeParksUntilPut(t *testing.T) {
	b := scheduler.NewBench()
	q := NewQueue[int](1, BackpressureBlock)

	fb := Run(q.Take(), b)
	drain(b)
	if fb.IsCompleted() {
		t.Fatalf("take should still be parked on an empty queue")
	}

	Run(q.Put(5), b)
	drain(b)

	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("got %d, want 5", v)
	}
}

func TestQueueBackpressureBlocksPutUntilRoom(t *testing.T) {
	b := scheduler.NewBench()
	q := NewQueue[int](1, BackpressureBlock)

	Run(q.Put(1), b)
	drain(b)

	putFiber := Run(q.Put(2), b)
	drain(b)
	if putFiber.IsCompleted() {
		t.Fatalf("second put should be blocked on a full queue")
	}

	Run(q.Take(), b)
	drain(b)

	if _, err := putFiber.Await(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueueTailDropDiscardsOverflow(t *testing.T) {
	b := scheduler.NewBench()
	q := NewQueue[int](1, BackpressureDrop)

	Run(q.Put(1), b)
	drain(b)

	putFiber := Run(q.Put(2), b)
	drain(b)
	if _, err := putFiber.Await(); err != nil {
		t.Fatalf("tail-drop put should still complete: %v", err)
	}
	if q.Size() != 1 {
		t.Fatalf("got size %d, want 1 (overflow value dropped)", q.Size())
	}

	takeFiber := Run(q.Take(), b)
	drain(b)
	v, _ := takeFiber.Await()
	if v != 1 {
		t.Fatalf("got %d, want 1 (the original value, not the dropped one)", v)
	}
}

func TestQueueRendezvousAtZeroCapacity(t *testing.T) {
	b := scheduler.NewBench()
	q := NewQueue[int](0, BackpressureBlock)

	putFiber := Run(q.Put(9), b)
	drain(b)
	if putFiber.IsCompleted() {
		t.Fatalf("put on a rendezvous queue must wait for a taker")
	}

	takeFiber := Run(q.Take(), b)
	drain(b)

	v, err := takeFiber.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 9 {
		t.Fatalf("got %d, want 9", v)
	}
	if _, err := putFiber.Await(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
