// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import (
	"testing"

	"code.hybscloud.com/cask/scheduler"
)

func TestMVarReadDoesNotEmptyIt(t *testing.T) {
	b := scheduler.NewBench()
	m := NewMVar(10)

	readFiber := Run(m.Read(), b)
	drain(b)
	v, err := readFiber.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 10 {
		t.Fatalf("got %d, want 10", v)
	}

	takeFiber := Run(m.Take(), b)
	drain(b)
	v, err = takeFiber.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 10 {
		t.Fatalf("Read should not have consumed the value: got %d, want 10", v)
	}
}

func TestMVarTakeParksWhenEmpty(t *testing.T) {
	b := scheduler.NewBench()
	m := NewEmptyMVar[int]()

	takeFiber := Run(m.Take(), b)
	drain(b)
	if takeFiber.IsCompleted() {
		t.Fatalf("take on an empty mvar should park")
	}

	Run(m.Put(3), b)
	drain(b)

	v, err := takeFiber.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 3 {
		t.Fatalf("got %d, want 3", v)
	}
}

func TestMVarModify(t *testing.T) {
	b := scheduler.NewBench()
	m := NewMVar(5)

	fb := Run(m.Modify(func(v int) int { return v * 2 }), b)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 10 {
		t.Fatalf("got %d, want 10", v)
	}
}
