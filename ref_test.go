// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import (
	"testing"

	"code.hybscloud.com/cask/scheduler"
)

func TestRefGetSet(t *testing.T) {
	b := scheduler.NewBench()
	r := NewRef(1)

	Run(r.Set(2), b)
	drain(b)

	fb := Run(r.Get(), b)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Fatalf("got %d, want 2", v)
	}
}

func TestRefUpdateAppliedByEveryFiber(t *testing.T) {
	b := scheduler.NewBench()
	r := NewRef(0)

	const n = 100
	for i := 0; i < n; i++ {
		Run(r.Update(func(v int) int { return v + 1 }), b)
	}
	drain(b)

	fb := Run(r.Get(), b)
	drain(b)
	v, _ := fb.Await()
	if v != n {
		t.Fatalf("got %d, want %d", v, n)
	}
}
