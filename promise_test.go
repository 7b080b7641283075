// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import (
	"errors"
	"testing"

	"code.hybscloud.com/cask/scheduler"
)

func TestPromiseSuccessIsSingleAssignment(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)

	var got int
	var calls int
	p.Deferred().OnValue(func(v int) { got = v; calls++ })

	p.Success(1)
	b.RunReadyTasks()

	if calls != 1 {
		t.Fatalf("OnValue fired %d times, want 1", calls)
	}
	if got != 1 {
		t.Fatalf("got %d, want 1 (first settlement wins)", got)
	}
}

func TestPromiseSecondSuccessPanics(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)
	p.Success(1)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on second Success")
		}
		if s, ok := r.(string); !ok || s != "cask: promise already successfully completed" {
			t.Fatalf("unexpected panic message: %v", r)
		}
	}()

	p.Success(2)
}

func TestPromiseErrorAfterSuccessPanics(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)
	p.Success(1)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on Error after Success")
		}
		if s, ok := r.(string); !ok || s != "cask: promise already successfully completed" {
			t.Fatalf("unexpected panic message: %v", r)
		}
	}()

	p.Error(errors.New("too late"))
}

func TestPromiseSecondErrorPanics(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)
	p.Error(errors.New("first"))

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on second Error")
		}
		if s, ok := r.(string); !ok || s != "cask: promise already completed with an error" {
			t.Fatalf("unexpected panic message: %v", r)
		}
	}()

	p.Error(errors.New("second"))
}

func TestPromiseSuccessAfterCancelIsSilentNoOp(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)
	p.Cancel()

	p.Success(1)
	p.Error(errors.New("still ignored"))
	b.RunReadyTasks()

	if !p.IsCanceled() {
		t.Fatalf("expected promise to remain canceled")
	}
}

func TestPromiseCancelAfterSuccessIsSilentNoOp(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)
	p.Success(1)

	p.Cancel()
	b.RunReadyTasks()

	if p.IsCanceled() {
		t.Fatalf("expected first settlement (Success) to win over a later Cancel")
	}
}

func TestPromiseOnShutdownNeverFiresAfterCancel(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)

	fired := false
	p.Deferred().OnShutdown(func() { fired = true })
	p.Cancel()
	b.RunReadyTasks()

	if fired {
		t.Fatalf("OnShutdown must not fire after direct Cancel")
	}
	if !p.IsCanceled() {
		t.Fatalf("expected promise to be canceled")
	}
}

func TestPromiseOnCancelRunsInlineNotViaScheduler(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[int](b)

	called := false
	p.Deferred().OnCancel(func() { called = true })
	p.Cancel()

	if !called {
		t.Fatalf("OnCancel should run inline, before any scheduler draining")
	}
}

func TestDeferredOnCompleteFiresForLateRegistration(t *testing.T) {
	b := scheduler.NewBench()
	p := NewPromise[string](b)
	p.Success("done")
	b.RunReadyTasks()

	var got string
	p.Deferred().OnComplete(func(v string, err error) { got = v })
	b.RunReadyTasks()

	if got != "done" {
		t.Fatalf("got %q, want %q", got, "done")
	}
}
