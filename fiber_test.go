// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import (
	"testing"
	"time"

	"code.hybscloud.com/cask/scheduler"
)

func TestFiberCancelWhileWaitingOnDelay(t *testing.T) {
	b := scheduler.NewBench()
	fb := Run(Delay(Pure(1), time.Minute), b)
	b.RunReadyTasks()

	fb.Cancel()
	drain(b)

	if !fb.IsCanceled() {
		t.Fatalf("expected fiber to be canceled")
	}
	if _, err := fb.Await(); err != ErrFiberCanceled {
		t.Fatalf("got %v, want ErrFiberCanceled", err)
	}
}

func TestFiberOnShutdownRunsImmediatelyAfterCompletion(t *testing.T) {
	b := scheduler.NewBench()
	fb := Run(Pure(7), b)
	drain(b)
	fb.Await()

	called := false
	fb.OnFiberShutdown(func(*Fiber[int]) { called = true })
	if !called {
		t.Fatalf("OnFiberShutdown should run immediately on an already-terminal fiber")
	}
}

func TestDoOnCancelRunsOnlyWhenCanceled(t *testing.T) {
	b := scheduler.NewBench()
	ran := false
	task := DoOnCancel(Delay(Pure(1), time.Minute), Eval(func() struct{} { ran = true; return struct{}{} }))
	fb := Run(task, b)
	b.RunReadyTasks()
	fb.Cancel()
	drain(b)

	if !ran {
		t.Fatalf("DoOnCancel finalizer did not run")
	}
	if !fb.IsCanceled() {
		t.Fatalf("expected fiber to be canceled")
	}
}

func TestOnCancelRaiseErrorConvertsCancellation(t *testing.T) {
	b := scheduler.NewBench()
	sentinel := ErrFiberCanceled
	task := OnCancelRaiseError(Delay(Pure(1), time.Minute), sentinel)
	fb := Run(task, b)
	b.RunReadyTasks()
	fb.Cancel()
	drain(b)

	if fb.IsCanceled() {
		t.Fatalf("fiber should have completed with an error, not canceled")
	}
	if fb.GetError() != sentinel {
		t.Fatalf("got %v, want %v", fb.GetError(), sentinel)
	}
}
