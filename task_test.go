// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/cask/scheduler"
)

// drain runs every ready task and fires every pending timer on a Bench
// scheduler until neither remains, which is enough to carry any cask
// Task graph built in this test file to completion since none of them
// wait on an external, test-uncontrolled event.
func drain(b *scheduler.Bench) {
	for {
		ran := b.RunReadyTasks()
		if b.NumTimers() == 0 {
			if ran == 0 {
				return
			}
			continue
		}
		b.AdvanceTime(time.Hour)
	}
}

func TestPureCompletesWithValue(t *testing.T) {
	b := scheduler.NewBench()
	fb := Run(Pure(42), b)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
}

func TestRaiseErrorCompletesWithError(t *testing.T) {
	wantErr := errors.New("boom")
	b := scheduler.NewBench()
	fb := Run(RaiseError[int](wantErr), b)
	drain(b)
	_, err := fb.Await()
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestFlatMapSequencesInOrder(t *testing.T) {
	b := scheduler.NewBench()
	var order []int
	task := FlatMap(Eval(func() int {
		order = append(order, 1)
		return 1
	}), func(a int) Task[int] {
		return Eval(func() int {
			order = append(order, 2)
			return a + 1
		})
	})
	fb := Run(task, b)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Fatalf("got %d, want 2", v)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("got order %v, want [1 2]", order)
	}
}

func TestFlatMapAssociativity(t *testing.T) {
	b := scheduler.NewBench()
	f := func(a int) Task[int] { return Pure(a + 1) }
	g := func(a int) Task[int] { return Pure(a * 2) }

	left := FlatMap(FlatMap(Pure(3), f), g)
	right := FlatMap(Pure(3), func(a int) Task[int] { return FlatMap(f(a), g) })

	leftFiber := Run(left, b)
	drain(b)
	lv, _ := leftFiber.Await()

	rightFiber := Run(right, b)
	drain(b)
	rv, _ := rightFiber.Await()

	if lv != rv {
		t.Fatalf("left %d != right %d", lv, rv)
	}
}

func TestRecoverReplacesError(t *testing.T) {
	b := scheduler.NewBench()
	task := Recover(RaiseError[int](errors.New("fail")), func(error) Task[int] {
		return Pure(99)
	})
	fb := Run(task, b)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("got %d, want 99", v)
	}
}

func TestMaterializeDematerializeRoundTrip(t *testing.T) {
	b := scheduler.NewBench()
	wantErr := errors.New("boom")
	original := RaiseError[int](wantErr)
	roundTripped := Dematerialize(Materialize(original))

	fb := Run(roundTripped, b)
	drain(b)
	_, err := fb.Await()
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestMaterializeNeverRaisesTaskError(t *testing.T) {
	b := scheduler.NewBench()
	fb := Run(Materialize(RaiseError[int](errors.New("boom"))), b)
	drain(b)
	mat, err := fb.Await()
	if err != nil {
		t.Fatalf("materialize should not raise: %v", err)
	}
	if mat.Err == nil {
		t.Fatalf("expected materialized error to be set")
	}
}

func TestDelayTaskCompletesAfterAdvancingTime(t *testing.T) {
	b := scheduler.NewBench()
	fb := Run(Delay(Pure("done"), 5*time.Second), b)
	b.RunReadyTasks()
	if fb.IsCompleted() {
		t.Fatalf("fiber should still be waiting on the timer")
	}
	b.AdvanceTime(5 * time.Second)
	b.RunReadyTasks()
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "done" {
		t.Fatalf("got %q, want %q", v, "done")
	}
}

func TestRaceWithFirstValueWins(t *testing.T) {
	b := scheduler.NewBench()
	slow := Delay(Pure("slow"), 10*time.Second)
	fast := Delay(Pure("fast"), time.Second)
	fb := Run(RaceWith(slow, fast), b)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "fast" {
		t.Fatalf("got %q, want %q", v, "fast")
	}
}

func TestGuaranteeRunsOnSuccess(t *testing.T) {
	b := scheduler.NewBench()
	ran := false
	task := Guarantee(Pure(1), Eval(func() struct{} { ran = true; return struct{}{} }))
	fb := Run(task, b)
	drain(b)
	if _, err := fb.Await(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatalf("finalizer did not run")
	}
}

func TestGuaranteeRunsOnError(t *testing.T) {
	b := scheduler.NewBench()
	ran := false
	task := Guarantee(RaiseError[int](errors.New("x")), Eval(func() struct{} { ran = true; return struct{}{} }))
	Run(task, b)
	drain(b)
	if !ran {
		t.Fatalf("finalizer did not run on error")
	}
}

func TestRunSyncReturnsResultWithoutSuspending(t *testing.T) {
	task := Recover(RaiseError[int](errors.New("boom")), func(error) Task[int] {
		return Pure(7)
	})

	either := RunSync(task)
	mat, ok := either.GetLeft()
	if !ok {
		t.Fatalf("expected a synchronous result, got a residual task")
	}
	if mat.Err != nil || mat.Canceled {
		t.Fatalf("expected a plain value, got %+v", mat)
	}
	if mat.Value != 7 {
		t.Fatalf("got %d, want 7", mat.Value)
	}
}

func TestRunSyncReturnsResidualTaskOnSuspension(t *testing.T) {
	task := FlatMap(DelayTask(time.Second), func(struct{}) Task[string] {
		return Pure("done")
	})

	either := RunSync(task)
	if either.IsLeft() {
		t.Fatalf("expected a residual task, got a synchronous result")
	}
	residual, _ := either.GetRight()

	b := scheduler.NewBench()
	fb := Run(residual, b)
	b.AdvanceTime(time.Second)
	drain(b)
	v, err := fb.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "done" {
		t.Fatalf("got %q, want %q", v, "done")
	}
}

func TestRunSyncNeverBlocksOnBenchScheduler(t *testing.T) {
	// A naive RunSync built on Run+Await would deadlock here: Await parks
	// the calling goroutine before anything can drive a Bench scheduler's
	// ready queue. The real synchronous stepper never touches a
	// scheduler at all, so this returns immediately.
	either := RunSync(Never[int]())
	if either.IsLeft() {
		t.Fatalf("expected a residual task for a Task that never settles synchronously")
	}
}

func TestFailedInvertsSuccessAndError(t *testing.T) {
	b := scheduler.NewBench()
	fb := Run(Failed(Pure(1)), b)
	drain(b)
	_, err := fb.Await()
	if !errors.Is(err, ErrTaskSucceeded) {
		t.Fatalf("got %v, want %v", err, ErrTaskSucceeded)
	}

	b2 := scheduler.NewBench()
	wantErr := errors.New("boom")
	fb2 := Run(Failed(RaiseError[int](wantErr)), b2)
	drain(b2)
	gotErr, err := fb2.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(gotErr, wantErr) {
		t.Fatalf("got %v, want %v", gotErr, wantErr)
	}
}
