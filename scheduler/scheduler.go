// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler provides pluggable execution strategies for
// code.hybscloud.com/cask fibers: plain goroutine dispatch, a fixed-size
// worker pool, a work-stealing pool, and a deterministic, manually-driven
// variant for tests.
package scheduler

import "time"

// Task is a unit of work submitted to a Scheduler. It never blocks for
// longer than its own computation requires; long waits are expressed as
// new submissions, not as blocking calls inside a Task.
type Task func()

// TimerHandle is returned by SubmitAfter and lets the caller cancel a
// pending delayed submission before it fires, or observe whether it ever
// will.
type TimerHandle interface {
	// Cancel prevents the timer from firing if it has not fired yet. It
	// is idempotent and safe to call from any goroutine. It returns true
	// if this call is the one that prevented the fire.
	Cancel() bool

	// IsCanceled reports whether Cancel has already taken effect.
	IsCanceled() bool

	// OnCancel registers a callback that runs if the timer is canceled
	// before firing. If the timer is already canceled, it runs the
	// callback immediately on the calling goroutine.
	OnCancel(func())

	// OnShutdown registers a callback that runs once the timer's task
	// has finished running. If the timer has already fired and its task
	// has already completed, it runs the callback immediately on the
	// calling goroutine. A canceled timer's task never runs, so a
	// canceled timer never fires its OnShutdown callbacks.
	OnShutdown(func())
}

// Scheduler executes submitted work, immediately or after a delay, and
// reports whether it currently has any outstanding work.
type Scheduler interface {
	// Submit schedules t to run as soon as a worker is available. It
	// never runs t synchronously on the caller's goroutine.
	Submit(t Task)

	// SubmitBulk schedules every Task in ts. Implementations may batch
	// these more efficiently than N calls to Submit, but make no
	// ordering guarantee beyond submission order being a scheduling
	// hint, not a contract.
	SubmitBulk(ts []Task)

	// SubmitAfter schedules t to run no sooner than d from now. The
	// returned TimerHandle can cancel the pending fire.
	SubmitAfter(d time.Duration, t Task) TimerHandle

	// IsIdle reports whether the scheduler believes it has no
	// outstanding submitted or delayed work. It is advisory: a
	// concurrent Submit can race an IsIdle check.
	IsIdle() bool
}
