// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/cask/scheduler"
)

func TestBenchRunsSubmittedTasksOnlyWhenDriven(t *testing.T) {
	b := scheduler.NewBench()
	ran := false
	b.Submit(func() { ran = true })

	assert.False(t, ran, "task must not run before RunOneTask/RunReadyTasks")
	assert.Equal(t, 1, b.NumTasksReady())

	ok := b.RunOneTask()
	require.True(t, ok)
	assert.True(t, ran)
}

func TestBenchAdvanceTimeFiresDueTimersOnly(t *testing.T) {
	b := scheduler.NewBench()
	var fired []string
	b.SubmitAfter(time.Second, func() { fired = append(fired, "1s") })
	b.SubmitAfter(10*time.Second, func() { fired = append(fired, "10s") })

	assert.Equal(t, 2, b.NumTimers())

	n := b.AdvanceTime(5 * time.Second)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, b.NumTasksReady(), "firing a timer enqueues a task, doesn't run it")

	b.RunReadyTasks()
	assert.Equal(t, []string{"1s"}, fired)

	b.AdvanceTime(10 * time.Second)
	b.RunReadyTasks()
	assert.Equal(t, []string{"1s", "10s"}, fired)
}

func TestBenchTimerCancelPreventsFiring(t *testing.T) {
	b := scheduler.NewBench()
	fired := false
	handle := b.SubmitAfter(time.Second, func() { fired = true })

	ok := handle.Cancel()
	assert.True(t, ok)
	assert.True(t, handle.IsCanceled())

	b.AdvanceTime(time.Hour)
	b.RunReadyTasks()
	assert.False(t, fired)
}

func TestBenchTimerOnCancelFiresImmediatelyIfAlreadyCanceled(t *testing.T) {
	b := scheduler.NewBench()
	handle := b.SubmitAfter(time.Second, func() {})
	handle.Cancel()

	called := false
	handle.OnCancel(func() { called = true })
	assert.True(t, called)
}

func TestBenchIsIdleReflectsReadyAndTimerState(t *testing.T) {
	b := scheduler.NewBench()
	assert.True(t, b.IsIdle())

	b.SubmitAfter(time.Second, func() {})
	assert.False(t, b.IsIdle())
}
