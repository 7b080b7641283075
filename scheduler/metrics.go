// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import "sync/atomic"

// Metrics observes scheduler activity. Implementations must be safe for
// concurrent use, since every method can be called from any worker
// goroutine.
type Metrics interface {
	TaskSubmitted()
	TaskStarted()
	TaskCompleted()
	TaskStolen()
	TimerScheduled()
	TimerFired()
	TimerCanceled()
}

// NoopMetrics discards every observation. It is the default for every
// constructor in this package.
type NoopMetrics struct{}

func (NoopMetrics) TaskSubmitted()  {}
func (NoopMetrics) TaskStarted()    {}
func (NoopMetrics) TaskCompleted()  {}
func (NoopMetrics) TaskStolen()     {}
func (NoopMetrics) TimerScheduled() {}
func (NoopMetrics) TimerFired()     {}
func (NoopMetrics) TimerCanceled()  {}

// BasicMetrics accumulates plain counters in memory. It is intended for
// tests and simple operational dashboards, not for high-cardinality
// production telemetry.
type BasicMetrics struct {
	submitted atomic.Int64
	started   atomic.Int64
	completed atomic.Int64
	stolen    atomic.Int64
	scheduled atomic.Int64
	fired     atomic.Int64
	canceled  atomic.Int64
}

// NewBasicMetrics returns a ready-to-use BasicMetrics.
func NewBasicMetrics() *BasicMetrics { return &BasicMetrics{} }

func (m *BasicMetrics) TaskSubmitted()  { m.submitted.Add(1) }
func (m *BasicMetrics) TaskStarted()    { m.started.Add(1) }
func (m *BasicMetrics) TaskCompleted()  { m.completed.Add(1) }
func (m *BasicMetrics) TaskStolen()     { m.stolen.Add(1) }
func (m *BasicMetrics) TimerScheduled() { m.scheduled.Add(1) }
func (m *BasicMetrics) TimerFired()     { m.fired.Add(1) }
func (m *BasicMetrics) TimerCanceled()  { m.canceled.Add(1) }

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Submitted, Started, Completed, Stolen          int64
	TimersScheduled, TimersFired, TimersCanceled int64
}

// Snapshot returns the current value of every counter.
func (m *BasicMetrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:       m.submitted.Load(),
		Started:         m.started.Load(),
		Completed:       m.completed.Load(),
		Stolen:          m.stolen.Load(),
		TimersScheduled: m.scheduled.Load(),
		TimersFired:     m.fired.Load(),
		TimersCanceled:  m.canceled.Load(),
	}
}
