// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"sync"

	"code.hybscloud.com/cask"
)

type notifyKind int

const (
	notifyNext notifyKind = iota
	notifyError
	notifyComplete
)

type notification[T any] struct {
	kind notifyKind
	val  T
	err  error
}

// Subject is both an Observer and an Observable: it is a hot multicast
// point. Values pushed via Next/Error/Complete are fanned out to every
// observer subscribed at the time of the push; a subscriber that falls
// more than 64 notifications behind has each newer notification dropped
// (reported through cask.OnDroppedNotification) rather than blocking the
// publisher, since a Subject's publisher is ordinary Go code, not a Task
// under backpressure control.
type Subject[T any] struct {
	sched    cask.Scheduler
	mu       sync.Mutex
	subs     map[*subjectSub[T]]struct{}
	terminal *notification[T]
}

type subjectSub[T any] struct {
	mailbox *cask.Queue[notification[T]]
}

// NewSubject creates a Subject whose internal delivery fibers run on
// sched.
func NewSubject[T any](sched cask.Scheduler) *Subject[T] {
	return &Subject[T]{sched: sched, subs: make(map[*subjectSub[T]]struct{})}
}

// Next broadcasts value to every currently subscribed Observer.
func (s *Subject[T]) Next(value T) { s.broadcast(notification[T]{kind: notifyNext, val: value}) }

// Error broadcasts err to every currently subscribed Observer and
// marks the Subject terminated: later subscribers receive err
// immediately instead of being attached to the live feed.
func (s *Subject[T]) Error(err error) {
	n := notification[T]{kind: notifyError, err: err}
	s.mu.Lock()
	s.terminal = &n
	s.mu.Unlock()
	s.broadcast(n)
}

// Complete broadcasts completion to every currently subscribed
// Observer and marks the Subject terminated.
func (s *Subject[T]) Complete() {
	n := notification[T]{kind: notifyComplete}
	s.mu.Lock()
	s.terminal = &n
	s.mu.Unlock()
	s.broadcast(n)
}

func (s *Subject[T]) broadcast(n notification[T]) {
	s.mu.Lock()
	subs := make([]*subjectSub[T], 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.mailbox.TryPut(n)
	}
}

// Observable returns a view of the Subject that can be subscribed any
// number of times; each subscriber receives every notification pushed
// after it subscribes.
func (s *Subject[T]) Observable() Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		s.mu.Lock()
		if s.terminal != nil {
			term := *s.terminal
			s.mu.Unlock()
			return deliverTerminal(term, obs)
		}
		sub := &subjectSub[T]{mailbox: cask.NewQueue[notification[T]](64, cask.BackpressureDrop)}
		s.subs[sub] = struct{}{}
		s.mu.Unlock()
		return cask.Guarantee(drainSubjectSub(sub, obs), cask.Eval(func() struct{} {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			return struct{}{}
		}))
	})
}

// isTerminal reports whether the Subject has already received an
// Error or Complete call, returning that terminal notification.
func (s *Subject[T]) isTerminal() (notification[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal == nil {
		var zero notification[T]
		return zero, false
	}
	return *s.terminal, true
}

func deliverTerminal[T any](n notification[T], obs Observer[T]) cask.Task[struct{}] {
	if n.kind == notifyError {
		return obs.OnError(n.err)
	}
	return obs.OnComplete()
}

func drainSubjectSub[T any](sub *subjectSub[T], obs Observer[T]) cask.Task[struct{}] {
	return cask.FlatMap(sub.mailbox.Take(), func(n notification[T]) cask.Task[struct{}] {
		switch n.kind {
		case notifyError:
			return obs.OnError(n.err)
		case notifyComplete:
			return obs.OnComplete()
		default:
			return cask.FlatMap(obs.OnNext(n.val), func(ack Ack) cask.Task[struct{}] {
				if ack == Stop {
					return cask.Pure(struct{}{})
				}
				return cask.Defer(func() cask.Task[struct{}] { return drainSubjectSub(sub, obs) })
			})
		}
	})
}

// BehaviorSubject is a Subject that remembers its most recently pushed
// value and replays it to every new subscriber before attaching it to
// the live feed.
type BehaviorSubject[T any] struct {
	*Subject[T]
	mu   sync.Mutex
	has  bool
	last T
}

// NewBehaviorSubject creates a BehaviorSubject seeded with initial.
func NewBehaviorSubject[T any](sched cask.Scheduler, initial T) *BehaviorSubject[T] {
	return &BehaviorSubject[T]{Subject: NewSubject[T](sched), has: true, last: initial}
}

// Next records value as the current state and broadcasts it.
func (s *BehaviorSubject[T]) Next(value T) {
	s.mu.Lock()
	s.has, s.last = true, value
	s.mu.Unlock()
	s.Subject.Next(value)
}

// Value returns the most recently pushed value.
func (s *BehaviorSubject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.has
}

// Observable returns a view that replays the current value to each new
// subscriber before live notifications.
func (s *BehaviorSubject[T]) Observable() Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		s.mu.Lock()
		v, has := s.last, s.has
		s.mu.Unlock()
		if !has {
			return s.Subject.Observable().run(sched, obs)
		}
		return cask.FlatMap(obs.OnNext(v), func(ack Ack) cask.Task[struct{}] {
			if ack == Stop {
				return cask.Pure(struct{}{})
			}
			return s.Subject.Observable().run(sched, obs)
		})
	})
}

// ReplaySubject is a Subject that buffers up to bufferSize past values,
// plus the terminal notification once there is one, and replays them,
// in order, to every new subscriber before attaching it to the live feed.
type ReplaySubject[T any] struct {
	*Subject[T]
	mu         sync.Mutex
	bufferSize int
	buf        []notification[T]
}

// NewReplaySubject creates a ReplaySubject that retains up to
// bufferSize of the most recent values, and the terminal notification,
// for replay.
func NewReplaySubject[T any](sched cask.Scheduler, bufferSize int) *ReplaySubject[T] {
	return &ReplaySubject[T]{Subject: NewSubject[T](sched), bufferSize: bufferSize}
}

func (s *ReplaySubject[T]) record(n notification[T]) {
	s.mu.Lock()
	s.buf = append(s.buf, n)
	if over := len(s.buf) - s.bufferSize; n.kind == notifyNext && over > 0 && s.bufferSize > 0 {
		s.buf = s.buf[over:]
	}
	s.mu.Unlock()
}

// Next records value in the replay buffer and broadcasts it.
func (s *ReplaySubject[T]) Next(value T) {
	s.record(notification[T]{kind: notifyNext, val: value})
	s.Subject.Next(value)
}

// Error records the terminal error and broadcasts it.
func (s *ReplaySubject[T]) Error(err error) {
	s.record(notification[T]{kind: notifyError, err: err})
	s.Subject.Error(err)
}

// Complete records the terminal completion and broadcasts it.
func (s *ReplaySubject[T]) Complete() {
	s.record(notification[T]{kind: notifyComplete})
	s.Subject.Complete()
}

// Observable returns a view that replays the buffered history to each
// new subscriber before live notifications.
func (s *ReplaySubject[T]) Observable() Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		s.mu.Lock()
		buf := append([]notification[T]{}, s.buf...)
		s.mu.Unlock()
		return replayThenLive(buf, 0, s.Subject, sched, obs)
	})
}

func replayThenLive[T any](buf []notification[T], i int, live *Subject[T], sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
	if i >= len(buf) {
		return live.Observable().run(sched, obs)
	}
	n := buf[i]
	switch n.kind {
	case notifyError:
		return obs.OnError(n.err)
	case notifyComplete:
		return obs.OnComplete()
	default:
		return cask.FlatMap(obs.OnNext(n.val), func(ack Ack) cask.Task[struct{}] {
			if ack == Stop {
				return cask.Pure(struct{}{})
			}
			return cask.Defer(func() cask.Task[struct{}] { return replayThenLive(buf, i+1, live, sched, obs) })
		})
	}
}

// AsyncSubject broadcasts only its final value, delivered once
// Complete is called, to every subscriber present at that point and
// replayed to every subscriber after.
type AsyncSubject[T any] struct {
	*Subject[T]
	mu   sync.Mutex
	has  bool
	last T
}

// NewAsyncSubject creates an empty AsyncSubject.
func NewAsyncSubject[T any](sched cask.Scheduler) *AsyncSubject[T] {
	return &AsyncSubject[T]{Subject: NewSubject[T](sched)}
}

// Next records value as the pending final value; it is not broadcast
// until Complete is called.
func (s *AsyncSubject[T]) Next(value T) {
	s.mu.Lock()
	s.has, s.last = true, value
	s.mu.Unlock()
}

// Complete broadcasts the most recently recorded value, if any,
// followed by completion, to every current and future subscriber.
func (s *AsyncSubject[T]) Complete() {
	s.mu.Lock()
	v, has := s.last, s.has
	s.mu.Unlock()
	if has {
		s.Subject.Next(v)
	}
	s.Subject.Complete()
}

// Observable returns a view that, once the AsyncSubject has completed,
// replays its final value (if any) followed by completion to every new
// subscriber, instead of the bare completion a plain Subject replays.
func (s *AsyncSubject[T]) Observable() Observable[T] {
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		if term, done := s.Subject.isTerminal(); done {
			s.mu.Lock()
			v, has := s.last, s.has
			s.mu.Unlock()
			if term.kind == notifyComplete && has {
				return cask.FlatMap(obs.OnNext(v), func(ack Ack) cask.Task[struct{}] {
					if ack == Stop {
						return cask.Pure(struct{}{})
					}
					return obs.OnComplete()
				})
			}
			return deliverTerminal(term, obs)
		}
		return s.Subject.Observable().run(sched, obs)
	})
}

// Connectable wraps a source Observable so that many subscribers
// attach to it without each triggering a fresh run of its producer;
// the producer runs once Connect is called and is shared by every
// subscriber through an internal Subject.
type Connectable[T any] struct {
	source  Observable[T]
	subject *Subject[T]
}

// Publish wraps src as a Connectable multicasting through sched.
func Publish[T any](src Observable[T], sched cask.Scheduler) *Connectable[T] {
	return &Connectable[T]{source: src, subject: NewSubject[T](sched)}
}

// Connect subscribes the underlying source to the internal Subject,
// starting the shared producer. Each call subscribes the source again
// and starts another run of its producer.
func (c *Connectable[T]) Connect(sched cask.Scheduler) Subscription {
	return c.source.Subscribe(sched, c.subject)
}

// Observable returns the multicast view that subscribers attach to.
func (c *Connectable[T]) Observable() Observable[T] { return c.subject.Observable() }

// RefCount auto-connects a Connectable on its first subscriber and
// disconnects once the last subscriber unsubscribes.
func RefCount[T any](c *Connectable[T]) Observable[T] {
	var mu sync.Mutex
	count := 0
	var conn Subscription
	return newObservable(func(sched cask.Scheduler, obs Observer[T]) cask.Task[struct{}] {
		mu.Lock()
		count++
		if count == 1 {
			conn = c.Connect(sched)
		}
		mu.Unlock()
		return cask.Guarantee(c.Observable().run(sched, obs), cask.Eval(func() struct{} {
			mu.Lock()
			count--
			if count == 0 {
				conn.Unsubscribe()
			}
			mu.Unlock()
			return struct{}{}
		}))
	})
}
