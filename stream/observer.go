// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stream provides a reactive Observable/Observer layer built
// directly on code.hybscloud.com/cask Tasks and Fibers: every
// notification an Observer receives is acknowledged by a Task[Ack],
// so a slow consumer applies real backpressure to its producer instead
// of an unbounded callback queue building up behind it.
package stream

import (
	"log"

	"code.hybscloud.com/cask"
)

// Ack is returned by Observer.OnNext to tell the producer whether to
// keep going.
type Ack int

const (
	// Continue tells the producer it may emit further values.
	Continue Ack = iota
	// Stop tells the producer to end the subscription without emitting
	// anything further, and without calling OnComplete.
	Stop
)

// Observer receives the notifications of an Observable subscription.
// Exactly one of OnNext may be in flight at a time per subscription;
// OnError and OnComplete are each called at most once, and never after
// the other, and never after an OnNext whose Ack was Stop.
type Observer[T any] interface {
	OnNext(value T) cask.Task[Ack]
	OnError(err error) cask.Task[struct{}]
	OnComplete() cask.Task[struct{}]
}

// OnUnhandledObserverError is invoked when an error reaches an Observer
// that has no error handler of its own (the default OnError of
// OnNextFunc and NoopObserver). The default logs via the standard
// logger, mirroring cask.OnUnhandledError.
var OnUnhandledObserverError = func(err error) {
	log.Printf("cask/stream: unhandled observer error: %v", err)
}

type funcObserver[T any] struct {
	onNext     func(T) cask.Task[Ack]
	onError    func(error) cask.Task[struct{}]
	onComplete func() cask.Task[struct{}]
}

func (o funcObserver[T]) OnNext(v T) cask.Task[Ack]       { return o.onNext(v) }
func (o funcObserver[T]) OnError(err error) cask.Task[struct{}] { return o.onError(err) }
func (o funcObserver[T]) OnComplete() cask.Task[struct{}] { return o.onComplete() }

func noopComplete() cask.Task[struct{}] { return cask.Pure(struct{}{}) }

func defaultOnError(err error) cask.Task[struct{}] {
	return cask.Eval(func() struct{} {
		OnUnhandledObserverError(err)
		return struct{}{}
	})
}

// OnNextFunc builds an Observer from just a next handler; errors are
// routed to OnUnhandledObserverError and completion is a no-op.
func OnNextFunc[T any](f func(T)) Observer[T] {
	return funcObserver[T]{
		onNext: func(v T) cask.Task[Ack] {
			return cask.Eval(func() Ack { f(v); return Continue })
		},
		onError:    defaultOnError,
		onComplete: noopComplete,
	}
}

// NoopObserver discards every notification.
func NoopObserver[T any]() Observer[T] {
	return funcObserver[T]{
		onNext:     func(T) cask.Task[Ack] { return cask.Pure(Continue) },
		onError:    defaultOnError,
		onComplete: noopComplete,
	}
}

// PrintObserver logs every notification via the standard logger; it is
// meant for ad hoc debugging, the same role ro.PrintObserver fills.
func PrintObserver[T any](prefix string) Observer[T] {
	return funcObserver[T]{
		onNext: func(v T) cask.Task[Ack] {
			return cask.Eval(func() Ack { log.Printf("%s: next %v", prefix, v); return Continue })
		},
		onError: func(err error) cask.Task[struct{}] {
			return cask.Eval(func() struct{} { log.Printf("%s: error %v", prefix, err); return struct{}{} })
		},
		onComplete: func() cask.Task[struct{}] {
			return cask.Eval(func() struct{} { log.Printf("%s: complete", prefix); return struct{}{} })
		},
	}
}
