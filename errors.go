// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import (
	"errors"
	"fmt"
	"log"

	"github.com/samber/lo"
)

// ErrTaskSucceeded is the error carried by Failed when the underlying
// Task actually completed successfully.
var ErrTaskSucceeded = errors.New("cask: task succeeded, Failed inverted it into an error")

// ErrFiberCanceled is returned by Fiber.Await when the fiber's terminal
// state is canceled rather than value or error.
var ErrFiberCanceled = errors.New("cask: fiber was canceled")

// Either holds exactly one of a left (error-channel) or right
// (value-channel) value, mirroring the shape Materialize/Dematerialize
// round-trip through.
type Either[L, R any] struct {
	left    L
	right   R
	isRight bool
}

// Left builds an Either holding a left value.
func Left[L, R any](l L) Either[L, R] { return Either[L, R]{left: l} }

// Right builds an Either holding a right value.
func Right[L, R any](r R) Either[L, R] { return Either[L, R]{right: r, isRight: true} }

// IsRight reports whether e holds a right value.
func (e Either[L, R]) IsRight() bool { return e.isRight }

// IsLeft reports whether e holds a left value.
func (e Either[L, R]) IsLeft() bool { return !e.isRight }

// GetLeft returns the left value and true, or the zero value and false
// if e holds a right value.
func (e Either[L, R]) GetLeft() (L, bool) {
	if e.isRight {
		var zero L
		return zero, false
	}
	return e.left, true
}

// GetRight returns the right value and true, or the zero value and
// false if e holds a left value.
func (e Either[L, R]) GetRight() (R, bool) {
	if !e.isRight {
		var zero R
		return zero, false
	}
	return e.right, true
}

// MatchEither calls onLeft or onRight depending on which side e holds,
// and returns its result.
func MatchEither[L, R, A any](e Either[L, R], onLeft func(L) A, onRight func(R) A) A {
	if e.isRight {
		return onRight(e.right)
	}
	return onLeft(e.left)
}

// MapEither transforms the right value of e, leaving a left value
// untouched.
func MapEither[L, R, R2 any](e Either[L, R], f func(R) R2) Either[L, R2] {
	if e.isRight {
		return Right[L, R2](f(e.right))
	}
	return Left[L, R2](e.left)
}

// MapLeftEither transforms the left value of e, leaving a right value
// untouched.
func MapLeftEither[L, R, L2 any](e Either[L, R], f func(L) L2) Either[L2, R] {
	if e.isRight {
		return Right[L2, R](e.right)
	}
	return Left[L2, R](f(e.left))
}

// FlatMapEither chains another Either-producing function off the right
// value of e.
func FlatMapEither[L, R, R2 any](e Either[L, R], f func(R) Either[L, R2]) Either[L, R2] {
	if e.isRight {
		return f(e.right)
	}
	return Left[L, R2](e.left)
}

// OnUnhandledError is a package-level hook for errors with nowhere left
// to route. The default logs via the standard logger. No Fiber or stream
// component in this module calls it; stream observers report through
// stream.OnUnhandledObserverError instead.
var OnUnhandledError = func(err error) {
	log.Printf("cask: unhandled error: %v", err)
}

// OnDroppedNotification is invoked whenever a stream component must
// silently discard a value — for example a TailDrop queue rejecting a
// put, or backpressure between a terminated Observer and a producer that
// has not yet noticed. The default logs via the standard logger.
var OnDroppedNotification = func(reason string, value any) {
	log.Printf("cask: dropped notification (%s): %v", reason, value)
}

// IgnoreOnUnhandledError installs a no-op OnUnhandledError hook.
func IgnoreOnUnhandledError() { OnUnhandledError = func(error) {} }

// IgnoreOnDroppedNotification installs a no-op OnDroppedNotification
// hook.
func IgnoreOnDroppedNotification() { OnDroppedNotification = func(string, any) {} }

// recoverToError runs f and converts any panic into an error instead of
// letting it unwind the calling goroutine, using the same
// panic-to-error technique as the stream package's teardown runner.
func recoverToError(f func()) error {
	errVal, ok := lo.TryWithErrorValue(func() error {
		f()
		return nil
	})
	if ok {
		return nil
	}
	if e, isErr := errVal.(error); isErr {
		return e
	}
	return fmt.Errorf("cask: recovered panic: %v", errVal)
}
