// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cask provides a lazy effect and reactive-stream runtime.
//
// Application code describes possibly-asynchronous computations as
// immutable [Task] values, then runs them under a pluggable
// code.hybscloud.com/cask/scheduler.Scheduler to obtain a [Fiber] — a
// cooperatively-scheduled handle to the running computation. Tasks may
// suspend on callbacks, delay, race against each other, recover from
// errors, and compose into infinite streams with backpressure through
// code.hybscloud.com/cask/stream.
//
// # Effect IR
//
// [Task] is an immutable, defunctionalized description of one step of
// computation. The eight node kinds — pure value, pure error, thunk,
// async callback, delay, race, cancel, and flat-map — are the only
// vocabulary the interpreter understands; flat-map is the sole
// composition point and is kept left-leaning so that recursive
// compositions do not grow the interpreter's call stack.
//
// # Fiber
//
// [Fiber] drives a [Task] graph to completion. It exposes [Run] (schedule
// asynchronously), [RunSync] (attempt a fully synchronous evaluation
// without a scheduler, returning either the result or a residual Task),
// [Await] (run and block for a terminal result), [Fiber.Cancel]
// (cooperative, idempotent cancellation), [Fiber.Await] (block on an
// already-running Fiber), and [Fiber.OnFiberShutdown] (terminal
// observers).
//
// # Async primitives
//
// [Promise] / [Deferred] bridge callback-world producers into the effect
// system. [Queue] is a bounded multi-producer multi-consumer buffer with a
// configurable overflow policy. [MVar] is a single-slot mailbox built atop
// Queue. [Ref] is an optimistic-CAS cell. [Resource] is exception-safe
// acquire/use/release.
package cask
