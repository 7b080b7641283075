// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

// Resource describes an exception-safe acquire/release pair: once
// acquired, release is guaranteed to run exactly once no matter how the
// using Task terminates — value, error, or cancellation alike — the
// same guarantee Guarantee itself provides, since UseResource is built
// directly on top of it.
type Resource[A any] struct {
	acquire Task[A]
	release func(A) Task[struct{}]
}

// MakeResource builds a Resource from an acquisition Task and a release
// function. acquire is evaluated exactly once per UseResource call;
// release always runs afterward with the value acquire produced.
func MakeResource[A any](acquire Task[A], release func(A) Task[struct{}]) Resource[A] {
	return Resource[A]{acquire: acquire, release: release}
}

// UseResource acquires r, runs use against the acquired value, and
// guarantees release runs afterward — even if use errors or the owning
// fiber is canceled mid-use. Go does not allow a generic method to
// introduce its own type parameter, so this is a standalone function
// rather than a method on Resource.
func UseResource[A, B any](r Resource[A], use func(A) Task[B]) Task[B] {
	return FlatMap(r.acquire, func(a A) Task[B] {
		return Guarantee(use(a), r.release(a))
	})
}
