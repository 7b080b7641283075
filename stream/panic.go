// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"fmt"

	"github.com/samber/lo"
)

// recoverToError runs f and converts any panic into an error instead of
// letting it unwind the calling goroutine; used when running a batch
// of independent teardown callbacks so that one broken teardown cannot
// prevent the others from running.
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
	return fmt.Errorf("cask/stream: recovered panic: %v", errVal)
}
