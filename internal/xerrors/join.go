// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xerrors provides the small error-joining helper that
// teardown and finalizer paths need: running every cleanup function
// even if an earlier one panicked or failed, then reporting all of the
// failures together rather than only the first.
package xerrors

import "errors"

// Join returns an error combining every non-nil error in errs. It
// returns nil if errs is empty or contains only nils.
func Join(errs []error) error {
	return errors.Join(errs...)
}
