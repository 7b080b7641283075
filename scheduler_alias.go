// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cask

import "code.hybscloud.com/cask/scheduler"

// Scheduler is the execution strategy a Fiber runs on. It is an alias
// for code.hybscloud.com/cask/scheduler.Scheduler so that Task and Fiber
// signatures in this package can refer to it unqualified.
type Scheduler = scheduler.Scheduler

// TimerHandle is an alias for code.hybscloud.com/cask/scheduler.TimerHandle.
type TimerHandle = scheduler.TimerHandle
