// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import "runtime"

// Config controls how a Scheduler in this package is constructed. Pass
// Options to the constructor you're calling; each one applies them to a
// Config with the package defaults.
type Config struct {
	WorkerCount   int
	QueueCapacity int
	Metrics       Metrics
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithWorkerCount sets the number of dispatch goroutines. Values <= 0
// fall back to runtime.GOMAXPROCS(0).
func WithWorkerCount(n int) Option {
	return func(c *Config) { c.WorkerCount = n }
}

// WithQueueCapacity sets the buffer size of the task channel used by
// SingleThread and ThreadPool. WorkStealing's per-worker deques are
// unbounded and do not use it. Values <= 0 fall back to a small default.
func WithQueueCapacity(n int) Option {
	return func(c *Config) { c.QueueCapacity = n }
}

// WithMetrics attaches a Metrics sink. The default is NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

func newConfig(opts ...Option) Config {
	cfg := Config{
		WorkerCount:   runtime.GOMAXPROCS(0),
		QueueCapacity: 256,
		Metrics:       NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.GOMAXPROCS(0)
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics{}
	}
	return cfg
}
