// Copyright 2026 Hayabusa Cloud Co., Ltd. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"code.hybscloud.com/cask"
	"code.hybscloud.com/cask/scheduler"
	"code.hybscloud.com/cask/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFromSliceEmitsEveryValueInOrder(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	values, err := cask.Await(stream.ToSlice(stream.Of(1, 2, 3)), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, values)
}

func TestMapTransformsEveryValue(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	doubled := stream.Map(stream.Of(1, 2, 3), func(v int) int { return v * 2 })
	values, err := cask.Await(stream.ToSlice(doubled), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, values)
}

func TestFilterKeepsOnlyMatchingValues(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	evens := stream.Filter(stream.Range(0, 10), func(v int) bool { return v%2 == 0 })
	values, err := cask.Await(stream.ToSlice(evens), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4, 6, 8}, values)
}

func TestTakeStopsAfterN(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	values, err := cask.Await(stream.ToSlice(stream.Take(stream.Range(0, 100), 3)), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, values)
}

func TestTakeWhileStopsBeforeFailingValue(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	values, err := cask.Await(stream.ToSlice(stream.TakeWhile(stream.Range(0, 10), func(v int) bool { return v < 4 })), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, values)
}

func TestScanEmitsRunningTotal(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	sums := stream.Scan(stream.Of(1, 2, 3, 4), 0, func(acc, v int) int { return acc + v })
	values, err := cask.Await(stream.ToSlice(sums), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 6, 10}, values)
}

func TestMapTaskErrorRoutesToObserverNotFiberError(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	boom := errors.New("boom")
	src := stream.MapTask(stream.Of(1, 2, 3), func(v int) cask.Task[int] {
		if v == 2 {
			return cask.RaiseError[int](boom)
		}
		return cask.Pure(v)
	})

	var values []int
	_, err := cask.Await(stream.Foreach(src, func(v int) { values = append(values, v) }), sched)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1}, values)
}

func TestDistinctUntilChangedDropsConsecutiveDuplicates(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	values, err := cask.Await(stream.ToSlice(stream.DistinctUntilChanged(stream.Of(1, 1, 2, 2, 2, 3, 1))), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 1}, values)
}

func TestBufferGroupsIntoFixedSizeBatchesWithShortFinalBatch(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	batches, err := cask.Await(stream.ToSlice(stream.Buffer(stream.Range(0, 7), 3)), sched)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {6}}, batches)
}

func TestConcatRunsSourcesInOrder(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	joined := stream.Concat(stream.Of(1, 2), stream.Of(3, 4), stream.Of(5))
	values, err := cask.Await(stream.ToSlice(joined), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, values)
}

func TestMergeForwardsAllSourcesAndCompletesOnce(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	merged := stream.Merge(stream.Of(1, 2), stream.Of(3, 4), stream.Of(5, 6))
	values, err := cask.Await(stream.ToSlice(merged), sched)
	require.NoError(t, err)
	assert.Len(t, values, 6)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, values)
}

func TestMergePropagatesFirstErrorAndCancelsSiblings(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	boom := errors.New("merge boom")
	merged := stream.Merge(stream.Of(1), stream.Failed[int](boom), stream.Never[int]())
	_, err := cask.Await(stream.ToSlice(merged), sched)
	assert.ErrorIs(t, err, boom)
}

func TestFlatMapFlattensInnerObservables(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	src := stream.FlatMap(stream.Of(1, 2, 3), func(v int) stream.Observable[int] {
		return stream.Of(v, v*10)
	})
	values, err := cask.Await(stream.ToSlice(src), sched)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 10, 2, 20, 3, 30}, values)
}

func TestSwitchMapCancelsPreviousInner(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	src := stream.SwitchMap(stream.Of(1, 2), func(v int) stream.Observable[int] {
		if v == 1 {
			return stream.Never[int]()
		}
		return stream.Of(v * 100)
	})
	values, err := cask.Await(stream.ToSlice(src), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{200}, values)
}

func TestSumCountMinMax(t *testing.T) {
	sched := scheduler.NewSingleThread()
	defer sched.Close()

	sum, err := cask.Await(stream.Sum(stream.Of(1, 2, 3, 4)), sched)
	require.NoError(t, err)
	assert.Equal(t, 10, sum)

	count, err := cask.Await(stream.Count(stream.Of(1, 2, 3, 4)), sched)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	smallest, err := cask.Await(stream.Min(stream.Of(3, 1, 4, 1, 5), errEmptyStream), sched)
	require.NoError(t, err)
	assert.Equal(t, 1, smallest)

	largest, err := cask.Await(stream.Max(stream.Of(3, 1, 4, 1, 5), errEmptyStream), sched)
	require.NoError(t, err)
	assert.Equal(t, 5, largest)
}

var errEmptyStream = errors.New("stream was empty")

func TestSubjectMulticastsToAllCurrentSubscribers(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	subject := stream.NewSubject[int](sched)

	gotA := make(chan []int, 1)
	gotB := make(chan []int, 1)
	go func() {
		v, _ := cask.Await(stream.ToSlice(subject.Observable()), sched)
		gotA <- v
	}()
	go func() {
		v, _ := cask.Await(stream.ToSlice(subject.Observable()), sched)
		gotB <- v
	}()

	time.Sleep(20 * time.Millisecond)
	subject.Next(1)
	subject.Next(2)
	subject.Complete()

	a := <-gotA
	b := <-gotB
	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1, 2}, b)
}

func TestBehaviorSubjectReplaysLastValueToNewSubscriber(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	subject := stream.NewBehaviorSubject[int](sched, 0)
	subject.Next(1)
	subject.Next(2)

	got := make(chan []int, 1)
	go func() {
		v, _ := cask.Await(stream.ToSlice(stream.Take(subject.Observable(), 1)), sched)
		got <- v
	}()

	assert.Equal(t, []int{2}, <-got)
}

func TestReplaySubjectReplaysBufferedHistory(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	subject := stream.NewReplaySubject[int](sched, 2)
	subject.Next(1)
	subject.Next(2)
	subject.Next(3)
	subject.Complete()

	values, err := cask.Await(stream.ToSlice(subject.Observable()), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, values)
}

func TestAsyncSubjectOnlyDeliversFinalValue(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	subject := stream.NewAsyncSubject[int](sched)
	subject.Next(1)
	subject.Next(2)
	subject.Next(3)
	subject.Complete()

	values, err := cask.Await(stream.ToSlice(subject.Observable()), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, values)
}

func TestQueueOperatorDecouplesProducerFromSlowConsumer(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	buffered := stream.Queue(stream.Range(0, 5), 8, cask.BackpressureBlock)
	values, err := cask.Await(stream.ToSlice(buffered), sched)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, values)
}

func TestPublishRefCountSharesASingleProducerRun(t *testing.T) {
	sched := scheduler.NewThreadPool(scheduler.WithWorkerCount(4))
	defer sched.Close()

	var starts int32
	source := stream.MapTask(stream.Interval(5*time.Millisecond), func(v int) cask.Task[int] {
		return cask.Eval(func() int {
			if v == 0 {
				atomic.AddInt32(&starts, 1)
			}
			return v
		})
	})
	shared := stream.RefCount(stream.Publish(source, sched))
	limited := stream.Take(shared, 3)

	gotA := make(chan []int, 1)
	gotB := make(chan []int, 1)
	go func() {
		v, _ := cask.Await(stream.ToSlice(limited), sched)
		gotA <- v
	}()
	go func() {
		v, _ := cask.Await(stream.ToSlice(limited), sched)
		gotB <- v
	}()

	a := <-gotA
	b := <-gotB
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.Equal(t, int32(1), atomic.LoadInt32(&starts))
}
