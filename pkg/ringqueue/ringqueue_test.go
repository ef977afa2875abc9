package ringqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/kakao/asyncseq/pkg/executor"
	"github.com/kakao/asyncseq/pkg/verrors"
	"github.com/kakao/asyncseq/vtesting"
)

func BenchmarkQueuePushPop(b *testing.B) {
	queueSizes := []int{1, 10, 100, 1000, 10000}

	for _, queueSize := range queueSizes {
		queueSize := queueSize
		b.Run(fmt.Sprintf("queueSize=%d", queueSize), func(b *testing.B) {
			queue, err := New[int](queueSize)
			require.NoError(b, err)
			defer queue.Close()

			wg := sync.WaitGroup{}
			wg.Add(2)
			b.ResetTimer()
			go func() {
				defer wg.Done()
				for i := 0; i < b.N; i++ {
					if err := queue.PushWithContext(context.TODO(), i); err != nil {
						b.Error(err)
						return
					}
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < b.N; i++ {
					if _, err := queue.PopWithContext(context.TODO()); err != nil {
						b.Error(err)
						return
					}
				}
			}()
			wg.Wait()
			b.StopTimer()
		})
	}
}

func BenchmarkQueuePushPopBatch(b *testing.B) {
	const (
		queueSize = 1024
		batchSize = 64
	)

	queue, err := New[int](queueSize)
	require.NoError(b, err)
	defer queue.Close()

	items := make([]int, batchSize)
	wg := sync.WaitGroup{}
	wg.Add(2)
	b.ResetTimer()
	go func() {
		defer wg.Done()
		for i := 0; i < b.N; i++ {
			if _, err := queue.PushBatch(context.TODO(), items); err != nil {
				b.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		dst := make([]int, batchSize)
		for popped := 0; popped < b.N*batchSize; {
			n, err := queue.PopBatch(context.TODO(), dst)
			if err != nil {
				b.Error(err)
				return
			}
			popped += n
		}
	}()
	wg.Wait()
	b.StopTimer()
}

func TestQueueVariousSize(t *testing.T) {
	const numItems = 10
	defer goleak.VerifyNone(t)

	testCases := []struct {
		queueSize int
		created   bool
	}{
		{queueSize: -1, created: false},
		{queueSize: 0, created: false},
		{queueSize: 1, created: true},
		{queueSize: 3, created: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("queueSize=%d", tc.queueSize), func(t *testing.T) {
			queue, err := New[int](tc.queueSize, WithLogger(zaptest.NewLogger(t)))
			if !tc.created {
				require.ErrorIs(t, err, verrors.ErrInvalid)
				return
			}
			require.NoError(t, err)
			defer queue.Close()
			require.Equal(t, tc.queueSize, queue.Capacity())

			wg := sync.WaitGroup{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < numItems; i++ {
					assert.NoError(t, queue.PushWithContext(context.TODO(), i))
				}
			}()
			for i := 0; i < numItems; i++ {
				item, err := queue.PopWithContext(context.TODO())
				require.NoError(t, err)
				require.Equal(t, i, item)
			}
			wg.Wait()
			require.Zero(t, queue.Size())
		})
	}
}

func TestQueueTimeout(t *testing.T) {
	const queueSize = 1
	defer goleak.VerifyNone(t)

	queue, err := New[int](queueSize)
	require.NoError(t, err)
	defer queue.Close()

	// pop from empty queue
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = queue.PopWithContext(ctx)
	require.ErrorIs(t, err, verrors.ErrCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// push to full queue
	require.NoError(t, queue.PushWithContext(context.Background(), 1))
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = queue.PushWithContext(ctx, 2)
	require.ErrorIs(t, err, verrors.ErrCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// failed operations leave the queue intact
	require.Equal(t, 1, queue.Size())
	item, err := queue.PopWithContext(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, item)
	require.NoError(t, queue.PushWithContext(context.Background(), 3))
	item, err = queue.PopWithContext(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, item)
}

func TestQueueCancelledConsumer(t *testing.T) {
	const (
		queueSize   = 10
		pushedItems = int32(1000)
	)
	defer goleak.VerifyNone(t)

	pool, err := executor.NewPool("ringqueue-test", executor.WithNumWorkers(2))
	require.NoError(t, err)
	defer pool.Stop()

	queue, err := New[int32](queueSize, WithExecutor(pool))
	require.NoError(t, err)
	defer queue.Close()

	pushWg := sync.WaitGroup{}
	pushWg.Add(1)
	go func() {
		defer pushWg.Done()
		for item := int32(0); item < pushedItems; item++ {
			assert.NoError(t, queue.PushWithContext(context.TODO(), item))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	popWg := sync.WaitGroup{}
	popWg.Add(1)
	poppedItems := int32(0)
	go func() {
		defer popWg.Done()
		for {
			_, err := queue.PopWithContext(ctx)
			if err != nil {
				return
			}
			atomic.AddInt32(&poppedItems, 1)
		}
	}()
	require.Eventually(t, func() bool {
		return pushedItems == atomic.LoadInt32(&poppedItems)
	}, vtesting.TimeoutUnitTimesFactor(5), 10*time.Millisecond)

	cancel()

	pushWg.Wait()
	popWg.Wait()

	require.Zero(t, queue.Size())
}

func TestQueueSize(t *testing.T) {
	const queueSize = 10
	defer goleak.VerifyNone(t)

	queue, err := New[int](queueSize)
	require.NoError(t, err)
	defer queue.Close()

	for i := 0; i < queueSize; i++ {
		require.NoError(t, queue.PushWithContext(context.TODO(), i))
		require.Equal(t, i+1, queue.Size())
	}
	_, err = queue.PopWithContext(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, queueSize-1, queue.Size())
}

func TestQueueNilItem(t *testing.T) {
	const queueSize = 10
	defer goleak.VerifyNone(t)

	queue, err := New[any](queueSize)
	require.NoError(t, err)
	defer queue.Close()

	err = queue.PushWithContext(context.TODO(), nil)
	assert.NoError(t, err)

	item, err := queue.PopWithContext(context.TODO())
	assert.NoError(t, err)
	assert.Nil(t, item)
}

func TestQueueFIFO(t *testing.T) {
	const queueSize = 10
	defer goleak.VerifyNone(t)

	queue, err := New[int](queueSize)
	require.NoError(t, err)
	defer queue.Close()

	for lap := 0; lap < 3; lap++ {
		for i := 0; i < queueSize; i++ {
			err = queue.PushWithContext(context.TODO(), lap*queueSize+i)
			assert.NoError(t, err)
		}

		for i := 0; i < queueSize; i++ {
			item, err := queue.PopWithContext(context.TODO())
			require.NoError(t, err)
			require.Equal(t, lap*queueSize+i, item)
		}
	}
}

func TestQueueBatch(t *testing.T) {
	const queueSize = 4
	defer goleak.VerifyNone(t)

	queue, err := New[int](queueSize)
	require.NoError(t, err)
	defer queue.Close()

	n, err := queue.PushBatch(context.TODO(), nil)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = queue.PushBatch(context.TODO(), []int{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = queue.PopBatch(context.TODO(), nil)
	require.NoError(t, err)
	require.Zero(t, n)

	dst := make([]int, 2)
	n, err = queue.PopBatch(context.TODO(), dst)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []int{1, 2}, dst)

	// Only three slots are free, so the last item does not fit in time.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	n, err = queue.PushBatch(ctx, []int{4, 5, 6, 7})
	require.ErrorIs(t, err, verrors.ErrCancelled)
	require.Equal(t, 3, n)
	require.Equal(t, queueSize, queue.Size())

	dst = make([]int, 8)
	n, err = queue.PopBatch(context.TODO(), dst)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []int{3, 4, 5, 6}, dst[:n])
}

func TestQueueBatchConcurrent(t *testing.T) {
	const (
		queueSize = 16
		numItems  = 10000
	)
	defer goleak.VerifyNone(t)

	queue, err := New[int](queueSize)
	require.NoError(t, err)
	defer queue.Close()

	items := make([]int, numItems)
	for i := range items {
		items[i] = i + 1
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numItems; i += 100 {
			n, err := queue.PushBatch(context.TODO(), items[i:i+100])
			assert.NoError(t, err)
			assert.Equal(t, 100, n)
		}
	}()

	sum := 0
	dst := make([]int, 7)
	for popped := 0; popped < numItems; {
		n, err := queue.PopBatch(context.TODO(), dst)
		require.NoError(t, err)
		for _, item := range dst[:n] {
			require.Equal(t, popped+1, item)
			sum += item
			popped++
		}
	}
	wg.Wait()
	require.Equal(t, numItems*(numItems+1)/2, sum)
}

func TestQueueClose(t *testing.T) {
	const queueSize = 4
	defer goleak.VerifyNone(t)

	queue, err := New[int](queueSize, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	require.NoError(t, queue.PushWithContext(context.TODO(), 1))
	require.NoError(t, queue.PushWithContext(context.TODO(), 2))

	queue.Close()
	queue.Close()

	err = queue.PushWithContext(context.TODO(), 3)
	require.ErrorIs(t, err, verrors.ErrCancelled)
	_, err = queue.PushBatch(context.TODO(), []int{3})
	require.ErrorIs(t, err, verrors.ErrCancelled)

	// Items pushed before closing are drained.
	for _, want := range []int{1, 2} {
		item, err := queue.PopWithContext(context.TODO())
		require.NoError(t, err)
		require.Equal(t, want, item)
	}
	_, err = queue.PopWithContext(context.TODO())
	require.ErrorIs(t, err, verrors.ErrCancelled)
	_, err = queue.PopBatch(context.TODO(), make([]int, 1))
	require.ErrorIs(t, err, verrors.ErrCancelled)
}

func TestQueueCloseWakesBlocked(t *testing.T) {
	defer goleak.VerifyNone(t)

	empty, err := New[int](1)
	require.NoError(t, err)
	full, err := New[int](1)
	require.NoError(t, err)
	require.NoError(t, full.PushWithContext(context.TODO(), 1))

	errc := make(chan error, 2)
	go func() {
		_, err := empty.PopWithContext(context.TODO())
		errc <- err
	}()
	go func() {
		errc <- full.PushWithContext(context.TODO(), 2)
	}()

	time.Sleep(10 * time.Millisecond)
	empty.Close()
	full.Close()
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, <-errc, verrors.ErrCancelled)
	}
}

func TestQueueCloseWhileClaimResuming(t *testing.T) {
	defer goleak.VerifyNone(t)

	var queue *Queue[int]
	ctrl := gomock.NewController(t)
	exec := executor.NewMockExecutor(ctrl)
	// The blocked producer is resumed by the pop below. Close the queue
	// before its claim returns.
	exec.EXPECT().Execute(gomock.Any()).DoAndReturn(func(f func()) error {
		queue.Close()
		f()
		return nil
	}).Times(1)

	var err error
	queue, err = New[int](1, WithExecutor(exec))
	require.NoError(t, err)
	require.NoError(t, queue.PushWithContext(context.TODO(), 1))

	errc := make(chan error, 1)
	go func() {
		errc <- queue.PushWithContext(context.TODO(), 2)
	}()
	time.Sleep(10 * time.Millisecond)

	item, err := queue.PopWithContext(context.TODO())
	require.NoError(t, err)
	require.Equal(t, 1, item)

	require.ErrorIs(t, <-errc, verrors.ErrCancelled)
	require.Zero(t, queue.Size())
	_, err = queue.PopWithContext(context.TODO())
	require.ErrorIs(t, err, verrors.ErrCancelled)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
