package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kakao/asyncseq/pkg/barrier"
	"github.com/kakao/asyncseq/pkg/executor"
	"github.com/kakao/asyncseq/pkg/ringqueue"
	"github.com/kakao/asyncseq/pkg/sequence"
	"github.com/kakao/asyncseq/pkg/sequencer"
)

type benchConfig struct {
	mode       string
	bufferSize int
	items      int64
	batch      int
	workers    int
}

func (cfg benchConfig) String() string {
	return fmt.Sprintf("mode=%s buffer_size=%d items=%d batch=%d executor_workers=%d",
		cfg.mode, cfg.bufferSize, cfg.items, cfg.batch, cfg.workers)
}

type benchResult struct {
	items   int64
	sum     uint64
	elapsed time.Duration
}

func (res benchResult) throughput() float64 {
	if res.elapsed <= 0 {
		return 0
	}
	return float64(res.items) / res.elapsed.Seconds()
}

type bench struct {
	benchConfig

	logger        *zap.Logger
	consumedItems metric.Int64Counter
	claimWait     metric.Float64Histogram
}

func newBench(cfg benchConfig, meter metric.Meter, logger *zap.Logger) (*bench, error) {
	consumedItems, err := meter.Int64Counter("seqbench.items",
		metric.WithDescription("Number of items consumed."),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}
	claimWait, err := meter.Float64Histogram("seqbench.claim.wait",
		metric.WithDescription("Time the producer spent waiting for free slots."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &bench{
		benchConfig:   cfg,
		logger:        logger,
		consumedItems: consumedItems,
		claimWait:     claimWait,
	}, nil
}

// run pushes the items 1..K through the ring buffer from a producer
// goroutine to a consumer goroutine and checks that the consumer sees every
// item exactly once, i.e., that the items sum to K(K+1)/2.
func (b *bench) run(ctx context.Context) (benchResult, error) {
	exec := executor.Inline
	if b.workers > 0 {
		pool, err := executor.NewPool(appName,
			executor.WithNumWorkers(b.workers),
			executor.WithLogger(b.logger),
		)
		if err != nil {
			return benchResult{}, err
		}
		defer func() {
			pool.Stop()
			b.logger.Info("executor stopped", zap.Stringer("executor", pool),
				zap.Int64("inlined", pool.Inlined()))
		}()
		exec = pool
	}

	var (
		sum uint64
		err error
	)
	start := time.Now()
	switch b.mode {
	case modeRingQueue:
		sum, err = b.runRingQueue(ctx, exec)
	default:
		sum, err = b.runSequencer(ctx, exec)
	}
	res := benchResult{items: b.items, sum: sum, elapsed: time.Since(start)}
	if err != nil {
		return res, err
	}

	k := uint64(b.items)
	if want := k * (k + 1) / 2; sum != want {
		return res, errors.Errorf("seqbench: sum %d, expected %d", sum, want)
	}
	return res, nil
}

func (b *bench) runSequencer(ctx context.Context, exec executor.Executor) (uint64, error) {
	consumed := barrier.New(sequence.Initial[uint64](), barrier.WithLogger(b.logger))
	seq, err := sequencer.NewSingleProducer(consumed, b.bufferSize,
		sequencer.WithExecutor(exec),
		sequencer.WithLogger(b.logger),
	)
	if err != nil {
		return 0, err
	}
	defer seq.Close()

	ring := make([]uint64, b.bufferSize)
	slot := func(s uint64) *uint64 { return &ring[s%uint64(len(ring))] }
	k := uint64(b.items)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for item := uint64(1); item <= k; {
			claimStart := time.Now()
			r, err := seq.ClaimUpTo(ctx, int(min(uint64(b.batch), k-item+1)))
			if err != nil {
				return err
			}
			b.claimWait.Record(ctx, float64(time.Since(claimStart))/float64(time.Millisecond))
			for s := range r.All() {
				*slot(s) = item
				item++
			}
			seq.PublishRange(r)
		}
		return nil
	})

	var sum uint64
	g.Go(func() error {
		for next := uint64(0); next < k; {
			available, err := seq.Wait(ctx, next)
			if err != nil {
				return err
			}
			r := sequence.NewRange(next, available+1)
			for s := range r.All() {
				sum += *slot(s)
			}
			consumed.Publish(available)
			b.consumedItems.Add(ctx, int64(r.Size()))
			next = r.End()
		}
		return nil
	})

	err = g.Wait()
	return sum, err
}

func (b *bench) runRingQueue(ctx context.Context, exec executor.Executor) (uint64, error) {
	q, err := ringqueue.New[uint64](b.bufferSize,
		ringqueue.WithExecutor(exec),
		ringqueue.WithLogger(b.logger),
	)
	if err != nil {
		return 0, err
	}
	defer q.Close()

	k := uint64(b.items)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		batch := make([]uint64, 0, b.batch)
		for item := uint64(1); item <= k; {
			batch = batch[:0]
			for ; item <= k && len(batch) < b.batch; item++ {
				batch = append(batch, item)
			}
			pushStart := time.Now()
			if _, err := q.PushBatch(ctx, batch); err != nil {
				return err
			}
			b.claimWait.Record(ctx, float64(time.Since(pushStart))/float64(time.Millisecond))
		}
		return nil
	})

	var sum uint64
	g.Go(func() error {
		dst := make([]uint64, b.batch)
		for popped := uint64(0); popped < k; {
			n, err := q.PopBatch(ctx, dst)
			if err != nil {
				return err
			}
			for _, item := range dst[:n] {
				sum += item
			}
			popped += uint64(n)
			b.consumedItems.Add(ctx, int64(n))
		}
		return nil
	})

	err = g.Wait()
	return sum, err
}
