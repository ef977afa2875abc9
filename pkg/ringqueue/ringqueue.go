// Package ringqueue provides a bounded single-producer single-consumer queue
// backed by a ring buffer and coordinated by a sequencer.
package ringqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kakao/asyncseq/pkg/barrier"
	"github.com/kakao/asyncseq/pkg/executor"
	"github.com/kakao/asyncseq/pkg/sequence"
	"github.com/kakao/asyncseq/pkg/sequencer"
	"github.com/kakao/asyncseq/pkg/verrors"
)

// Queue is a FIFO queue of at most Capacity items. Push methods must be
// called from a single producer goroutine and Pop methods from a single
// consumer goroutine; Size, Capacity and Close are safe to call from any
// goroutine.
type Queue[V any] struct {
	config

	buf      []V
	consumed *barrier.Barrier[uint64]
	seq      *sequencer.SingleProducer[uint64]

	// closeMu orders Close against publishing a claimed slot, so that
	// nothing is published once Close returns.
	closeMu sync.Mutex
	closed  atomic.Bool

	// nextToRead is owned by the consumer.
	nextToRead uint64
}

func New[V any](capacity int, opts ...Option) (*Queue[V], error) {
	if capacity < 1 {
		return nil, errors.Wrapf(verrors.ErrInvalid, "ringqueue: capacity %d", capacity)
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	consumed := barrier.New(sequence.Initial[uint64](),
		barrier.WithExecutor(cfg.executor),
		barrier.WithLogger(cfg.logger),
	)
	seq, err := sequencer.NewSingleProducer(consumed, capacity,
		sequencer.WithExecutor(cfg.executor),
		sequencer.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}
	return &Queue[V]{
		config:     cfg,
		buf:        make([]V, capacity),
		consumed:   consumed,
		seq:        seq,
		nextToRead: sequence.Initial[uint64]() + 1,
	}, nil
}

func (q *Queue[V]) slot(seq uint64) *V {
	return &q.buf[seq%uint64(len(q.buf))]
}

// PushWithContext appends item, waiting while the queue is full.
func (q *Queue[V]) PushWithContext(ctx context.Context, item V) error {
	if q.closed.Load() {
		return errors.WithMessage(verrors.ErrCancelled, "ringqueue: closed")
	}
	seq, err := q.seq.ClaimOne(ctx)
	if err != nil {
		return err
	}

	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed.Load() {
		return errors.WithMessage(verrors.ErrCancelled, "ringqueue: closed")
	}
	*q.slot(seq) = item
	q.seq.Publish(seq)
	return nil
}

// PushBatch appends items in order. It waits only while the queue is full
// and returns the number of items appended, which is less than len(items)
// only if it fails.
func (q *Queue[V]) PushBatch(ctx context.Context, items []V) (int, error) {
	pushed := 0
	for pushed < len(items) {
		if q.closed.Load() {
			return pushed, errors.WithMessage(verrors.ErrCancelled, "ringqueue: closed")
		}
		r, err := q.seq.ClaimUpTo(ctx, len(items)-pushed)
		if err != nil {
			return pushed, err
		}
		if !q.publish(r, items[pushed:]) {
			return pushed, errors.WithMessage(verrors.ErrCancelled, "ringqueue: closed")
		}
		pushed += int(r.Size())
	}
	return pushed, nil
}

// publish fills the claimed slots r from items and publishes them, unless
// the queue has been closed since the claim.
func (q *Queue[V]) publish(r sequence.Range[uint64], items []V) bool {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed.Load() {
		return false
	}
	i := 0
	for seq := range r.All() {
		*q.slot(seq) = items[i]
		i++
	}
	q.seq.PublishRange(r)
	return true
}

// PopWithContext removes the oldest item, waiting while the queue is
// empty. Items pushed before Close can still be popped after it.
func (q *Queue[V]) PopWithContext(ctx context.Context) (V, error) {
	var zero V
	seq := q.nextToRead
	if _, err := q.seq.Wait(ctx, seq); err != nil {
		return zero, err
	}
	item := *q.slot(seq)
	*q.slot(seq) = zero
	q.nextToRead++
	q.consumed.Publish(seq)
	return item, nil
}

// PopBatch removes up to len(dst) of the oldest items into dst, waiting
// only while the queue is empty, and returns how many were removed.
func (q *Queue[V]) PopBatch(ctx context.Context, dst []V) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	begin := q.nextToRead
	available, err := q.seq.Wait(ctx, begin)
	if err != nil {
		return 0, err
	}
	n := int(min(int64(len(dst)), sequence.Difference(available, begin)+1))
	r := sequence.NewRange(begin, begin+uint64(n))

	var zero V
	i := 0
	for seq := range r.All() {
		dst[i] = *q.slot(seq)
		*q.slot(seq) = zero
		i++
	}
	q.nextToRead = r.End()
	q.consumed.Publish(r.Back())
	return n, nil
}

// Size returns the number of items pushed but not yet popped.
func (q *Queue[V]) Size() int {
	return int(sequence.Difference(q.seq.LastPublished(), q.consumed.LastPublished()))
}

func (q *Queue[V]) Capacity() int {
	return len(q.buf)
}

// Close makes later pushes fail and wakes a blocked producer and consumer
// with verrors.ErrCancelled. The consumer can still pop the items pushed
// before Close. It is idempotent.
func (q *Queue[V]) Close() {
	q.closeMu.Lock()
	first := q.closed.CompareAndSwap(false, true)
	q.closeMu.Unlock()
	if !first {
		return
	}
	q.seq.Close()
	q.logger.Debug("closed", zap.Int("size", q.Size()))
}

type config struct {
	executor executor.Executor
	logger   *zap.Logger
}

func newConfig(opts []Option) (config, error) {
	cfg := config{
		executor: executor.Inline,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.executor == nil {
		return cfg, errors.Wrap(verrors.ErrInvalid, "ringqueue: executor is nil")
	}
	if cfg.logger == nil {
		return cfg, errors.Wrap(verrors.ErrInvalid, "ringqueue: logger is nil")
	}
	cfg.logger = cfg.logger.Named("ringqueue")
	return cfg, nil
}

type Option interface {
	apply(*config)
}

type funcOption struct {
	f func(*config)
}

func newFuncOption(f func(*config)) *funcOption {
	return &funcOption{f: f}
}

func (fo *funcOption) apply(cfg *config) {
	fo.f(cfg)
}

// WithExecutor sets the executor that resumes a consumer blocked on an
// empty queue.
func WithExecutor(exec executor.Executor) Option {
	return newFuncOption(func(cfg *config) {
		cfg.executor = exec
	})
}

func WithLogger(logger *zap.Logger) Option {
	return newFuncOption(func(cfg *config) {
		cfg.logger = logger
	})
}
