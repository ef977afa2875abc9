// Package sequencer coordinates a single producer with the consumers of a
// fixed-size ring buffer.
//
// The sequencer hands out sequence numbers of free slots to the producer,
// making it wait while the buffer is full, and publishes the slots the
// producer has filled to consumers. It never touches the buffer itself;
// slot i of a buffer of size n is usually addressed as i mod n.
package sequencer

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"

	"github.com/kakao/asyncseq/pkg/barrier"
	"github.com/kakao/asyncseq/pkg/sequence"
	"github.com/kakao/asyncseq/pkg/verrors"
)

// SingleProducer is a sequencer for exactly one producer goroutine.
//
// ClaimOne, ClaimUpTo, Publish and PublishRange must be called from the
// producer only. Consumers call Wait or Await, and advance the consumer
// barrier given to NewSingleProducer once they are done with a slot.
type SingleProducer[T constraints.Unsigned] struct {
	config

	consumer    *barrier.Barrier[T]
	producer    *barrier.Barrier[T]
	bufferSize  int
	nextToClaim T
}

// NewSingleProducer returns a sequencer for a buffer of bufferSize slots
// whose consumers report their progress through consumer.
//
// bufferSize must be positive and must not exceed half of the sequence
// space of T, otherwise the distance between the producer and consumers
// could not be told apart from a wrap-around.
func NewSingleProducer[T constraints.Unsigned](consumer *barrier.Barrier[T], bufferSize int, opts ...Option) (*SingleProducer[T], error) {
	if consumer == nil {
		return nil, errors.Wrap(verrors.ErrInvalid, "sequencer: consumer barrier is nil")
	}
	if bufferSize < 1 || uint64(bufferSize) > maxBufferSize[T]() {
		return nil, errors.Wrapf(verrors.ErrInvalid, "sequencer: buffer size %d", bufferSize)
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	initial := sequence.Initial[T]()
	if cfg.hasInitialSequence {
		initial = T(cfg.initialSequence)
	}
	s := &SingleProducer[T]{
		config:      cfg,
		consumer:    consumer,
		bufferSize:  bufferSize,
		nextToClaim: initial + 1,
	}
	s.producer = barrier.New(initial,
		barrier.WithExecutor(cfg.executor),
		barrier.WithLogger(cfg.logger),
	)
	return s, nil
}

func maxBufferSize[T constraints.Unsigned]() uint64 {
	return uint64(^T(0)>>1) + 1
}

func (s *SingleProducer[T]) BufferSize() int {
	return s.bufferSize
}

// ClaimOne waits until the slot for the next sequence number is free and
// claims it. The slot is free once consumers have finished with the
// sequence number one lap behind.
func (s *SingleProducer[T]) ClaimOne(ctx context.Context) (T, error) {
	seq := s.nextToClaim
	if _, err := s.consumer.Wait(ctx, seq-T(s.bufferSize)); err != nil {
		return seq, errors.WithMessagef(err, "sequencer: claim %d", seq)
	}
	s.nextToClaim++
	return seq, nil
}

// ClaimUpTo waits until at least one slot is free and claims as many of the
// next count slots as are free at that point. count larger than the buffer
// size is clamped to it. The returned range is never empty.
func (s *SingleProducer[T]) ClaimUpTo(ctx context.Context, count int) (sequence.Range[T], error) {
	if count < 1 {
		return sequence.Range[T]{}, errors.Wrapf(verrors.ErrInvalid, "sequencer: claim count %d", count)
	}
	count = min(count, s.bufferSize)

	begin := s.nextToClaim
	consumed, err := s.consumer.Wait(ctx, begin-T(s.bufferSize))
	if err != nil {
		return sequence.Range[T]{}, errors.WithMessagef(err, "sequencer: claim up to %d from %d", count, begin)
	}

	available := sequence.Difference(consumed+T(s.bufferSize), begin) + 1
	end := begin + T(min(int64(count), available))
	s.nextToClaim = end
	return sequence.NewRange(begin, end), nil
}

// Publish makes every sequence number up to and including seq available to
// consumers.
func (s *SingleProducer[T]) Publish(seq T) {
	s.producer.Publish(seq)
}

// PublishRange publishes every sequence number in r. Publishing an empty
// range does nothing.
func (s *SingleProducer[T]) PublishRange(r sequence.Range[T]) {
	if r.Empty() {
		return
	}
	s.producer.Publish(r.Back())
}

func (s *SingleProducer[T]) LastPublished() T {
	return s.producer.LastPublished()
}

// Wait blocks until target has been published and returns the last
// published sequence number, which may be beyond target so that consumers
// can process a batch.
func (s *SingleProducer[T]) Wait(ctx context.Context, target T) (T, error) {
	seq, err := s.producer.Wait(ctx, target)
	if err != nil {
		return seq, errors.WithMessagef(err, "sequencer: wait %d", target)
	}
	return seq, nil
}

// Await is the non-blocking form of Wait. See barrier.Barrier.Await.
func (s *SingleProducer[T]) Await(ctx context.Context, target T, cont func(seq T, err error)) (seq T, done bool, err error) {
	return s.producer.Await(ctx, target, cont)
}

// Close closes both the producer and consumer barriers, so that every
// suspended claim and wait fails with verrors.ErrCancelled. It is
// idempotent.
func (s *SingleProducer[T]) Close() {
	if s.producer.IsClosed() && s.consumer.IsClosed() {
		return
	}
	s.producer.Close()
	s.consumer.Close()
	s.logger.Debug("closed",
		zap.Uint64("last_published", uint64(s.producer.LastPublished())),
		zap.Uint64("last_consumed", uint64(s.consumer.LastPublished())),
	)
}
