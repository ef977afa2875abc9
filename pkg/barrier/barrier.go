// Package barrier implements a single-writer sequence barrier.
//
// A Barrier tracks the highest sequence number published by its single
// writer and lets any number of waiters suspend until a target sequence
// number has been published. Waiters are kept in a lock-free singly linked
// list: a publish detaches the whole list with one atomic swap, resumes the
// satisfied waiters and pushes the rest back.
package barrier

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
	"golang.org/x/sys/cpu"

	"github.com/kakao/asyncseq/pkg/sequence"
	"github.com/kakao/asyncseq/pkg/verrors"
)

type Barrier[T constraints.Unsigned] struct {
	config

	_             cpu.CacheLinePad
	lastPublished atomic.Uint64
	_             cpu.CacheLinePad
	awaiters      atomic.Pointer[awaiter[T]]
	closed        atomic.Bool
	_             cpu.CacheLinePad
}

// New returns a barrier whose last published sequence number is initial,
// usually sequence.Initial[T]().
func New[T constraints.Unsigned](initial T, opts ...Option) *Barrier[T] {
	b := &Barrier[T]{config: newConfig(opts)}
	b.lastPublished.Store(uint64(initial))
	return b
}

func (b *Barrier[T]) LastPublished() T {
	return T(b.lastPublished.Load())
}

func (b *Barrier[T]) IsClosed() bool {
	return b.closed.Load()
}

// Await waits for target to be published without blocking the caller.
//
// If target has already been published, or the wait fails immediately
// because ctx is done or the barrier is closed, Await returns done true
// together with the result, and cont is never called. Otherwise it returns
// done false and cont is called exactly once, through the configured
// executor, with the last published sequence number (which does not precede
// target) or an error satisfying errors.Is(err, verrors.ErrCancelled).
func (b *Barrier[T]) Await(ctx context.Context, target T, cont func(seq T, err error)) (seq T, done bool, err error) {
	seq = b.LastPublished()
	if !sequence.Precedes(seq, target) {
		return seq, true, nil
	}
	if ctx.Err() != nil || b.closed.Load() {
		return seq, true, verrors.Cancelled(ctx)
	}

	a := &awaiter[T]{target: target}
	suspended, _ := a.ev.Await(ctx, func(err error) {
		if err != nil {
			if !b.closed.Load() {
				b.sweep()
			}
			b.dispatch(func() { cont(b.LastPublished(), verrors.Cancelled(ctx)) })
			return
		}
		published := a.published
		b.dispatch(func() { cont(published, nil) })
	})
	if !suspended {
		return seq, true, verrors.Cancelled(ctx)
	}

	b.enqueue(awaiterList[T]{head: a, tail: a}, target)
	// ctx may have been cancelled before a was listed, in which case the
	// sweep run on cancellation could not see it.
	if a.abandoned() {
		b.sweep()
	}
	return seq, false, nil
}

// Wait blocks until target has been published and returns the last published
// sequence number, which may be beyond target. It fails with an error
// satisfying errors.Is(err, verrors.ErrCancelled) if the barrier is closed
// or ctx is done first.
func (b *Barrier[T]) Wait(ctx context.Context, target T) (T, error) {
	type result struct {
		seq T
		err error
	}
	resc := make(chan result, 1)
	seq, done, err := b.Await(ctx, target, func(seq T, err error) {
		resc <- result{seq: seq, err: err}
	})
	if done {
		return seq, err
	}
	res := <-resc
	return res.seq, res.err
}

// Publish makes seq the last published sequence number and resumes every
// waiter whose target has been reached. Only a single writer may call it,
// with non-decreasing sequence numbers.
func (b *Barrier[T]) Publish(seq T) {
	b.lastPublished.Store(uint64(seq))

	if b.awaiters.Load() == nil {
		return
	}
	head := b.awaiters.Swap(nil)
	if head == nil {
		return
	}

	var ready, pending awaiterList[T]
	minDiff := int64(math.MaxInt64)
	for a := head; a != nil; {
		next := a.next
		if diff := sequence.Difference(a.target, seq); diff > 0 && !a.abandoned() {
			pending.push(a)
			minDiff = min(minDiff, diff)
		} else {
			ready.push(a)
		}
		a = next
	}

	if !pending.empty() {
		b.enqueue(pending, seq+T(minDiff))
	}
	ready.resume(seq)
}

// Close cancels every pending waiter and makes later waits on unpublished
// sequence numbers fail with verrors.ErrCancelled. It is idempotent and safe
// to call from any goroutine.
func (b *Barrier[T]) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	var cancelled awaiterList[T]
	for a := b.awaiters.Swap(nil); a != nil; {
		next := a.next
		cancelled.push(a)
		a = next
	}
	n := cancelled.cancel()
	b.logger.Debug("closed",
		zap.Uint64("last_published", uint64(b.LastPublished())),
		zap.Int("cancelled_waiters", n),
	)
}

// sweep unlinks awaiters whose context has been cancelled, so that waiters
// polling an idle barrier with deadlines do not pile up in the list.
func (b *Barrier[T]) sweep() {
	head := b.awaiters.Swap(nil)
	if head == nil {
		return
	}

	published := b.LastPublished()
	var ready, pending awaiterList[T]
	minDiff := int64(math.MaxInt64)
	for a := head; a != nil; {
		next := a.next
		switch diff := sequence.Difference(a.target, published); {
		case a.abandoned():
		case diff <= 0:
			ready.push(a)
		default:
			pending.push(a)
			minDiff = min(minDiff, diff)
		}
		a = next
	}

	if !pending.empty() {
		b.enqueue(pending, published+T(minDiff))
	}
	ready.resume(published)
}

// enqueue pushes list, whose earliest target is target, onto the waiter
// list.
//
// The push can race with a publish that has already swapped the list out,
// in which case nobody would wake the new awaiters. So after pushing, the
// last published sequence number is read again; if it has reached target,
// or the barrier has been closed, the whole list is taken back, the
// satisfied awaiters are resumed and the rest is pushed again.
func (b *Barrier[T]) enqueue(list awaiterList[T], target T) {
	var (
		ready, cancelled awaiterList[T]
		published        T
	)
	for !list.empty() {
		for {
			head := b.awaiters.Load()
			list.tail.next = head
			if b.awaiters.CompareAndSwap(head, list.head) {
				break
			}
		}

		published = b.LastPublished()
		closed := b.closed.Load()
		if !closed && sequence.Precedes(published, target) {
			break
		}

		list = awaiterList[T]{}
		minDiff := int64(math.MaxInt64)
		for a := b.awaiters.Swap(nil); a != nil; {
			next := a.next
			diff := sequence.Difference(a.target, published)
			switch {
			case diff <= 0 || a.abandoned():
				ready.push(a)
			case closed:
				cancelled.push(a)
			default:
				list.push(a)
				minDiff = min(minDiff, diff)
			}
			a = next
		}
		target = published + T(minDiff)
	}

	ready.resume(published)
	cancelled.cancel()
}

func (b *Barrier[T]) dispatch(f func()) {
	if err := b.executor.Execute(f); err != nil {
		b.logger.Warn("could not dispatch continuation, running it inline", zap.Error(err))
		f()
	}
}
