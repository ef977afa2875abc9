// Package event implements a single-waiter, one-shot asynchronous latch.
//
// An Event starts NotSet. A waiter either observes a terminal state (Set or
// Cancelled) immediately, or leaves a continuation behind and moves the
// Event to Waiting; whoever later sets or cancels the Event runs the
// continuation. Exactly one of those two outcomes happens per wait.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kakao/asyncseq/pkg/verrors"
)

type State int32

const (
	StateNotSet State = iota
	StateWaiting
	StateSet
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateNotSet:
		return "not set"
	case StateWaiting:
		return "waiting"
	case StateSet:
		return "set"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Continuation resumes a suspended waiter. The argument is nil if the event
// was set, or verrors.ErrCancelled if it was cancelled.
type Continuation func(err error)

// Event is a one-shot latch with at most one waiter. The zero value is a
// NotSet event ready to use. An Event must not be copied after first use.
type Event struct {
	state atomic.Int32
	// cont is written by the waiter before it publishes StateWaiting and is
	// taken by whoever moves the event out of StateWaiting.
	cont Continuation
}

func (e *Event) State() State {
	return State(e.state.Load())
}

func (e *Event) IsSet() bool {
	return e.State() == StateSet
}

// Await attaches cont as the continuation of the single waiter.
//
// If the event is already set or cancelled, Await returns suspended false and
// the corresponding error (nil or verrors.ErrCancelled); cont is never called.
// Otherwise it returns suspended true and cont is called exactly once, by the
// goroutine that later sets or cancels the event. When ctx is done before
// that, the event is cancelled.
//
// Attaching a second waiter while one is pending panics.
func (e *Event) Await(ctx context.Context, cont Continuation) (suspended bool, err error) {
	if cont == nil {
		panic("event: nil continuation")
	}
	if st := e.State(); st == StateWaiting {
		panic(fmt.Sprintf("event: await on %s event", st))
	}

	stop := func() bool { return false }
	if ctx.Done() != nil {
		if ctx.Err() != nil {
			e.Cancel()
		} else {
			stop = context.AfterFunc(ctx, func() { e.Cancel() })
			resume := cont
			cont = func(err error) {
				stop()
				resume(err)
			}
		}
	}

	if st := e.State(); st == StateNotSet {
		e.cont = cont
		if e.state.CompareAndSwap(int32(StateNotSet), int32(StateWaiting)) {
			return true, nil
		}
	}
	stop()

	switch st := e.State(); st {
	case StateSet:
		e.cont = nil
		return false, nil
	case StateCancelled:
		e.cont = nil
		return false, verrors.ErrCancelled
	default:
		panic(fmt.Sprintf("event: await on %s event", st))
	}
}

// Wait blocks until the event is set or cancelled, or ctx is done. It returns
// nil if the event was set, and verrors.ErrCancelled otherwise.
func (e *Event) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	suspended, err := e.Await(ctx, func(err error) { done <- err })
	if !suspended {
		return err
	}
	return <-done
}

// Set moves the event to StateSet and resumes the waiter, if any. It returns
// false if the event was already set or cancelled.
func (e *Event) Set() bool {
	return e.complete(StateSet, nil)
}

// Cancel moves the event to StateCancelled and resumes the waiter, if any,
// with verrors.ErrCancelled. It returns false if the event was already set or
// cancelled.
func (e *Event) Cancel() bool {
	return e.complete(StateCancelled, verrors.ErrCancelled)
}

func (e *Event) complete(to State, err error) bool {
	for {
		from := e.State()
		if from == StateSet || from == StateCancelled {
			return false
		}
		if !e.state.CompareAndSwap(int32(from), int32(to)) {
			continue
		}
		if from == StateWaiting {
			e.takeContinuation()(err)
		}
		return true
	}
}

// Reset returns the event to StateNotSet so it can be waited on again. A
// pending waiter is resumed with verrors.ErrCancelled first. Reset must not
// race with a context cancellation of the previous wait.
func (e *Event) Reset() {
	for {
		from := e.State()
		if !e.state.CompareAndSwap(int32(from), int32(StateNotSet)) {
			continue
		}
		if from == StateWaiting {
			e.takeContinuation()(verrors.ErrCancelled)
		}
		return
	}
}

func (e *Event) takeContinuation() Continuation {
	cont := e.cont
	e.cont = nil
	return cont
}
