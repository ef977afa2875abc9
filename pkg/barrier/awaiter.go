package barrier

import (
	"golang.org/x/exp/constraints"

	"github.com/kakao/asyncseq/pkg/event"
)

// awaiter is the record of one suspended wait. It is reachable from the
// barrier only while it sits in the waiter list; whoever detaches it from
// the list owns its next field.
type awaiter[T constraints.Unsigned] struct {
	target    T
	published T
	next      *awaiter[T]
	ev        event.Event
}

func (a *awaiter[T]) resume(published T) {
	a.published = published
	a.ev.Set()
}

// abandoned reports whether the waiter has already gone away, i.e., its
// context was cancelled. Such awaiters count as satisfied.
func (a *awaiter[T]) abandoned() bool {
	return a.ev.State() == event.StateCancelled
}

// awaiterList is a detached, singly linked list of awaiters.
type awaiterList[T constraints.Unsigned] struct {
	head *awaiter[T]
	tail *awaiter[T]
}

func (l *awaiterList[T]) empty() bool {
	return l.head == nil
}

func (l *awaiterList[T]) push(a *awaiter[T]) {
	a.next = nil
	if l.tail == nil {
		l.head = a
	} else {
		l.tail.next = a
	}
	l.tail = a
}

func (l *awaiterList[T]) resume(published T) {
	for a := l.head; a != nil; {
		next := a.next
		a.resume(published)
		a = next
	}
}

func (l *awaiterList[T]) cancel() (n int) {
	for a := l.head; a != nil; {
		next := a.next
		if a.ev.Cancel() {
			n++
		}
		a = next
	}
	return n
}
