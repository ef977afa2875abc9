package executor

//go:generate mockgen -self_package github.com/kakao/asyncseq/pkg/executor -package executor -destination executor_mock.go . Executor

// Executor runs continuations on behalf of the coordination primitives. It is
// the only thing they need from a scheduler.
type Executor interface {
	// Execute arranges for f to run exactly once. If it returns an error, f
	// has not been and will not be run.
	Execute(f func()) error
}

type inline struct{}

// Inline runs every function on the calling goroutine.
var Inline Executor = inline{}

func (inline) Execute(f func()) error {
	f()
	return nil
}
