package verrors

import (
	"context"
	"errors"

	"go.uber.org/multierr"
)

var (
	// ErrCancelled is the only failure a suspended wait or claim resolves to.
	// It is returned when a barrier or sequencer is closed while an operation
	// is suspended, or when the caller's context is done.
	ErrCancelled = errors.New("cancelled")

	ErrInvalid = errors.New("invalid argument")
	ErrStopped = errors.New("stopped")
)

// Cancelled returns ErrCancelled, combined with the cause of ctx if ctx is
// done. Both errors.Is(err, ErrCancelled) and errors.Is(err, context.Canceled)
// (or context.DeadlineExceeded) hold for the result in the latter case.
func Cancelled(ctx context.Context) error {
	if ctx == nil || ctx.Err() == nil {
		return ErrCancelled
	}
	return multierr.Append(ErrCancelled, context.Cause(ctx))
}

// IsCancelled reports whether err resolves to ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
