package service

import (
	"context"
	"errors"
	"time"
)

// ErrRolledBack is returned when the remote write failed and the local
// change was undone.
var ErrRolledBack = errors.New("remote write failed, local change rolled back")

// Optimistic runs a local change first, mirrors it remotely and undoes the
// local change when the remote write fails.
type Optimistic[T any] struct {
	// Apply performs the local change and returns the resulting state
	Apply func(ctx context.Context) (T, error)
	// Remote performs the durable write
	Remote func(ctx context.Context) error
	// Compensate undoes Apply; it runs only after Remote failed
	Compensate func(ctx context.Context) error
	// Settled, when set, is called once the remote write has finished
	Settled func(remoteErr, compensateErr error)
}

// Outcome describes how far an optimistic operation got before Run returned
type Outcome[T any] struct {
	State   T
	Pending bool
	// Done is closed when the remote write and any compensation finished
	Done <-chan struct{}
}

type settleResult struct {
	remoteErr     error
	compensateErr error
}

// Run applies the change and waits up to timeout for the remote write. A
// zero timeout waits until the write settles. When the wait times out the
// outcome is Pending and the write keeps running; a late failure still
// compensates. The remote write is detached from ctx cancellation.
func (o Optimistic[T]) Run(ctx context.Context, timeout time.Duration) (Outcome[T], error) {
	state, err := o.Apply(ctx)
	if err != nil {
		return Outcome[T]{State: state}, err
	}

	done := make(chan struct{})
	results := make(chan settleResult, 1)
	background := context.WithoutCancel(ctx)

	go func() {
		defer close(done)

		var res settleResult
		res.remoteErr = o.Remote(background)
		if res.remoteErr != nil && o.Compensate != nil {
			res.compensateErr = o.Compensate(background)
		}
		if o.Settled != nil {
			o.Settled(res.remoteErr, res.compensateErr)
		}
		results <- res
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case res := <-results:
		if res.remoteErr != nil {
			return Outcome[T]{State: state, Done: done}, errors.Join(ErrRolledBack, res.remoteErr, res.compensateErr)
		}
		return Outcome[T]{State: state, Done: done}, nil
	case <-deadline:
		return Outcome[T]{State: state, Pending: true, Done: done}, nil
	case <-ctx.Done():
		return Outcome[T]{State: state, Pending: true, Done: done}, nil
	}
}
