package internal

import (
	"context"
)

// Gate serializes blocking storage calls onto a bounded worker pool so the
// caller's goroutine only ever waits, never runs the I/O itself.
type Gate struct {
	slots chan struct{}
}

// NewGate returns a gate allowing up to size concurrent blocking calls.
func NewGate(size int) *Gate {
	if size < 1 {
		size = 1
	}
	return &Gate{slots: make(chan struct{}, size)}
}

// Run executes fn on the pool and waits for it to finish. If ctx is cancelled
// while waiting, Run returns ctx.Err() immediately. The in-flight call is not
// rolled back and its write may still land in the store.
func (g *Gate) Run(ctx context.Context, fn func() error) error {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-g.slots }()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
