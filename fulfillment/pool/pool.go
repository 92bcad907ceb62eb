// Package pool bounds how many orders progress at once and counts the
// progressions currently running.
package pool

import "context"

// MaxSize is the largest cap New accepts.
const MaxSize = 1024

// Pool limits concurrent order progressions. A nil *Pool places no limit.
type Pool struct {
	sem chan struct{}
}

// New creates a pool with size slots, clamped to MaxSize. A size of zero or
// less means no limit and returns nil.
func New(size int) *Pool {
	if size <= 0 {
		return nil
	}
	if size > MaxSize {
		size = MaxSize
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Size returns the number of slots, or 0 for an unlimited pool.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return cap(p.sem)
}

// Acquire reserves one slot, blocking while the pool is full.
// It returns ctx.Err() if the context ends first.
func (p *Pool) Acquire(ctx context.Context) error {
	if p == nil {
		return nil
	}
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *Pool) Release() {
	if p == nil {
		return
	}
	<-p.sem
}
