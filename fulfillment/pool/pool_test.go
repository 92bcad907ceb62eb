package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSize(t *testing.T) {
	tests := []struct {
		in, out int
	}{
		{in: -1, out: 0},
		{in: 0, out: 0},
		{in: 1, out: 1},
		{in: 16, out: 16},
		{in: MaxSize, out: MaxSize},
		{in: MaxSize + 1, out: MaxSize},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("size=%d", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.out, New(tt.in).Size())
		})
	}
}

func TestUnlimitedPoolNeverBlocks(t *testing.T) {
	var p *Pool
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Acquire(context.Background()))
	}
	p.Release()
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	p := New(2)
	require.NoError(t, p.Acquire(context.Background()))
	require.NoError(t, p.Acquire(context.Background()))

	done := make(chan error, 1)
	go func() {
		done <- p.Acquire(context.Background())
	}()

	select {
	case err := <-done:
		t.Fatalf("expected acquire to block, got %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	p.Release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire did not resume after release")
	}
}

func TestAcquireContextTimeout(t *testing.T) {
	p := New(1)
	require.NoError(t, p.Acquire(context.Background()))
	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, p.Acquire(ctx), context.DeadlineExceeded)
}

func TestTrackerConcurrent(t *testing.T) {
	tr := &Tracker{}
	const goroutines = 10
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				tr.Inc()
				tr.Dec()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, tr.Running())
}

func TestSleepOrDone(t *testing.T) {
	require.NoError(t, SleepOrDone(context.Background(), 0))
	require.NoError(t, SleepOrDone(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, SleepOrDone(ctx, time.Hour), context.Canceled)
}
