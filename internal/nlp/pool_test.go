package nlp

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/tilemud/internal/cacher"
	"github.com/cyberinferno/tilemud/internal/logger"
)

type classifierFunc func(ctx context.Context, input string) (ParsedCommand, error)

func (f classifierFunc) Parse(ctx context.Context, input string) (ParsedCommand, error) {
	return f(ctx, input)
}

func newTestPool(size int, fn classifierFunc) *Pool {
	return NewPool(size, fn, cacher.NewMemoryCacher[ParsedCommand](time.Minute, time.Minute), logger.NewNopLogger())
}

func TestPool_DeliversResults(t *testing.T) {
	pool := newTestPool(2, func(ctx context.Context, input string) (ParsedCommand, error) {
		return ParsedCommand{Command: "LOOK"}, nil
	})
	pool.Start()
	defer pool.Stop()

	results := make(chan ParsedCommand, 1)
	require.NoError(t, pool.Submit("look around", func(p ParsedCommand) {
		results <- p
	}))

	select {
	case got := <-results:
		assert.Equal(t, "LOOK", got.Command)
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
}

func TestPool_CachesRepeatedInputs(t *testing.T) {
	var calls atomic.Int32
	pool := newTestPool(1, func(ctx context.Context, input string) (ParsedCommand, error) {
		calls.Add(1)
		return ParsedCommand{Command: "LOOK"}, nil
	})
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for n := 0; n < 5; n++ {
		wg.Add(1)
		post := func(ParsedCommand) { wg.Done() }
		// A single worker with a small queue may legitimately push back;
		// keep submitting until the job is taken.
		for {
			err := pool.Submit("look around", post)
			if err == nil {
				break
			}
			require.ErrorIs(t, err, ErrPoolBusy)
			time.Sleep(5 * time.Millisecond)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestPool_FailureBecomesEmptyVerdict(t *testing.T) {
	pool := newTestPool(1, func(ctx context.Context, input string) (ParsedCommand, error) {
		return ParsedCommand{}, context.DeadlineExceeded
	})
	pool.Start()
	defer pool.Stop()

	results := make(chan ParsedCommand, 1)
	require.NoError(t, pool.Submit("anything", func(p ParsedCommand) {
		results <- p
	}))

	select {
	case got := <-results:
		assert.True(t, got.IsEmpty())
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
}

func TestPool_BusyQueueRejectsSubmit(t *testing.T) {
	block := make(chan struct{})
	pool := newTestPool(1, func(ctx context.Context, input string) (ParsedCommand, error) {
		<-block
		return ParsedCommand{}, nil
	})
	pool.Start()
	defer func() {
		close(block)
		pool.Stop()
	}()

	// Distinct inputs so the cache cannot collapse them. One job occupies the
	// worker, two fill the queue, the next must be refused.
	require.NoError(t, pool.Submit("a", func(ParsedCommand) {}))

	// Give the worker time to pull the first job off the queue.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, pool.Submit("b", func(ParsedCommand) {}))
	require.NoError(t, pool.Submit("c", func(ParsedCommand) {}))
	assert.ErrorIs(t, pool.Submit("d", func(ParsedCommand) {}), ErrPoolBusy)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := newTestPool(1, func(ctx context.Context, input string) (ParsedCommand, error) {
		return ParsedCommand{}, nil
	})
	pool.Start()
	pool.Stop()

	assert.ErrorIs(t, pool.Submit("x", func(ParsedCommand) {}), ErrPoolStopped)
	// Stop is idempotent.
	pool.Stop()
}
