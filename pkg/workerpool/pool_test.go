package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "valid config", config: Config{Size: 4, QueueSize: 10}, wantErr: nil},
		{name: "zero size", config: Config{Size: 0}, wantErr: ErrInvalidSize},
		{name: "negative size", config: Config{Size: -1}, wantErr: ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p)
			p.Close()
		})
	}
}

func TestNewWithSize(t *testing.T) {
	p, err := NewWithSize(4)
	require.NoError(t, err)
	require.NotNil(t, p)
	p.Close()

	_, err = NewWithSize(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Greater(t, config.Size, 0)
}

func TestPool_Start(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.Start(), ErrPoolRunning, "a pool backing a join driver is only ever started once")
}

func TestPool_Close(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	require.NoError(t, p.Start())

	require.NoError(t, p.Close())
	assert.NoError(t, p.Close(), "Close must be safe to call twice, e.g. once from a deferred shutdown and once explicitly")
}

func TestPool_StartAfterClose(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	p.Close()

	assert.ErrorIs(t, p.Start(), ErrPoolClosed)
}

// TestPool_SubmitRunsOneBatchChunk models internal/batch's usage: one Task
// per contiguous chunk of a SegDistBatch/TriIntBatch dispatch.
func TestPool_SubmitRunsOneBatchChunk(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Start())

	var executed atomic.Bool
	resultCh, err := p.Submit(context.Background(), func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})
	require.NoError(t, err)

	select {
	case result := <-resultCh:
		assert.NoError(t, result.Error)
		assert.True(t, executed.Load())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for chunk result")
	}
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	p.Close()

	_, err = p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

// TestPool_ChunkErrorPropagates verifies a failed SegDist/TriInt chunk
// returns its error through the result channel rather than being dropped.
func TestPool_ChunkErrorPropagates(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Start())

	chunkErr := errors.New("kernel dispatch failed")
	resultCh, err := p.Submit(context.Background(), func(ctx context.Context) error {
		return chunkErr
	})
	require.NoError(t, err)

	select {
	case result := <-resultCh:
		assert.ErrorIs(t, result.Error, chunkErr)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for chunk result")
	}
}

// TestPool_ChunkPanicRecovered verifies a panicking kernel chunk doesn't
// take down the rest of a batch dispatch — it surfaces as ErrTaskPanic.
func TestPool_ChunkPanicRecovered(t *testing.T) {
	p, err := New(Config{Size: 2, QueueSize: 10})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Start())

	resultCh, err := p.Submit(context.Background(), func(ctx context.Context) error {
		panic("corrupt chunk")
	})
	require.NoError(t, err)

	select {
	case result := <-resultCh:
		assert.ErrorIs(t, result.Error, ErrTaskPanic)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for chunk result")
	}

	// The pool itself must still be usable after a panicking chunk.
	resultCh2, err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	select {
	case result := <-resultCh2:
		assert.NoError(t, result.Error)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for chunk result after recovered panic")
	}
}

func TestPool_CanceledContextChunk(t *testing.T) {
	p, err := New(Config{Size: 1, QueueSize: 1})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Start())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resultCh, err := p.Submit(ctx, func(ctx context.Context) error { return nil })
	if err != nil {
		assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrPoolClosed))
		return
	}

	select {
	case result := <-resultCh:
		if result.Error != nil {
			assert.ErrorIs(t, result.Error, ErrTaskCanceled)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for chunk result")
	}
}

func TestPool_WorkerCount(t *testing.T) {
	p, err := New(Config{Size: 4, QueueSize: 10})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Start())

	assert.Equal(t, 4, p.WorkerCount(), "internal/batch sizes its chunks off the pool's fixed worker count")
}

// TestPool_ConcurrentChunkSubmit mirrors a single SegDistBatch/TriIntBatch
// dispatch fanning a batch of chunks out across the pool's fixed workers.
func TestPool_ConcurrentChunkSubmit(t *testing.T) {
	p, err := New(Config{Size: 4, QueueSize: 100})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Start())

	const chunks = 100
	var counter int64
	var wg sync.WaitGroup
	resultChs := make([]<-chan Result, chunks)

	for i := 0; i < chunks; i++ {
		resultCh, err := p.Submit(context.Background(), func(ctx context.Context) error {
			atomic.AddInt64(&counter, 1)
			return nil
		})
		require.NoError(t, err)
		resultChs[i] = resultCh
	}

	wg.Add(chunks)
	for _, ch := range resultChs {
		go func(ch <-chan Result) {
			defer wg.Done()
			<-ch
		}(ch)
	}
	wg.Wait()

	assert.Equal(t, int64(chunks), atomic.LoadInt64(&counter))
}

func BenchmarkPool_Submit(b *testing.B) {
	p, _ := New(Config{Size: 4, QueueSize: 1000})
	p.Start()
	defer p.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	}
}
