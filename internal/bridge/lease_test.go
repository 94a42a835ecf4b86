package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLeaseMutualExclusion(t *testing.T) {
	lease := NewMemoryLease()
	ctx := context.Background()

	acquired, err := lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "held lease must not be re-acquired")

	// 不同key互不影响
	acquired, err = lease.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, lease.Release(ctx, "k"))
	acquired, err = lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryLeaseExpires(t *testing.T) {
	lease := NewMemoryLease()
	ctx := context.Background()

	acquired, err := lease.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	acquired, err = lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "expired lease must be re-acquirable")
}

func TestMemoryLeaseConcurrentAcquire(t *testing.T) {
	lease := NewMemoryLease()
	ctx := context.Background()

	var wg sync.WaitGroup
	winners := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired, err := lease.Acquire(ctx, "k", time.Minute)
			assert.NoError(t, err)
			if acquired {
				winners <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	assert.Equal(t, 1, count, "exactly one goroutine may hold the lease")
}
