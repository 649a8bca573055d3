package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnlimitedNeverBlocks(t *testing.T) {
	l := New(0)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitHonorsCancellation(t *testing.T) {
	l := New(1) // 1/sec, so the second Take() would normally block ~1s
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx))
	cancel()
	err := l.Wait(ctx)
	require.Error(t, err)
}

func TestRateReportsConfiguredValue(t *testing.T) {
	require.Equal(t, 0, New(0).Rate())
	require.Equal(t, 50, New(50).Rate())
}
