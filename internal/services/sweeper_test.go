package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_RemovesOnlyExpiredNamespaces(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	blobs := newMemBlobs()
	blobs.putAt("temp/temp_stale/front.jpg", "a", now.Add(-80*time.Hour))
	blobs.putAt("temp/temp_stale/back.jpg", "b", now.Add(-75*time.Hour))
	blobs.putAt("temp/temp_mixed/front.jpg", "c", now.Add(-100*time.Hour))
	blobs.putAt("temp/temp_mixed/top.jpg", "d", now.Add(-2*time.Hour))
	blobs.putAt("temp/temp_fresh/left.jpg", "e", now.Add(-time.Hour))
	blobs.putAt("final-order/front.jpg", "f", now.Add(-500*time.Hour))

	sweeper := NewTempSweeper(blobs, 72*time.Hour, nil)
	sweeper.now = func() time.Time { return now }

	res, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 3, Expired: 1, BlobsRemoved: 2}, res)

	assert.False(t, blobs.has("temp/temp_stale/front.jpg"))
	assert.False(t, blobs.has("temp/temp_stale/back.jpg"))
	assert.True(t, blobs.has("temp/temp_mixed/front.jpg"))
	assert.True(t, blobs.has("temp/temp_fresh/left.jpg"))
	assert.True(t, blobs.has("final-order/front.jpg"))
}

func TestSweep_DryRunKeepsBlobs(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	blobs := newMemBlobs()
	blobs.putAt("temp/temp_old/front.jpg", "a", now.Add(-200*time.Hour))

	sweeper := NewTempSweeper(blobs, 72*time.Hour, nil).WithDryRun(true)
	sweeper.now = func() time.Time { return now }

	res, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Zero(t, res.BlobsRemoved)
	assert.True(t, blobs.has("temp/temp_old/front.jpg"))
}

func TestSweep_ListFailure(t *testing.T) {
	blobs := newMemBlobs()
	blobs.listErr[TempRoot] = errBoom

	_, err := NewTempSweeper(blobs, time.Hour, nil).Sweep(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestSweep_RemoveFailureContinues(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	blobs := newMemBlobs()
	blobs.putAt("temp/temp_a/front.jpg", "a", now.Add(-200*time.Hour))
	blobs.removeErr = errBoom

	sweeper := NewTempSweeper(blobs, 72*time.Hour, nil)
	sweeper.now = func() time.Time { return now }

	res, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Zero(t, res.BlobsRemoved)
}

func TestRun_StopsOnCancel(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	blobs := newMemBlobs()
	blobs.putAt("temp/temp_old/front.jpg", "a", now.Add(-200*time.Hour))

	sweeper := NewTempSweeper(blobs, 72*time.Hour, nil)
	sweeper.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !blobs.has("temp/temp_old/front.jpg") }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
