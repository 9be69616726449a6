package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mwantia/gocatalog/pkg/log"
	"github.com/mwantia/gocatalog/pkg/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	scans atomic.Int32
	err   error
}

func (c *countingReconciler) ReconcileAsync(ctx context.Context) <-chan reconcile.Outcome {
	outcomes := make(chan reconcile.Outcome, 1)
	c.scans.Add(1)

	if c.err != nil {
		outcomes <- reconcile.Outcome{Err: c.err}
	} else {
		outcomes <- reconcile.Outcome{Result: &reconcile.SyncResult{TotalFiles: 1}}
	}
	close(outcomes)
	return outcomes
}

func TestParseInterval(t *testing.T) {
	interval, err := parseInterval("")
	require.NoError(t, err)
	assert.Zero(t, interval)

	interval, err = parseInterval(" 15m ")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, interval)

	_, err = parseInterval("often")
	assert.Error(t, err)

	_, err = parseInterval("-1s")
	assert.Error(t, err)
}

func TestRunSync_Disabled(t *testing.T) {
	reconciler := &countingReconciler{}

	runSync(context.Background(), 0, reconciler, log.NewNopLogger())
	assert.Zero(t, reconciler.scans.Load())
}

func TestRunSync_ScansUntilCancelled(t *testing.T) {
	reconciler := &countingReconciler{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		runSync(ctx, 10*time.Millisecond, reconciler, log.NewNopLogger())
	}()

	require.Eventually(t, func() bool {
		return reconciler.scans.Load() >= 3
	}, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sync loop did not stop")
	}
}

func TestRunSync_KeepsRunningAfterFailure(t *testing.T) {
	reconciler := &countingReconciler{err: errors.New("disk gone")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runSync(ctx, 10*time.Millisecond, reconciler, log.NewNopLogger())

	assert.Eventually(t, func() bool {
		return reconciler.scans.Load() >= 2
	}, 5*time.Second, 5*time.Millisecond)
}
