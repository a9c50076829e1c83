package backend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryReturnsFirstSuccess(t *testing.T) {
	got, err := Retry(context.Background(), clock.NewMock(), time.Second,
		func(context.Context) (string, error) {
			return "connected", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "connected", got)
}

func TestRetryPacesOneAttemptPerInterval(t *testing.T) {
	clk := clock.NewMock()
	var attempts atomic.Int32

	done := make(chan error, 1)
	go func() {
		_, err := Retry(context.Background(), clk, time.Second,
			func(context.Context) (int, error) {
				if attempts.Add(1) >= 3 {
					return 42, nil
				}
				return 0, errors.New("sim not up yet")
			})
		done <- err
	}()

	// the first attempt fires without any clock advance
	require.Eventually(t, func() bool { return attempts.Load() == 1 },
		time.Second, time.Millisecond)

	// without the interval elapsing there is no second attempt
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load(), "must not busy-spin")

	advances := 0
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		advances++
		return attempts.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, <-done)
	assert.LessOrEqual(t, int(attempts.Load()), advances+1,
		"at most one attempt per elapsed interval")
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	clk := clock.NewMock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, clk, time.Minute,
			func(context.Context) (int, error) {
				return 0, errors.New("never succeeds")
			})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
}
