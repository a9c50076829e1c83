package generichttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simetry/simetry-go/pkg/backend"
)

func sampleDoc() backend.Document {
	return backend.Document{
		SimName:   "TestSim",
		Gear:      null.From(int8(2)),
		SpeedMps:  null.From(33.0),
		EngineRpm: null.From(4200.0),
	}
}

func TestConnectAndReadMoments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(sampleDoc())
		}))
	defer srv.Close()

	ctx := context.Background()
	c, err := Connect(ctx, srv.URL, 10*time.Millisecond,
		WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "TestSim", c.Name())

	for i := 0; i < 3; i++ {
		m, err := c.NextMoment(ctx)
		require.NoError(t, err)
		require.NotNil(t, m)
		tel, ok := m.BasicTelemetry()
		require.True(t, ok)
		assert.Equal(t, int8(2), tel.Gear)
		assert.InDelta(t, 33.0, tel.Speed.MetersPerSecond(), 1e-9)
	}
}

func TestConnectRetriesUntilPublisherAppears(t *testing.T) {
	var up atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if !up.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(sampleDoc())
		}))
	defer srv.Close()

	go func() {
		time.Sleep(30 * time.Millisecond)
		up.Store(true)
	}()

	c, err := Connect(context.Background(), srv.URL, 5*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "TestSim", c.Name())
}

func TestConnectHonorsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Connect(ctx, srv.URL, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionEndsWhenPublisherGoes(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if !up.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(sampleDoc())
		}))
	defer srv.Close()

	ctx := context.Background()
	c, err := Connect(ctx, srv.URL, time.Millisecond,
		WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	m, err := c.NextMoment(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)

	up.Store(false)

	m, err = c.NextMoment(ctx)
	require.NoError(t, err)
	assert.Nil(t, m, "lost connection ends the sequence")

	// terminal state is idempotent
	m, err = c.NextMoment(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)
}
