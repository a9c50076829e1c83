package trucksim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "game": {"connected": true, "gameName": "ETS2", "paused": false},
  "truck": {
    "id": "man",
    "make": "MAN",
    "model": "TGX",
    "speed": 86.4,
    "gear": 9,
    "engineRpm": 1400.5,
    "engineRpmMax": 2500.0,
    "engineOn": true,
    "electricOn": true
  }
}`

const disconnectedPayload = `{"game": {"connected": false}, "truck": {}}`

func TestConnectMapsTelemetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(samplePayload))
		}))
	defer srv.Close()

	ctx := context.Background()
	c, err := Connect(ctx, srv.URL, time.Millisecond,
		WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "ETS2", c.Name())

	m, err := c.NextMoment(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)

	tel, ok := m.BasicTelemetry()
	require.True(t, ok)
	assert.Equal(t, int8(9), tel.Gear)
	assert.InDelta(t, 24.0, tel.Speed.MetersPerSecond(), 1e-9) // 86.4 km/h
	assert.InDelta(t, 1400.5, tel.EngineRotationSpeed.RevolutionsPerMinute(), 1e-6)
	assert.InDelta(t, 2500.0, tel.MaxEngineRotationSpeed.RevolutionsPerMinute(), 1e-6)

	id, ok := m.VehicleUniqueID()
	require.True(t, ok)
	assert.Equal(t, "man", id)

	assert.True(t, m.IgnitionOn())
	assert.False(t, m.StarterOn())

	// queries the trucks don't model keep their defaults
	assert.False(t, m.VehicleLeft())
	_, ok = m.ShiftPoint()
	assert.False(t, ok)
	assert.True(t, m.Flags().Empty())
}

func TestStarterOnWhileCranking(t *testing.T) {
	tests := []struct {
		name       string
		electricOn bool
		engineOn   bool
		want       bool
	}{
		{"engine running", true, true, false},
		{"cranking", true, false, true},
		{"everything off", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Moment{}
			m.data.Truck.ElectricOn = tt.electricOn
			m.data.Truck.EngineOn = tt.engineOn
			assert.Equal(t, tt.want, m.StarterOn())
			assert.Equal(t, tt.electricOn, m.IgnitionOn())
		})
	}
}

func TestConnectWaitsForGame(t *testing.T) {
	var gameUp atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if gameUp.Load() {
				_, _ = w.Write([]byte(samplePayload))
			} else {
				_, _ = w.Write([]byte(disconnectedPayload))
			}
		}))
	defer srv.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		gameUp.Store(true)
	}()

	c, err := Connect(context.Background(), srv.URL, 5*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "ETS2", c.Name())
}

func TestSessionEndsWhenGameQuits(t *testing.T) {
	var gameUp atomic.Bool
	gameUp.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if gameUp.Load() {
				_, _ = w.Write([]byte(samplePayload))
			} else {
				_, _ = w.Write([]byte(disconnectedPayload))
			}
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

	gameUp.Store(false)

	m, err = c.NextMoment(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = c.NextMoment(ctx)
	require.NoError(t, err)
	assert.Nil(t, m, "terminal state is idempotent")
}
