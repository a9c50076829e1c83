package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simetry/simetry-go/pkg/backend"
)

// relayServer upgrades one connection and streams the given documents,
// then closes the socket.
func relayServer(t *testing.T, docs []backend.Document) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			for _, doc := range docs {
				if err := conn.WriteJSON(&doc); err != nil {
					return
				}
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// give the client a beat to read the close frame
			time.Sleep(20 * time.Millisecond)
		}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectStreamsInOrderThenTerminates(t *testing.T) {
	docs := []backend.Document{
		{SimName: "RemoteSim", Gear: null.From(int8(1))},
		{SimName: "RemoteSim", Gear: null.From(int8(2))},
		{SimName: "RemoteSim", Gear: null.From(int8(3))},
	}
	srv := relayServer(t, docs)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Connect(ctx, wsURL(srv), 10*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "RemoteSim", c.Name())

	for i := 1; i <= 3; i++ {
		m, err := c.NextMoment(ctx)
		require.NoError(t, err)
		require.NotNil(t, m, "moment %d", i)
		tel, ok := m.BasicTelemetry()
		require.True(t, ok)
		assert.Equal(t, int8(i), tel.Gear, "moments arrive in stream order")
	}

	m, err := c.NextMoment(ctx)
	require.NoError(t, err)
	assert.Nil(t, m, "closed socket terminates the sequence")

	m, err = c.NextMoment(ctx)
	require.NoError(t, err)
	assert.Nil(t, m, "terminal state is idempotent")
}

func TestConnectRetriesUntilRelayAppears(t *testing.T) {
	srv := relayServer(t, []backend.Document{{SimName: "LateSim"}})
	url := wsURL(srv)
	srv.Close() // relay not reachable yet

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := Connect(ctx, url, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNextMomentHonorsContext(t *testing.T) {
	// relay sends one document and then goes silent
	upgrader := websocket.Upgrader{}
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.WriteJSON(&backend.Document{SimName: "SilentSim"})
			<-hold
		}))
	defer srv.Close()
	defer close(hold)

	c, err := Connect(context.Background(), wsURL(srv), 10*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	m, err := c.NextMoment(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.NextMoment(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
