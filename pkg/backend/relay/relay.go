// Package relay connects to a telemetry relay over websocket. A relay
// forwards the normalized telemetry document from another machine, which is
// how sims with machine-local transports (shared memory) reach consumers on
// a different box.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/simetry/simetry-go/log"
	"github.com/simetry/simetry-go/pkg/backend"
	"github.com/simetry/simetry-go/pkg/simetry"
)

// DefaultURL is where a local relay is expected to accept subscribers.
const DefaultURL = "ws://localhost:8725/simetry"

const defaultName = "Simetry Relay"

type Option func(*Client)

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = dialer }
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clk = clk }
}

// Client is a Simetry session fed by a relay's websocket push stream.
type Client struct {
	name    string
	url     string
	dialer  *websocket.Dialer
	clk     clock.Clock
	logger  *log.Logger
	conn    *websocket.Conn
	moments chan simetry.Moment
	closed  chan struct{}
	once    sync.Once
	done    bool
}

var _ simetry.Simetry = (*Client)(nil)

// Connect dials url every retryInterval until a relay answers and sends its
// first document. It only fails when ctx ends first.
func Connect(
	ctx context.Context,
	url string,
	retryInterval time.Duration,
	opts ...Option,
) (*Client, error) {
	c := &Client{
		name:   defaultName,
		url:    url,
		dialer: websocket.DefaultDialer,
		clk:    clock.New(),
		logger: log.GetLogger("backend.relay"),
	}
	for _, opt := range opts {
		opt(c)
	}
	first, err := backend.Retry(ctx, c.clk, retryInterval,
		func(ctx context.Context) (*backend.Document, error) {
			return c.dial(ctx)
		})
	if err != nil {
		return nil, err
	}
	if first.SimName != "" {
		c.name = first.SimName
	}
	c.moments = make(chan simetry.Moment, 1)
	c.closed = make(chan struct{})
	c.moments <- backend.NewDocumentMoment(*first)
	go c.readLoop()
	c.logger.Info("connected", log.String("url", c.url), log.String("sim", c.name))
	return c, nil
}

// dial attempts one websocket connection and waits for the first document.
// A relay that accepts the socket but never sends counts as not available.
func (c *Client) dial(ctx context.Context) (*backend.Document, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		conn.Close()
		return nil, err
	}
	var doc backend.Document
	if err := conn.ReadJSON(&doc); err != nil {
		conn.Close()
		return nil, fmt.Errorf("relay sent no document: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	c.conn = conn
	return &doc, nil
}

// readLoop pushes documents into the moment channel until the socket dies.
// Closing the channel is the terminal sequence signal.
func (c *Client) readLoop() {
	defer close(c.moments)
	for {
		var doc backend.Document
		if err := c.conn.ReadJSON(&doc); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Info("relay connection lost", log.ErrorField(err))
			}
			return
		}
		select {
		case c.moments <- backend.NewDocumentMoment(doc):
		case <-c.closed:
			return
		}
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) NextMoment(ctx context.Context) (simetry.Moment, error) {
	if c.done {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m, ok := <-c.moments:
		if !ok {
			c.done = true
			return nil, nil
		}
		return m, nil
	}
}

func (c *Client) Close() error {
	c.done = true
	var err error
	c.once.Do(func() {
		if c.closed != nil {
			close(c.closed)
		}
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
