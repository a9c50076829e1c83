// Package generichttp connects to any sim that publishes the normalized
// telemetry document over plain HTTP. The backend polls the document
// endpoint; a failing poll on an established session means the publisher is
// gone and ends the moment sequence.
package generichttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/simetry/simetry-go/log"
	"github.com/simetry/simetry-go/pkg/backend"
	"github.com/simetry/simetry-go/pkg/simetry"
)

// DefaultURL is where a local publisher is expected to serve the document.
const DefaultURL = "http://localhost:8080/simetry"

// DefaultPollInterval paces document polls on an established session.
const DefaultPollInterval = 100 * time.Millisecond

const defaultName = "Generic HTTP"

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) { c.pollInterval = interval }
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clk = clk }
}

// Client is a Simetry session over the generic HTTP document transport.
type Client struct {
	name         string
	url          string
	httpClient   *http.Client
	pollInterval time.Duration
	clk          clock.Clock
	logger       *log.Logger
	pending      simetry.Moment
	done         bool
}

var _ simetry.Simetry = (*Client)(nil)

// Connect polls url every retryInterval until a document is served, then
// returns the connected session. It only fails when ctx ends first.
func Connect(
	ctx context.Context,
	url string,
	retryInterval time.Duration,
	opts ...Option,
) (*Client, error) {
	c := &Client{
		name:         defaultName,
		url:          url,
		httpClient:   http.DefaultClient,
		pollInterval: DefaultPollInterval,
		clk:          clock.New(),
		logger:       log.GetLogger("backend.generichttp"),
	}
	for _, opt := range opts {
		opt(c)
	}
	doc, err := backend.Retry(ctx, c.clk, retryInterval,
		func(ctx context.Context) (*backend.Document, error) {
			return c.fetch(ctx)
		})
	if err != nil {
		return nil, err
	}
	if doc.SimName != "" {
		c.name = doc.SimName
	}
	c.pending = backend.NewDocumentMoment(*doc)
	c.logger.Info("connected", log.String("url", c.url), log.String("sim", c.name))
	return c, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) NextMoment(ctx context.Context) (simetry.Moment, error) {
	if c.done {
		return nil, nil
	}
	if c.pending != nil {
		ret := c.pending
		c.pending = nil
		return ret, nil
	}
	timer := c.clk.Timer(c.pollInterval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}
	doc, err := c.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Info("connection lost", log.String("url", c.url), log.ErrorField(err))
		c.done = true
		return nil, nil
	}
	return backend.NewDocumentMoment(*doc), nil
}

func (c *Client) Close() error {
	c.done = true
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) fetch(ctx context.Context) (*backend.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, c.url)
	}
	var doc backend.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not decode document: %w", err)
	}
	return &doc, nil
}
