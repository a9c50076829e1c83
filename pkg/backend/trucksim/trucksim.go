// Package trucksim connects to Euro Truck Simulator 2 and American Truck
// Simulator through the community telemetry web server, which serves the
// game state as JSON over HTTP on the sim machine.
package trucksim

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
	"github.com/simetry/simetry-go/pkg/units"
)

// DefaultURL is the telemetry server's default endpoint.
const DefaultURL = "http://localhost:25555/api/ets2/telemetry"

// DefaultPollInterval paces telemetry polls on an established session.
const DefaultPollInterval = 100 * time.Millisecond

const defaultName = "Truck Simulator"

// telemetry mirrors the fields of the telemetry server response we use.
type telemetry struct {
	Game struct {
		Connected bool   `json:"connected"`
		GameName  string `json:"gameName"`
		Paused    bool   `json:"paused"`
	} `json:"game"`
	Truck struct {
		ID           string  `json:"id"`
		Make         string  `json:"make"`
		Model        string  `json:"model"`
		Speed        float64 `json:"speed"` // km/h, negative when reversing
		Gear         int     `json:"gear"`  // negative = reverse
		EngineRpm    float64 `json:"engineRpm"`
		EngineRpmMax float64 `json:"engineRpmMax"`
		EngineOn     bool    `json:"engineOn"`
		ElectricOn   bool    `json:"electricOn"`
	} `json:"truck"`
}

// Moment is one telemetry reading from the truck simulator.
type Moment struct {
	simetry.UnsupportedMoment
	data telemetry
}

var _ simetry.Moment = (*Moment)(nil)

func (m *Moment) BasicTelemetry() (simetry.BasicTelemetry, bool) {
	gear := m.data.Truck.Gear
	if gear > 127 {
		gear = 127
	} else if gear < -128 {
		gear = -128
	}
	return simetry.BasicTelemetry{
		Gear:                   int8(gear),
		Speed:                  units.KilometersPerHour(m.data.Truck.Speed),
		EngineRotationSpeed:    units.RevolutionsPerMinute(m.data.Truck.EngineRpm),
		MaxEngineRotationSpeed: units.RevolutionsPerMinute(m.data.Truck.EngineRpmMax),
	}, true
}

func (m *Moment) VehicleUniqueID() (string, bool) {
	if m.data.Truck.ID == "" {
		return "", false
	}
	return m.data.Truck.ID, true
}

// IgnitionOn maps to the truck's electrics master switch.
func (m *Moment) IgnitionOn() bool {
	return m.data.Truck.ElectricOn
}

// StarterOn reports the cranking state. The server has no starter field;
// electrics on with the engine off is the closest it can express.
func (m *Moment) StarterOn() bool {
	return m.data.Truck.ElectricOn && !m.data.Truck.EngineOn
}

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

// Client is a Simetry session backed by the truck telemetry server.
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

// Connect polls the telemetry server every retryInterval until it reports a
// running game. The telemetry server itself may be up long before the sim;
// game.connected keeps us waiting until the wheels can actually turn.
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
		logger:       log.GetLogger("backend.trucksim"),
	}
	for _, opt := range opts {
		opt(c)
	}
	data, err := backend.Retry(ctx, c.clk, retryInterval,
		func(ctx context.Context) (*telemetry, error) {
			return c.fetch(ctx)
		})
	if err != nil {
		return nil, err
	}
	if data.Game.GameName != "" {
		c.name = data.Game.GameName
	}
	c.pending = &Moment{data: *data}
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
	data, err := c.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Info("connection lost", log.String("url", c.url), log.ErrorField(err))
		c.done = true
		return nil, nil
	}
	return &Moment{data: *data}, nil
}

func (c *Client) Close() error {
	c.done = true
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) fetch(ctx context.Context) (*telemetry, error) {
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
	var data telemetry
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode telemetry: %w", err)
	}
	if !data.Game.Connected {
		return nil, fmt.Errorf("telemetry server is up but no game is connected")
	}
	return &data, nil
}
