// Package dirtrally2 connects to DiRT Rally 2.0 via its UDP telemetry feed
// (the Codemasters float packet layout). The game pushes packets to a local
// port; "connecting" means binding that port and receiving the first packet.
package dirtrally2

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/simetry/simetry-go/log"
	"github.com/simetry/simetry-go/pkg/backend"
	"github.com/simetry/simetry-go/pkg/simetry"
	"github.com/simetry/simetry-go/pkg/units"
)

// DefaultAddr is the port DiRT Rally 2.0 sends UDP telemetry to when the
// hardware_settings_config.xml udp block is enabled.
const DefaultAddr = "127.0.0.1:20777"

const simName = "DiRT Rally 2.0"

// Packet layout: little-endian float32 words. The feed reports engine
// speeds in tens of rpm; reverse gear is encoded as 10.
const (
	wordSpeed      = 7
	wordGear       = 33
	wordEngineRate = 37
	wordMaxRPM     = 63 // only present with extradata >= 3

	minPacketLen    = (wordEngineRate + 1) * 4
	extraPacketLen  = (wordMaxRPM + 1) * 4
	reverseGearCode = 10
)

// readTick bounds how long a blocking read waits before re-checking ctx.
const readTick = 250 * time.Millisecond

// Moment is one decoded telemetry packet.
type Moment struct {
	simetry.UnsupportedMoment
	telemetry simetry.BasicTelemetry
}

var _ simetry.Moment = (*Moment)(nil)

func (m *Moment) BasicTelemetry() (simetry.BasicTelemetry, bool) {
	return m.telemetry, true
}

func decode(pkt []byte) (*Moment, bool) {
	if len(pkt) < minPacketLen {
		return nil, false
	}
	word := func(i int) float64 {
		bits := binary.LittleEndian.Uint32(pkt[i*4 : i*4+4])
		return float64(math.Float32frombits(bits))
	}
	gearRaw := word(wordGear)
	gear := int8(gearRaw)
	if gearRaw == reverseGearCode {
		gear = -1
	}
	tel := simetry.BasicTelemetry{
		Gear:                gear,
		Speed:               units.MetersPerSecond(word(wordSpeed)),
		EngineRotationSpeed: units.RevolutionsPerMinute(word(wordEngineRate) * 10),
	}
	if len(pkt) >= extraPacketLen {
		tel.MaxEngineRotationSpeed = units.RevolutionsPerMinute(word(wordMaxRPM) * 10)
	}
	return &Moment{telemetry: tel}, true
}

type Option func(*Client)

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clk = clk }
}

// Client is a Simetry session over the DiRT Rally 2.0 UDP feed.
type Client struct {
	conn    *net.UDPConn
	clk     clock.Clock
	logger  *log.Logger
	pending simetry.Moment
	done    bool
}

var _ simetry.Simetry = (*Client)(nil)

// Connect binds addr and waits for the game's first telemetry packet.
// Binding is retried every retryInterval in case another consumer still
// holds the port. It only fails when ctx ends first.
func Connect(
	ctx context.Context,
	addr string,
	retryInterval time.Duration,
	opts ...Option,
) (*Client, error) {
	c := &Client{
		clk:    clock.New(),
		logger: log.GetLogger("backend.dirtrally2"),
	}
	for _, opt := range opts {
		opt(c)
	}
	conn, err := backend.Retry(ctx, c.clk, retryInterval,
		func(context.Context) (*net.UDPConn, error) {
			udpAddr, err := net.ResolveUDPAddr("udp", addr)
			if err != nil {
				return nil, err
			}
			return net.ListenUDP("udp", udpAddr)
		})
	if err != nil {
		return nil, err
	}
	c.conn = conn
	first, err := c.readMoment(ctx)
	if err != nil || first == nil {
		conn.Close()
		if err == nil {
			err = errors.New("telemetry feed closed before first packet")
		}
		return nil, err
	}
	c.pending = first
	c.logger.Info("connected", log.String("addr", addr))
	return c, nil
}

func (c *Client) Name() string { return simName }

// LocalAddr returns the bound UDP address.
func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

func (c *Client) NextMoment(ctx context.Context) (simetry.Moment, error) {
	if c.done {
		return nil, nil
	}
	if c.pending != nil {
		ret := c.pending
		c.pending = nil
		return ret, nil
	}
	m, err := c.readMoment(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		c.done = true
	}
	return m, nil
}

// readMoment blocks until a decodable packet arrives. It returns nil, nil
// when the socket is gone (the terminal sequence signal) and nil, ctx.Err()
// when the caller gives up while waiting. UDP has no notion of a peer
// hanging up, so a silent game simply keeps us waiting.
func (c *Client) readMoment(ctx context.Context) (simetry.Moment, error) {
	buf := make([]byte, 1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTick))
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				c.logger.Info("telemetry feed failed", log.ErrorField(err))
			}
			return nil, nil
		}
		if m, ok := decode(buf[:n]); ok {
			return m, nil
		}
		// short or foreign packet, keep listening
	}
}

func (c *Client) Close() error {
	c.done = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
