// Package connect races all supported simulator backends and hands the
// caller whichever one answers first.
package connect

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/simetry/simetry-go/log"
	"github.com/simetry/simetry-go/pkg/backend"
	"github.com/simetry/simetry-go/pkg/backend/dirtrally2"
	"github.com/simetry/simetry-go/pkg/backend/generichttp"
	"github.com/simetry/simetry-go/pkg/backend/relay"
	"github.com/simetry/simetry-go/pkg/backend/trucksim"
	"github.com/simetry/simetry-go/pkg/simetry"
)

// Builder holds the per-backend endpoints and the shared retry interval.
// The zero value is not usable; start from NewBuilder.
type Builder struct {
	GenericHTTPURL    string
	TruckSimulatorURL string
	DirtRally2Addr    string
	RelayURL          string
	RetryInterval     time.Duration
}

// NewBuilder returns a Builder with the documented defaults, ready to use
// as is or to override per backend.
func NewBuilder() *Builder {
	return &Builder{
		GenericHTTPURL:    generichttp.DefaultURL,
		TruckSimulatorURL: trucksim.DefaultURL,
		DirtRally2Addr:    dirtrally2.DefaultAddr,
		RelayURL:          relay.DefaultURL,
		RetryInterval:     backend.DefaultRetryInterval,
	}
}

func (b *Builder) dialers() []backend.Dialer {
	interval := b.RetryInterval
	return []backend.Dialer{
		{
			Name: "generichttp",
			Dial: func(ctx context.Context) (simetry.Simetry, error) {
				return generichttp.Connect(ctx, b.GenericHTTPURL, interval)
			},
		},
		{
			Name: "trucksim",
			Dial: func(ctx context.Context) (simetry.Simetry, error) {
				return trucksim.Connect(ctx, b.TruckSimulatorURL, interval)
			},
		},
		{
			Name: "dirtrally2",
			Dial: func(ctx context.Context) (simetry.Simetry, error) {
				return dirtrally2.Connect(ctx, b.DirtRally2Addr, interval)
			},
		},
		{
			Name: "relay",
			Dial: func(ctx context.Context) (simetry.Simetry, error) {
				return relay.Connect(ctx, b.RelayURL, interval)
			},
		},
	}
}

// Connect races a connection attempt per backend and returns the first
// session to materialize. It never fails on its own: every attempt retries
// until a sim shows up, so with no sim running the call simply waits. The
// only way out empty-handed is the caller ending ctx, in which case the
// error is ctx.Err(). By the time Connect returns, every losing attempt has
// released its resources.
func (b *Builder) Connect(ctx context.Context) (simetry.Simetry, error) {
	return Race(ctx, b.dialers())
}

// Connect races all backends with default configuration.
func Connect(ctx context.Context) (simetry.Simetry, error) {
	return NewBuilder().Connect(ctx)
}

// Race runs one connection attempt per dialer; the first to produce a
// session wins, strictly by real-time completion order. The rest are
// cancelled and Race waits for them to acknowledge before returning, so no
// transport handle outlives the call.
func Race(ctx context.Context, dialers []backend.Dialer) (simetry.Simetry, error) {
	logger := log.GetLogger("connect")
	logger.Debug("racing backends",
		log.Any("backends", lo.Map(dialers,
			func(d backend.Dialer, _ int) string { return d.Name })))

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	winner := make(chan simetry.Simetry, 1)
	var wg sync.WaitGroup
	for _, d := range dialers {
		wg.Add(1)
		go func(d backend.Dialer) {
			defer wg.Done()
			sess, err := d.Dial(raceCtx)
			if err != nil {
				// attempts only fail by cancellation
				return
			}
			select {
			case winner <- sess:
			default:
				// somebody else was first
				if cerr := sess.Close(); cerr != nil {
					logger.Debug("closing runner-up failed",
						log.String("backend", d.Name), log.ErrorField(cerr))
				}
			}
		}(d)
	}
	settled := make(chan struct{})
	go func() {
		wg.Wait()
		close(settled)
	}()

	select {
	case sess := <-winner:
		cancel()
		<-settled
		// a runner-up may have parked in the freed channel slot
		drainSessions(winner)
		logger.Info("connected", log.String("sim", sess.Name()))
		return sess, nil
	case <-ctx.Done():
		cancel()
		<-settled
		// a dial may have slipped a session in while we were leaving
		drainSessions(winner)
		return nil, ctx.Err()
	}
}

func drainSessions(ch chan simetry.Simetry) {
	for {
		select {
		case sess := <-ch:
			_ = sess.Close()
		default:
			return
		}
	}
}
