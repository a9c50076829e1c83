// Package backend holds the pieces shared by all simulator backends: the
// Dialer descriptor the connector races, the retry loop that paces
// connection attempts, and the normalized telemetry document used by the
// transports that carry pre-normalized data.
package backend

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/simetry/simetry-go/pkg/simetry"
)

// DefaultRetryInterval is the pause between connection attempts while a
// simulator is not yet running.
const DefaultRetryInterval = 5 * time.Second

// Dialer describes one simulator backend to the connection race.
// Dial must keep trying until it succeeds or ctx ends; it never returns a
// terminal failure on its own.
type Dialer struct {
	Name string
	Dial func(ctx context.Context) (simetry.Simetry, error)
}

// Retry runs attempt until it succeeds, pacing retries with one attempt per
// interval. It returns early with ctx.Err() when ctx ends while waiting.
// Transient attempt errors are swallowed: waiting for a simulator to be
// launched is the normal state, not a failure.
func Retry[T any](
	ctx context.Context,
	clk clock.Clock,
	interval time.Duration,
	attempt func(context.Context) (T, error),
) (T, error) {
	var zero T
	if clk == nil {
		clk = clock.New()
	}
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		ret, err := attempt(ctx)
		if err == nil {
			return ret, nil
		}
		timer := clk.Timer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
