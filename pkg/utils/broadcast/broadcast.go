// Package broadcast fans a session's moments out to multiple subscribers,
// so several consumers (HUD widgets, loggers, recorders) can share one
// simulator connection.
package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/simetry/simetry-go/log"
)

// Server distributes values read from a single source channel to any
// number of subscribers. When the source closes, every subscriber channel
// is closed too.
type Server[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	Close()
}

// defaultSendTimeout bounds how long a slow subscriber can stall a tick
// before it is skipped. Telemetry is perishable: a dropped tick beats a
// late one.
const defaultSendTimeout = 50 * time.Millisecond

type server[T any] struct {
	name        string
	source      <-chan T
	subscribers []chan T
	subscribe   chan chan T
	unsubscribe chan (<-chan T)
	ctx         context.Context
	cancel      context.CancelFunc
	sendTimeout time.Duration
	logger      *log.Logger

	// read by the metric collector while serve() writes them
	numRcv  atomic.Int64
	numSnd  atomic.Int64
	numSkip atomic.Int64
}

type Option[T any] func(*server[T])

// WithSendTimeout overrides how long a tick waits on a slow subscriber.
func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(s *server[T]) { s.sendTimeout = d }
}

// NewServer starts distributing from source immediately.
func NewServer[T any](name string, source <-chan T, opts ...Option[T]) Server[T] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &server[T]{
		name:        name,
		source:      source,
		subscribe:   make(chan chan T),
		unsubscribe: make(chan (<-chan T)),
		ctx:         ctx,
		cancel:      cancel,
		sendTimeout: defaultSendTimeout,
		logger:      log.GetLogger("broadcast"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMetrics()
	go s.serve()
	return s
}

func (s *server[T]) Subscribe() <-chan T {
	ch := make(chan T)
	select {
	case s.subscribe <- ch:
	case <-s.ctx.Done():
		close(ch)
	}
	return ch
}

func (s *server[T]) CancelSubscription(ch <-chan T) {
	select {
	case s.unsubscribe <- ch:
	case <-s.ctx.Done():
	}
}

func (s *server[T]) Close() {
	s.logger.Info("closing broadcast server",
		log.String("name", s.name),
		log.Int64("rcv", s.numRcv.Load()),
		log.Int64("snd", s.numSnd.Load()),
		log.Int64("skip", s.numSkip.Load()))
	s.cancel()
}

func (s *server[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(
		fmt.Sprintf("simetry.broadcast.%s", s.name))
	register := func(name, desc string, value func() int64) {
		_, err := meter.Int64ObservableGauge(
			name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(
				func(_ context.Context, o metric.Int64Observer) error {
					o.Observe(value(),
						metric.WithAttributes(attribute.String("name", s.name)))
					return nil
				}))
		if err != nil {
			s.logger.Error("failed to register metric",
				log.String("metric", name), log.ErrorField(err))
		}
	}
	register("simetry.broadcast.rcv", "moments received from the source",
		s.numRcv.Load)
	register("simetry.broadcast.snd", "moments delivered to subscribers",
		s.numSnd.Load)
	register("simetry.broadcast.skip", "moments skipped for slow subscribers",
		s.numSkip.Load)
}

func (s *server[T]) serve() {
	defer func() {
		for _, sub := range s.subscribers {
			close(sub)
		}
	}()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ch := <-s.subscribe:
			s.subscribers = append(s.subscribers, ch)
		case ch := <-s.unsubscribe:
			s.remove(ch)
		case msg, ok := <-s.source:
			if !ok {
				s.logger.Debug("source exhausted, closing subscribers",
					log.String("name", s.name))
				return
			}
			s.numRcv.Add(1)
			s.dispatch(msg)
		}
	}
}

func (s *server[T]) remove(ch <-chan T) {
	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

func (s *server[T]) dispatch(msg T) {
	for _, sub := range s.subscribers {
		timeout := time.NewTimer(s.sendTimeout)
		select {
		case sub <- msg:
			s.numSnd.Add(1)
			timeout.Stop()
		case <-timeout.C:
			s.numSkip.Add(1)
		case <-s.ctx.Done():
			timeout.Stop()
			return
		}
	}
}
