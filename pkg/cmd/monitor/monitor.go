package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/simetry/simetry-go/log"
	"github.com/simetry/simetry-go/pkg/config"
	"github.com/simetry/simetry-go/pkg/connect"
	"github.com/simetry/simetry-go/pkg/simetry"
	"github.com/simetry/simetry-go/pkg/utils/broadcast"
)

func NewMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "connects to whichever sim is running and streams its telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor()
		},
	}
	cmd.Flags().StringVar(&config.LogLevel,
		"logLevel",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"logFormat",
		"text",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogConfig,
		"logConfig",
		"",
		"path to log config file")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() (*log.Logger, error) {
	if config.LogConfig != "" {
		cfg, err := log.LoadConfig(config.LogConfig)
		if err != nil {
			return nil, err
		}
		return log.NewFromConfig(cfg, config.LogFormat, os.Stderr,
			log.WithCaller(false))
	}
	level := parseLogLevel(config.LogLevel, log.InfoLevel)
	if config.LogFormat == "json" {
		return log.New(os.Stderr, level), nil
	}
	return log.DevLogger(os.Stderr, level), nil
}

func runMonitor() error {
	logger, err := setupLogger()
	if err != nil {
		return err
	}
	log.ResetDefault(logger)

	retryInterval, err := time.ParseDuration(config.RetryInterval)
	if err != nil {
		return fmt.Errorf("invalid retry interval %q: %w", config.RetryInterval, err)
	}

	builder := connect.NewBuilder()
	builder.GenericHTTPURL = config.GenericHTTPURL
	builder.TruckSimulatorURL = config.TruckSimulatorURL
	builder.DirtRally2Addr = config.DirtRally2Addr
	builder.RelayURL = config.RelayURL
	builder.RetryInterval = retryInterval

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("waiting for a simulator",
		log.Duration("retryInterval", retryInterval))
	sess, err := builder.Connect(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	defer sess.Close()
	log.Info("connected", log.String("sim", sess.Name()))

	source := make(chan simetry.Moment)
	srv := broadcast.NewServer("monitor", source)
	defer srv.Close()

	displayDone := make(chan struct{})
	statsDone := make(chan struct{})
	go displayLoop(srv.Subscribe(), displayDone)
	go statsLoop(srv.Subscribe(), statsDone)

	for {
		m, err := sess.NextMoment(ctx)
		if err != nil {
			// interrupted by the user
			break
		}
		if m == nil {
			log.Info("simulator disconnected", log.String("sim", sess.Name()))
			break
		}
		select {
		case source <- m:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(source)
	<-displayDone
	<-statsDone
	log.Info("monitor terminated")
	return nil
}

// displayLoop logs a dashboard line at most once per second.
func displayLoop(moments <-chan simetry.Moment, done chan<- struct{}) {
	defer close(done)
	var lastShown time.Time
	for m := range moments {
		if time.Since(lastShown) < time.Second {
			continue
		}
		lastShown = time.Now()
		fields := []log.Field{}
		if tel, ok := m.BasicTelemetry(); ok {
			fields = append(fields,
				log.Int("gear", int(tel.Gear)),
				log.String("speed", tel.Speed.String()),
				log.String("rpm", tel.EngineRotationSpeed.String()))
		}
		if id, ok := m.VehicleUniqueID(); ok {
			fields = append(fields, log.String("vehicle", id))
		}
		if flags := m.Flags(); !flags.Empty() {
			fields = append(fields, log.String("flags", flags.String()))
		}
		log.Info("telemetry", fields...)
	}
}

// statsLoop reports the tick rate every few seconds.
func statsLoop(moments <-chan simetry.Moment, done chan<- struct{}) {
	defer close(done)
	const reportEvery = 5 * time.Second
	count := 0
	windowStart := time.Now()
	for range moments {
		count++
		if elapsed := time.Since(windowStart); elapsed >= reportEvery {
			log.Debug("tick rate",
				log.Float64("hz", float64(count)/elapsed.Seconds()))
			count = 0
			windowStart = time.Now()
		}
	}
}
