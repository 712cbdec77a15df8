// Command serialqueue-demo runs a few tasks through a serial queue with the
// library's logging, tracing and metrics wired up, and prints each task's
// outcome as it settles.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/harun/serialqueue/internal/logger"
	"github.com/harun/serialqueue/internal/observability"
	"github.com/harun/serialqueue/internal/tracing"
	"github.com/harun/serialqueue/pkg/serialqueue"
)

func main() {
	level := flag.String("log-level", "debug", "log level (debug, info, warn, error)")
	pretty := flag.Bool("pretty", true, "pretty console output")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address (empty disables)")
	flag.Parse()

	lg, err := logger.New(logger.Config{
		Level:   *level,
		Console: true,
		Pretty:  *pretty,
	})
	if err != nil {
		os.Exit(1)
	}
	defer lg.Close()

	if err := tracing.InitOpenTelemetry("serialqueue-demo"); err != nil {
		lg.Warn().Err(err).Msg("Tracing disabled")
	}
	defer tracing.ShutdownOpenTelemetry(context.Background())

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.MetricsHandler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				lg.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
		lg.Info().Str("addr", *metricsAddr).Msg("Serving metrics")
	}

	q := serialqueue.New(
		serialqueue.WithName("demo"),
		serialqueue.WithLogger(lg.GetZerolog()),
	)
	defer q.Close()

	type handle struct {
		name string
		fut  serialqueue.Future
	}
	var handles []handle

	slow, err := q.Push(serialqueue.Do(func(ctx context.Context) (interface{}, error) {
		time.Sleep(100 * time.Millisecond)
		return 10, nil
	}), nil)
	if err != nil {
		lg.Error().Err(err).Msg("Submission failed")
		os.Exit(1)
	}
	handles = append(handles, handle{"slow", slow})

	flaky, err := q.Push(serialqueue.Do(func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("flaky downstream")
	}), nil)
	if err != nil {
		lg.Error().Err(err).Msg("Submission failed")
		os.Exit(1)
	}
	handles = append(handles, handle{"flaky", flaky})

	urgent, err := q.Unshift(serialqueue.Do(func(ctx context.Context) (interface{}, error) {
		return "jumped the line", nil
	}), nil)
	if err != nil {
		lg.Error().Err(err).Msg("Submission failed")
		os.Exit(1)
	}
	handles = append(handles, handle{"urgent", urgent})

	for _, h := range handles {
		value, err := h.fut.Wait(context.Background())
		if err != nil {
			lg.Error().Str("task", h.name).Err(err).Msg("Task failed")
			continue
		}
		lg.Info().Str("task", h.name).Interface("value", value).Msg("Task settled")
	}

	if err := q.Wait(context.Background()); err != nil {
		lg.Error().Err(err).Msg("Queue drain interrupted")
	}
}
