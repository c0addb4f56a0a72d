package metrics

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	ConsumedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstreams_consumed_messages_total",
			Help: "Total number of Kafka messages consumed by topic",
		},
		[]string{"topic"},
	)

	CommittedBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstreams_committed_batches_total",
			Help: "Total number of batches written to the graph and committed by topic",
		},
		[]string{"topic"},
	)

	FailedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstreams_failed_messages_total",
			Help: "Total number of messages that could not be written to the graph by topic",
		},
		[]string{"topic"},
	)

	DeadLetterMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstreams_dead_letter_messages_total",
			Help: "Total number of messages sent to the dead letter queue by source topic",
		},
		[]string{"topic"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphstreams_batch_duration_seconds",
			Help:    "Duration of writing a batch to the graph",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

// ServerOptions configures the metrics endpoint. Zero values take the defaults.
type ServerOptions struct {
	Addr              string // default ":9100"
	Path              string // default "/metrics"
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	Logger            *zap.Logger
}

func (o ServerOptions) withDefaults() ServerOptions {
	o.Addr = cmp.Or(o.Addr, ":9100")
	o.Path = cmp.Or(o.Path, "/metrics")
	o.ShutdownTimeout = cmp.Or(o.ShutdownTimeout, 5*time.Second)
	o.ReadHeaderTimeout = cmp.Or(o.ReadHeaderTimeout, 3*time.Second)
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Serve exposes the default registry on opts.Addr until ctx is done. The listener
// is bound before Serve returns, so a busy or malformed address is reported to the
// caller. wg is released once the server has shut down.
func Serve(ctx context.Context, wg *sync.WaitGroup, opts ServerOptions) error {
	opts = opts.withDefaults()
	logger := opts.Logger.With(zap.String("component", "metrics"))

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("metrics: listen on %s: %w", opts.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(opts.Path, promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: opts.ReadHeaderTimeout}

	wg.Add(2)
	served := make(chan struct{})
	go func() {
		defer wg.Done()
		defer close(served)
		logger.Info("serving metrics", zap.String("addr", ln.Addr().String()), zap.String("path", opts.Path))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
		case <-served:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown timed out", zap.Error(err))
			return
		}
		<-served
		logger.Info("metrics server shutdown complete")
	}()
	return nil
}
