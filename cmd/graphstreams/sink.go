package graphstreams

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edgeflare/graphstreams/pkg/graph"
	"github.com/edgeflare/graphstreams/pkg/metrics"
	"github.com/edgeflare/graphstreams/pkg/sink"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	prometheusEnabled bool
	prometheusAddr    string
	overrides         map[string]string
)

var sinkCmd = &cobra.Command{
	Use:     "sink",
	Aliases: []string{"s"},
	Short:   "Run the Kafka to graph sink",
	Long:    `Consume the configured Kafka topics and write every batch to the Apache AGE graph.`,
	RunE:    runSink,
}

func init() {
	sinkCmd.Flags().BoolVar(&prometheusEnabled, "metrics", false, "serve prometheus metrics (overrides metrics.enabled)")
	sinkCmd.Flags().StringVar(&prometheusAddr, "metrics-addr", "", "prometheus metrics listen address (overrides metrics.addr)")
	sinkCmd.Flags().StringToStringVar(&overrides, "set", nil, "sink property, eg --set kafka.group.id=ingest (repeatable)")
}

// streamsProperties merges the configured sink properties with --set flags.
func streamsProperties() map[string]string {
	props := maps.Clone(cfg.Streams)
	if props == nil {
		props = make(map[string]string)
	}
	maps.Copy(props, overrides)
	return sink.NewConfigMapper().Convert(props)
}

func runSink(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if cfg.Database.ConnString == "" {
		return errors.New("database.connString is required")
	}
	pool, err := graph.NewPool(ctx, cfg.Database.ConnString)
	if err != nil {
		return err
	}
	defer pool.Close()

	var wg sync.WaitGroup
	if prometheusEnabled || cfg.Metrics.Enabled {
		addr := prometheusAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		if err := metrics.Serve(ctx, &wg, metrics.ServerOptions{Addr: addr, Logger: logger}); err != nil {
			return err
		}
	}

	props := streamsProperties()
	s := sink.GetSink(props, logger, pool).WithLogger(logger)
	if err := s.Start(ctx, props); err != nil {
		return fmt.Errorf("failed to start sink: %w", err)
	}

	sinkDone := make(chan error, 1)
	go func() { sinkDone <- s.Wait() }()

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received termination signal, shutting down gracefully", zap.Stringer("signal", sig))
		if err := s.Stop(); err != nil && !errors.Is(err, sink.ErrNotRunning) {
			logger.Warn("failed to stop sink", zap.Error(err))
		}
		<-sinkDone
	case runErr = <-sinkDone:
		if runErr != nil {
			logger.Error("sink failed", zap.Error(runErr))
		}
	}
	cancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10 seconds")
	}
	return runErr
}
