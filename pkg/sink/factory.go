package sink

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/edgeflare/graphstreams/pkg/graph"
	"github.com/edgeflare/graphstreams/pkg/streams"
	"go.uber.org/zap"
)

// Sink is a running ingestion of Kafka topics into a graph.
type Sink interface {
	Start(ctx context.Context, cfg map[string]string) error
	Stop() error
	Status() streams.Status
	Topics() []string
}

var _ Sink = (*KafkaEventSink)(nil)

// Factory builds a sink bound to db. It must not perform I/O or start goroutines.
type Factory func(config map[string]string, log *zap.Logger, db graph.DB) Sink

// Predefined factories
const (
	FactoryKafka = "kafka"
)

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

// RegisterFactory adds a sink factory to the registry under name.
func RegisterFactory(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Factories returns the registered factory names, sorted.
func Factories() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// NewSink builds a sink with the factory registered under name.
func NewSink(name string, config map[string]string, log *zap.Logger, db graph.DB) (Sink, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sink factory %s not found", name)
	}
	return f(config, log, db), nil
}

// GetSink returns a new KafkaEventSink bound to db. Every call returns a distinct
// sink; nothing is connected or started.
//
// config and log are accepted for the factory signature but are not carried into
// the sink: configuration is passed to Start and a logger is set with WithLogger.
func GetSink(config map[string]string, log *zap.Logger, db graph.DB) *KafkaEventSink {
	return NewKafkaEventSink(db)
}

func init() {
	RegisterFactory(FactoryKafka, func(config map[string]string, log *zap.Logger, db graph.DB) Sink {
		return GetSink(config, log, db)
	})
}
