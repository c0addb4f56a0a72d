package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/edgeflare/graphstreams/pkg/graph"
	"github.com/edgeflare/graphstreams/pkg/sink/kafka"
	"github.com/edgeflare/graphstreams/pkg/sink/strategy"
	"github.com/edgeflare/graphstreams/pkg/streams"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRunning = errors.New("sink is already running")
	ErrNotRunning     = errors.New("sink is not running")
	ErrNoStrategy     = errors.New("no strategy bound to topic")
)

// KafkaEventSink consumes the configured topics and writes every batch to the graph
// in a single transaction.
type KafkaEventSink struct {
	db     graph.DB
	logger *zap.Logger
	topics *TopicService

	mu       sync.Mutex
	status   streams.Status
	starting bool
	cancel   context.CancelFunc
	done     chan struct{}
	runErr   error
	executor *graph.Executor
	byTopic  map[string]strategy.Strategy

	newGroup    func(kafka.Config) (kafka.Group, error)
	newProducer func(kafka.Config) (sarama.SyncProducer, error)
}

// NewKafkaEventSink returns a stopped sink bound to db.
func NewKafkaEventSink(db graph.DB) *KafkaEventSink {
	return &KafkaEventSink{
		db:     db,
		logger: zap.NewNop(),
		topics: NewTopicService(),
		status: streams.StatusStopped,
		newGroup: func(cfg kafka.Config) (kafka.Group, error) {
			return kafka.NewConsumerGroup(cfg)
		},
		newProducer: kafka.NewSyncProducer,
	}
}

// WithLogger sets the sink's logger. It must be called before Start.
func (s *KafkaEventSink) WithLogger(logger *zap.Logger) *KafkaEventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger.With(zap.String("component", "kafka_sink"))
	return s
}

// Start parses cfg, prepares the graph and starts consuming in the background.
// A disabled configuration leaves the sink stopped.
func (s *KafkaEventSink) Start(ctx context.Context, cfg map[string]string) error {
	s.mu.Lock()
	if s.status == streams.StatusRunning || s.starting {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.starting = true
	logger := s.logger
	s.mu.Unlock()

	started := false
	defer func() {
		if !started {
			s.mu.Lock()
			s.starting = false
			s.mu.Unlock()
		}
	}()

	conf, err := ParseConfig(cfg)
	if err != nil {
		return err
	}
	if !conf.Enabled {
		logger.Info("sink disabled")
		return nil
	}

	byTopic, err := conf.Strategies()
	if err != nil {
		return err
	}
	executor, err := graph.NewExecutor(s.db, conf.Graph, logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := executor.EnsureGraph(ctx); err != nil {
		return err
	}

	group, err := s.newGroup(conf.Kafka)
	if err != nil {
		return err
	}

	var dlq *kafka.DeadLetterQueue
	if conf.Errors.DLQTopic != "" {
		producer, err := s.newProducer(conf.Kafka)
		if err != nil {
			group.Close()
			return err
		}
		dlq = kafka.NewDeadLetterQueue(producer, conf.Errors.DLQTopic, conf.Errors.DLQHeaders, logger)
	}

	s.topics.Replace(conf.Topics)

	opts := kafka.ConsumerOptions{
		Topics:       s.topics.Topics(),
		BatchSize:    conf.BatchSize,
		BatchTimeout: conf.BatchTimeout,
		Policy:       conf.Errors,
		Logger:       logger,
	}
	if dlq != nil {
		opts.DLQ = dlq
	}
	consumer := kafka.NewConsumer(group, kafka.ProcessorFunc(s.Process), opts)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.executor = executor
	s.byTopic = byTopic
	s.cancel = cancel
	s.done = done
	s.runErr = nil
	s.status = streams.StatusRunning
	s.starting = false
	s.mu.Unlock()
	started = true

	go func() {
		defer close(done)
		err := consumer.Run(runCtx)
		if err != nil {
			logger.Error("sink stopped", zap.Error(err))
		}
		if cerr := group.Close(); cerr != nil {
			logger.Warn("failed to close consumer group", zap.Error(cerr))
		}
		if dlq != nil {
			if cerr := dlq.Close(); cerr != nil {
				logger.Warn("failed to close dead letter producer", zap.Error(cerr))
			}
		}
		cancel()

		s.mu.Lock()
		s.runErr = err
		s.status = streams.StatusStopped
		s.mu.Unlock()
	}()

	logger.Info("sink started",
		zap.String("graph", conf.Graph),
		zap.Strings("topics", opts.Topics),
		zap.String("group", conf.Kafka.GroupID))
	return nil
}

// Stop stops consuming and waits for in-flight batches to finish.
func (s *KafkaEventSink) Stop() error {
	s.mu.Lock()
	if s.status != streams.StatusRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("sink stopped")
	return nil
}

// Wait blocks until the sink stops, and returns the error that stopped it.
func (s *KafkaEventSink) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	return s.Err()
}

// Err returns the error that last stopped the sink, if any.
func (s *KafkaEventSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

func (s *KafkaEventSink) Status() streams.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Topics returns the subscribed topics, sorted.
func (s *KafkaEventSink) Topics() []string {
	return s.topics.Topics()
}

// Process converts msgs with their topics' strategies and writes all resulting
// statements in one transaction. Topics keep their first-appearance order.
func (s *KafkaEventSink) Process(ctx context.Context, msgs []strategy.Message) error {
	s.mu.Lock()
	executor, byTopic := s.executor, s.byTopic
	s.mu.Unlock()
	if executor == nil {
		return ErrNotRunning
	}

	var order []string
	grouped := make(map[string][]strategy.Message)
	for _, m := range msgs {
		if _, ok := grouped[m.Topic]; !ok {
			order = append(order, m.Topic)
		}
		grouped[m.Topic] = append(grouped[m.Topic], m)
	}

	var stmts []graph.Statement
	for _, topic := range order {
		st, ok := byTopic[topic]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoStrategy, topic)
		}
		out, err := st.Statements(grouped[topic])
		if err != nil {
			return err
		}
		stmts = append(stmts, out...)
	}
	if len(stmts) == 0 {
		return nil
	}
	return executor.ExecTx(ctx, stmts)
}
