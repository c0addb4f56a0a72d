package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/edgeflare/graphstreams/pkg/metrics"
	"github.com/edgeflare/graphstreams/pkg/sink/strategy"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize    = 1000
	DefaultBatchTimeout = time.Second
)

// Processor writes a batch of messages to the graph.
type Processor interface {
	Process(ctx context.Context, msgs []strategy.Message) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, msgs []strategy.Message) error

func (f ProcessorFunc) Process(ctx context.Context, msgs []strategy.Message) error {
	return f(ctx, msgs)
}

// Group is the part of sarama.ConsumerGroup the consumer drives.
type Group interface {
	Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error
	Close() error
}

var _ Group = (sarama.ConsumerGroup)(nil)

// NewConsumerGroup connects a sarama consumer group for cfg.
func NewConsumerGroup(cfg Config) (sarama.ConsumerGroup, error) {
	conf, err := cfg.SaramaConfig()
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return group, nil
}

// NewSyncProducer connects the producer used by the dead letter queue.
func NewSyncProducer(cfg Config) (sarama.SyncProducer, error) {
	conf, err := cfg.SaramaConfig()
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync producer: %w", err)
	}
	return producer, nil
}

type ConsumerOptions struct {
	Topics       []string
	BatchSize    int
	BatchTimeout time.Duration
	Policy       ErrorPolicy
	// DLQ receives skipped messages under tolerance "all". Optional.
	DLQ    DeadLetterSender
	Logger *zap.Logger
}

// Consumer is a sarama.ConsumerGroupHandler that drains each claim in batches,
// hands every batch to a Processor and commits its offsets once it is written.
type Consumer struct {
	group     Group
	processor Processor
	opts      ConsumerOptions
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelCauseFunc
}

var _ sarama.ConsumerGroupHandler = (*Consumer)(nil)

func NewConsumer(group Group, processor Processor, opts ConsumerOptions) *Consumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultBatchTimeout
	}
	if opts.Policy.Tolerance == "" {
		opts.Policy.Tolerance = ToleranceNone
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		group:     group,
		processor: processor,
		opts:      opts,
		logger:    logger.With(zap.String("component", "kafka_consumer")),
	}
}

// Run consumes the configured topics until ctx is canceled, the group is closed or
// a batch fails under tolerance "none". Only the last case returns an error.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Info("consuming", zap.Strings("topics", c.opts.Topics))
	for {
		if err := c.group.Consume(ctx, c.opts.Topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				break
			}
			if ctx.Err() == nil {
				return fmt.Errorf("consume: %w", err)
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

func (c *Consumer) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel(err)
	}
}

func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	c.logger.Debug("session started", zap.Any("claims", session.Claims()), zap.Int32("generation", session.GenerationID()))
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	batch := make([]*sarama.ConsumerMessage, 0, c.opts.BatchSize)
	timer := time.NewTimer(c.opts.BatchTimeout)
	timer.Stop()
	defer timer.Stop()

	flush := func() error {
		timer.Stop()
		if len(batch) == 0 {
			return nil
		}
		err := c.flush(session, batch)
		batch = batch[:0]
		return err
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return flush()
			}
			metrics.ConsumedMessages.WithLabelValues(msg.Topic).Inc()
			if len(batch) == 0 {
				timer.Reset(c.opts.BatchTimeout)
			}
			batch = append(batch, msg)
			if len(batch) >= c.opts.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-timer.C:
			if err := flush(); err != nil {
				return err
			}
		case <-session.Context().Done():
			// unflushed messages stay unmarked and are redelivered
			return nil
		}
	}
}

// flush processes batch, then marks and commits its offsets. Failed messages are
// retried, then dead-lettered or fatal depending on the error policy.
func (c *Consumer) flush(session sarama.ConsumerGroupSession, batch []*sarama.ConsumerMessage) error {
	ctx := session.Context()
	topic := batch[0].Topic
	start := time.Now()

	pending := batch
	for len(pending) > 0 {
		err := c.process(ctx, pending)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil
		}

		var me *strategy.MessageError
		failed := pending
		if errors.As(err, &me) {
			if i := indexOf(pending, me.Message); i >= 0 {
				failed = pending[i : i+1]
			}
		}
		c.logFailure(failed, err)
		metrics.FailedMessages.WithLabelValues(topic).Add(float64(len(failed)))

		if c.opts.Policy.Tolerance != ToleranceAll {
			err = fmt.Errorf("failed to write batch of %s to the graph: %w", topic, err)
			c.fail(err)
			return err
		}
		c.deadLetter(failed, err)
		if len(failed) == len(pending) {
			break
		}
		pending = slices.DeleteFunc(slices.Clone(pending), func(m *sarama.ConsumerMessage) bool {
			return m == failed[0]
		})
	}

	for _, m := range batch {
		session.MarkMessage(m, "")
	}
	session.Commit()

	metrics.BatchDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	metrics.CommittedBatches.WithLabelValues(topic).Inc()
	c.logger.Debug("batch committed",
		zap.String("topic", topic),
		zap.Int32("partition", batch[0].Partition),
		zap.Int64("offset", batch[len(batch)-1].Offset),
		zap.Int("size", len(batch)))
	return nil
}

// process runs the processor, retrying with exponential backoff for up to
// RetryTimeout. Malformed messages are not retried.
func (c *Consumer) process(ctx context.Context, batch []*sarama.ConsumerMessage) error {
	msgs := make([]strategy.Message, len(batch))
	for i, m := range batch {
		msgs[i] = toMessage(m)
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if c.opts.Policy.RetryTimeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = c.opts.Policy.RetryTimeout
		if c.opts.Policy.RetryMaxDelay > 0 {
			eb.MaxInterval = c.opts.Policy.RetryMaxDelay
			eb.InitialInterval = min(eb.InitialInterval, eb.MaxInterval)
		}
		b = eb
	}

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.processor.Process(ctx, msgs)
		if err == nil {
			return nil
		}
		if errors.Is(err, strategy.ErrInvalidEvent) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("batch failed", zap.String("topic", batch[0].Topic), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(b, ctx))
}

func (c *Consumer) deadLetter(msgs []*sarama.ConsumerMessage, cause error) {
	if c.opts.DLQ == nil {
		return
	}
	for _, m := range msgs {
		if err := c.opts.DLQ.Send(m, cause); err != nil {
			c.logger.Error("failed to dead-letter message",
				zap.String("topic", m.Topic),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}

func (c *Consumer) logFailure(msgs []*sarama.ConsumerMessage, cause error) {
	if !c.opts.Policy.LogEnable {
		return
	}
	for _, m := range msgs {
		fields := []zap.Field{
			zap.String("topic", m.Topic),
			zap.Int32("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(cause),
		}
		if c.opts.Policy.LogIncludeValues {
			fields = append(fields, zap.ByteString("key", m.Key), zap.ByteString("value", m.Value))
		}
		c.logger.Error("failed to write message to the graph", fields...)
	}
}

func indexOf(batch []*sarama.ConsumerMessage, msg strategy.Message) int {
	return slices.IndexFunc(batch, func(m *sarama.ConsumerMessage) bool {
		return m.Topic == msg.Topic && m.Partition == msg.Partition && m.Offset == msg.Offset
	})
}

func toMessage(m *sarama.ConsumerMessage) strategy.Message {
	return strategy.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
	}
}
