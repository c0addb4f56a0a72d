package kafka

import (
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/edgeflare/graphstreams/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dead letter context headers
const (
	HeaderPrefix           = "__streams.errors."
	HeaderTopic            = HeaderPrefix + "topic"
	HeaderPartition        = HeaderPrefix + "partition"
	HeaderOffset           = HeaderPrefix + "offset"
	HeaderExceptionMessage = HeaderPrefix + "exception.message"
	HeaderID               = HeaderPrefix + "id"
)

// DeadLetterSender receives the messages skipped under tolerance "all".
type DeadLetterSender interface {
	Send(msg *sarama.ConsumerMessage, cause error) error
}

// DeadLetterQueue republishes failed messages, unchanged, to a dead letter topic.
type DeadLetterQueue struct {
	producer sarama.SyncProducer
	topic    string
	headers  bool
	logger   *zap.Logger
}

func NewDeadLetterQueue(producer sarama.SyncProducer, topic string, contextHeaders bool, logger *zap.Logger) *DeadLetterQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadLetterQueue{
		producer: producer,
		topic:    topic,
		headers:  contextHeaders,
		logger:   logger.With(zap.String("component", "dead_letter_queue")),
	}
}

func (d *DeadLetterQueue) Send(msg *sarama.ConsumerMessage, cause error) error {
	out := &sarama.ProducerMessage{Topic: d.topic}
	if msg.Key != nil {
		out.Key = sarama.ByteEncoder(msg.Key)
	}
	if msg.Value != nil {
		out.Value = sarama.ByteEncoder(msg.Value)
	}
	for _, h := range msg.Headers {
		if h != nil {
			out.Headers = append(out.Headers, *h)
		}
	}
	if d.headers {
		out.Headers = append(out.Headers,
			header(HeaderTopic, msg.Topic),
			header(HeaderPartition, strconv.FormatInt(int64(msg.Partition), 10)),
			header(HeaderOffset, strconv.FormatInt(msg.Offset, 10)),
			header(HeaderID, uuid.NewString()),
		)
		if cause != nil {
			out.Headers = append(out.Headers, header(HeaderExceptionMessage, cause.Error()))
		}
	}

	partition, offset, err := d.producer.SendMessage(out)
	if err != nil {
		return fmt.Errorf("failed to send message to dead letter queue %s: %w", d.topic, err)
	}
	metrics.DeadLetterMessages.WithLabelValues(msg.Topic).Inc()
	d.logger.Debug("message sent to dead letter queue",
		zap.String("source_topic", msg.Topic),
		zap.Int64("source_offset", msg.Offset),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (d *DeadLetterQueue) Close() error {
	return d.producer.Close()
}

func header(key, value string) sarama.RecordHeader {
	return sarama.RecordHeader{Key: []byte(key), Value: []byte(value)}
}
