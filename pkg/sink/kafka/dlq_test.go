package kafka

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingProducer records the messages it is asked to send.
type capturingProducer struct {
	sarama.SyncProducer
	sent []*sarama.ProducerMessage
}

func (p *capturingProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	p.sent = append(p.sent, msg)
	return 0, int64(len(p.sent) - 1), nil
}

func (p *capturingProducer) Close() error { return nil }

func headersOf(msg *sarama.ProducerMessage) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[string(h.Key)] = string(h.Value)
	}
	return out
}

func consumed() *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic:     "people",
		Partition: 2,
		Offset:    41,
		Key:       []byte("1"),
		Value:     []byte(`{"name": "Joe"}`),
		Headers:   []*sarama.RecordHeader{{Key: []byte("trace"), Value: []byte("abc")}},
	}
}

func TestDeadLetterQueueSendWithContextHeaders(t *testing.T) {
	producer := &capturingProducer{}
	dlq := NewDeadLetterQueue(producer, "people-dlq", true, nil)

	require.NoError(t, dlq.Send(consumed(), errors.New("missing key id")))
	require.Len(t, producer.sent, 1)

	out := producer.sent[0]
	assert.Equal(t, "people-dlq", out.Topic)
	key, err := out.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), key)
	value, err := out.Value.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Joe"}`, string(value))

	headers := headersOf(out)
	assert.Equal(t, "abc", headers["trace"])
	assert.Equal(t, "people", headers[HeaderTopic])
	assert.Equal(t, "2", headers[HeaderPartition])
	assert.Equal(t, "41", headers[HeaderOffset])
	assert.Equal(t, "missing key id", headers[HeaderExceptionMessage])
	_, err = uuid.Parse(headers[HeaderID])
	assert.NoError(t, err)
}

func TestDeadLetterQueueSendWithoutContextHeaders(t *testing.T) {
	producer := &capturingProducer{}
	dlq := NewDeadLetterQueue(producer, "people-dlq", false, nil)

	msg := consumed()
	msg.Value = nil
	require.NoError(t, dlq.Send(msg, errors.New("boom")))

	out := producer.sent[0]
	assert.Nil(t, out.Value)
	assert.Equal(t, map[string]string{"trace": "abc"}, headersOf(out))
}

func TestDeadLetterQueueMockProducer(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	dlq := NewDeadLetterQueue(producer, "people-dlq", true, nil)
	require.NoError(t, dlq.Send(consumed(), errors.New("first")))

	err := dlq.Send(consumed(), errors.New("second"))
	require.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	assert.Contains(t, err.Error(), "people-dlq")

	require.NoError(t, dlq.Close())
}
