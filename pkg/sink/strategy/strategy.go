// Package strategy turns batches of Kafka messages into Cypher statements.
//
// Every subscribed topic is bound to exactly one strategy:
//
//   - CYPHER: a user-supplied Cypher template run once per message as `event`
//   - PATTERN_NODE / PATTERN_RELATIONSHIP: a pattern such as `Person{!id,name}`
//     or `(:Person{!id})-[:KNOWS{since}]->(:Person{!id})` mapping message fields
//     onto a node or relationship
//   - CUD: messages that spell out the create/update/delete operation themselves
//   - CDC_SOURCE_ID / CDC_SCHEMA: change events of another graph (see package cdc),
//     merged on the source entity id or on the constrained properties
//
// Statements batch consecutive messages of the same shape into one
// `UNWIND $events AS event ...` query, preserving message order.
package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/edgeflare/graphstreams/pkg/graph"
)

var (
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrUnknownType    = errors.New("unknown topic type")
)

// TopicType selects the ingestion strategy of a topic.
type TopicType string

const (
	TopicCypher              TopicType = "CYPHER"
	TopicPatternNode         TopicType = "PATTERN_NODE"
	TopicPatternRelationship TopicType = "PATTERN_RELATIONSHIP"
	TopicCUD                 TopicType = "CUD"
	TopicCDCSourceID         TopicType = "CDC_SOURCE_ID"
	TopicCDCSchema           TopicType = "CDC_SCHEMA"
)

// Message is a consumed Kafka record. A nil Value is a tombstone.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Tombstone reports whether the message deletes its key.
func (m Message) Tombstone() bool {
	return m.Value == nil
}

// MessageError reports the message a strategy could not convert.
type MessageError struct {
	Message Message
	Err     error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("%s[%d]@%d: %v", e.Message.Topic, e.Message.Partition, e.Message.Offset, e.Err)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

func invalid(m Message, format string, args ...any) error {
	return &MessageError{Message: m, Err: fmt.Errorf("%w: %s", ErrInvalidEvent, fmt.Sprintf(format, args...))}
}

// Strategy converts a batch of messages from one topic into Cypher statements.
type Strategy interface {
	// Statements returns the statements for msgs, in message order. A message
	// that cannot be converted yields a *MessageError.
	Statements(msgs []Message) ([]graph.Statement, error)
}

type options struct {
	sourceIDLabel string
	sourceIDField string
}

// Option customizes the strategy built by New.
type Option func(*options)

// WithSourceID sets the fallback label and the id property used by CDC_SOURCE_ID.
func WithSourceID(label, field string) Option {
	return func(o *options) {
		if label != "" {
			o.sourceIDLabel = label
		}
		if field != "" {
			o.sourceIDField = field
		}
	}
}

// New builds the strategy for a topic binding. setting is the Cypher template
// for CYPHER, the pattern for PATTERN_* and ignored otherwise.
func New(typ TopicType, setting string, opts ...Option) (Strategy, error) {
	o := options{sourceIDLabel: DefaultSourceIDLabel, sourceIDField: DefaultSourceIDField}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		s   Strategy
		err error
	)
	switch typ {
	case TopicCypher:
		s, err = NewCypherTemplate(setting)
	case TopicPatternNode:
		s, err = NewNodePattern(setting)
	case TopicPatternRelationship:
		s, err = NewRelationshipPattern(setting)
	case TopicCUD:
		s = CUD{}
	case TopicCDCSourceID:
		s, err = NewCDCSourceID(o.sourceIDLabel, o.sourceIDField)
	case TopicCDCSchema:
		s = CDCSchema{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
