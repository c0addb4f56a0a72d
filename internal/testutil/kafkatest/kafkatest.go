// Package kafkatest provides in-memory consumer group sessions, claims and groups
// for driving sarama.ConsumerGroupHandler implementations in tests.
package kafkatest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/IBM/sarama"
)

// Messages returns n messages of topic with offsets 0..n-1, key i and value {"id": i}.
func Messages(topic string, n int) []*sarama.ConsumerMessage {
	out := make([]*sarama.ConsumerMessage, n)
	for i := range n {
		out[i] = &sarama.ConsumerMessage{
			Topic:  topic,
			Offset: int64(i),
			Key:    []byte(fmt.Sprint(i)),
			Value:  []byte(fmt.Sprintf(`{"id": %d}`, i)),
		}
	}
	return out
}

// Session records marked offsets and commits.
type Session struct {
	ctx context.Context

	mu      sync.Mutex
	marked  []int64
	commits int
}

func NewSession(ctx context.Context) *Session {
	return &Session{ctx: ctx}
}

func (s *Session) Claims() map[string][]int32 { return nil }
func (s *Session) MemberID() string            { return "member-1" }
func (s *Session) GenerationID() int32         { return 1 }
func (s *Session) Context() context.Context    { return s.ctx }

func (s *Session) MarkOffset(string, int32, int64, string)  {}
func (s *Session) ResetOffset(string, int32, int64, string) {}

func (s *Session) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *Session) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
}

// Marked returns the marked offsets in marking order.
func (s *Session) Marked() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.marked)
}

func (s *Session) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Claim is a single partition claim fed from a buffered channel.
type Claim struct {
	topic string
	msgs  chan *sarama.ConsumerMessage
}

// NewClaim returns a claim holding msgs. The claim stays open until Close.
func NewClaim(topic string, msgs ...*sarama.ConsumerMessage) *Claim {
	c := &Claim{topic: topic, msgs: make(chan *sarama.ConsumerMessage, max(len(msgs), 16))}
	for _, m := range msgs {
		c.msgs <- m
	}
	return c
}

func (c *Claim) Send(msg *sarama.ConsumerMessage) { c.msgs <- msg }
func (c *Claim) Close()                           { close(c.msgs) }

func (c *Claim) Topic() string                            { return c.topic }
func (c *Claim) Partition() int32                         { return 0 }
func (c *Claim) InitialOffset() int64                     { return 0 }
func (c *Claim) HighWaterMarkOffset() int64               { return 0 }
func (c *Claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

// Group hands Claim to the first Consume call and blocks later calls until their
// context ends.
type Group struct {
	Claim *Claim

	mu      sync.Mutex
	used    bool
	closed  bool
	session *Session
}

func (g *Group) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return sarama.ErrClosedConsumerGroup
	}
	first := !g.used && g.Claim != nil
	g.used = true
	session := NewSession(ctx)
	if first {
		g.session = session
	}
	g.mu.Unlock()

	if !first {
		<-ctx.Done()
		return nil
	}
	if err := handler.Setup(session); err != nil {
		return err
	}
	defer handler.Cleanup(session)
	return handler.ConsumeClaim(session, g.Claim)
}

func (g *Group) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Closed reports whether Close was called.
func (g *Group) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Session returns the session of the claim, once consumed.
func (g *Group) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}
