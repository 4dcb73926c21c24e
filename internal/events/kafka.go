// Package events publishes board mutation events to Kafka for downstream
// consumers (activity feeds, audit). The producer is optional: a nil
// *Producer swallows publishes, so the service runs without a broker.
package events

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types
const (
	TypeBoardCreated  = "board.created"
	TypeBoardArchived = "board.archived"
	TypeBoardDeleted  = "board.deleted"
	TypeColumnCreated = "column.created"
	TypeColumnDeleted = "column.deleted"
	TypeTaskCreated   = "task.created"
	TypeTaskMoved     = "task.moved"
	TypeTaskUpdated   = "task.updated"
	TypeTaskDeleted   = "task.deleted"
	TypeMemberAdded   = "member.added"
	TypeMemberRemoved = "member.removed"
	TypeMessagePosted = "chat.message"
)

// Event is the wire shape written to the topic.
type Event struct {
	Type    string    `json:"type"`
	BoardID uint64    `json:"board_id"`
	ActorID uint64    `json:"actor_id"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
	}
	return &Producer{writer: w}
}

// Publish writes an event keyed by board id so per-board ordering is
// preserved within a partition. Failures are logged, never surfaced: the
// mutation already committed and must not be rolled back for telemetry.
func (p *Producer) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	value, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal %s: %v", event.Type, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(event.BoardID, 10)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("events: publish %s: %v", event.Type, err)
	}
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
