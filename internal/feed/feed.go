package feed

import (
	"context"

	"simbook/pkg/kafka"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

// Entity and event kinds carried on the change feed. The projection keys
// its update handlers off these values.
const (
	EntitySession     = "session"
	EntityApplication = "application"
	EntityOperator    = "operator"

	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

const source = "planner"

// Kafka wiring for the change feed. One topic carries every entity kind;
// the projection consumer group replays from the committed offset.
const (
	Topic         = "planner.changefeed"
	DLQTopic      = "planner.changefeed.dlq"
	ConsumerGroup = "planner-projection"
)

// DeletePayload is the envelope body for delete events, which carry only
// the entity identity.
type DeletePayload struct {
	ID   string `json:"id"`
	Date string `json:"date,omitempty"`
}

// Publisher emits committed facts onto the change feed. Publication is
// best-effort after commit: the repository stays authoritative and the
// projection re-synchronizes from it on divergence.
type Publisher interface {
	SessionChanged(ctx context.Context, eventType string, s *model.Session) error
	SessionDeleted(ctx context.Context, sessionID, date string) error
	ApplicationChanged(ctx context.Context, eventType string, a *model.Application) error
	OperatorChanged(ctx context.Context, eventType string, o *model.Operator) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, log: log}
}

func (p *kafkaPublisher) SessionChanged(ctx context.Context, eventType string, s *model.Session) error {
	msg := kafka.NewMessage().
		WithKey(s.ID).
		WithValue(s).
		WithEntityType(EntitySession).
		WithEventType(eventType).
		WithSource(source).
		Build()
	return p.publish(ctx, msg)
}

func (p *kafkaPublisher) SessionDeleted(ctx context.Context, sessionID, date string) error {
	msg := kafka.NewMessage().
		WithKey(sessionID).
		WithValue(DeletePayload{ID: sessionID, Date: date}).
		WithEntityType(EntitySession).
		WithEventType(EventDelete).
		WithSource(source).
		Build()
	return p.publish(ctx, msg)
}

func (p *kafkaPublisher) ApplicationChanged(ctx context.Context, eventType string, a *model.Application) error {
	msg := kafka.NewMessage().
		WithKey(a.SessionID).
		WithValue(a).
		WithEntityType(EntityApplication).
		WithEventType(eventType).
		WithSource(source).
		Build()
	return p.publish(ctx, msg)
}

func (p *kafkaPublisher) OperatorChanged(ctx context.Context, eventType string, o *model.Operator) error {
	msg := kafka.NewMessage().
		WithKey(o.ID).
		WithValue(o).
		WithEntityType(EntityOperator).
		WithEventType(eventType).
		WithSource(source).
		Build()
	return p.publish(ctx, msg)
}

func (p *kafkaPublisher) publish(ctx context.Context, msg kafka.Message) error {
	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish change event",
			"entity_type", msg.GetEntityType(),
			"event_type", msg.GetEventType(),
			"key", msg.Key,
			"error", err,
		)
		return err
	}
	return nil
}

// NopPublisher discards events. Used when the feed is disabled and in
// tests that do not assert on publication.
type NopPublisher struct{}

func (NopPublisher) SessionChanged(ctx context.Context, eventType string, s *model.Session) error {
	return nil
}

func (NopPublisher) SessionDeleted(ctx context.Context, sessionID, date string) error {
	return nil
}

func (NopPublisher) ApplicationChanged(ctx context.Context, eventType string, a *model.Application) error {
	return nil
}

func (NopPublisher) OperatorChanged(ctx context.Context, eventType string, o *model.Operator) error {
	return nil
}
