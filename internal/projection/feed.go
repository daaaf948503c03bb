package projection

import (
	"context"
	"fmt"

	"simbook/internal/feed"
	"simbook/pkg/kafka"
	kafka_config "simbook/pkg/kafka/config"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

// FeedConsumer tails the change feed and applies each event to the
// projection. Events are handled one at a time in offset order; a decode
// failure is permanent and goes to the DLQ rather than wedging the feed.
type FeedConsumer struct {
	consumer   *kafka.Consumer
	projection *Projection
	log        *logger.Logger
}

func NewFeedConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, p *Projection, log *logger.Logger) (*FeedConsumer, error) {
	fc := &FeedConsumer{
		projection: p,
		log:        log,
	}

	consumer, err := kafka.NewConsumer(cfg, topic, groupID, dlqTopic, fc.handle, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed consumer: %w", err)
	}
	fc.consumer = consumer
	return fc, nil
}

// Start blocks consuming the feed until the context is cancelled.
func (fc *FeedConsumer) Start(ctx context.Context) error {
	return fc.consumer.Start(ctx)
}

func (fc *FeedConsumer) Close() error {
	return fc.consumer.Close()
}

func (fc *FeedConsumer) Lag() int64 {
	return fc.consumer.Lag()
}

func (fc *FeedConsumer) handle(ctx context.Context, msg kafka.Message) error {
	entityType := msg.GetEntityType()
	eventType := msg.GetEventType()

	switch entityType {
	case feed.EntitySession:
		return fc.handleSession(eventType, msg)
	case feed.EntityApplication:
		return fc.handleApplication(eventType, msg)
	case feed.EntityOperator:
		return fc.handleOperator(eventType, msg)
	default:
		return kafka.NewPermanentError(fmt.Sprintf("unknown entity type %q", entityType), nil)
	}
}

func (fc *FeedConsumer) handleSession(eventType string, msg kafka.Message) error {
	if eventType == feed.EventDelete {
		var payload feed.DeletePayload
		if err := msg.DecodeValue(&payload); err != nil {
			return kafka.NewPermanentError("malformed session delete payload", err)
		}
		fc.projection.ApplySessionDelete(payload.ID)
		return nil
	}

	var session model.Session
	if err := msg.DecodeValue(&session); err != nil {
		return kafka.NewPermanentError("malformed session payload", err)
	}
	session.Normalize()
	fc.projection.ApplySessionUpsert(&session)
	return nil
}

func (fc *FeedConsumer) handleApplication(eventType string, msg kafka.Message) error {
	var application model.Application
	if err := msg.DecodeValue(&application); err != nil {
		return kafka.NewPermanentError("malformed application payload", err)
	}
	fc.projection.ApplyApplicationUpsert(&application)
	return nil
}

func (fc *FeedConsumer) handleOperator(eventType string, msg kafka.Message) error {
	if eventType == feed.EventDelete {
		var payload feed.DeletePayload
		if err := msg.DecodeValue(&payload); err != nil {
			return kafka.NewPermanentError("malformed operator delete payload", err)
		}
		fc.projection.ApplyOperatorDelete(payload.ID)
		return nil
	}

	var operator model.Operator
	if err := msg.DecodeValue(&operator); err != nil {
		return kafka.NewPermanentError("malformed operator payload", err)
	}
	fc.projection.ApplyOperatorUpsert(&operator)
	return nil
}
