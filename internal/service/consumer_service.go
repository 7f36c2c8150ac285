package service

import (
	"context"
	"encoding/json"
	"log"

	"civic-chat-be/internal/dto"
	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/repository/contract"
	"civic-chat-be/pkg/events"
	pktNats "civic-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	logRepository  contract.InteractionLogRepository
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	logRepository contract.InteractionLogRepository,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		logRepository:  logRepository,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishInteractionLogMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal interaction log message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Persisting interaction log %s for session %s", payload.Id, payload.SessionId)

	logEntry := &entity.InteractionLog{
		Id:             payload.Id,
		SessionId:      payload.SessionId,
		AppVersion:     payload.AppVersion,
		DataSelected:   payload.DataSelected,
		DataAttributes: payload.DataAttributes,
		PromptPreamble: payload.PromptPreamble,
		ClientQuery:    payload.ClientQuery,
		AppResponse:    payload.AppResponse,
	}

	if err := cs.logRepository.Create(ctx, logEntry); err != nil {
		log.Printf("[ERROR] Failed to persist interaction log %s: %v", payload.Id, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	if cs.eventPublisher != nil {
		var sources []json.RawMessage
		_ = json.Unmarshal([]byte(payload.DataAttributes), &sources)
		evt := events.NewTurnCompletedEvent(payload.SessionId, payload.Id.String(), payload.DataSelected, len(sources))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish turn completed event: %v", err)
		}
	}

	msg.Ack()
}
