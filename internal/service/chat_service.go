package service

import (
	"context"
	"encoding/json"
	"log"

	"civic-chat-be/internal/dto"
	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/pipeline"

	"github.com/google/uuid"
)

type IChatService interface {
	Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error)
}

type chatService struct {
	pipeline         *pipeline.Pipeline
	publisherService IPublisherService
	appVersion       string
	logger           *log.Logger
}

func NewChatService(
	pl *pipeline.Pipeline,
	publisherService IPublisherService,
	appVersion string,
	logger *log.Logger,
) IChatService {
	if logger == nil {
		logger = log.Default()
	}
	return &chatService{
		pipeline:         pl,
		publisherService: publisherService,
		appVersion:       appVersion,
		logger:           logger,
	}
}

func (c *chatService) Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history := make([]router.Turn, 0, len(req.ConversationHistory))
	for _, turn := range req.ConversationHistory {
		history = append(history, router.Turn{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	envelope, err := c.pipeline.HandleTurn(ctx, sessionID, req.Message, history)
	if err != nil {
		return nil, err
	}

	logID := c.publishInteractionLog(ctx, sessionID, req.Message, envelope)

	sources := make([]dto.SourceDTO, 0, len(envelope.Sources))
	for _, src := range envelope.Sources {
		sources = append(sources, dto.SourceDTO{
			Type:    src.Type,
			Table:   src.Table,
			Source:  src.Source,
			DocType: src.DocType,
		})
	}

	return &dto.ChatResponse{
		SessionId: sessionID,
		Response:  envelope.Answer,
		Sources:   sources,
		Mode:      string(envelope.Mode),
		LogId:     logID,
	}, nil
}

// publishInteractionLog hands the turn to the log topic. Logging never
// blocks or fails the reply.
func (c *chatService) publishInteractionLog(ctx context.Context, sessionID, question string, envelope *router.ReplyEnvelope) string {
	if c.publisherService == nil {
		return ""
	}

	attributes, err := json.Marshal(envelope.Sources)
	if err != nil {
		attributes = []byte("[]")
	}

	payload := dto.PublishInteractionLogMessage{
		Id:             uuid.New(),
		SessionId:      sessionID,
		AppVersion:     c.appVersion,
		DataSelected:   string(envelope.Mode),
		DataAttributes: string(attributes),
		ClientQuery:    question,
		AppResponse:    envelope.Answer,
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		c.logger.Printf("[CHAT] Failed to marshal interaction log payload: %v", err)
		return ""
	}

	if err := c.publisherService.Publish(ctx, payloadJson); err != nil {
		c.logger.Printf("[CHAT] Failed to publish interaction log: %v", err)
		return ""
	}

	return payload.Id.String()
}
