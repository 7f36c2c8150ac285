package service

import (
	"context"
	"fmt"
	"log"

	"civic-chat-be/internal/dto"
	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/repository/contract"
	"civic-chat-be/pkg/events"
	pktNats "civic-chat-be/pkg/nats"

	"github.com/google/uuid"
)

type ILogService interface {
	Create(ctx context.Context, req dto.CreateLogRequest) (*dto.CreateLogResponse, error)
	UpdateRating(ctx context.Context, req dto.UpdateLogRatingRequest) error
	Get(ctx context.Context, id uuid.UUID) (*dto.GetLogResponse, error)
}

type logService struct {
	logRepository  contract.InteractionLogRepository
	eventPublisher *pktNats.Publisher
	appVersion     string
}

func NewLogService(
	logRepository contract.InteractionLogRepository,
	eventPublisher *pktNats.Publisher,
	appVersion string,
) ILogService {
	return &logService{
		logRepository:  logRepository,
		eventPublisher: eventPublisher,
		appVersion:     appVersion,
	}
}

func (s *logService) Create(ctx context.Context, req dto.CreateLogRequest) (*dto.CreateLogResponse, error) {
	appVersion := req.AppVersion
	if appVersion == "" {
		appVersion = s.appVersion
	}

	logEntry := &entity.InteractionLog{
		Id:             uuid.New(),
		SessionId:      req.SessionId,
		AppVersion:     appVersion,
		DataSelected:   req.DataSelected,
		DataAttributes: req.DataAttributes,
		PromptPreamble: req.PromptPreamble,
		ClientQuery:    req.ClientQuery,
		AppResponse:    req.AppResponse,
	}

	if err := s.logRepository.Create(ctx, logEntry); err != nil {
		return nil, fmt.Errorf("failed to create interaction log: %w", err)
	}

	return &dto.CreateLogResponse{Id: logEntry.Id}, nil
}

func (s *logService) UpdateRating(ctx context.Context, req dto.UpdateLogRatingRequest) error {
	existing, err := s.logRepository.FindById(ctx, req.LogId)
	if err != nil {
		return fmt.Errorf("failed to load interaction log: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("interaction log %s not found", req.LogId)
	}

	if err := s.logRepository.UpdateRating(ctx, req.LogId, req.Rating); err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	if s.eventPublisher != nil {
		evt := events.NewTurnRatedEvent(req.LogId.String(), req.Rating)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish turn rated event: %v", err)
		}
	}

	return nil
}

func (s *logService) Get(ctx context.Context, id uuid.UUID) (*dto.GetLogResponse, error) {
	logEntry, err := s.logRepository.FindById(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction log: %w", err)
	}
	if logEntry == nil {
		return nil, nil
	}

	return &dto.GetLogResponse{
		Id:             logEntry.Id,
		SessionId:      logEntry.SessionId,
		AppVersion:     logEntry.AppVersion,
		DataSelected:   logEntry.DataSelected,
		DataAttributes: logEntry.DataAttributes,
		ClientQuery:    logEntry.ClientQuery,
		AppResponse:    logEntry.AppResponse,
		Rating:         logEntry.ClientResponseRating,
		CreatedAt:      logEntry.CreatedAt,
	}, nil
}
