package service

import (
	"context"
	"fmt"

	"civic-chat-be/internal/dto"
	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/repository/contract"
)

const (
	eventsLimitDefault = 10
	eventsLimitMax     = 100
	daysAheadDefault   = 7
	daysAheadMax       = 30
)

type IEventsService interface {
	GetUpcoming(ctx context.Context, limit, daysAhead int) (*dto.GetEventsResponse, error)
}

type eventsService struct {
	eventRepository contract.WeeklyEventRepository
}

func NewEventsService(eventRepository contract.WeeklyEventRepository) IEventsService {
	return &eventsService{eventRepository: eventRepository}
}

// GetUpcoming clamps out-of-range parameters instead of rejecting them.
func (s *eventsService) GetUpcoming(ctx context.Context, limit, daysAhead int) (*dto.GetEventsResponse, error) {
	if limit <= 0 {
		limit = eventsLimitDefault
	}
	if limit > eventsLimitMax {
		limit = eventsLimitMax
	}
	if daysAhead <= 0 {
		daysAhead = daysAheadDefault
	}
	if daysAhead > daysAheadMax {
		daysAhead = daysAheadMax
	}

	upcoming, err := s.eventRepository.FindUpcoming(ctx, daysAhead, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming events: %w", err)
	}

	eventDTOs := make([]dto.CommunityEventDTO, 0, len(upcoming))
	for _, evt := range upcoming {
		eventDTOs = append(eventDTOs, toCommunityEventDTO(evt))
	}

	return &dto.GetEventsResponse{
		Events:    eventDTOs,
		Count:     len(eventDTOs),
		DaysAhead: daysAhead,
	}, nil
}

func toCommunityEventDTO(evt *entity.WeeklyEvent) dto.CommunityEventDTO {
	out := dto.CommunityEventDTO{
		Id:        evt.Id,
		EventName: evt.EventName,
		EventDate: evt.EventDate,
		SourcePdf: evt.SourcePdf,
	}
	if evt.StartDate != nil {
		out.StartDate = evt.StartDate.Format("2006-01-02")
	}
	if evt.EndDate != nil {
		out.EndDate = evt.EndDate.Format("2006-01-02")
	}
	if evt.StartTime != nil {
		out.StartTime = *evt.StartTime
	}
	if evt.EndTime != nil {
		out.EndTime = *evt.EndTime
	}
	return out
}
