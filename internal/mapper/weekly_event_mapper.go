package mapper

import (
	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/model"
)

type WeeklyEventMapper struct{}

func NewWeeklyEventMapper() *WeeklyEventMapper {
	return &WeeklyEventMapper{}
}

func (m *WeeklyEventMapper) ToEntity(e *model.WeeklyEvent) *entity.WeeklyEvent {
	if e == nil {
		return nil
	}
	return &entity.WeeklyEvent{
		Id:        e.Id,
		EventName: e.EventName,
		EventDate: e.EventDate,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		RawText:   e.RawText,
		SourcePdf: e.SourcePdf,
	}
}

func (m *WeeklyEventMapper) ToEntities(events []*model.WeeklyEvent) []*entity.WeeklyEvent {
	entities := make([]*entity.WeeklyEvent, len(events))
	for i, e := range events {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
