package mapper

import (
	"time"

	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/model"
)

type InteractionLogMapper struct{}

func NewInteractionLogMapper() *InteractionLogMapper {
	return &InteractionLogMapper{}
}

func (m *InteractionLogMapper) ToEntity(e *model.InteractionLog) *entity.InteractionLog {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.InteractionLog{
		Id:                   e.Id,
		SessionId:            e.SessionId,
		AppVersion:           e.AppVersion,
		DataSelected:         e.DataSelected,
		DataAttributes:       e.DataAttributes,
		PromptPreamble:       e.PromptPreamble,
		ClientQuery:          e.ClientQuery,
		AppResponse:          e.AppResponse,
		ClientResponseRating: e.ClientResponseRating,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            updatedAt,
	}
}

func (m *InteractionLogMapper) ToModel(e *entity.InteractionLog) *model.InteractionLog {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.InteractionLog{
		Id:                   e.Id,
		SessionId:            e.SessionId,
		AppVersion:           e.AppVersion,
		DataSelected:         e.DataSelected,
		DataAttributes:       e.DataAttributes,
		PromptPreamble:       e.PromptPreamble,
		ClientQuery:          e.ClientQuery,
		AppResponse:          e.AppResponse,
		ClientResponseRating: e.ClientResponseRating,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            updatedAt,
	}
}
