package contract

import (
	"context"

	"civic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type InteractionLogRepository interface {
	Create(ctx context.Context, entry *entity.InteractionLog) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating string) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.InteractionLog, error)
}
