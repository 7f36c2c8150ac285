package implementation

import (
	"context"
	"errors"

	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/mapper"
	"civic-chat-be/internal/model"
	"civic-chat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InteractionLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InteractionLogMapper
}

func NewInteractionLogRepository(db *gorm.DB) contract.InteractionLogRepository {
	return &InteractionLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewInteractionLogMapper(),
	}
}

func (r *InteractionLogRepositoryImpl) Create(ctx context.Context, entry *entity.InteractionLog) error {
	m := r.mapper.ToModel(entry)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*entry = *r.mapper.ToEntity(m)
	return nil
}

func (r *InteractionLogRepositoryImpl) UpdateRating(ctx context.Context, id uuid.UUID, rating string) error {
	return r.db.WithContext(ctx).
		Model(&model.InteractionLog{}).
		Where("id = ?", id).
		Update("client_response_rating", rating).Error
}

func (r *InteractionLogRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.InteractionLog, error) {
	var m model.InteractionLog
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
