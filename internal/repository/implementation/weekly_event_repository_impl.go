package implementation

import (
	"context"

	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/mapper"
	"civic-chat-be/internal/model"
	"civic-chat-be/internal/repository/contract"

	"gorm.io/gorm"
)

type WeeklyEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WeeklyEventMapper
}

func NewWeeklyEventRepository(db *gorm.DB) contract.WeeklyEventRepository {
	return &WeeklyEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewWeeklyEventMapper(),
	}
}

func (r *WeeklyEventRepositoryImpl) FindUpcoming(ctx context.Context, daysAhead int, limit int) ([]*entity.WeeklyEvent, error) {
	var models []*model.WeeklyEvent

	err := r.db.WithContext(ctx).
		Where("start_date >= CURRENT_DATE").
		Where("start_date <= CURRENT_DATE + ?", daysAhead).
		Order("start_date ASC, start_time ASC").
		Limit(limit).
		Find(&models).Error

	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
