package contract

import (
	"context"

	"civic-chat-be/internal/entity"
)

type WeeklyEventRepository interface {
	// FindUpcoming returns events starting within the next daysAhead days,
	// soonest first.
	FindUpcoming(ctx context.Context, daysAhead int, limit int) ([]*entity.WeeklyEvent, error)
}
