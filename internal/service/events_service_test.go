package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"civic-chat-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

type stubEventRepository struct {
	events        []*entity.WeeklyEvent
	err           error
	lastDaysAhead int
	lastLimit     int
}

func (s *stubEventRepository) FindUpcoming(ctx context.Context, daysAhead, limit int) ([]*entity.WeeklyEvent, error) {
	s.lastDaysAhead = daysAhead
	s.lastLimit = limit
	return s.events, s.err
}

func TestGetUpcomingClampsParameters(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		daysAhead     int
		wantLimit     int
		wantDaysAhead int
	}{
		{"defaults on zero", 0, 0, 10, 7},
		{"defaults on negative", -5, -1, 10, 7},
		{"in range passes through", 25, 14, 25, 14},
		{"caps at maximums", 500, 90, 100, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubEventRepository{}
			svc := NewEventsService(repo)

			res, err := svc.GetUpcoming(context.Background(), tt.limit, tt.daysAhead)

			assert.NoError(t, err)
			assert.Equal(t, tt.wantLimit, repo.lastLimit)
			assert.Equal(t, tt.wantDaysAhead, repo.lastDaysAhead)
			assert.Equal(t, tt.wantDaysAhead, res.DaysAhead)
		})
	}
}

func TestGetUpcomingMapsEvents(t *testing.T) {
	start := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	startTime := "10:00 AM"
	repo := &stubEventRepository{events: []*entity.WeeklyEvent{
		{
			Id:        7,
			EventName: "Park Cleanup",
			EventDate: "Saturday, June 14",
			StartDate: &start,
			StartTime: &startTime,
			SourcePdf: "weekly_2025_06_09.pdf",
		},
	}}
	svc := NewEventsService(repo)

	res, err := svc.GetUpcoming(context.Background(), 10, 7)

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	evt := res.Events[0]
	assert.Equal(t, "Park Cleanup", evt.EventName)
	assert.Equal(t, "2025-06-14", evt.StartDate)
	assert.Equal(t, "10:00 AM", evt.StartTime)
	assert.Empty(t, evt.EndDate, "nil dates render as empty strings")
}

func TestGetUpcomingEmptyResult(t *testing.T) {
	svc := NewEventsService(&stubEventRepository{})

	res, err := svc.GetUpcoming(context.Background(), 0, 0)

	assert.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.NotNil(t, res.Events, "events serialize as [], not null")
}

func TestGetUpcomingRepositoryError(t *testing.T) {
	svc := NewEventsService(&stubEventRepository{err: errors.New("connection refused")})

	_, err := svc.GetUpcoming(context.Background(), 0, 0)

	assert.Error(t, err)
}
