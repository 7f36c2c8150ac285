package service

import (
	"context"
	"log"
	"time"

	"civic-chat-be/internal/dto"

	"gorm.io/gorm"
)

type IHealthService interface {
	Check(ctx context.Context) *dto.HealthResponse
}

type healthService struct {
	db         *gorm.DB
	appVersion string
}

func NewHealthService(db *gorm.DB, appVersion string) IHealthService {
	return &healthService{db: db, appVersion: appVersion}
}

// Check reports degraded rather than failing when the database is down,
// so load balancers still get a parseable body.
func (s *healthService) Check(ctx context.Context) *dto.HealthResponse {
	resp := &dto.HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Version:  s.appVersion,
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		log.Printf("[HEALTH] Failed to access database handle: %v", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
		return resp
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		log.Printf("[HEALTH] Database ping failed: %v", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
	}

	return resp
}
