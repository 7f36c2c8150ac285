package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/repository/implementation"
	"civic-chat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	ctx := context.Background()

	t.Run("Check Document Embedding Repository", func(t *testing.T) {
		repo := implementation.NewDocumentEmbeddingRepository(gormDB)
		count, err := repo.Count(ctx)
		assert.NoError(t, err)
		t.Logf("DocumentEmbedding count: %d", count)
	})

	t.Run("Check Weekly Event Repository", func(t *testing.T) {
		repo := implementation.NewWeeklyEventRepository(gormDB)
		events, err := repo.FindUpcoming(ctx, 7, 10)
		assert.NoError(t, err)
		t.Logf("Upcoming events in 7 days: %d", len(events))
	})

	t.Run("Check Interaction Log Round Trip", func(t *testing.T) {
		repo := implementation.NewInteractionLogRepository(gormDB)

		logId := uuid.New()
		entry := &entity.InteractionLog{
			Id:          logId,
			SessionId:   "integration-" + uuid.New().String(),
			AppVersion:  "2.0.0",
			ClientQuery: "How many potholes were reported last month?",
			AppResponse: "42 potholes were reported.",
		}

		err := repo.Create(ctx, entry)
		assert.NoError(t, err)

		err = repo.UpdateRating(ctx, logId, "up")
		assert.NoError(t, err)

		found, err := repo.FindById(ctx, logId)
		assert.NoError(t, err)
		if assert.NotNil(t, found) {
			assert.Equal(t, "up", found.ClientResponseRating)
			assert.Equal(t, entry.ClientQuery, found.ClientQuery)
		}
	})
}
