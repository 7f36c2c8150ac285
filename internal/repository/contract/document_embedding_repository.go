package contract

import (
	"context"

	"civic-chat-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredDocumentEmbedding wraps a chunk with its cosine distance to the
// query vector (0.0 = identical, 2.0 = opposite).
type ScoredDocumentEmbedding struct {
	Embedding *entity.DocumentEmbedding
	Distance  float64
}

type DocumentEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.DocumentEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.DocumentEmbedding) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySource(ctx context.Context, source string) error
	Count(ctx context.Context) (int64, error)
	// SearchSimilarWithScore returns the k nearest chunks ordered by
	// cosine distance, closest first.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*ScoredDocumentEmbedding, error)
}
