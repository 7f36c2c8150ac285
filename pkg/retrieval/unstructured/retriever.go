package unstructured

import (
	"context"
	"fmt"
	"log"
	"strings"

	"civic-chat-be/internal/repository/contract"
	"civic-chat-be/pkg/embedding"
	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"
)

// FailureKind tags why an unstructured retrieval produced no result.
type FailureKind string

const (
	KindIndexUnavailable FailureKind = "index_unavailable"
	KindEmbeddingFailure FailureKind = "embedding_failure"
)

type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	noRelevantDocuments = "No relevant documents found."
	unknownSource       = "Unknown"
)

type Retriever struct {
	gateway     gateway.Gateway
	provider    embedding.EmbeddingProvider
	index       contract.DocumentEmbeddingRepository
	kDefault    int
	kMax        int
	maxDistance float64
	logger      *log.Logger
}

func NewRetriever(
	gw gateway.Gateway,
	provider embedding.EmbeddingProvider,
	index contract.DocumentEmbeddingRepository,
	kDefault, kMax int,
	maxDistance float64,
	logger *log.Logger,
) *Retriever {
	if kDefault <= 0 {
		kDefault = 5
	}
	if kMax <= 0 {
		kMax = 10
	}
	if maxDistance <= 0 {
		maxDistance = 0.9
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Retriever{
		gateway:     gw,
		provider:    provider,
		index:       index,
		kDefault:    kDefault,
		kMax:        kMax,
		maxDistance: maxDistance,
		logger:      logger,
	}
}

// Retrieve embeds the question, searches the document index, and composes
// the contextual answer fragment. k <= 0 means the configured default;
// anything above the cap is clamped down.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int, recent []router.Turn) (*router.UnstructuredResult, error) {
	if k <= 0 {
		k = r.kDefault
	}
	if k > r.kMax {
		k = r.kMax
	}

	embedded, err := r.provider.Generate(question, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, &Error{Kind: KindEmbeddingFailure, Err: err}
	}

	scored, err := r.index.SearchSimilarWithScore(ctx, embedded.Embedding.Values, k)
	if err != nil {
		return nil, &Error{Kind: KindIndexUnavailable, Err: err}
	}

	chunks := make([]router.Chunk, 0, len(scored))
	for _, s := range scored {
		if s.Distance > r.maxDistance {
			continue
		}
		source := s.Embedding.Source
		if source == "" {
			source = unknownSource
		}
		chunks = append(chunks, router.Chunk{
			Text:     s.Embedding.Document,
			Source:   source,
			DocType:  s.Embedding.DocType,
			Distance: s.Distance,
		})
	}
	r.logger.Printf("[RAG] Retrieved %d chunks (%d within distance %.2f)", len(scored), len(chunks), r.maxDistance)

	out := &router.UnstructuredResult{Chunks: chunks}
	if len(chunks) == 0 {
		out.AnswerFragment = noRelevantDocuments
		return out, nil
	}

	// Gateway failures (including contract violations) pass through
	// untagged so the caller can tell them apart from index trouble.
	fragment, err := r.gateway.DraftRAGAnswer(ctx, question, formatContextBlock(chunks), recent)
	if err != nil {
		return nil, err
	}
	out.AnswerFragment = fragment
	return out, nil
}

// formatContextBlock renders chunks as numbered sources for the model.
func formatContextBlock(chunks []router.Chunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		header := fmt.Sprintf("[Source %d: %s", i+1, chunk.Source)
		if chunk.DocType != "" {
			header += fmt.Sprintf(" (%s)", chunk.DocType)
		}
		header += "]"
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(chunk.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
