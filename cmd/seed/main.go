package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"civic-chat-be/internal/config"
	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/repository/implementation"
	"civic-chat-be/pkg/database"
	"civic-chat-be/pkg/embedding"
	"civic-chat-be/pkg/embedding/jina"
	"civic-chat-be/pkg/utils"

	"github.com/google/uuid"
)

// Seeds the document index from a directory of plain-text civic documents
// (survey exports, meeting minutes, planning reports). Re-running replaces
// each file's chunks, keyed by source filename.
func main() {
	dir := flag.String("dir", "data/documents", "directory of .txt/.md documents to index")
	docType := flag.String("doc-type", "report", "doc_type recorded for every chunk (survey, minutes, report)")
	chunkSize := flag.Int("chunk-size", 1200, "chunk size in characters")
	overlap := flag.Int("overlap", 200, "chunk overlap in characters")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		provider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	repo := implementation.NewDocumentEmbeddingRepository(db)
	ctx := context.Background()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Error: Failed to read document directory %s: %v", *dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".txt" || ext == ".md" {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		log.Fatalf("Error: No .txt or .md documents found in %s", *dir)
	}

	totalChunks := 0
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			log.Fatalf("Error: Failed to read %s: %v", name, err)
		}

		text := strings.TrimSpace(string(raw))
		if text == "" {
			log.Printf("[WARN] Skipping empty document: %s", name)
			continue
		}

		chunks := utils.SplitText(text, *chunkSize, *overlap)
		log.Printf("Indexing %s (%d chunks)...", name, len(chunks))

		embeddings := make([]*entity.DocumentEmbedding, 0, len(chunks))
		for i, chunk := range chunks {
			resp, err := provider.Generate(chunk, "RETRIEVAL_DOCUMENT")
			if err != nil {
				log.Fatalf("Error: Embedding failed for %s chunk %d: %v", name, i, err)
			}
			embeddings = append(embeddings, &entity.DocumentEmbedding{
				Id:             uuid.New(),
				Document:       chunk,
				EmbeddingValue: resp.Embedding.Values,
				Source:         name,
				DocType:        *docType,
				ChunkIndex:     i,
				CreatedAt:      time.Now(),
			})
		}

		if err := repo.DeleteBySource(ctx, name); err != nil {
			log.Fatalf("Error: Failed to clear previous chunks for %s: %v", name, err)
		}
		if err := repo.CreateBulk(ctx, embeddings); err != nil {
			log.Fatalf("Error: Failed to store chunks for %s: %v", name, err)
		}
		totalChunks += len(embeddings)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("Error: Failed to count index: %v", err)
	}
	log.Printf("✅ Seeded %d chunks from %d documents (index now holds %d chunks)", totalChunks, len(files), count)
}
