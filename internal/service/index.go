package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/knowledgerelay/relay/internal/domain"
)

// Embedder defines the interface for turning text into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore defines the repository interface for vector persistence
type VectorStore interface {
	Upsert(ctx context.Context, collection string, records []VectorRecord) error
	Search(ctx context.Context, collection string, query []float32, limit int) ([]VectorHit, error)
	DeleteByIDs(ctx context.Context, collection string, ids []string) error
	DeleteCollection(ctx context.Context, collection string) error
}

// VectorRecord is one embedded document ready for indexing
type VectorRecord struct {
	ID        string
	Content   string
	Metadata  domain.VectorMetadata
	Embedding []float32
}

// VectorHit is one retrieval result with its similarity score in [0, 1]
type VectorHit struct {
	ID       string
	Content  string
	Metadata domain.VectorMetadata
	Score    float64
}

// IndexManager coordinates embedding generation and vector persistence for
// per-project collections
type IndexManager struct {
	embedder Embedder
	store    VectorStore
}

// NewIndexManager creates a new IndexManager instance
func NewIndexManager(embedder Embedder, store VectorStore) *IndexManager {
	return &IndexManager{embedder: embedder, store: store}
}

// AddDocuments embeds the given texts and upserts them into the project's
// collection. IDs, texts, and metadata must align one to one; mismatched
// batches are rejected before any embedding call is made. Re-adding an
// existing id replaces the stored record.
func (m *IndexManager) AddDocuments(ctx context.Context, projectID string, ids []string, texts []string, metadata []domain.VectorMetadata) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(texts) || len(ids) != len(metadata) {
		return fmt.Errorf("ids=%d texts=%d metadata=%d: %w",
			len(ids), len(texts), len(metadata), domain.ErrMisalignedBatch)
	}

	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = normalizeForEmbedding(text)
	}

	embeddings, err := m.embedder.Embed(ctx, cleaned)
	if err != nil {
		return fmt.Errorf("embed %d texts: %w", len(cleaned), err)
	}
	if len(embeddings) != len(ids) {
		return fmt.Errorf("embedder returned %d vectors for %d texts: %w",
			len(embeddings), len(ids), domain.ErrEmbeddingFailed)
	}

	records := make([]VectorRecord, len(ids))
	for i := range ids {
		records[i] = VectorRecord{
			ID:        ids[i],
			Content:   texts[i],
			Metadata:  metadata[i],
			Embedding: embeddings[i],
		}
	}

	return m.store.Upsert(ctx, domain.CollectionName(projectID), records)
}

// QueryDocuments embeds the query and returns the closest matches in the
// project's collection, best first. Retrieval failures degrade to an empty
// result so answer generation can still respond.
func (m *IndexManager) QueryDocuments(ctx context.Context, projectID string, query string, limit int) []VectorHit {
	if limit <= 0 {
		limit = 5
	}

	embeddings, err := m.embedder.Embed(ctx, []string{normalizeForEmbedding(query)})
	if err != nil || len(embeddings) == 0 {
		log.Printf("level=warn msg=\"query embedding failed\" project_id=%s error=%v", projectID, err)
		return nil
	}

	hits, err := m.store.Search(ctx, domain.CollectionName(projectID), embeddings[0], limit)
	if err != nil {
		log.Printf("level=warn msg=\"vector search failed\" project_id=%s error=%v", projectID, err)
		return nil
	}
	return hits
}

// RemoveDocuments deletes the given vector ids from the project's collection
func (m *IndexManager) RemoveDocuments(ctx context.Context, projectID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return m.store.DeleteByIDs(ctx, domain.CollectionName(projectID), ids)
}

// DropCollection removes every vector stored for the project
func (m *IndexManager) DropCollection(ctx context.Context, projectID string) error {
	return m.store.DeleteCollection(ctx, domain.CollectionName(projectID))
}

// normalizeForEmbedding NFC-normalizes the text and collapses control and
// non-ASCII runes to whitespace so near-identical text embeds identically
func normalizeForEmbedding(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return ' '
		}
		return r
	}, norm.NFC.String(text))
	return strings.Join(strings.Fields(mapped), " ")
}
