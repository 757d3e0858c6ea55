package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/telemetry"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestionProjectRepository defines the repository interface for project lookups
type IngestionProjectRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
}

// IngestionDocumentRepository defines the repository interface for document persistence
type IngestionDocumentRepository interface {
	Create(ctx context.Context, d *domain.DocumentEntry) error
	GetByID(ctx context.Context, id string) (*domain.DocumentEntry, error)
}

// IngestionEntryRepository defines the repository interface for text entry persistence
type IngestionEntryRepository interface {
	Create(ctx context.Context, e *domain.TextEntry) error
	GetByID(ctx context.Context, id string) (*domain.TextEntry, error)
}

// BlobStore defines the interface for uploaded file persistence
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// StructuredGenerator defines the LLM interface for schema-constrained output
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, system string, history []domain.ChatMessage, user string, out any) error
}

// QAPair is one supplied question/answer pair for static ingestion
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// StaticQAResult reports what a static Q&A batch actually ingested
type StaticQAResult struct {
	Ingested int
	Skipped  int
	Warnings []string
}

// DocumentIngestResult reports the outcome of one document upload
type DocumentIngestResult struct {
	Document *domain.DocumentEntry
	Chunks   int
	Warnings []string
}

// QuestionGenResult reports generated pending questions for a document
type QuestionGenResult struct {
	Questions []string
	Warnings  []string
}

// IngestionService handles knowledge intake: static Q&A batches, document
// uploads, and question generation from uploaded documents
type IngestionService struct {
	projectRepo IngestionProjectRepository
	docRepo     IngestionDocumentRepository
	entryRepo   IngestionEntryRepository
	blobs       BlobStore
	index       *IndexManager
	llm         StructuredGenerator
	uuidGen     UUIDGenerator
	chunkCfg    ChunkConfig
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	projectRepo IngestionProjectRepository,
	docRepo IngestionDocumentRepository,
	entryRepo IngestionEntryRepository,
	blobs BlobStore,
	index *IndexManager,
	llm StructuredGenerator,
) *IngestionService {
	return &IngestionService{
		projectRepo: projectRepo,
		docRepo:     docRepo,
		entryRepo:   entryRepo,
		blobs:       blobs,
		index:       index,
		llm:         llm,
		uuidGen:     &DefaultUUIDGenerator{},
		chunkCfg:    DefaultChunkConfig(),
	}
}

// WithUUIDGen replaces the id generator (for testing)
func (s *IngestionService) WithUUIDGen(gen UUIDGenerator) *IngestionService {
	s.uuidGen = gen
	return s
}

// IngestStaticQA stores a batch of supplied Q&A pairs and mirrors each into
// the project's vector collection. Pairs missing an answer are skipped and
// reported, not fatal.
func (s *IngestionService) IngestStaticQA(ctx context.Context, projectID string, pairs []QAPair) (*StaticQAResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.static_qa", telemetry.SpanAttributes{ProjectID: projectID})
	defer span.End()

	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	result := &StaticQAResult{}
	var ids []string
	var texts []string
	var metas []domain.VectorMetadata

	for i, pair := range pairs {
		if strings.TrimSpace(pair.Answer) == "" {
			result.Skipped++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("pair %d skipped: missing answer", i))
			log.Printf("level=warn msg=\"skipping Q&A pair without answer\" project_id=%s pair=%d", projectID, i)
			continue
		}

		entry := &domain.TextEntry{
			ID:            s.uuidGen.NewString(),
			ProjectID:     projectID,
			Question:      pair.Question,
			Answer:        pair.Answer,
			SourceContext: pair.Answer,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.entryRepo.Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("store Q&A pair %d: %w", i, err)
		}
		result.Ingested++

		ids = append(ids, entry.VectorID())
		texts = append(texts, pair.Answer)
		metas = append(metas, domain.VectorMetadata{
			Type:          domain.VectorKindStaticQA,
			ProjectID:     projectID,
			Question:      pair.Question,
			Answer:        pair.Answer,
			SourceContext: pair.Answer,
		})
	}

	if err := s.index.AddDocuments(ctx, projectID, ids, texts, metas); err != nil {
		log.Printf("level=warn msg=\"vector indexing failed after relational commit\" project_id=%s error=%v", projectID, err)
		result.Warnings = append(result.Warnings,
			"answers stored but vector indexing failed; run reindex to repair")
	}

	return result, nil
}

// IngestDocument validates, stores, chunks, and indexes one uploaded file.
// The raw file is kept in the blob store so chunking can be re-derived later
// for question generation.
func (s *IngestionService) IngestDocument(ctx context.Context, projectID, fileName string, data []byte) (*DocumentIngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.document", telemetry.SpanAttributes{ProjectID: projectID})
	defer span.End()

	if !SupportedFileType(fileName) {
		return nil, fmt.Errorf("%q: %w", fileName, domain.ErrUnsupportedFileType)
	}
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	pages, err := LoadDocument(fileName, data)
	if err != nil {
		return nil, err
	}

	doc := &domain.DocumentEntry{
		ID:         s.uuidGen.NewString(),
		ProjectID:  projectID,
		FileName:   fileName,
		UploadedAt: time.Now().UTC(),
	}
	doc.StorageKey = fmt.Sprintf("%s/%s/%s", projectID, doc.ID, fileName)

	if err := s.blobs.Put(ctx, doc.StorageKey, data); err != nil {
		return nil, fmt.Errorf("store document %s: %w", fileName, err)
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	chunks := SplitPages(pages, fileName, SplitterFor(fileName), s.chunkCfg)
	result := &DocumentIngestResult{Document: doc, Chunks: len(chunks)}
	if len(chunks) == 0 {
		result.Warnings = append(result.Warnings, "no text extracted from document")
		return result, nil
	}

	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	metas := make([]domain.VectorMetadata, len(chunks))
	for i, chunk := range chunks {
		ids[i] = domain.ChunkVectorID(doc.ID, chunk.Index)
		texts[i] = chunk.Content
		metas[i] = domain.VectorMetadata{
			Type:          domain.VectorKindDocumentChunk,
			ProjectID:     projectID,
			DocumentID:    doc.ID,
			FileName:      fileName,
			SourceContext: chunk.Content,
			PageNumber:    chunk.Page,
		}
	}

	if err := s.index.AddDocuments(ctx, projectID, ids, texts, metas); err != nil {
		log.Printf("level=warn msg=\"vector indexing failed after relational commit\" project_id=%s document_id=%s error=%v",
			projectID, doc.ID, err)
		result.Warnings = append(result.Warnings,
			"document stored but vector indexing failed; run reindex to repair")
	}

	return result, nil
}

type generatedQuestions struct {
	Questions []string `json:"questions"`
}

const questionGenSystemPrompt = "You are a knowledge transfer assistant for software project teams. " +
	"You analyze project documents and identify critical knowledge gaps that only an experienced " +
	"team member would know: architectural decisions and their trade-offs, debugging approaches " +
	"and common issues, deployment and environment gotchas, historical context behind major " +
	"decisions, and client-specific constraints. Do not answer the questions yourself. Make each " +
	"question specific and actionable for knowledge transfer."

// GenerateDocumentQuestions re-chunks the stored document and asks the LLM
// for knowledge-gap questions per chunk, storing each as a pending entry
// awaiting a human answer. perChunk and maxTotal bound the output; zero
// values take defaults.
func (s *IngestionService) GenerateDocumentQuestions(ctx context.Context, projectID, documentID string, perChunk, maxTotal int) (*QuestionGenResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.generate_questions", telemetry.SpanAttributes{
		ProjectID:  projectID,
		DocumentID: documentID,
	})
	defer span.End()

	if perChunk <= 0 {
		perChunk = 2
	}
	if maxTotal <= 0 {
		maxTotal = 10
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ProjectID != projectID {
		return nil, domain.ErrDocumentNotFound
	}

	data, err := s.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch stored document %s: %w", doc.StorageKey, err)
	}
	pages, err := LoadDocument(doc.FileName, data)
	if err != nil {
		return nil, err
	}
	chunks := SplitPages(pages, doc.FileName, SplitterFor(doc.FileName), s.chunkCfg)

	result := &QuestionGenResult{}
	seen := make(map[string]bool)

	for _, chunk := range chunks {
		if len(result.Questions) >= maxTotal {
			break
		}

		var out generatedQuestions
		user := fmt.Sprintf(
			"Project document content:\n%s\n\nGenerate exactly %d critical knowledge transfer questions based on this document. Each question should reveal important context, decisions, or operational knowledge that is not explicitly documented.",
			chunk.Content, perChunk)
		if err := s.llm.GenerateStructured(ctx, questionGenSystemPrompt, nil, user, &out); err != nil {
			log.Printf("level=warn msg=\"question generation failed for chunk\" document_id=%s chunk=%d error=%v",
				documentID, chunk.Index, err)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("generation failed for chunk %d", chunk.Index))
			continue
		}

		accepted := 0
		for _, q := range out.Questions {
			q = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(q), "Q:"))
			if q == "" || seen[q] || accepted >= perChunk || len(result.Questions) >= maxTotal {
				continue
			}
			seen[q] = true

			entry := &domain.TextEntry{
				ID:          s.uuidGen.NewString(),
				ProjectID:   projectID,
				DocumentID:  documentID,
				Question:    q,
				IsInterview: true,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.entryRepo.Create(ctx, entry); err != nil {
				return nil, fmt.Errorf("store generated question: %w", err)
			}
			result.Questions = append(result.Questions, q)
			accepted++
		}
	}

	return result, nil
}

// ReindexEntry re-embeds one answered entry into its project's collection.
// Upsert semantics make this safe to repeat; it exists to repair the case
// where a relational write landed but the vector write did not.
func (s *IngestionService) ReindexEntry(ctx context.Context, entryID string) error {
	entry, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Answer == "" {
		return fmt.Errorf("entry %s has no answer to index: %w", entryID, domain.ErrMissingAnswer)
	}

	kind := domain.VectorKindStaticQA
	if entry.IsInterview {
		kind = domain.VectorKindInterviewQA
	}

	return s.index.AddDocuments(ctx, entry.ProjectID,
		[]string{entry.VectorID()},
		[]string{entry.Answer},
		[]domain.VectorMetadata{{
			Type:          kind,
			ProjectID:     entry.ProjectID,
			DocumentID:    entry.DocumentID,
			Question:      entry.Question,
			Answer:        entry.Answer,
			SourceContext: entry.SourceContext,
		}},
	)
}
