package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/telemetry"
)

// NoKnowledgeAnswer is returned verbatim when retrieval finds nothing; the
// generation model is never invoked on empty context.
const NoKnowledgeAnswer = "I don't have any relevant information about that in this project's knowledge base yet. Try ingesting more documents or answering more interview questions."

// AnswerGenerator defines the LLM interface the answer engine needs
type AnswerGenerator interface {
	GenerateChat(ctx context.Context, system string, history []domain.ChatMessage, user string) (string, error)
	GenerateStructured(ctx context.Context, system string, history []domain.ChatMessage, user string, out any) error
}

// AnswerResult is a generated answer with the sources the model cited
type AnswerResult struct {
	Answer  string
	Sources []domain.Source
}

// RetrievedChunk is one raw retrieval hit exposed upward
type RetrievedChunk struct {
	Content    string
	Score      float64
	FileName   string
	Question   string
	DocumentID string
	PageNumber int
}

// RetrievalService answers free-form queries against a project's knowledge:
// contextualize the query against chat history, retrieve the closest
// knowledge units, then generate a schema-constrained answer with cited
// sources.
type RetrievalService struct {
	projectRepo IngestionProjectRepository
	index       *IndexManager
	llm         AnswerGenerator
	topN        int
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(projectRepo IngestionProjectRepository, index *IndexManager, llm AnswerGenerator) *RetrievalService {
	return &RetrievalService{
		projectRepo: projectRepo,
		index:       index,
		llm:         llm,
		topN:        5,
	}
}

const contextualizeSystemPrompt = "Given a chat history and the latest user question which might " +
	"reference context in the chat history, formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, just reformulate it if needed and " +
	"otherwise return it as is."

const answerSystemPrompt = "You are an AI assistant for project knowledge transfer. Use only the " +
	"retrieved context below to answer the question. If the context does not contain the answer, " +
	"say that you don't know. Format the answer in Markdown. Cite the sources you actually used; " +
	"use the source labels given in the context."

type structuredSource struct {
	FileName   string `json:"file_name"`
	Context    string `json:"context,omitempty"`
	Question   string `json:"question,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

type structuredAnswer struct {
	Answer  string             `json:"answer"`
	Sources []structuredSource `json:"sources"`
}

// Answer resolves a query against the project's knowledge base.
func (s *RetrievalService) Answer(ctx context.Context, projectID, query string, history []domain.ChatMessage) (*AnswerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.answer", telemetry.SpanAttributes{ProjectID: projectID})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrMissingQuery
	}
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	standalone := s.contextualize(ctx, query, history)

	hits := s.index.QueryDocuments(ctx, projectID, standalone, s.topN)
	if len(hits) == 0 {
		return &AnswerResult{Answer: NoKnowledgeAnswer, Sources: []domain.Source{}}, nil
	}

	user := fmt.Sprintf("Retrieved context:\n%s\nQuestion: %s", renderContext(hits), query)

	var out structuredAnswer
	if err := s.llm.GenerateStructured(ctx, answerSystemPrompt, history, user, &out); err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(out.Sources))
	for _, src := range out.Sources {
		sources = append(sources, domain.Source{
			FileName:   src.FileName,
			Question:   src.Question,
			Context:    src.Context,
			DocumentID: src.DocumentID,
			PageNumber: src.PageNumber,
		})
	}
	return &AnswerResult{Answer: out.Answer, Sources: sources}, nil
}

// RetrieveChunks exposes raw retrieval without generation.
func (s *RetrievalService) RetrieveChunks(ctx context.Context, projectID, query string, limit int) ([]RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrMissingQuery
	}
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.topN
	}

	hits := s.index.QueryDocuments(ctx, projectID, query, limit)
	chunks := make([]RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, RetrievedChunk{
			Content:    hit.Content,
			Score:      hit.Score,
			FileName:   sourceLabel(hit.Metadata),
			Question:   hit.Metadata.Question,
			DocumentID: hit.Metadata.DocumentID,
			PageNumber: hit.Metadata.PageNumber,
		})
	}
	return chunks, nil
}

// contextualize rewrites the query into standalone form using the chat
// history. A rewrite failure falls back to the raw query rather than
// failing the whole request.
func (s *RetrievalService) contextualize(ctx context.Context, query string, history []domain.ChatMessage) string {
	if len(history) == 0 {
		return query
	}

	standalone, err := s.llm.GenerateChat(ctx, contextualizeSystemPrompt, history, query)
	if err != nil || strings.TrimSpace(standalone) == "" {
		log.Printf("level=warn msg=\"query contextualization failed, using raw query\" error=%v", err)
		return query
	}
	return standalone
}

func renderContext(hits []VectorHit) string {
	var sb strings.Builder
	for _, hit := range hits {
		label := sourceLabel(hit.Metadata)
		if hit.Metadata.PageNumber > 0 {
			fmt.Fprintf(&sb, "[source: %s, page %d]\n", label, hit.Metadata.PageNumber)
		} else {
			fmt.Fprintf(&sb, "[source: %s]\n", label)
		}
		sb.WriteString(hit.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// sourceLabel names where a knowledge unit came from. Q&A units have no
// file, so they carry the sentinel label instead.
func sourceLabel(meta domain.VectorMetadata) string {
	if meta.FileName != "" {
		return meta.FileName
	}
	return domain.StaticQASourceName
}
