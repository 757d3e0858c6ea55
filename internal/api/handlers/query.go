package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/knowledgerelay/relay/internal/api"
	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/service"
)

// QueryAPI defines the service interface for answering queries
type QueryAPI interface {
	Answer(ctx context.Context, projectID, query string, history []domain.ChatMessage) (*service.AnswerResult, error)
	RetrieveChunks(ctx context.Context, projectID, query string, limit int) ([]service.RetrievedChunk, error)
}

type QueryHandler struct {
	svc QueryAPI
}

func NewQueryHandler(svc QueryAPI) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type ChatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type QueryRequest struct {
	ProjectID   string               `json:"project_id"`
	Query       string               `json:"query"`
	ChatHistory []ChatMessageRequest `json:"chat_history,omitempty"`
	Limit       int                  `json:"limit,omitempty"`
}

type SourceResponse struct {
	FileName   string `json:"file_name"`
	Question   string `json:"question,omitempty"`
	Context    string `json:"context,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

type AnswerResponse struct {
	ProjectID string           `json:"project_id"`
	Answer    string           `json:"answer"`
	Sources   []SourceResponse `json:"sources"`
}

type ChunkResponse struct {
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	FileName   string  `json:"file_name"`
	Question   string  `json:"question,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	PageNumber int     `json:"page_number,omitempty"`
}

type ChunksResponse struct {
	ProjectID string          `json:"project_id"`
	Chunks    []ChunkResponse `json:"chunks"`
}

func decodeHistory(history []ChatMessageRequest) []domain.ChatMessage {
	if len(history) == 0 {
		return nil
	}
	messages := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		role := domain.ChatRoleHuman
		if m.Role == string(domain.ChatRoleAI) {
			role = domain.ChatRoleAI
		}
		messages = append(messages, domain.ChatMessage{Role: role, Content: m.Content})
	}
	return messages
}

func (h *QueryHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" {
		api.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	result, err := h.svc.Answer(r.Context(), req.ProjectID, req.Query, decodeHistory(req.ChatHistory))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := AnswerResponse{
		ProjectID: req.ProjectID,
		Answer:    result.Answer,
		Sources:   make([]SourceResponse, 0, len(result.Sources)),
	}
	for _, src := range result.Sources {
		resp.Sources = append(resp.Sources, SourceResponse{
			FileName:   src.FileName,
			Question:   src.Question,
			Context:    src.Context,
			DocumentID: src.DocumentID,
			PageNumber: src.PageNumber,
		})
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *QueryHandler) RetrieveChunks(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" {
		api.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	chunks, err := h.svc.RetrieveChunks(r.Context(), req.ProjectID, req.Query, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ChunksResponse{ProjectID: req.ProjectID, Chunks: make([]ChunkResponse, 0, len(chunks))}
	for _, chunk := range chunks {
		resp.Chunks = append(resp.Chunks, ChunkResponse{
			Content:    chunk.Content,
			Score:      chunk.Score,
			FileName:   chunk.FileName,
			Question:   chunk.Question,
			DocumentID: chunk.DocumentID,
			PageNumber: chunk.PageNumber,
		})
	}
	api.Success(w, http.StatusOK, resp)
}
