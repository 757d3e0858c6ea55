package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knowledgerelay/relay/internal/api"
	"github.com/knowledgerelay/relay/internal/service"
)

// IngestionAPI defines the service interface for knowledge intake
type IngestionAPI interface {
	IngestStaticQA(ctx context.Context, projectID string, pairs []service.QAPair) (*service.StaticQAResult, error)
	IngestDocument(ctx context.Context, projectID, fileName string, data []byte) (*service.DocumentIngestResult, error)
	GenerateDocumentQuestions(ctx context.Context, projectID, documentID string, perChunk, maxTotal int) (*service.QuestionGenResult, error)
	ReindexEntry(ctx context.Context, entryID string) error
}

// InterviewAPI defines the service interface for interactive sessions
type InterviewAPI interface {
	StartProjectInterview(ctx context.Context, projectID string) (*service.InterviewState, error)
	RespondProjectInterview(ctx context.Context, sessionID, projectID, answer string) (*service.InterviewState, error)
	NextDocumentQuestion(ctx context.Context, projectID, documentID string) (*service.DocumentQuestion, error)
	AnswerDocumentQuestion(ctx context.Context, projectID, documentID, entryID, answer string) (*service.DocumentQuestion, error)
}

type TransferHandler struct {
	ingestion IngestionAPI
	interview InterviewAPI
}

func NewTransferHandler(ingestion IngestionAPI, interview InterviewAPI) *TransferHandler {
	return &TransferHandler{ingestion: ingestion, interview: interview}
}

type StaticQARequest struct {
	ProjectID string           `json:"project_id"`
	QAPairs   []service.QAPair `json:"qa_pairs"`
}

type StaticQAResponse struct {
	Ingested int      `json:"ingested"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

func (h *TransferHandler) IngestStaticQA(w http.ResponseWriter, r *http.Request) {
	var req StaticQARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" {
		api.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if len(req.QAPairs) == 0 {
		api.Error(w, http.StatusBadRequest, "qa_pairs is required")
		return
	}

	result, err := h.ingestion.IngestStaticQA(r.Context(), req.ProjectID, req.QAPairs)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, StaticQAResponse{
		Ingested: result.Ingested,
		Skipped:  result.Skipped,
		Warnings: result.Warnings,
	})
}

type DocumentUploadResponse struct {
	DocumentID string   `json:"document_id"`
	FileName   string   `json:"file_name"`
	Chunks     int      `json:"chunks"`
	Warnings   []string `json:"warnings,omitempty"`
}

func (h *TransferHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	projectID := r.FormValue("project_id")
	if projectID == "" {
		api.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	result, err := h.ingestion.IngestDocument(r.Context(), projectID, header.Filename, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, DocumentUploadResponse{
		DocumentID: result.Document.ID,
		FileName:   result.Document.FileName,
		Chunks:     result.Chunks,
		Warnings:   result.Warnings,
	})
}

type GenerateQuestionsRequest struct {
	ProjectID            string `json:"project_id"`
	NumQuestionsPerChunk int    `json:"num_questions_per_chunk,omitempty"`
	MaxTotalQuestions    int    `json:"max_total_questions,omitempty"`
}

type GenerateQuestionsResponse struct {
	DocumentID         string   `json:"document_id"`
	SuggestedQuestions []string `json:"suggested_questions"`
	Warnings           []string `json:"warnings,omitempty"`
}

func (h *TransferHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	var req GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" {
		api.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	result, err := h.ingestion.GenerateDocumentQuestions(r.Context(), req.ProjectID, documentID,
		req.NumQuestionsPerChunk, req.MaxTotalQuestions)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, GenerateQuestionsResponse{
		DocumentID:         documentID,
		SuggestedQuestions: result.Questions,
		Warnings:           result.Warnings,
	})
}

type StartInterviewRequest struct {
	ProjectID string `json:"project_id"`
}

type InterviewResponse struct {
	SessionID  string `json:"session_id"`
	ProjectID  string `json:"project_id"`
	Question   string `json:"question,omitempty"`
	EntryID    string `json:"question_entry_id,omitempty"`
	IsComplete bool   `json:"is_complete"`
	Message    string `json:"message,omitempty"`
}

func toInterviewResponse(state *service.InterviewState) InterviewResponse {
	return InterviewResponse{
		SessionID:  state.SessionID,
		ProjectID:  state.ProjectID,
		Question:   state.Question,
		EntryID:    state.EntryID,
		IsComplete: state.Complete,
		Message:    state.Message,
	}
}

func (h *TransferHandler) StartInterview(w http.ResponseWriter, r *http.Request) {
	var req StartInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" {
		api.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	state, err := h.interview.StartProjectInterview(r.Context(), req.ProjectID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, toInterviewResponse(state))
}

type RespondInterviewRequest struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
	Answer    string `json:"answer"`
}

func (h *TransferHandler) RespondInterview(w http.ResponseWriter, r *http.Request) {
	var req RespondInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.ProjectID == "" {
		api.Error(w, http.StatusBadRequest, "session_id and project_id are required")
		return
	}

	state, err := h.interview.RespondProjectInterview(r.Context(), req.SessionID, req.ProjectID, req.Answer)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, toInterviewResponse(state))
}

type DocumentQuestionResponse struct {
	EntryID     string   `json:"entry_id,omitempty"`
	Question    string   `json:"question,omitempty"`
	Remaining   int      `json:"remaining"`
	NoQuestions bool     `json:"no_questions"`
	Warnings    []string `json:"warnings,omitempty"`
}

func toDocumentQuestionResponse(q *service.DocumentQuestion) DocumentQuestionResponse {
	return DocumentQuestionResponse{
		EntryID:     q.EntryID,
		Question:    q.Question,
		Remaining:   q.Remaining,
		NoQuestions: q.NoQuestions,
		Warnings:    q.Warnings,
	}
}

func (h *TransferHandler) NextDocumentQuestion(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		api.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	next, err := h.interview.NextDocumentQuestion(r.Context(), projectID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, toDocumentQuestionResponse(next))
}

type AnswerDocumentQuestionRequest struct {
	ProjectID string `json:"project_id"`
	EntryID   string `json:"entry_id"`
	Answer    string `json:"answer"`
}

func (h *TransferHandler) AnswerDocumentQuestion(w http.ResponseWriter, r *http.Request) {
	var req AnswerDocumentQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" || req.EntryID == "" {
		api.Error(w, http.StatusBadRequest, "project_id and entry_id are required")
		return
	}

	next, err := h.interview.AnswerDocumentQuestion(r.Context(), req.ProjectID, chi.URLParam(r, "id"),
		req.EntryID, req.Answer)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, toDocumentQuestionResponse(next))
}

func (h *TransferHandler) ReindexEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestion.ReindexEntry(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "reindexed"})
}
