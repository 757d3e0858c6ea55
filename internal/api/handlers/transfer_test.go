package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/service"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) IngestStaticQA(ctx context.Context, projectID string, pairs []service.QAPair) (*service.StaticQAResult, error) {
	args := m.Called(ctx, projectID, pairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StaticQAResult), args.Error(1)
}

func (m *MockIngestionService) IngestDocument(ctx context.Context, projectID, fileName string, data []byte) (*service.DocumentIngestResult, error) {
	args := m.Called(ctx, projectID, fileName, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentIngestResult), args.Error(1)
}

func (m *MockIngestionService) GenerateDocumentQuestions(ctx context.Context, projectID, documentID string, perChunk, maxTotal int) (*service.QuestionGenResult, error) {
	args := m.Called(ctx, projectID, documentID, perChunk, maxTotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QuestionGenResult), args.Error(1)
}

func (m *MockIngestionService) ReindexEntry(ctx context.Context, entryID string) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

type MockInterviewService struct {
	mock.Mock
}

func (m *MockInterviewService) StartProjectInterview(ctx context.Context, projectID string) (*service.InterviewState, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InterviewState), args.Error(1)
}

func (m *MockInterviewService) RespondProjectInterview(ctx context.Context, sessionID, projectID, answer string) (*service.InterviewState, error) {
	args := m.Called(ctx, sessionID, projectID, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InterviewState), args.Error(1)
}

func (m *MockInterviewService) NextDocumentQuestion(ctx context.Context, projectID, documentID string) (*service.DocumentQuestion, error) {
	args := m.Called(ctx, projectID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentQuestion), args.Error(1)
}

func (m *MockInterviewService) AnswerDocumentQuestion(ctx context.Context, projectID, documentID, entryID, answer string) (*service.DocumentQuestion, error) {
	args := m.Called(ctx, projectID, documentID, entryID, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentQuestion), args.Error(1)
}

func newTransferRouter(ingestion *MockIngestionService, interview *MockInterviewService) http.Handler {
	h := NewTransferHandler(ingestion, interview)
	r := chi.NewRouter()
	r.Post("/transfer/static-qa", h.IngestStaticQA)
	r.Post("/transfer/documents", h.UploadDocument)
	r.Post("/transfer/documents/{id}/questions", h.GenerateQuestions)
	r.Get("/transfer/documents/{id}/next-question", h.NextDocumentQuestion)
	r.Post("/transfer/documents/{id}/answer", h.AnswerDocumentQuestion)
	r.Post("/transfer/interview", h.StartInterview)
	r.Post("/transfer/interview/respond", h.RespondInterview)
	r.Post("/admin/reindex/{entryID}", h.ReindexEntry)
	return r
}

func TestIngestStaticQA_Success(t *testing.T) {
	ingestion := new(MockIngestionService)
	interview := new(MockInterviewService)
	router := newTransferRouter(ingestion, interview)

	pairs := []service.QAPair{{Question: "What DB?", Answer: "Postgres"}}
	ingestion.On("IngestStaticQA", mock.Anything, "p1", pairs).
		Return(&service.StaticQAResult{Ingested: 1}, nil)

	body, _ := json.Marshal(StaticQARequest{ProjectID: "p1", QAPairs: pairs})
	req := httptest.NewRequest(http.MethodPost, "/transfer/static-qa", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	ingestion.AssertExpectations(t)
}

func TestIngestStaticQA_MissingProjectID(t *testing.T) {
	ingestion := new(MockIngestionService)
	router := newTransferRouter(ingestion, new(MockInterviewService))

	body, _ := json.Marshal(StaticQARequest{QAPairs: []service.QAPair{{Question: "q", Answer: "a"}}})
	req := httptest.NewRequest(http.MethodPost, "/transfer/static-qa", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ingestion.AssertNotCalled(t, "IngestStaticQA")
}

func TestUploadDocument_MultipartRoundTrip(t *testing.T) {
	ingestion := new(MockIngestionService)
	router := newTransferRouter(ingestion, new(MockInterviewService))

	ingestion.On("IngestDocument", mock.Anything, "p1", "notes.txt", []byte("some notes")).
		Return(&service.DocumentIngestResult{
			Document: &domain.DocumentEntry{ID: "doc-1", FileName: "notes.txt"},
			Chunks:   1,
		}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project_id", "p1"))
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("some notes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/transfer/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data DocumentUploadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.Data.DocumentID)
	assert.Equal(t, 1, resp.Data.Chunks)
}

func TestUploadDocument_UnsupportedTypeIsBadRequest(t *testing.T) {
	ingestion := new(MockIngestionService)
	router := newTransferRouter(ingestion, new(MockInterviewService))

	ingestion.On("IngestDocument", mock.Anything, "p1", "virus.exe", mock.Anything).
		Return(nil, domain.ErrUnsupportedFileType)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project_id", "p1"))
	part, _ := mw.CreateFormFile("file", "virus.exe")
	part.Write([]byte("junk"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/transfer/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestGenerateQuestions_PassesBounds(t *testing.T) {
	ingestion := new(MockIngestionService)
	router := newTransferRouter(ingestion, new(MockInterviewService))

	ingestion.On("GenerateDocumentQuestions", mock.Anything, "p1", "doc-1", 2, 4).
		Return(&service.QuestionGenResult{Questions: []string{"q1", "q2", "q3", "q4"}}, nil)

	body, _ := json.Marshal(GenerateQuestionsRequest{
		ProjectID: "p1", NumQuestionsPerChunk: 2, MaxTotalQuestions: 4,
	})
	req := httptest.NewRequest(http.MethodPost, "/transfer/documents/doc-1/questions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data GenerateQuestionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.SuggestedQuestions, 4)
}

func TestStartInterview_ReturnsFirstQuestion(t *testing.T) {
	interview := new(MockInterviewService)
	router := newTransferRouter(new(MockIngestionService), interview)

	interview.On("StartProjectInterview", mock.Anything, "p1").
		Return(&service.InterviewState{
			SessionID: "s1", ProjectID: "p1", Question: "What is the primary purpose and mission of this project?",
		}, nil)

	body, _ := json.Marshal(StartInterviewRequest{ProjectID: "p1"})
	req := httptest.NewRequest(http.MethodPost, "/transfer/interview", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data InterviewResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.Data.SessionID)
	assert.False(t, resp.Data.IsComplete)
	assert.Empty(t, resp.Data.EntryID)
}

func TestRespondInterview_CompletedSessionConflict(t *testing.T) {
	interview := new(MockInterviewService)
	router := newTransferRouter(new(MockIngestionService), interview)

	interview.On("RespondProjectInterview", mock.Anything, "s1", "p1", "late answer").
		Return(nil, domain.ErrSessionCompleted)

	body, _ := json.Marshal(RespondInterviewRequest{SessionID: "s1", ProjectID: "p1", Answer: "late answer"})
	req := httptest.NewRequest(http.MethodPost, "/transfer/interview/respond", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNextDocumentQuestion_RequiresProjectID(t *testing.T) {
	interview := new(MockInterviewService)
	router := newTransferRouter(new(MockIngestionService), interview)

	req := httptest.NewRequest(http.MethodGet, "/transfer/documents/doc-1/next-question", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	interview.AssertNotCalled(t, "NextDocumentQuestion")
}

func TestAnswerDocumentQuestion_Conflict(t *testing.T) {
	interview := new(MockInterviewService)
	router := newTransferRouter(new(MockIngestionService), interview)

	interview.On("AnswerDocumentQuestion", mock.Anything, "p1", "doc-1", "e1", "again").
		Return(nil, domain.ErrEntryAnswered)

	body, _ := json.Marshal(AnswerDocumentQuestionRequest{ProjectID: "p1", EntryID: "e1", Answer: "again"})
	req := httptest.NewRequest(http.MethodPost, "/transfer/documents/doc-1/answer", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReindexEntry_NotFound(t *testing.T) {
	ingestion := new(MockIngestionService)
	router := newTransferRouter(ingestion, new(MockInterviewService))

	ingestion.On("ReindexEntry", mock.Anything, "missing").Return(domain.ErrEntryNotFound)

	req := httptest.NewRequest(http.MethodPost, "/admin/reindex/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
