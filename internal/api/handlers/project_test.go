package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/service"
)

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Create(ctx context.Context, name, description string) (*domain.Project, error) {
	args := m.Called(ctx, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) List(ctx context.Context, cursor string, limit int) (*service.ProjectPage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProjectPage), args.Error(1)
}

func (m *MockProjectService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newProjectRouter(svc *MockProjectService) http.Handler {
	h := NewProjectHandler(svc)
	r := chi.NewRouter()
	r.Post("/projects", h.Create)
	r.Get("/projects", h.List)
	r.Get("/projects/{id}", h.Get)
	r.Delete("/projects/{id}", h.Delete)
	return r
}

func TestCreateProject_Success(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc)

	created := &domain.Project{ID: "p1", Name: "billing", CreatedAt: time.Now()}
	svc.On("Create", mock.Anything, "billing", "invoicing system").Return(created, nil)

	body, _ := json.Marshal(CreateProjectRequest{Name: "billing", Description: "invoicing system"})
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data ProjectResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "p1", resp.Data.ID)
	assert.Equal(t, "billing", resp.Data.Name)
}

func TestCreateProject_MissingName(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc)

	body, _ := json.Marshal(CreateProjectRequest{Description: "no name"})
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Create")
}

func TestCreateProject_DuplicateName(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc)

	svc.On("Create", mock.Anything, "billing", "").Return(nil, domain.ErrProjectAlreadyExists)

	body, _ := json.Marshal(CreateProjectRequest{Name: "billing"})
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetProject_NotFound(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc)

	svc.On("Get", mock.Anything, "missing").Return(nil, domain.ErrProjectNotFound)

	req := httptest.NewRequest(http.MethodGet, "/projects/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "project not found")
}

func TestListProjects_PassesCursorAndLimit(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc)

	svc.On("List", mock.Anything, "abc", 10).Return(&service.ProjectPage{
		Items:   []*domain.Project{{ID: "p1", Name: "one"}, {ID: "p2", Name: "two"}},
		Cursor:  "next",
		HasMore: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/projects?cursor=abc&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data ProjectListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Projects, 2)
	assert.Equal(t, "next", resp.Data.NextCursor)
	assert.True(t, resp.Data.HasMore)
}

func TestListProjects_InvalidLimit(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/projects?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List")
}

func TestDeleteProject_Success(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc)

	svc.On("Delete", mock.Anything, "p1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/projects/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
