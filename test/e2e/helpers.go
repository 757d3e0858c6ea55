//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowledgerelay/relay/internal/api/handlers"
	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/llm"
	"github.com/knowledgerelay/relay/internal/repository"
	"github.com/knowledgerelay/relay/internal/server"
	"github.com/knowledgerelay/relay/internal/service"
	"github.com/knowledgerelay/relay/internal/storage"
	"github.com/knowledgerelay/relay/internal/testutil"
)

// scriptedGenerator is a deterministic language model stand-in. Questions
// and answers are canned so end-to-end runs need no network provider.
type scriptedGenerator struct {
	followUp string
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	if g.followUp == "" {
		return "", domain.ErrProviderUnavailable
	}
	return g.followUp, nil
}

func (g *scriptedGenerator) GenerateChat(ctx context.Context, system string, history []domain.ChatMessage, user string) (string, error) {
	return user, nil
}

func (g *scriptedGenerator) GenerateStructured(ctx context.Context, system string, history []domain.ChatMessage, user string, out any) error {
	// The output schemas are private to the services; fill whichever one was
	// passed through a JSON blob carrying both shapes. Unknown keys are ignored.
	raw := `{"questions":["What does this section mean in practice?"],` +
		`"answer":"The knowledge base says: see sources.","sources":[]}`
	return json.Unmarshal([]byte(raw), out)
}

// TestEnv wires the full service graph against real Postgres and a local
// blob store, exposed through an httptest server.
type TestEnv struct {
	T         *testing.T
	Ctx       context.Context
	Pool      *pgxpool.Pool
	PostgresC *testutil.PostgresContainer
	Server    *httptest.Server
	Client    *http.Client
}

func SetupTestEnv(t *testing.T) *TestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	projectRepo := repository.NewProjectRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	entryRepo := repository.NewTextEntryRepository(pool)
	vectorRepo := repository.NewVectorRepository(pool)

	index := service.NewIndexManager(llm.NewHashEmbedder(1536), vectorRepo)
	gen := &scriptedGenerator{followUp: ""}

	projectSvc := service.NewProjectService(projectRepo, index)
	ingestionSvc := service.NewIngestionService(projectRepo, docRepo, entryRepo, blobs, index, gen)
	sessionSvc := service.NewSessionService(projectRepo, docRepo, sessionRepo, entryRepo, index, gen)
	retrievalSvc := service.NewRetrievalService(projectRepo, index, gen)

	router := server.NewRouter(server.RouterConfig{
		ProjectHandler:  handlers.NewProjectHandler(projectSvc),
		TransferHandler: handlers.NewTransferHandler(ingestionSvc, sessionSvc),
		QueryHandler:    handlers.NewQueryHandler(retrievalSvc),
	})

	srv := httptest.NewServer(router)

	env := &TestEnv{
		T:         t,
		Ctx:       ctx,
		Pool:      pool,
		PostgresC: pgC,
		Server:    srv,
		Client:    srv.Client(),
	}
	t.Cleanup(func() {
		srv.Close()
		pool.Close()
		_ = pgC.Terminate(ctx)
	})
	return env
}

// apiResponse mirrors the server's response envelope.
type apiResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// PostJSON posts a JSON body and decodes the data envelope into out.
func (env *TestEnv) PostJSON(path string, body interface{}, out interface{}) (int, string) {
	payload, err := json.Marshal(body)
	if err != nil {
		env.T.Fatalf("failed to marshal request: %v", err)
	}
	resp, err := env.Client.Post(env.Server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		env.T.Fatalf("POST %s failed: %v", path, err)
	}
	return env.decode(resp, out)
}

// GetJSON performs a GET and decodes the data envelope into out.
func (env *TestEnv) GetJSON(path string, out interface{}) (int, string) {
	resp, err := env.Client.Get(env.Server.URL + path)
	if err != nil {
		env.T.Fatalf("GET %s failed: %v", path, err)
	}
	return env.decode(resp, out)
}

// Delete performs a DELETE.
func (env *TestEnv) Delete(path string) int {
	req, err := http.NewRequest(http.MethodDelete, env.Server.URL+path, nil)
	if err != nil {
		env.T.Fatalf("failed to create request: %v", err)
	}
	resp, err := env.Client.Do(req)
	if err != nil {
		env.T.Fatalf("DELETE %s failed: %v", path, err)
	}
	status, _ := env.decode(resp, nil)
	return status
}

// UploadFile posts a multipart document upload.
func (env *TestEnv) UploadFile(path, projectID, fileName string, content []byte, out interface{}) (int, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("project_id", projectID); err != nil {
		env.T.Fatalf("failed to build form: %v", err)
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		env.T.Fatalf("failed to build form: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		env.T.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		env.T.Fatalf("failed to finalize form: %v", err)
	}

	resp, err := env.Client.Post(env.Server.URL+path, mw.FormDataContentType(), &buf)
	if err != nil {
		env.T.Fatalf("POST %s failed: %v", path, err)
	}
	return env.decode(resp, out)
}

func (env *TestEnv) decode(resp *http.Response, out interface{}) (int, string) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		env.T.Fatalf("failed to read response: %v", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		env.T.Fatalf("non-JSON response (%d): %s", resp.StatusCode, string(body))
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			env.T.Fatalf("failed to decode data: %v\n%s", err, string(envelope.Data))
		}
	}
	return resp.StatusCode, envelope.Error
}

// RequireStatus fails the test when the status does not match.
func (env *TestEnv) RequireStatus(want, got int, apiErr string) {
	env.T.Helper()
	if want != got {
		env.T.Fatalf("expected status %d, got %d (error: %s)", want, got, apiErr)
	}
}
