package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knowledgerelay/relay/internal/api"
	"github.com/knowledgerelay/relay/internal/api/handlers"
	"github.com/knowledgerelay/relay/internal/api/middleware"
)

type RouterConfig struct {
	ProjectHandler  *handlers.ProjectHandler
	TransferHandler *handlers.TransferHandler
	QueryHandler    *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Document uploads go through this limit too.
	const maxBodyBytes int64 = 25 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", cfg.ProjectHandler.Create)
		r.Get("/", cfg.ProjectHandler.List)
		r.Get("/{id}", cfg.ProjectHandler.Get)
		r.Delete("/{id}", cfg.ProjectHandler.Delete)
	})

	r.Route("/transfer", func(r chi.Router) {
		r.Post("/static-qa", cfg.TransferHandler.IngestStaticQA)
		r.Post("/documents", cfg.TransferHandler.UploadDocument)
		r.Post("/documents/{id}/questions", cfg.TransferHandler.GenerateQuestions)
		r.Get("/documents/{id}/next-question", cfg.TransferHandler.NextDocumentQuestion)
		r.Post("/documents/{id}/answer", cfg.TransferHandler.AnswerDocumentQuestion)
		r.Post("/interview", cfg.TransferHandler.StartInterview)
		r.Post("/interview/respond", cfg.TransferHandler.RespondInterview)
	})

	r.Post("/query", cfg.QueryHandler.Answer)
	r.Post("/query/chunks", cfg.QueryHandler.RetrieveChunks)

	r.Post("/admin/reindex/{entryID}", cfg.TransferHandler.ReindexEntry)

	return r
}
