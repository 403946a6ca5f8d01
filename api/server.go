package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/DeafMist/veille/backend/internal/app"
	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type server struct {
	log *slog.Logger
	app *app.App
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type processURLRequest struct {
	URL  string `json:"url"`
	Save bool   `json:"save"`
}

func newRouter(s *server, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)

		r.Route("/sources", func(r chi.Router) {
			r.Post("/", s.handleCreateSource)
			r.Get("/", s.handleListSources)
			r.Get("/{id}", s.handleGetSource)
			r.Put("/{id}", s.handleUpdateSource)
			r.Delete("/{id}", s.handleDeleteSource)
			r.Post("/{id}/toggle", s.handleToggleSource)
		})

		r.Route("/summaries", func(r chi.Router) {
			r.Get("/", s.handleListSummaries)
			r.Get("/{id}", s.handleGetSummary)
			r.Post("/{id}/mark-read", s.handleMarkRead)
			r.Delete("/{id}", s.handleDeleteSummary)
		})

		r.Route("/articles", func(r chi.Router) {
			r.Post("/", s.handleCompileArticle)
			r.Get("/", s.handleListArticles)
			r.Get("/{id}", s.handleGetArticle)
			r.Delete("/{id}", s.handleDeleteArticle)
		})

		r.Post("/process-url", s.handleProcessURL)
		r.Post("/check-sources", s.handleCheckSources)
		r.Get("/tags", s.handleTags)
		r.Get("/categories", s.handleCategories)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.app.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "AI Veille API"})
}

func (s *server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var in models.SourceInput
	if !decodeBody(w, r, &in) {
		return
	}

	src, err := s.app.CreateSource(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *server) handleListSources(w http.ResponseWriter, r *http.Request) {
	items, err := s.app.ListSources(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.app.GetSource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, "Source not found")
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	var in models.SourceInput
	if !decodeBody(w, r, &in) {
		return
	}

	src, err := s.app.UpdateSource(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err, "Source not found")
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err, "Source not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Source deleted"})
}

func (s *server) handleToggleSource(w http.ResponseWriter, r *http.Request) {
	active, err := s.app.ToggleSource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, "Source not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (s *server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SummaryFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Tag:      strings.TrimSpace(q.Get("tag")),
	}
	if raw := strings.TrimSpace(q.Get("is_new")); raw != "" {
		isNew, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "is_new must be a boolean"})
			return
		}
		filter.IsNew = &isNew
	}

	items, err := s.app.ListSummaries(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.app.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, "Summary not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.app.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err, "Summary not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Marked as read"})
}

func (s *server) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteSummary(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err, "Summary not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Summary deleted"})
}

func (s *server) handleProcessURL(w http.ResponseWriter, r *http.Request) {
	var req processURLRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.liftWriteDeadline(w, r)
	summary, err := s.app.ProcessURL(r.Context(), req.URL, req.Save)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleCompileArticle(w http.ResponseWriter, r *http.Request) {
	var req app.CompileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.liftWriteDeadline(w, r)
	article, err := s.app.CompileArticle(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "No summaries found")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := s.app.ListArticles(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.app.GetArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, "Article not found")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteArticle(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err, "Article not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Article deleted"})
}

func (s *server) handleCheckSources(w http.ResponseWriter, _ *http.Request) {
	s.app.TriggerIngest()
	writeJSON(w, http.StatusOK, messageResponse{Message: "Source check started in background"})
}

func (s *server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.app.Tags(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.app.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// fail maps application errors to status codes. notFound is the message used for store.ErrNotFound.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, app.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		if notFound == "" {
			notFound = "Not found"
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound})
	default:
		s.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("err", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// liftWriteDeadline clears the server WriteTimeout for routes whose duration grows with
// the number of pages fetched. Each fetch and the model call carry their own timeouts.
func (s *server) liftWriteDeadline(w http.ResponseWriter, r *http.Request) {
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.log.Warn("clear write deadline", slog.String("path", r.URL.Path), slog.Any("err", err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
