package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"quizforge-service/internal/app"
	"quizforge-service/internal/domain"
)

// QuizViewCache serves assembled quiz views, possibly from a cache, and drops
// entries after deletion.
type QuizViewCache interface {
	Get(ctx context.Context, quizID int64, ownerID string) (domain.QuizView, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// Generator produces quiz documents from free-form context text.
type Generator interface {
	GenerateQuiz(ctx context.Context, contextText string, numQuestions int) (domain.QuizDoc, error)
}

// TokenVerifier checks a bearer token and returns the owner it identifies.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Handler exposes the quiz service over HTTP.
type Handler struct {
	service   *app.QuizService
	views     QuizViewCache
	generator Generator
	tokens    TokenVerifier
	upgrader  websocket.Upgrader
}

func NewHandler(service *app.QuizService, views QuizViewCache, generator Generator, tokens TokenVerifier) *Handler {
	return &Handler{
		service:   service,
		views:     views,
		generator: generator,
		tokens:    tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the router. Everything except the health check requires a
// verified bearer token.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireOwner)
		r.Post("/generate", h.generateQuiz)
		r.Post("/upload", h.uploadQuiz)
		r.Get("/quizzes", h.listQuizzes)
		r.Get("/quiz/{quizID}", h.getQuiz)
		r.Delete("/quiz/{quizID}", h.deleteQuiz)
		r.Post("/quiz/{quizID}/attempt", h.recordAttempt)
		r.Get("/attempts", h.latestAttempts)
		r.Post("/mock-exam", h.composeMockExam)
		r.Get("/ws/attempts", h.serveAttemptFeed)
	})
	return r
}

type contextKey struct{}

var ownerKey contextKey

// requireOwner verifies the bearer token (or, for websocket clients that
// cannot set headers, a token query parameter) and stores the owner in the
// request context.
func (h *Handler) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		ownerID, err := h.tokens.Verify(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, ownerID)))
	})
}

func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

func (h *Handler) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Context      string `json:"context"`
		NumQuestions int    `json:"numQuestions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.generator.GenerateQuiz(r.Context(), req.Context, req.NumQuestions)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSONError(w, http.StatusBadGateway, "failed to generate quiz: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// uploadQuiz accepts either a raw JSON document or a multipart upload with a
// "file" field containing one.
func (h *Handler) uploadQuiz(w http.ResponseWriter, r *http.Request) {
	body, err := quizDocumentBody(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var doc domain.QuizDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid quiz document: "+err.Error())
		return
	}

	quizID, err := h.service.IngestQuiz(r.Context(), doc, ownerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Quiz uploaded", "quiz_id": quizID})
}

func quizDocumentBody(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return io.ReadAll(r.Body)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("missing quiz file")
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := quizIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}
	view, err := h.views.Get(r.Context(), quizID, ownerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := quizIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), quizID, ownerFromContext(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = h.views.Invalidate(r.Context(), quizID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordAttempt(w http.ResponseWriter, r *http.Request) {
	quizID, err := quizIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}
	var req struct {
		Score *int `json:"score"`
		Total *int `json:"total"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Score == nil || req.Total == nil {
		writeJSONError(w, http.StatusBadRequest, "Missing score or total.")
		return
	}
	if err := h.service.RecordAttempt(r.Context(), quizID, *req.Score, *req.Total, ownerFromContext(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Attempt recorded"})
}

func (h *Handler) latestAttempts(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.LatestAttempts(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (h *Handler) composeMockExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NumQuestions int `json:"numQuestions"`
	}
	// An empty body means defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quizID, err := h.service.ComposeMockExam(r.Context(), ownerFromContext(r.Context()), req.NumQuestions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Mock exam created", "quiz_id": quizID})
}

func quizIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInsufficientData):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// Store and driver errors stay out of responses.
		log.Printf("internal error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
