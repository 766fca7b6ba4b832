// Package httpapi exposes the Memory Tool Facade over HTTP: a thin adapter,
// not a second copy of the policy. Handlers are JSON in, JSON out, errors
// included (a JSON result body with a non-200 status), routed with
// go-chi/chi's method-scoped routing and middleware chain.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ridgeway/memkeep/internal/facade"
)

// Server wires the Memory Tool Facade behind two routes:
// POST /v1/memories (store_memory) and GET /v1/memories (retrieve_memory).
type Server struct {
	tool   *facade.MemoryTool
	log    *slog.Logger
	router chi.Router
}

// NewServer builds the router. Call Handler() to get an http.Handler for
// http.ListenAndServe or httptest.
func NewServer(tool *facade.MemoryTool, log *slog.Logger) *Server {
	s := &Server{tool: tool, log: log}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/v1/memories", func(r chi.Router) {
		r.Post("/", s.handleStore)
		r.Get("/", s.handleRetrieve)
	})
	s.router = r
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

type storeRequestBody struct {
	Content    any    `json:"content"`
	MemoryDate string `json:"memory_date"`
	Subject    string `json:"subject"`
	Importance any    `json:"importance"`
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	AccessMode string `json:"access_mode"`
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var body storeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, facade.StoreResult{Status: "error", Reason: "malformed request body"})
		return
	}

	result := s.tool.StoreMemory(r.Context(), facade.StoreRequest{
		Content:    body.Content,
		MemoryDate: body.MemoryDate,
		Subject:    body.Subject,
		Importance: body.Importance,
		SessionID:  body.SessionID,
		UserID:     body.UserID,
		AccessMode: body.AccessMode,
	})
	writeJSON(w, statusCodeFor(result.Status), result)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	result := s.tool.RetrieveMemory(r.Context(), facade.RetrieveRequest{
		Query:       q.Get("query"),
		Scope:       q["scope"],
		StateFilter: q.Get("state_filter"),
		Limit:       limit,
		UserID:      q.Get("user_id"),
	})
	writeJSON(w, statusCodeFor(result.Status), result)
}

func statusCodeFor(status string) int {
	switch status {
	case "success":
		return http.StatusOK
	case "exists":
		return http.StatusConflict
	case "rejected":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
