// Package handlers implements the HTTP handlers for the chatcore service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chatcore/chatcore/internal/checkpoint"
	"github.com/chatcore/chatcore/internal/executor"
	"github.com/chatcore/chatcore/pkg/models"
	"github.com/rs/zerolog/log"
)

// ChatService runs one agent turn. Satisfied by *executor.Executor;
// tests substitute a stub.
type ChatService interface {
	Run(ctx context.Context, text, threadID string) (*executor.Outcome, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Executor ChatService
	Store    checkpoint.Store
}

// New creates a Handlers instance.
func New(exec ChatService, store checkpoint.Store) *Handlers {
	return &Handlers{Executor: exec, Store: store}
}

// Chat handles POST /api/v1/chat: validate, run the agent loop, and
// return the answer with the (possibly generated) thread id.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validation happens before any thread state is touched.
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "'text' is required")
		return
	}

	outcome, err := h.Executor.Run(r.Context(), req.Text, req.ThreadID)
	if err != nil {
		log.Error().Str("thread_id", req.ThreadID).Err(err).Msg("Chat turn failed")
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"details": err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, models.ChatResponse{
		Text:     outcome.Text,
		ThreadID: outcome.ThreadID,
	})
}

// Health reports service and storage health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.Store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]string{
		"status":  status,
		"service": "chatcore",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
